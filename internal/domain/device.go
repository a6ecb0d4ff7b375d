package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Device is either a catalog template (TemplateID == 0) or a device owned by a user.
// Params holds the current parameter values keyed by the device type's parameter names.
type Device struct {
	ID         int64
	Name       string
	TemplateID int64
	Params     map[string]string
}

// NewDevice is a request to register an owned device built from a catalog template.
type NewDevice struct {
	TemplateID int64
	Name       string
	Params     map[string]string
}

// ParamKeys returns the device's parameter names in sorted order.
func (d Device) ParamKeys() []string {
	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasParam reports whether key belongs to the device's parameter set.
func (d Device) HasParam(key string) bool {
	_, ok := d.Params[key]
	return ok
}

// Describe renders the text embedded for semantic matching: the name followed by key:value pairs.
func (d Device) Describe() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	for _, k := range d.ParamKeys() {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString(":")
		sb.WriteString(d.Params[k])
	}
	return sb.String()
}

// WithParam returns a copy of the device with key set to value.
func (d Device) WithParam(key, value string) Device {
	params := make(map[string]string, len(d.Params)+1)
	for k, v := range d.Params {
		params[k] = v
	}
	params[key] = value
	d.Params = params
	return d
}

func (d Device) String() string {
	return fmt.Sprintf("%s (id %d)", d.Name, d.ID)
}
