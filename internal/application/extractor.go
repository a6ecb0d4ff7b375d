package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"smart-home-bot/internal/domain"
)

// ErrNoResult means the model produced no usable structured output: an empty
// completion, invalid JSON or a schema violation.
var ErrNoResult = errors.New("no structured result")

// Extractor turns an utterance plus device context into a typed command with
// exactly one model call per extraction.
type Extractor struct {
	invoker *Invoker
	group   *jsonschema.Schema
	logger  *slog.Logger
}

func NewExtractor(invoker *Invoker, logger *slog.Logger) (*Extractor, error) {
	schema, err := compileGroupSchema()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		invoker: invoker,
		group:   schema,
		logger:  logger,
	}, nil
}

// Update returns an UpdateCommand or an ErrorResult.
func (e *Extractor) Update(ctx context.Context, text string, devices []domain.Device) (domain.Command, error) {
	fields, err := e.object(ctx, buildUpdatePrompt(text, devices))
	if err != nil {
		return nil, fmt.Errorf("extracting update: %w", err)
	}
	if msg, ok := errorField(fields); ok {
		return domain.ErrorResult{Message: msg}, nil
	}
	return domain.UpdateCommand{
		Device:  stringField(fields, "device"),
		Command: stringField(fields, "command"),
		Value:   stringField(fields, "value"),
	}, nil
}

// Create returns a CreateCommand or an ErrorResult.
func (e *Extractor) Create(ctx context.Context, text string, templates []domain.Device) (domain.Command, error) {
	fields, err := e.object(ctx, buildCreatePrompt(text, templates))
	if err != nil {
		return nil, fmt.Errorf("extracting create: %w", err)
	}
	if msg, ok := errorField(fields); ok {
		return domain.ErrorResult{Message: msg}, nil
	}

	cmd := domain.CreateCommand{
		Name:            stringField(fields, "name"),
		SimilarDeviceID: stringField(fields, "device_id"),
		Params:          map[string]string{},
	}
	if raw, ok := fields["params"]; ok && raw != nil {
		params, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("extracting create: params is %T: %w", raw, ErrNoResult)
		}
		for k, v := range params {
			cmd.Params[k] = stringify(v)
		}
	}
	return cmd, nil
}

// Delete returns a DeleteCommand or an ErrorResult.
func (e *Extractor) Delete(ctx context.Context, text string, devices []domain.Device) (domain.Command, error) {
	fields, err := e.object(ctx, buildDeletePrompt(text, devices))
	if err != nil {
		return nil, fmt.Errorf("extracting delete: %w", err)
	}
	if msg, ok := errorField(fields); ok {
		return domain.ErrorResult{Message: msg}, nil
	}
	return domain.DeleteCommand{
		Device: stringField(fields, "device"),
		ID:     stringField(fields, "id"),
	}, nil
}

// Group returns every update in the utterance, or ErrNoResult if any element
// of the model's array breaks the schema.
func (e *Extractor) Group(ctx context.Context, text string, devices []domain.Device) ([]domain.UpdateCommand, error) {
	raw := e.invoker.Invoke(ctx, buildGroupPrompt(text, devices))
	cmds, err := e.parseGroup(raw)
	if err != nil {
		return nil, fmt.Errorf("extracting group: %w", err)
	}
	return cmds, nil
}

func (e *Extractor) parseGroup(raw string) ([]domain.UpdateCommand, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response: %w", ErrNoResult)
	}

	if outside := strings.TrimSpace(raw[:start] + raw[end+1:]); outside != "" {
		e.logger.Warn("ignoring text around group command array", "text", outside)
	}

	body := raw[start : end+1]

	var doc any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding group array: %v: %w", err, ErrNoResult)
	}
	if err := e.group.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating group array: %v: %w", err, ErrNoResult)
	}

	var cmds []domain.UpdateCommand
	if err := json.Unmarshal([]byte(body), &cmds); err != nil {
		return nil, fmt.Errorf("decoding group commands: %v: %w", err, ErrNoResult)
	}
	return cmds, nil
}

// object invokes the model and decodes the whole completion as one JSON object.
func (e *Extractor) object(ctx context.Context, prompt string) (map[string]any, error) {
	raw := e.invoker.Invoke(ctx, prompt)
	if raw == "" {
		return nil, fmt.Errorf("empty completion: %w", ErrNoResult)
	}

	body := stripCodeFence(raw)

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding %q: %v: %w", body, err, ErrNoResult)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object in %q: %w", body, ErrNoResult)
	}
	if fields == nil {
		return nil, fmt.Errorf("null object: %w", ErrNoResult)
	}
	return fields, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func errorField(fields map[string]any) (string, bool) {
	v, ok := fields["error"]
	if !ok || v == nil {
		return "", false
	}
	msg := stringify(v)
	return msg, msg != ""
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
