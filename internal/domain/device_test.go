package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smart-home-bot/internal/domain"
)

func TestDescribeSortsParams(t *testing.T) {
	d := domain.Device{Name: "Kitchen light", Params: map[string]string{"condition": "ON", "brightness": "40"}}

	assert.Equal(t, "Kitchen light brightness:40 condition:ON", d.Describe())
	assert.Equal(t, []string{"brightness", "condition"}, d.ParamKeys())
}

func TestWithParamCopies(t *testing.T) {
	d := domain.Device{Name: "Kettle", Params: map[string]string{"condition": "OFF"}}

	updated := d.WithParam("condition", "ON")

	assert.Equal(t, "ON", updated.Params["condition"])
	assert.Equal(t, "OFF", d.Params["condition"])
	assert.True(t, updated.HasParam("condition"))
	assert.False(t, updated.HasParam("temperature"))
}

func TestUpdateCommandComplete(t *testing.T) {
	assert.True(t, domain.UpdateCommand{Device: "tv", Command: "volume", Value: "10"}.Complete())
	assert.True(t, domain.UpdateCommand{Command: "volume", Value: "10"}.Complete())
	assert.False(t, domain.UpdateCommand{Device: "tv", Command: "volume"}.Complete())
	assert.False(t, domain.UpdateCommand{Device: "tv", Value: "10"}.Complete())
}
