package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSaveLoadConfigRoundTrip(t *testing.T) {
	e := NewPingEngine(V4, NewReceiverWorker())

	reference := time.Date(2021, 6, 15, 12, 0, 0, 0, time.UTC)
	e.SetEpoch(reference)
	e.SetInterval(250 * time.Millisecond)

	data, err := e.SaveConfig()
	assert.NoError(t, err)

	other := NewPingEngine(V4, NewReceiverWorker())
	assert.NoError(t, other.LoadConfig(data))

	assert.Equal(t, reference, other.Epoch())
	assert.Equal(t, 250*time.Millisecond, other.Interval())
}

func TestLoadConfigIgnoresUnknownKeysAndMissingFields(t *testing.T) {
	e := NewPingEngine(V4, NewReceiverWorker())
	originalInterval := e.Interval()

	err := e.LoadConfig([]byte(`{"unknown": "field"}`))
	assert.NoError(t, err)
	assert.Equal(t, originalInterval, e.Interval())
}

func TestLoadConfigRejectsMalformedJSON(t *testing.T) {
	e := NewPingEngine(V4, NewReceiverWorker())

	err := e.LoadConfig([]byte(`not json`))
	assert.Error(t, err)
}
