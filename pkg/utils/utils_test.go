package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(" \t\n"))
	assert.False(t, IsEmpty(" ORD-1 "))
}

func TestSignAndVerifyReference(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	sig := SignReference("ORD-1001", key)

	assert.Len(t, sig, 64)
	assert.Equal(t, sig, SignReference("ORD-1001", key))
	assert.True(t, VerifyReference("ORD-1001", sig, key))
	assert.False(t, VerifyReference("ORD-1002", sig, key))
	assert.False(t, VerifyReference("ORD-1001", sig, []byte("another-key-another-key-another-k")))
	assert.False(t, VerifyReference("ORD-1001", "not-hex", key))
	assert.False(t, VerifyReference("ORD-1001", "", key))
}

func TestDecodeKey(t *testing.T) {
	raw := []byte("0123456789abcdef0123456789abcdef")
	key, err := DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	_, err = DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
	_, err = DecodeKey("%%%")
	assert.Error(t, err)
}

func TestCalculateExponentialBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	assert.Zero(t, CalculateExponentialBackoffWithJitter(0, base, max))
	assert.Zero(t, CalculateExponentialBackoffWithJitter(1, 0, max))

	for attempt := 1; attempt <= 6; attempt++ {
		expected := base << (attempt - 1)
		if expected > max {
			expected = max
		}
		got := CalculateExponentialBackoffWithJitter(attempt, base, max)
		assert.GreaterOrEqual(t, got, expected-expected/8, "attempt %d", attempt)
		assert.LessOrEqual(t, got, max, "attempt %d", attempt)
	}
	assert.LessOrEqual(t, CalculateExponentialBackoffWithJitter(200, base, max), max)
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client := NewHTTPClient()
	assert.Equal(t, defaultClientTimeout, client.Timeout)

	client = NewHTTPClient(WithClientTimeout(time.Second), WithResponseHeaderTimeout(time.Minute))
	assert.Equal(t, time.Second, client.Timeout)
}

type sampleConfig struct {
	Port    string `mapstructure:"PORT" validate:"required"`
	Retries int    `mapstructure:"RETRIES" validate:"min=1"`
}

func TestFormatConfigErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	cfg := sampleConfig{}
	err := validator.New().Struct(&cfg)
	require.Error(t, err)

	formatted := FormatConfigErrors(zap.New(core), err, cfg)

	assert.EqualError(t, formatted, "invalid configuration: PORT(required), RETRIES(min)")
	entries := logs.FilterMessage("invalid_config_value").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "PORT", entries[0].ContextMap()["key"])
}
