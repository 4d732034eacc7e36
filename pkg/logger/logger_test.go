package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelDebug}).With(Component("ledger"))

	log.Info("balance updated", UserID("u1"), Delta(-5), Balance(40), Bool("override", true), Err(nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "balance updated", line["msg"])
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, float64(-5), line["delta"])
	assert.Equal(t, true, line["override"])
	assert.NotContains(t, line, "error")
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelWarn, Format: "text"})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Error("kept", Err(errors.New("boom")))
	assert.Contains(t, buf.String(), "error=boom")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf}).WithRequestID("req-1")
	ctx := WithContext(context.Background(), log)

	FromContext(ctx).Info("handled")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	assert.NotNil(t, FromContext(context.Background()))
}
