package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logOneRecord(t *testing.T, attrs ...any) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.LogAttrs(context.Background(), slog.LevelInfo, "test message", argsToAttrs(attrs)...)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

func TestMaskingHandler_MasksSecrets(t *testing.T) {
	record := logOneRecord(t,
		"password", "hunter2",
		"token", "abc123",
		"api_key", "key-999",
	)

	assert.Equal(t, "***", record["password"])
	assert.Equal(t, "***", record["token"])
	assert.Equal(t, "***", record["api_key"])
}

func TestMaskingHandler_MasksPhoneIdentifiers(t *testing.T) {
	record := logOneRecord(t,
		"sender_id", "whatsapp:+5215512345678",
		"note", "visible",
	)

	assert.Equal(t, "***5678", record["sender_id"])
	assert.Equal(t, "visible", record["note"])
}

func TestMaskingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With("phone", "+5215512345678").Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "***5678", record["phone"])
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***5678", MaskPhone("whatsapp:+5215512345678"))
	assert.Equal(t, "***", MaskPhone("1234"))
	assert.Equal(t, "***", MaskPhone(""))
}
