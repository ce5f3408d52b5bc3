package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/linemk/storefront/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.SetupLogger(logger.EnvProd, &buf)

	log.Debug("hidden")
	log.Info("order committed", slog.Int64("order_id", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order committed", entry["msg"])
	assert.Equal(t, float64(7), entry["order_id"])
}

func TestSetupLogger_LocalIsPretty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.SetupLogger(logger.EnvLocal, &buf)

	log.With(slog.String("op", "test")).Debug("checkout started")

	out := buf.String()
	assert.Contains(t, out, "checkout started")
	assert.Contains(t, out, `"op": "test"`)
}

func TestNewWriter_NoFile(t *testing.T) {
	assert.Equal(t, os.Stdout, logger.NewWriter(""))
}
