// logging/logger_test.go

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	t.Run("creates log files in an existing directory", func(t *testing.T) {
		dir := t.TempDir()
		InitLogger(dir)

		require.NotNil(t, Log)
		assert.FileExists(t, filepath.Join(dir, "aegis.log"))
		assert.FileExists(t, filepath.Join(dir, "aegis_error.log"))
	})

	t.Run("creates the log directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		_, err := os.Stat(dir)
		require.True(t, os.IsNotExist(err))

		InitLogger(dir)

		assert.DirExists(t, dir)
		assert.FileExists(t, filepath.Join(dir, "aegis.log"))
	})

	t.Run("writes entries to the log file", func(t *testing.T) {
		dir := t.TempDir()
		InitLogger(dir)

		Info("logger smoke test", zap.String("component", "logging"))
		_ = Log.Sync() // stdout may not support sync

		data, err := os.ReadFile(filepath.Join(dir, "aegis.log"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "logger smoke test")
	})
}
