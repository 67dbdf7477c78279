package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("无效级别回退到 info", func(t *testing.T) {
		log, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(-1)) // debug
		assert.True(t, log.Core().Enabled(0))   // info
	})

	t.Run("写入日志文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "contact.log")

		log, err := New(Config{Level: "debug", LogFile: path})
		require.NoError(t, err)

		log.Info("hello")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
	})
}
