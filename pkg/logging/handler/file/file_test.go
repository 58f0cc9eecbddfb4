package file

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type panicStringer struct{}

func (panicStringer) String() string { panic("no") }

func TestNew(t *testing.T) {
	dir := t.TempDir()

	t.Run("blank path", func(t *testing.T) {
		_, err := New(Config{Path: "  "})
		assert.ErrorIs(t, err, logging.ErrInvalidConfig)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := New(Config{Path: filepath.Join(dir, "nope", "audit.log")})
		assert.ErrorIs(t, err, logging.ErrInvalidConfig)
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := filepath.Join(dir, "plain")
		require.NoError(t, os.WriteFile(parent, nil, 0o644))
		_, err := New(Config{Path: filepath.Join(parent, "audit.log")})
		assert.ErrorIs(t, err, logging.ErrInvalidConfig)
	})

	t.Run("path is a directory", func(t *testing.T) {
		_, err := New(Config{Path: dir})
		assert.ErrorIs(t, err, logging.ErrInvalidConfig)
	})

	t.Run("creates the file", func(t *testing.T) {
		path := filepath.Join(dir, "audit.log")
		h, err := New(Config{Path: path})
		require.NoError(t, err)
		assert.Equal(t, path, h.Path())
		assert.FileExists(t, path)
	})
}

func TestHandler_Deliver(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local)

	t.Run("template lines are appended", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.log")
		h, err := New(Config{Path: path, Template: "${principal} ${time} ${clientIp}"})
		require.NoError(t, err)

		ctx := context.Background()
		for _, who := range []string{"alice", "bob"} {
			e := logging.NewBuilder().WithPrincipal(who).WithOccurredAt(at).WithClientIP("10.0.0.1").Build()
			require.Equal(t, logging.Success, h.Deliver(ctx, e))
		}

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "alice 2024-03-09 14:30:05 10.0.0.1\nbob 2024-03-09 14:30:05 10.0.0.1\n", string(data))
	})

	t.Run("json lines by default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.jsonl")
		h, err := New(Config{Path: path})
		require.NoError(t, err)

		e := logging.NewBuilder().WithPrincipal("alice").WithStatus(logging.StatusSuccess).Build()
		require.Equal(t, logging.Success, h.Deliver(context.Background(), e))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		line := strings.TrimSuffix(string(data), "\n")
		assert.NotContains(t, line, "\n")
		assert.Contains(t, line, `"principal":"alice"`)
		assert.Contains(t, line, `"status":"SUCCESS"`)
	})

	t.Run("format failure leaves the file untouched", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.log")
		h, err := New(Config{Path: path, Template: "${business_type}"}, WithLogger(quiet))
		require.NoError(t, err)

		result := h.Deliver(context.Background(), logging.NewBuilder().WithBusinessType(panicStringer{}).Build())
		assert.Equal(t, logging.Failure, result)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("unwritable target", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.log")
		h, err := New(Config{Path: path}, WithLogger(quiet))
		require.NoError(t, err)

		// replace the file with a directory so every open fails
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.Mkdir(path, 0o755))

		assert.Equal(t, logging.Failure, h.Deliver(context.Background(), logging.NewBuilder().Build()))
	})

	t.Run("concurrent appends keep whole lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.log")
		h, err := New(Config{Path: path, Template: "${principal}"})
		require.NoError(t, err)

		payload := strings.Repeat("x", 512)
		var wg sync.WaitGroup
		for range 40 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.Deliver(context.Background(), logging.NewBuilder().WithPrincipal(payload).Build())
			}()
		}
		wg.Wait()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		require.Len(t, lines, 40)
		for _, l := range lines {
			assert.Equal(t, payload, l)
		}
	})
}

func TestNewFactory_ReportsBuildFailureToHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	f := NewFactory(Config{Path: ""}, WithLogger(logger))
	res := f.Deliver(context.Background(), logging.NewBuilder().Build())

	assert.Equal(t, logging.Failure, res)
	assert.Contains(t, buf.String(), "failed to build log handler")
	assert.Contains(t, buf.String(), "file path is required")
}
