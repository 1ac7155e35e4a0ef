package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/apod-cache/internal/cache"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func seed(t *testing.T, path string, keys ...string) {
	t.Helper()
	c := cache.New[json.RawMessage](cache.Options{
		Store:         cache.NewFileStore(afero.NewOsFs(), path),
		SaveInterval:  -1,
		SweepInterval: -1,
	})
	for _, k := range keys {
		c.Set(k, json.RawMessage(`{"title":"x"}`), cache.KindDate)
	}
	_, _ = c.Get("apod:date:2024-01-01")
	_, _ = c.Get("apod:date:missing")
	require.NoError(t, c.Close())
}

func TestKeysAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	seed(t, path, "apod:date:2024-01-01", "apod:date:2024-01-02", "apod:today:2024-01-03")
	flags := []string{"--backend", "file", "--path", path}

	out := run(t, append([]string{"keys"}, flags...)...)
	assert.Equal(t, "apod:date:2024-01-01\napod:date:2024-01-02\napod:today:2024-01-03\n", out)

	out = run(t, append([]string{"keys", "--prefix", "apod:today:"}, flags...)...)
	assert.Equal(t, "apod:today:2024-01-03\n", out)

	out = run(t, append([]string{"clear", "apod:date:"}, flags...)...)
	assert.Equal(t, "cleared 2 entries\n", out)

	out = run(t, append([]string{"keys"}, flags...)...)
	assert.Equal(t, "apod:today:2024-01-03\n", out)

	out = run(t, append([]string{"clear"}, flags...)...)
	assert.Equal(t, "cleared 1 entries\n", out)
}

func TestStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	seed(t, path, "apod:date:2024-01-01", "apod:date:2024-01-02")

	out := run(t, "stats", "--backend", "file", "--path", path)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 1, report["hits"])
	assert.EqualValues(t, 1, report["misses"])
	assert.EqualValues(t, 2, report["size"])
	assert.Equal(t, "50.00%", report["hitRate"])
}

func TestSweepCountsExpiredSnapshotEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	now := time.Now().UnixMilli()
	snapshot := fmt.Sprintf(`{"cache":{
		"apod:date:2024-01-01":{"data":{},"timestamp":%d,"expires":%d,"type":"date"},
		"apod:today:2024-01-02":{"data":{},"timestamp":%d,"expires":%d,"type":"today"},
		"apod:range:2024-01-01-2024-01-02":{"data":[],"timestamp":%d,"expires":%d,"type":"range"}
	},"stats":{"hits":0,"misses":0,"size":3,"createdAt":"2024-01-01T00:00:00Z"},"updatedAt":"2024-01-02T00:00:00Z"}`,
		now, now+int64(time.Hour/time.Millisecond),
		now-2*int64(time.Hour/time.Millisecond), now-int64(time.Hour/time.Millisecond),
		now-2*int64(time.Hour/time.Millisecond), now-int64(time.Minute/time.Millisecond))
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o644))

	out := run(t, "sweep", "--backend", "file", "--path", path)
	assert.Equal(t, "removed 2 expired entries\n", out)

	out = run(t, "keys", "--backend", "file", "--path", path)
	assert.Equal(t, "apod:date:2024-01-01\n", out)
}

func TestBoltBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bbolt")
	out := run(t, "stats", "--backend", "bolt", "--path", path)
	assert.True(t, strings.Contains(out, `"size": 0`), out)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestUnknownBackend(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"keys", "--backend", "redis", "--path", filepath.Join(t.TempDir(), "x")})
	assert.ErrorIs(t, cmd.Execute(), cache.ErrUnknownBackend)
}
