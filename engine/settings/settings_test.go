package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	return New(filepath.Join(t.TempDir(), "viking", "settings.toml"))
}

func TestLoadWindowDefaults(t *testing.T) {
	s := newStore(t)
	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, Window{Width: 800, Height: 600}, w)
}

func TestWindowRoundTripFiltersStates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveWindow(Window{
		X: 10, Y: -20, Width: 1280, Height: 720,
		Maximized:  true,
		Fullscreen: true,
		Active:     true,
	}))

	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, Window{X: 10, Y: -20, Width: 1280, Height: 720, Maximized: true}, w)

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "fullscreen")
	assert.NotContains(t, string(data), "active")
}

func TestLoadWindowFiltersHandEditedStates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0o755))
	require.NoError(t, os.WriteFile(s.Path, []byte(`
[main_window]
x = 1
y = 2
width = 300
height = 200
minimized = true
fullscreen = true
active = true
`), 0o644))

	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, Window{X: 1, Y: 2, Width: 300, Height: 200, Minimized: true}, w)
}

func TestPipelineCacheRoundTrip(t *testing.T) {
	s := newStore(t)

	data, err := s.LoadPipelineCache()
	require.NoError(t, err)
	assert.Nil(t, data)

	blob := []byte(strings.Repeat("pipeline cache header and entries ", 64))
	require.NoError(t, s.SavePipelineCache(blob))

	data, err = s.LoadPipelineCache()
	require.NoError(t, err)
	assert.Equal(t, blob, data)

	raw, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pipeline_cache_layout_version = 1")
	assert.Less(t, len(raw), len(blob), "blob is stored compressed")
}

func TestPipelineCacheVersionMismatchIsAMiss(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SavePipelineCache([]byte("cache")))

	raw, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	edited := strings.Replace(string(raw), "pipeline_cache_layout_version = 1", "pipeline_cache_layout_version = 7", 1)
	require.NoError(t, os.WriteFile(s.Path, []byte(edited), 0o644))

	data, err := s.LoadPipelineCache()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestPipelineCacheCorruptBlob(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0o755))
	require.NoError(t, os.WriteFile(s.Path, []byte(`
[graphics]
pipeline_cache = "bm90IHpsaWI="
pipeline_cache_layout_version = 1
`), 0o644))

	_, err := s.LoadPipelineCache()
	assert.Error(t, err)
}

func TestSectionsAreIndependent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SavePipelineCache([]byte("cache")))
	require.NoError(t, s.SaveWindow(Window{Width: 1024, Height: 768}))

	data, err := s.LoadPipelineCache()
	require.NoError(t, err)
	assert.Equal(t, []byte("cache"), data)

	require.NoError(t, s.SavePipelineCache([]byte("newer")))
	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), w.Width)
}

func TestUnparsableFileIsReplacedOnSave(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path), 0o755))
	require.NoError(t, os.WriteFile(s.Path, []byte("not = [toml"), 0o644))

	_, err := s.LoadWindow()
	assert.Error(t, err)

	require.NoError(t, s.SaveWindow(DefaultWindow()))
	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow(), w)
}

func TestLoadWindowUsesStoreDefault(t *testing.T) {
	s := newStore(t)
	s.DefaultWindow = Window{X: 100, Y: 100, Width: 1280, Height: 720}

	w, err := s.LoadWindow()
	require.NoError(t, err)
	assert.Equal(t, s.DefaultWindow, w)
}
