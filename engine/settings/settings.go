// Package settings persists state between runs: the main window geometry and
// the driver's pipeline cache. Everything lives in one TOML file.
package settings

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

// PipelineCacheLayoutVersion tags the stored cache blob. A blob stored under
// another version is discarded on load.
const PipelineCacheLayoutVersion = 1

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Window is the main window geometry and state.
type Window struct {
	X, Y          int32
	Width, Height uint32
	Maximized     bool
	Minimized     bool
	// Fullscreen and Active are never persisted.
	Fullscreen bool
	Active     bool
}

// DefaultWindow is used when nothing was stored yet.
func DefaultWindow() Window {
	return Window{Width: DefaultWidth, Height: DefaultHeight}
}

func filterStates(w Window) Window {
	w.Fullscreen = false
	w.Active = false
	return w
}

type windowSection struct {
	X          int32  `toml:"x"`
	Y          int32  `toml:"y"`
	Width      uint32 `toml:"width"`
	Height     uint32 `toml:"height"`
	Maximized  bool   `toml:"maximized"`
	Minimized  bool   `toml:"minimized"`
	Fullscreen bool   `toml:"fullscreen,omitempty"`
	Active     bool   `toml:"active,omitempty"`
}

type graphicsSection struct {
	PipelineCache              string `toml:"pipeline_cache"`
	PipelineCacheLayoutVersion int    `toml:"pipeline_cache_layout_version"`
}

type document struct {
	MainWindow *windowSection   `toml:"main_window,omitempty"`
	Graphics   *graphicsSection `toml:"graphics,omitempty"`
}

// Store reads and writes the settings file at Path. Every save rewrites the
// whole file, keeping the sections it does not touch.
type Store struct {
	Path string
	// DefaultWindow is returned by LoadWindow until a geometry is saved.
	DefaultWindow Window
	mu            sync.Mutex
}

func New(path string) *Store {
	return &Store{Path: path, DefaultWindow: DefaultWindow()}
}

func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrap(err, "read settings")
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "parse settings %s", s.Path)
	}
	return doc, nil
}

// write replaces the file through a rename so a crash never leaves half a
// document behind.
func (s *Store) write(doc document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create settings directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*")
	if err != nil {
		return errors.Wrap(err, "create settings file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write settings")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "write settings")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.Path), "replace settings")
}

func (s *Store) update(fn func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		// An unreadable file is replaced rather than blocking every save.
		core.LogWarn("discarding settings file %s: %s", s.Path, err)
		doc = document{}
	}
	fn(&doc)
	return s.write(doc)
}

// LoadWindow returns the stored geometry, or s.DefaultWindow if none is
// stored.
func (s *Store) LoadWindow() (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	core.LogDebug("Load window state from: %s", s.Path)

	doc, err := s.read()
	if err != nil {
		return s.DefaultWindow, err
	}
	if doc.MainWindow == nil {
		return s.DefaultWindow, nil
	}
	w := doc.MainWindow
	return filterStates(Window{
		X:          w.X,
		Y:          w.Y,
		Width:      w.Width,
		Height:     w.Height,
		Maximized:  w.Maximized,
		Minimized:  w.Minimized,
		Fullscreen: w.Fullscreen,
		Active:     w.Active,
	}), nil
}

func (s *Store) SaveWindow(w Window) error {
	w = filterStates(w)
	core.LogDebug("Save window settings to: %s", s.Path)
	return s.update(func(doc *document) {
		doc.MainWindow = &windowSection{
			X:         w.X,
			Y:         w.Y,
			Width:     w.Width,
			Height:    w.Height,
			Maximized: w.Maximized,
			Minimized: w.Minimized,
		}
	})
}

// LoadPipelineCache returns the stored cache blob. A missing blob or one
// stored under another layout version is a miss: nil data and no error.
func (s *Store) LoadPipelineCache() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	core.LogDebug("Load pipeline cache from: %s", s.Path)

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	g := doc.Graphics
	if g == nil || g.PipelineCache == "" {
		return nil, nil
	}
	if g.PipelineCacheLayoutVersion != PipelineCacheLayoutVersion {
		core.LogDebug("Stored version: %d, expected: %d, discarding", g.PipelineCacheLayoutVersion, PipelineCacheLayoutVersion)
		return nil, nil
	}
	return decodeBlob(g.PipelineCache)
}

func (s *Store) SavePipelineCache(data []byte) error {
	blob, err := encodeBlob(data)
	if err != nil {
		return err
	}
	core.LogDebug("Save pipeline cache to: %s", s.Path)
	return s.update(func(doc *document) {
		doc.Graphics = &graphicsSection{
			PipelineCache:              blob,
			PipelineCacheLayoutVersion: PipelineCacheLayoutVersion,
		}
	})
}

func encodeBlob(data []byte) (string, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", errors.Wrap(err, "compress pipeline cache")
	}
	if _, err := zw.Write(data); err != nil {
		return "", errors.Wrap(err, "compress pipeline cache")
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "compress pipeline cache")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeBlob(blob string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, errors.Wrap(err, "decode pipeline cache")
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "decompress pipeline cache")
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompress pipeline cache")
	}
	return data, nil
}
