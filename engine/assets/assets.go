package assets

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/core"
)

// DefaultDebounce is how long a shader file must stay quiet before a change
// is reported. Compilers usually write the output in several chunks.
const DefaultDebounce = 250 * time.Millisecond

type AssetInfo struct {
	Path       string
	FullPath   string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager indexes every file under the assets directory by its slash
// separated relative path and loads them on request. When hot reload is on,
// rewritten shader bytecode posts EVENT_CODE_SHADERS_CHANGED.
type AssetManager struct {
	Debounce time.Duration

	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	watching bool
	pending  map[string]*time.Timer
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		Debounce: DefaultDebounce,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Initialize indexes assetsDir and, with hotReload, starts watching it.
func (am *AssetManager) Initialize(assetsDir string, hotReload bool) error {
	if am.isClosed {
		return errors.Wrap(core.ErrClosed, "asset manager")
	}
	info, err := os.Stat(assetsDir)
	if err != nil {
		return errors.Wrap(err, "assets directory")
	}
	if !info.IsDir() {
		return errors.Errorf("assets path %q is not a directory", assetsDir)
	}
	am.root = assetsDir

	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(loaders.ResourceTypeModel, &loaders.ModelLoader{})

	if err := am.watchRecursive(assetsDir, hotReload); err != nil {
		return err
	}
	core.LogInfo("indexed %d assets under %s", am.Count(), assetsDir)

	if hotReload {
		am.watching = true
		go am.start()
	}
	return nil
}

// Close stops the watcher and any pending change notifications.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	for p, t := range am.pending {
		t.Stop()
		delete(am.pending, p)
	}
	am.mutex.Unlock()

	if am.watching {
		close(am.done)
		<-am.stopped
		return nil
	}
	return am.fsnotify.Close()
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup returns the index entry for a relative asset path.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[name]
	return asset, ok
}

// LoadAsset loads an asset using the loader registered for its type.
func (am *AssetManager) LoadAsset(name string) (*loaders.Resource, error) {
	am.mutex.Lock()
	asset, exists := am.assets[name]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[name] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Wrap(core.ErrAssetNotFound, name)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Errorf("no loader registered for asset type %s", asset.Type)
	}
	core.LogDebug("loading %s %s", asset.Type, name)
	return loader.Load(asset.FullPath, name)
}

func (am *AssetManager) UnloadAsset(res *loaders.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return nil
	}
	return loader.Unload(res)
}

// Shader loads shaders/<name>.spv, e.g. Shader("tex.vert").
func (am *AssetManager) Shader(name string) (*loaders.ShaderSource, error) {
	res, err := am.load(path.Join("shaders", name+".spv"), loaders.ResourceTypeShader)
	if err != nil {
		return nil, err
	}
	src := res.Data.(*loaders.ShaderSource)
	src.Name = name
	return src, nil
}

func (am *AssetManager) Texture(name string) (*loaders.Texture, error) {
	res, err := am.load(name, loaders.ResourceTypeImage)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.Texture), nil
}

func (am *AssetManager) Model(name string) (*loaders.Model, error) {
	res, err := am.load(name, loaders.ResourceTypeModel)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.Model), nil
}

func (am *AssetManager) load(name string, want loaders.ResourceType) (*loaders.Resource, error) {
	if asset, ok := am.Lookup(name); ok && asset.Type != want {
		return nil, errors.Wrapf(core.ErrAssetTypeMismatch, "%s is a %s, not a %s", name, asset.Type, want)
	}
	return am.LoadAsset(name)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name, true); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err)
			}
		}
		return
	}

	// Handle create or modify events
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if info, ok := am.handleFileEvent(e.Name); ok && info.Type == loaders.ResourceTypeShader {
			am.shaderChanged(info.Path)
		}
	}
	// Deleted paths cannot be stat'd, so they are dropped from both the index
	// and the watch list without knowing whether they were directories.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// shaderChanged restarts the quiet period for name and posts a single
// EVENT_CODE_SHADERS_CHANGED once it elapses.
func (am *AssetManager) shaderChanged(name string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return
	}
	if t, ok := am.pending[name]; ok {
		t.Reset(am.Debounce)
		return
	}
	am.pending[name] = time.AfterFunc(am.Debounce, func() {
		am.mutex.Lock()
		delete(am.pending, name)
		closed := am.isClosed
		am.mutex.Unlock()
		if closed {
			return
		}
		core.LogInfo("shader %s changed", name)
		core.EventPost(core.EventContext{
			Type: core.EVENT_CODE_SHADERS_CHANGED,
			Data: &core.AssetEvent{Path: name},
		})
	})
}

// watchRecursive indexes every file under dir and, with watch, adds each
// directory to the watch list. Files created before the watch is in place
// are still picked up by the walk.
func (am *AssetManager) watchRecursive(dir string, watch bool) error {
	return filepath.WalkDir(dir, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if watch {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(fullPath string) (AssetInfo, bool) {
	name, ok := am.relative(fullPath)
	if !ok {
		return AssetInfo{}, false
	}
	assetType := determineAssetType(name)
	if assetType == loaders.ResourceTypeNone {
		return AssetInfo{}, false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := AssetInfo{
		Path:     name,
		FullPath: fullPath,
		Type:     assetType,
	}
	am.assets[name] = info
	return info, true
}

// Remove the asset, or every asset below a removed directory, from the index
func (am *AssetManager) removeAsset(fullPath string) {
	name, ok := am.relative(fullPath)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, name)
	prefix := name + "/"
	for p := range am.assets {
		if strings.HasPrefix(p, prefix) {
			delete(am.assets, p)
		}
	}
}

func (am *AssetManager) relative(fullPath string) (string, bool) {
	rel, err := filepath.Rel(am.root, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func determineAssetType(name string) loaders.ResourceType {
	switch strings.ToLower(path.Ext(name)) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return loaders.ResourceTypeImage
	case ".obj":
		return loaders.ResourceTypeModel
	default:
		return loaders.ResourceTypeNone
	}
}
