package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func writeFile(t *testing.T, root, name string, data []byte) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
	return full
}

func newManager(t *testing.T, root string, hotReload bool) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	am.Debounce = 20 * time.Millisecond
	require.NoError(t, am.Initialize(root, hotReload))
	t.Cleanup(func() { assert.NoError(t, am.Close()) })
	return am
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]loaders.ResourceType{
		"shaders/tex.vert.spv":   loaders.ResourceTypeShader,
		"textures/viking.png":    loaders.ResourceTypeImage,
		"textures/VIKING.JPG":    loaders.ResourceTypeImage,
		"textures/a.webp":        loaders.ResourceTypeImage,
		"models/viking_room.obj": loaders.ResourceTypeModel,
		"shaders/tex.vert":       loaders.ResourceTypeNone,
		"models/viking_room.mtl": loaders.ResourceTypeNone,
	}
	for name, want := range cases {
		assert.Equal(t, want, determineAssetType(name), name)
	}
}

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "shaders/tex.vert.spv", spirvHeader)
	writeFile(t, root, "models/tri.obj", []byte(triangleOBJ))
	writeFile(t, root, "README.txt", []byte("ignored"))

	am := newManager(t, root, false)
	assert.Equal(t, 2, am.Count())

	info, ok := am.Lookup("shaders/tex.vert.spv")
	require.True(t, ok)
	assert.Equal(t, loaders.ResourceTypeShader, info.Type)
	assert.True(t, info.LastLoaded.IsZero())

	src, err := am.Shader("tex.vert")
	require.NoError(t, err)
	assert.Equal(t, "tex.vert", src.Name)
	assert.Equal(t, spirvHeader, src.Code)

	info, _ = am.Lookup("shaders/tex.vert.spv")
	assert.False(t, info.LastLoaded.IsZero())

	model, err := am.Model("models/tri.obj")
	require.NoError(t, err)
	assert.Len(t, model.Vertices, 3)
	assert.Equal(t, []uint32{0, 1, 2}, model.Indices)

	res, err := am.LoadAsset("models/tri.obj")
	require.NoError(t, err)
	assert.Equal(t, loaders.ResourceTypeModel, res.Type)
	assert.NoError(t, am.UnloadAsset(res))
	assert.NoError(t, am.UnloadAsset(nil))
}

func TestAssetManagerErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/tri.obj", []byte(triangleOBJ))
	am := newManager(t, root, false)

	_, err := am.Shader("missing.frag")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = am.Texture("models/tri.obj")
	assert.ErrorIs(t, err, core.ErrAssetTypeMismatch)

	am2, err := NewAssetManager()
	require.NoError(t, err)
	defer am2.Close()
	assert.Error(t, am2.Initialize(filepath.Join(root, "nope"), false))
}

func TestAssetManagerHotReloadPostsShaderChange(t *testing.T) {
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()

	var mu sync.Mutex
	var changed []string
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, func(ctx core.EventContext) bool {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, ctx.Data.(*core.AssetEvent).Path)
		return true
	})

	root := t.TempDir()
	full := writeFile(t, root, "shaders/color.frag.spv", spirvHeader)
	am := newManager(t, root, true)

	require.NoError(t, os.WriteFile(full, append(spirvHeader, 0, 0, 0, 0), 0o644))

	require.Eventually(t, func() bool {
		core.EventDispatch()
		mu.Lock()
		defer mu.Unlock()
		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "shaders/color.frag.spv", changed[0])
	mu.Unlock()

	// New files in new directories are indexed while watching.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(root, "textures", "new.obj"), []byte(triangleOBJ), 0o644)
		_, ok := am.Lookup("textures/new.obj")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(full))
	require.Eventually(t, func() bool {
		_, ok := am.Lookup("shaders/color.frag.spv")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAssetManagerCloseIsIdempotent(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir(), true))
	assert.NoError(t, am.Close())
	assert.NoError(t, am.Close())
	assert.ErrorIs(t, am.Initialize(t.TempDir(), false), core.ErrClosed)
}
