package engine

import (
	"github.com/spaghettifunk/viking/engine/assets"
	"github.com/spaghettifunk/viking/engine/config"
	"github.com/spaghettifunk/viking/engine/renderer"
	"github.com/spaghettifunk/viking/engine/renderer/drawable"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

// newScene returns the drawables in draw order: the light cube, then the
// textured model.
func newScene(cfg *config.Config, ctx *vulkan.Context, am *assets.AssetManager) []renderer.Drawable {
	return []renderer.Drawable{
		drawable.NewFlatColor(ctx, am, drawable.FlatColorConfig{
			VertexShader:   cfg.Assets.ColorVertexShader,
			FragmentShader: cfg.Assets.ColorFragmentShader,
		}),
		drawable.NewTextured(ctx, am, drawable.TexturedConfig{
			VertexShader:   cfg.Assets.TexturedVertexShader,
			FragmentShader: cfg.Assets.TexturedFragmentShader,
			Model:          cfg.Assets.Model,
			Texture:        cfg.Assets.Texture,
		}),
	}
}
