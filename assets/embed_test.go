package assets

import (
	"context"
	"image"
	"testing"

	"github.com/milk9111/assetman/codec"
	"github.com/milk9111/assetman/store"
)

func TestEmbeddedAssetsDecode(t *testing.T) {
	ctx := context.Background()
	empty := t.TempDir()

	t.Run("missing_texture", func(t *testing.T) {
		img, err := store.NewDir[image.Image](empty, codec.Image{}).WithEmbedded(FS).Load(ctx, MissingTexture)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
			t.Fatalf("unexpected size %v", b)
		}
	})

	t.Run("prefab", func(t *testing.T) {
		spec, err := store.NewDir[map[string]any](empty, codec.Markup[map[string]any]{}).WithEmbedded(FS).Load(ctx, "prefabs/player.yaml")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if spec["sprite"] != MissingTexture {
			t.Fatalf("unexpected sprite %v", spec["sprite"])
		}
	})

	t.Run("script", func(t *testing.T) {
		s, err := store.NewDir[*codec.Script](empty, codec.ScriptCodec{}).WithEmbedded(FS).Load(ctx, "ai/patrol.tengo")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !s.Defines("turn") {
			t.Fatalf("expected turn to be defined")
		}
	})
}
