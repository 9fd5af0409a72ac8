package main

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/assetman/store"
)

// textureStore turns decoded images from disk into GPU textures. It forwards
// path resolution and modification times to the directory store so the
// manager dedupes and polls textures the same way it does plain images.
type textureStore struct {
	dir *store.Dir[image.Image]
}

func (s textureStore) Load(ctx context.Context, path string) (*ebiten.Image, error) {
	img, err := s.dir.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return ebiten.NewImageFromImage(img), nil
}

func (s textureStore) Resolve(path string) string {
	return s.dir.Resolve(path)
}

func (s textureStore) ModTime(path string) (time.Time, bool) {
	return s.dir.ModTime(path)
}

// checker builds the placeholder drawn while a texture loads or after it
// failed.
func checker(size int, a, b color.Color) *ebiten.Image {
	img := ebiten.NewImage(size, size)
	half := size / 2
	img.Fill(a)
	img.SubImage(image.Rect(half, 0, size, half)).(*ebiten.Image).Fill(b)
	img.SubImage(image.Rect(0, half, half, size)).(*ebiten.Image).Fill(b)
	return img
}
