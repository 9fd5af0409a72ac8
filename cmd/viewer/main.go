package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/assetman/asset"
	"github.com/milk9111/assetman/assets"
	"github.com/milk9111/assetman/codec"
	"github.com/milk9111/assetman/config"
	"github.com/milk9111/assetman/logging"
	"github.com/milk9111/assetman/store"
	"github.com/milk9111/assetman/watch"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	root := flag.String("root", "", "asset root directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *root != "" {
		cfg.Assets.Root = *root
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := asset.NewRegistry(logger)
	defer reg.Close()
	opts := []asset.Option{asset.WithLogger(logger), asset.WithContext(ctx), asset.WithQueueSize(cfg.Assets.QueueSize)}

	textures := asset.Register(reg, asset.NewManager[*ebiten.Image](
		textureStore{dir: store.NewDir[image.Image](cfg.Assets.Root, codec.Image{}).WithEmbedded(assets.FS)}, opts...))
	sounds := asset.Register(reg, asset.NewManager[*codec.Sound](
		store.NewDir[*codec.Sound](cfg.Assets.Root, codec.SoundCodec{}), opts...))

	loading := checker(16, color.RGBA{0x40, 0x40, 0x40, 0xff}, color.RGBA{0x60, 0x60, 0x60, 0xff})
	textures.SetLoadingValue(loading)
	missing := textures.GetOrLoad(assets.MissingTexture)
	defer missing.Release()
	if err := textures.Flush(ctx); err != nil {
		log.Fatal(err)
	}
	textures.SetErrorValue(missing.Value())

	v := newViewer(reg, logger)
	defer v.release()
	err = filepath.WalkDir(cfg.Assets.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(cfg.Assets.Root, p)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), ".xz")
		switch codec.Ext(rel) {
		case "png", "gif", "jpg", "jpeg", "bmp", "webp":
			v.addTexture(textures.GetOrLoad(rel))
		case "wav":
			v.addSound(sounds.GetOrLoad(rel))
		}
		return nil
	})
	if err != nil {
		logger.Warn("scan asset root", zap.String("root", cfg.Assets.Root), zap.Error(err))
	}

	if cfg.Reload.Enabled {
		w, err := watch.NewWatcher(cfg.Assets.Root, watch.Options{Debounce: cfg.Reload.Debounce, Extensions: cfg.Assets.Extensions})
		if err != nil {
			logger.Warn("hot reload disabled", zap.Error(err))
		} else {
			defer w.Close()
			go watch.Pump(ctx, w, reg, logger)
		}
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("asset viewer")

	if err := ebiten.RunGame(v); err != nil {
		logger.Error("viewer stopped", zap.Error(err))
	}
}
