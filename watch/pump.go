package watch

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Target receives reload requests. *asset.Registry implements it.
type Target interface {
	ReloadPath(ctx context.Context, path string) (int, error)
}

// Pump reloads every changed path reported by w until ctx ends or w is
// closed. Compressed files reload the asset registered under the name
// without the .xz suffix.
func Pump(ctx context.Context, w *Watcher, target Target, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-w.Events:
			if !ok {
				return
			}
			p = strings.TrimSuffix(p, ".xz")
			n, err := target.ReloadPath(ctx, p)
			if err != nil {
				log.Warn("hot reload failed", zap.String("path", p), zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("hot reloaded", zap.String("path", p), zap.Int("assets", n))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
