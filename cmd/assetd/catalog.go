package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/milk9111/assetman/asset"
	"github.com/milk9111/assetman/assets"
	"github.com/milk9111/assetman/codec"
	"github.com/milk9111/assetman/store"
	"go.uber.org/zap"
)

// Spec is any structured data file.
type Spec = map[string]any

type releaser interface {
	Release()
}

// row is one line of the catalog listing.
type row struct {
	path   string
	kind   string
	status asset.Status
	detail string
}

// catalog owns one manager per asset kind and the handles that keep
// preloaded assets alive.
type catalog struct {
	root    string
	reg     *asset.Registry
	images  *asset.Manager[image.Image]
	specs   *asset.Manager[Spec]
	scripts *asset.Manager[*codec.Script]
	sounds  *asset.Manager[*codec.Sound]
	exts    map[string]bool
	held    []releaser
	rows    []func() row
}

func newCatalog(ctx context.Context, root string, exts []string, queue int, log *zap.Logger) *catalog {
	opts := []asset.Option{asset.WithLogger(log), asset.WithContext(ctx), asset.WithQueueSize(queue)}
	reg := asset.NewRegistry(log)
	c := &catalog{
		root:    root,
		reg:     reg,
		images:  asset.Register(reg, asset.NewManager[image.Image](store.NewDir[image.Image](root, codec.Image{}).WithEmbedded(assets.FS), opts...)),
		specs:   asset.Register(reg, asset.NewManager[Spec](store.NewDir[Spec](root, codec.Markup[Spec]{}).WithEmbedded(assets.FS), opts...)),
		scripts: asset.Register(reg, asset.NewManager[*codec.Script](store.NewDir[*codec.Script](root, codec.ScriptCodec{}).WithEmbedded(assets.FS), opts...)),
		sounds:  asset.Register(reg, asset.NewManager[*codec.Sound](store.NewDir[*codec.Sound](root, codec.SoundCodec{}), opts...)),
		exts:    map[string]bool{},
	}
	for _, e := range exts {
		c.exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	placeholder := image.NewRGBA(image.Rect(0, 0, 1, 1))
	c.images.SetLoadingAndErrorValue(placeholder, placeholder)
	c.specs.SetLoadingAndErrorValue(Spec{}, Spec{})
	c.scripts.SetEqual(func(a, b *codec.Script) bool {
		return a != nil && b != nil && bytes.Equal(a.Source, b.Source)
	})
	c.sounds.SetEqual(func(a, b *codec.Sound) bool {
		return a != nil && b != nil && a.Format == b.Format && a.Len() == b.Len()
	})
	return c
}

// kindOf maps a file extension to the manager that loads it.
func kindOf(rel string) string {
	switch codec.Ext(strings.TrimSuffix(rel, ".xz")) {
	case "png", "gif", "jpg", "jpeg", "bmp", "webp":
		return "image"
	case "yaml", "yml", "toml", "json":
		return "spec"
	case "tengo":
		return "script"
	case "wav":
		return "sound"
	default:
		return ""
	}
}

func track[T any](c *catalog, kind string, h *asset.Handle[T]) {
	c.held = append(c.held, h)
	c.rows = append(c.rows, func() row {
		r := row{path: h.Path(), kind: kind, status: h.Status()}
		switch r.status {
		case asset.Failed:
			r.detail = h.Err().Error()
		case asset.Loaded:
			r.detail = describe(h.Value())
		}
		return r
	})
}

func describe(v any) string {
	switch x := v.(type) {
	case image.Image:
		b := x.Bounds()
		return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
	case Spec:
		return fmt.Sprintf("%d keys", len(x))
	case *codec.Script:
		return fmt.Sprintf("%d bytes", len(x.Source))
	case *codec.Sound:
		return fmt.Sprintf("%s @ %dHz", x.Duration(), x.Format.SampleRate)
	default:
		return ""
	}
}

// open requests the asset at rel from the manager for its kind.
func (c *catalog) open(rel string) bool {
	rel = strings.TrimSuffix(rel, ".xz")
	if !c.exts[codec.Ext(rel)] {
		return false
	}
	switch kindOf(rel) {
	case "image":
		track(c, "image", c.images.GetOrLoad(rel))
	case "spec":
		track(c, "spec", c.specs.GetOrLoad(rel))
	case "script":
		track(c, "script", c.scripts.GetOrLoad(rel))
	case "sound":
		track(c, "sound", c.sounds.GetOrLoad(rel))
	default:
		return false
	}
	return true
}

// preload opens every matching file below the root.
func (c *catalog) preload() (int, error) {
	n := 0
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != c.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		if c.open(filepath.ToSlash(rel)) {
			n++
		}
		return nil
	})
	return n, err
}

func (c *catalog) print(w io.Writer) error {
	rows := make([]row, 0, len(c.rows))
	for _, f := range c.rows {
		rows = append(rows, f())
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].path < rows[j].path })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tSTATUS\tDETAIL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.path, r.kind, r.status, r.detail)
	}
	for _, s := range c.reg.Stats() {
		fmt.Fprintf(tw, "# %s\t%d rows\t%d pending\t\n", s.Type, s.Rows, s.Pending)
	}
	return tw.Flush()
}

func (c *catalog) close() error {
	for _, h := range c.held {
		h.Release()
	}
	c.held = nil
	c.rows = nil
	return c.reg.Close()
}
