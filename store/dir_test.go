package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/milk9111/assetman/asset"
	"github.com/milk9111/assetman/codec"
)

type levelSpec struct {
	Name   string `yaml:"name" toml:"name" json:"name"`
	Width  int    `yaml:"width" toml:"width" json:"width"`
	Height int    `yaml:"height" toml:"height" json:"height"`
}

func writeTestFile(t *testing.T, root, name, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirLoad(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "levels/one.yaml", "name: one\nwidth: 10\nheight: 5\n")
	embedded := fstest.MapFS{
		"levels/two.toml": {Data: []byte("name = \"two\"\nwidth = 3\n")},
		"levels/one.yaml": {Data: []byte("name: shipped\n")},
	}
	d := NewDir[levelSpec](root, codec.Markup[levelSpec]{}).WithEmbedded(embedded)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"disk_wins", "levels/one.yaml", "one", nil},
		{"root_prefix_stripped", filepath.Join(root, "levels", "one.yaml"), "one", nil},
		{"embedded_fallback", "levels/two.toml", "two", nil},
		{"missing", "levels/three.yaml", "", asset.ErrNotFound},
		{"outside_root", "../secret.yaml", "", asset.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.Load(ctx, tc.path)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.Name != tc.want {
				t.Fatalf("got %q, want %q", got.Name, tc.want)
			}
		})
	}
}

func TestDirSaveCompressed(t *testing.T) {
	root := t.TempDir()
	d := NewDir[levelSpec](root, codec.Markup[levelSpec]{})
	ctx := context.Background()
	spec := levelSpec{Name: "packed", Width: 64, Height: 32}

	if err := d.Save(ctx, spec, "packed/level.json.xz"); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "packed", "level.json.xz"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) < 6 || string(raw[1:5]) != "7zXZ" {
		t.Fatalf("file is not xz compressed")
	}

	for _, name := range []string{"packed/level.json.xz", "packed/level.json"} {
		got, err := d.Load(ctx, name)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if got != spec {
			t.Fatalf("load %s: got %+v", name, got)
		}
	}
	if _, ok := d.ModTime("packed/level.json"); !ok {
		t.Fatalf("modtime should see the compressed file")
	}
	if err := d.Save(ctx, spec, asset.MemoryScheme+"x"); !errors.Is(err, asset.ErrNotPersistent) {
		t.Fatalf("expected ErrNotPersistent, got %v", err)
	}
}

func TestDirResolve(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "img/landscape.png", "x")
	writeTestFile(t, root, "img/tree.png", "x")
	writeTestFile(t, root, "img/tree.bmp", "x")
	writeTestFile(t, root, "img/rock.png.xz", "x")
	embedded := fstest.MapFS{"img/cloud.webp": {Data: []byte("x")}}
	d := NewDir[[]byte](root, codec.Bytes{}).WithEmbedded(embedded)

	tests := []struct {
		in, want string
	}{
		{"img/landscape", "img/landscape.png"},
		{"img/landscape.png", "img/landscape.png"},
		{`img\landscape`, "img/landscape.png"},
		{"./img/../img/landscape", "img/landscape.png"},
		{"img/tree", "img/tree"},
		{"img/rock", "img/rock.png"},
		{"img/cloud", "img/cloud.webp"},
		{"img/missing", "img/missing"},
		{asset.MemoryScheme + "abc", asset.MemoryScheme + "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if filepath.Separator != '\\' && tc.in == `img\landscape` {
				t.Skip("backslash is not a separator on this platform")
			}
			if got := d.Resolve(tc.in); got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDirWithManager(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "enemy.yaml", "name: slime\nwidth: 1\n")
	d := NewDir[levelSpec](root, codec.Markup[levelSpec]{})
	m := asset.NewManager[levelSpec](d)
	defer m.Close()

	a := m.GetOrLoad("enemy")
	defer a.Release()
	b := m.GetOrLoad("enemy.yaml")
	defer b.Release()
	if a.ID() != b.ID() {
		t.Fatalf("extension-less path did not dedupe: %v vs %v", a.ID(), b.ID())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if a.Value().Name != "slime" {
		t.Fatalf("unexpected value %+v", a.Value())
	}

	a.ReplaceValue(levelSpec{Name: "edited", Width: 2})
	if !a.HasModificationFromIO(ctx) {
		t.Fatalf("edited value should differ from disk")
	}
	if err := a.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if a.HasModificationFromIO(ctx) {
		t.Fatalf("saved value should match disk")
	}

	writeTestFile(t, root, "enemy.yaml", "name: bat\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(root, "enemy.yaml"), future, future); err != nil {
		t.Fatal(err)
	}
	if n, err := m.ReloadChanged(ctx); err != nil || n != 1 {
		t.Fatalf("expected one reload, got %d %v", n, err)
	}
	if b.Value().Name != "bat" {
		t.Fatalf("reload not visible through alias handle")
	}
}

func TestDirReloadsBareKeyOnceFileExists(t *testing.T) {
	root := t.TempDir()
	m := asset.NewManager[levelSpec](NewDir[levelSpec](root, codec.Markup[levelSpec]{}))
	defer m.Close()

	h := m.GetOrLoad("landscape")
	defer h.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if h.Status() != asset.Failed || !errors.Is(h.Err(), asset.ErrNotFound) {
		t.Fatalf("expected not found before the file exists, got %s %v", h.Status(), h.Err())
	}

	writeTestFile(t, root, "landscape.yaml", "name: hills\n")
	updated, err := m.ReloadPath(ctx, "landscape.yaml")
	if err != nil || !updated {
		t.Fatalf("expected the bare row to reload, got %v %v", updated, err)
	}
	if h.Status() != asset.Loaded || h.Value().Name != "hills" {
		t.Fatalf("unexpected state %s %+v", h.Status(), h.Value())
	}
	if h.Path() != "landscape" {
		t.Fatalf("row key should stay %q, got %q", "landscape", h.Path())
	}
}
