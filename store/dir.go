package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/milk9111/assetman/asset"
	"github.com/milk9111/assetman/codec"
	"github.com/ulikunitz/xz"
)

const xzExt = ".xz"

// Dir loads and saves assets under a root directory. Files on disk take
// precedence over Embedded, so a shipped asset can be overridden while
// editing.
type Dir[T any] struct {
	Root     string
	Codec    codec.Codec[T]
	Embedded fs.FS
}

func NewDir[T any](root string, c codec.Codec[T]) *Dir[T] {
	return &Dir[T]{Root: root, Codec: c}
}

// WithEmbedded sets the fallback file system and returns d.
func (d *Dir[T]) WithEmbedded(fsys fs.FS) *Dir[T] {
	d.Embedded = fsys
	return d
}

func (d *Dir[T]) diskPath(clean string) string {
	return filepath.Join(d.Root, filepath.FromSlash(clean))
}

// Load reads and decodes the asset at name.
func (d *Dir[T]) Load(ctx context.Context, name string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	clean := cleanPath(d.Root, name)
	data, compressed, err := d.read(clean)
	if err != nil {
		return zero, err
	}
	if compressed {
		data, err = unxz(clean, data)
		if err != nil {
			return zero, err
		}
	}
	return d.Codec.Decode(strings.TrimSuffix(clean, xzExt), data)
}

// read returns the raw bytes for clean and whether they are xz compressed.
func (d *Dir[T]) read(clean string) ([]byte, bool, error) {
	if escapes(clean) {
		return nil, false, fmt.Errorf("%s: outside asset root: %w", clean, asset.ErrNotFound)
	}
	compressed := strings.HasSuffix(clean, xzExt)
	if data, err := os.ReadFile(d.diskPath(clean)); err == nil {
		return data, compressed, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read %s: %w", clean, err)
	}
	if !compressed {
		if data, err := os.ReadFile(d.diskPath(clean + xzExt)); err == nil {
			return data, true, nil
		}
	}
	if d.Embedded != nil {
		if data, err := fs.ReadFile(d.Embedded, clean); err == nil {
			return data, compressed, nil
		}
	}
	return nil, false, fmt.Errorf("%s: %w", clean, asset.ErrNotFound)
}

func unxz(name string, data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, asset.DecodeError(name, "xz", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, asset.DecodeError(name, "xz", err)
	}
	return out, nil
}

// Save encodes v and writes it under Root, compressing when name ends in
// .xz. The file is replaced atomically.
func (d *Dir[T]) Save(ctx context.Context, v T, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := cleanPath(d.Root, name)
	if strings.HasPrefix(clean, asset.MemoryScheme) {
		return fmt.Errorf("%s: %w", clean, asset.ErrNotPersistent)
	}
	if clean == "" || escapes(clean) {
		return fmt.Errorf("save %q: path outside asset root", name)
	}
	data, err := d.Codec.Encode(strings.TrimSuffix(clean, xzExt), v)
	if err != nil {
		return err
	}
	if strings.HasSuffix(clean, xzExt) {
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return asset.EncodeError(clean, "xz", err)
		}
		if _, err := w.Write(data); err != nil {
			return asset.EncodeError(clean, "xz", err)
		}
		if err := w.Close(); err != nil {
			return asset.EncodeError(clean, "xz", err)
		}
		data = buf.Bytes()
	}
	return writeFile(d.diskPath(clean), data)
}

func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// ModTime reports the modification time of the file on disk, if any.
func (d *Dir[T]) ModTime(name string) (time.Time, bool) {
	clean := cleanPath(d.Root, name)
	for _, p := range []string{clean, clean + xzExt} {
		if info, err := os.Stat(d.diskPath(p)); err == nil {
			return info.ModTime(), true
		}
	}
	return time.Time{}, false
}

// Resolve cleans name and, when it has no extension, completes it from the
// single file in its directory with the same stem. Ambiguous or missing
// matches leave the path as it is.
func (d *Dir[T]) Resolve(name string) string {
	clean := cleanPath(d.Root, name)
	if clean == "" || path.Ext(clean) != "" || strings.HasPrefix(clean, asset.MemoryScheme) {
		return clean
	}
	dir, stem := path.Split(clean)
	var match string
	seen := map[string]bool{}
	for _, list := range [][]string{d.listDisk(dir), d.listEmbedded(dir)} {
		for _, file := range list {
			ext := path.Ext(strings.TrimSuffix(file, xzExt))
			if ext == "" || strings.TrimSuffix(strings.TrimSuffix(file, xzExt), ext) != stem {
				continue
			}
			candidate := strings.TrimSuffix(file, xzExt)
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			if match != "" {
				return clean
			}
			match = candidate
		}
	}
	if match == "" {
		return clean
	}
	return dir + match
}

func (d *Dir[T]) listDisk(dir string) []string {
	entries, err := os.ReadDir(d.diskPath(dir))
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

func (d *Dir[T]) listEmbedded(dir string) []string {
	if d.Embedded == nil {
		return nil
	}
	target := strings.TrimSuffix(dir, "/")
	if target == "" {
		target = "."
	}
	entries, err := fs.ReadDir(d.Embedded, target)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

func escapes(clean string) bool {
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// cleanPath converts name to a slash separated path relative to root.
func cleanPath(root, name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, asset.MemoryScheme) {
		return name
	}
	s := filepath.ToSlash(name)
	if root != "" {
		r := strings.TrimSuffix(filepath.ToSlash(root), "/") + "/"
		if after, ok := strings.CutPrefix(s, r); ok {
			s = after
		}
	}
	s = path.Clean(s)
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "/")
	if s == "." {
		return ""
	}
	return s
}
