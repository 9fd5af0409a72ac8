package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Options tunes a Watcher.
type Options struct {
	// Debounce drops repeated events for the same file inside this window.
	Debounce time.Duration
	// Extensions limits events to files with these extensions (without the
	// dot). Empty means every file.
	Extensions []string
}

// Watcher reports changed files under a root directory as slash separated
// paths relative to that root.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	opts    Options
	exts    map[string]bool
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(root string, opts Options) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	watcher := &Watcher{
		watcher: w,
		root:    root,
		opts:    opts,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if len(opts.Extensions) > 0 {
		watcher.exts = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			watcher.exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}
	if err := watcher.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}
	go watcher.run()
	return watcher, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.sendErr(err)
				}
				continue
			}
			rel, ok := w.relative(event.Name)
			if !ok || !w.accepts(rel) {
				continue
			}
			now := time.Now()
			if t, ok := last[rel]; ok && now.Sub(t) < w.opts.Debounce {
				continue
			}
			last[rel] = now
			select {
			case w.Events <- rel:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		case <-w.closeCh:
			return
		}
	}
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}

func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	return rel, true
}

func (w *Watcher) accepts(rel string) bool {
	if w.exts == nil {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(rel, ".xz")), "."))
	return w.exts[ext]
}
