package gitstatus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"

	"pkt.systems/gitconsole/internal/eventbus"
	"pkt.systems/pslog"
)

// DefaultDebounce collapses bursts of filesystem events (a commit touches
// the index, HEAD and refs in quick succession) into one signal.
const DefaultDebounce = 150 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Debounce time.Duration
	// OnChange runs before subscribers are signalled, e.g. to drop cached status.
	OnChange func(root string)
	Logger   pslog.Logger
}

// Watcher implements core.RepositoryWatcher on fsnotify. It watches each
// root's worktree top level and its .git directory, and signals subscribers
// through the event bus. Several consoles may watch the same root.
type Watcher struct {
	fs       *fsnotify.Watcher
	bus      *eventbus.Bus
	debounce time.Duration
	onChange func(string)
	log      pslog.Logger

	mu      sync.Mutex
	roots   map[string]int
	pending map[string]*time.Timer

	loop conc.WaitGroup
	done chan struct{}
	once sync.Once
}

// NewWatcher starts an fsnotify watcher.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fs:       fsw,
		bus:      eventbus.New(logger),
		debounce: debounce,
		onChange: opts.OnChange,
		log:      logger,
		roots:    make(map[string]int),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	w.loop.Go(w.run)
	return w, nil
}

// Watch subscribes to change signals for root. The returned func releases
// the subscription and, for the last subscriber, the filesystem watches.
func (w *Watcher) Watch(root string) (<-chan struct{}, func()) {
	root = filepath.Clean(root)
	ch, cancel := w.bus.Subscribe(root)

	w.mu.Lock()
	if w.roots[root] == 0 {
		w.add(root)
	}
	w.roots[root]++
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancel()
			w.release(root)
		})
	}
}

// Close stops the watcher. Pending debounced signals are discarded.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.loop.Wait()
		w.mu.Lock()
		for root, timer := range w.pending {
			timer.Stop()
			delete(w.pending, root)
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) add(root string) {
	for _, path := range watchPaths(root) {
		if err := w.fs.Add(path); err != nil {
			w.log.Warn("repository watch failed", "path", path, "err", err)
			continue
		}
		w.log.Debug("repository watch add", "path", path)
	}
}

func (w *Watcher) release(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roots[root]--
	if w.roots[root] > 0 {
		return
	}
	delete(w.roots, root)
	if timer := w.pending[root]; timer != nil {
		timer.Stop()
		delete(w.pending, root)
	}
	for _, path := range watchPaths(root) {
		if err := w.fs.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.log.Debug("repository watch remove failed", "path", path, "err", err)
		}
	}
}

func watchPaths(root string) []string {
	paths := []string{root}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		paths = append(paths, gitDir)
	}
	return paths
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("repository watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) || strings.HasSuffix(event.Name, ".lock") {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	root := w.rootFor(event.Name)
	if root == "" {
		return
	}
	if timer := w.pending[root]; timer != nil {
		timer.Reset(w.debounce)
		return
	}
	w.pending[root] = time.AfterFunc(w.debounce, func() { w.fire(root) })
}

func (w *Watcher) fire(root string) {
	w.mu.Lock()
	_, live := w.roots[root]
	delete(w.pending, root)
	w.mu.Unlock()
	if !live {
		return
	}
	if w.onChange != nil {
		w.onChange(root)
	}
	w.log.Trace("repository changed", "root", root)
	w.bus.Publish(root)
}

// rootFor maps an event path to the watched root it belongs to. Callers hold mu.
func (w *Watcher) rootFor(path string) string {
	dir := filepath.Dir(path)
	if _, ok := w.roots[dir]; ok {
		return dir
	}
	if filepath.Base(dir) == ".git" {
		root := filepath.Dir(dir)
		if _, ok := w.roots[root]; ok {
			return root
		}
	}
	return ""
}
