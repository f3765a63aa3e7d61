package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

func (w *watcher) close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// Watch reloads assets when their files change. It watches the directory
// of every asset loaded so far; assets loaded later in a new directory are
// not picked up. Watching stops when ctx is done or the server is closed.
func (s *Server) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assets: create watcher: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = fsw.Close()
		return ErrClosed
	}
	if s.watch != nil {
		s.mu.Unlock()
		_ = fsw.Close()
		return nil
	}
	dirs := make(map[string]struct{})
	for file := range s.byFile {
		dirs[filepath.Dir(file)] = struct{}{}
	}
	w := &watcher{fs: fsw, done: make(chan struct{})}
	s.watch = w
	s.mu.Unlock()

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			slogger().Warn("assets: watch failed", "dir", dir, "err", err)
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		s.watchLoop(ctx, w)
	}()
	return nil
}

func (s *Server) watchLoop(ctx context.Context, w *watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			s.mu.RLock()
			h, tracked := s.byFile[filepath.Clean(e.Name)]
			path := s.paths[h]
			s.mu.RUnlock()
			if !tracked {
				continue
			}
			slogger().Info("assets: change detected", "path", path, "op", e.Op.String())
			// Failures are queued as events; the previous version stays live.
			_ = s.Reload(path)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slogger().Warn("assets: watcher error", "err", err)
		}
	}
}
