// Package refine supplies operator corrections to a running loop.
package refine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource serves the contents of a text file as the refinement and
// reloads it when the file changes. It implements engine.RefinementSource.
type FileSource struct {
	path         string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration

	mu       sync.RWMutex
	text     string
	pending  bool
	onChange func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileSource reads path once. A missing file yields an empty refinement
// until it is created.
func NewFileSource(path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve refinement path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fs := &FileSource{
		path:         abs,
		watcher:      watcher,
		debounceTime: 200 * time.Millisecond,
		ctx:          ctx,
		cancel:       cancel,
	}
	if err := fs.reload(); err != nil {
		watcher.Close()
		cancel()
		return nil, err
	}
	return fs, nil
}

// OnChange sets a callback invoked with the new text after each reload.
// It runs on the watcher goroutine; Stop waits for it to return.
func (fs *FileSource) OnChange(callback func(string)) {
	fs.mu.Lock()
	fs.onChange = callback
	fs.mu.Unlock()
}

// Refinement implements engine.RefinementSource.
func (fs *FileSource) Refinement() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.text
}

// Start begins watching. The parent directory is watched so editors that
// replace the file on save are handled.
func (fs *FileSource) Start() error {
	if err := fs.watcher.Add(filepath.Dir(fs.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(fs.path), err)
	}
	fs.wg.Add(2)
	go fs.eventLoop()
	go fs.debounceLoop()
	return nil
}

// Stop stops watching.
func (fs *FileSource) Stop() error {
	fs.cancel()
	fs.wg.Wait()
	return fs.watcher.Close()
}

func (fs *FileSource) eventLoop() {
	defer fs.wg.Done()

	for {
		select {
		case <-fs.ctx.Done():
			return

		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				fs.mu.Lock()
				fs.pending = true
				fs.mu.Unlock()
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Refinement watcher error: %v", err)
		}
	}
}

func (fs *FileSource) debounceLoop() {
	defer fs.wg.Done()

	ticker := time.NewTicker(fs.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-fs.ctx.Done():
			return

		case <-ticker.C:
			fs.mu.Lock()
			pending := fs.pending
			fs.pending = false
			fs.mu.Unlock()
			if !pending {
				continue
			}
			if err := fs.reload(); err != nil {
				log.Printf("⚠️  Failed to reload refinement: %v", err)
				continue
			}
			log.Printf("📝 Refinement reloaded from %s", fs.path)
			fs.mu.RLock()
			callback, text := fs.onChange, fs.text
			fs.mu.RUnlock()
			if callback != nil {
				callback(text)
			}
		}
	}
}

func (fs *FileSource) reload() error {
	data, err := os.ReadFile(fs.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read refinement: %w", err)
	}
	fs.mu.Lock()
	fs.text = strings.TrimSpace(string(data))
	fs.mu.Unlock()
	return nil
}
