package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shellbridge/internal/protocol"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	debounceInterval = 500 * time.Millisecond
	maxTreeDepth     = 3
)

// excludedDirs are directories excluded from file counting and tree generation.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
}

// UpdateCallback is called when the workspace file count changes.
type UpdateCallback func(fileCount int)

// Watcher monitors the session's workspace directory so clients can see
// the file-system effects of shell commands without polling.
type Watcher struct {
	mu        sync.Mutex
	workDir   string
	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
	lastCount int
	callback  UpdateCallback
	logger    *zap.Logger
}

// New creates a workspace watcher.
func New(callback UpdateCallback, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		callback:  callback,
		lastCount: -1, // Force initial update.
		logger:    logger,
	}
}

// Watch starts watching the workspace directory recursively.
func (w *Watcher) Watch(workDir string) error {
	info, err := os.Stat(workDir)
	if err != nil {
		return fmt.Errorf("workspace does not exist: %s", workDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace is not a directory: %s", workDir)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addDirsRecursive(fsW, workDir); err != nil {
		fsW.Close()
		return err
	}

	w.mu.Lock()
	w.workDir = workDir
	w.fsWatcher = fsW
	w.cancel = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop(fsW, w.cancel)

	// Compute initial file count.
	go w.recount()

	return nil
}

// Shutdown stops the watcher.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	fsW := w.fsWatcher
	cancel := w.cancel
	w.fsWatcher = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	if fsW != nil {
		fsW.Close()
	}
}

// WorkDir returns the watched directory.
func (w *Watcher) WorkDir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workDir
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop(fsW *fsnotify.Watcher, cancel chan struct{}) {
	var timer *time.Timer

	for {
		select {
		case <-cancel:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsW.Events:
			if !ok {
				return
			}

			// If a new directory is created, watch it too.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					base := filepath.Base(event.Name)
					if !excludedDirs[base] && !isHidden(base) {
						fsW.Add(event.Name)
					}
				}
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, w.recount)

		case err, ok := <-fsW.Errors:
			if !ok {
				return
			}
			w.logger.Warn("workspace watcher error", zap.Error(err))
		}
	}
}

// recount recalculates file count and notifies if changed.
func (w *Watcher) recount() {
	w.mu.Lock()
	dir := w.workDir
	w.mu.Unlock()
	if dir == "" {
		return
	}

	count := CountFiles(dir)

	w.mu.Lock()
	changed := count != w.lastCount
	w.lastCount = count
	w.mu.Unlock()

	if changed && w.callback != nil {
		w.callback(count)
	}
}

// CountFiles counts all non-excluded files in a directory.
func CountFiles(dir string) int {
	count := 0
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths.
		}

		name := d.Name()

		if d.IsDir() {
			if excludedDirs[name] {
				return filepath.SkipDir
			}
			if isHidden(name) && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if isHidden(name) {
			return nil
		}

		count++
		return nil
	})
	return count
}

// BuildFileTree generates a FileNode tree for a directory up to maxDepth levels.
func BuildFileTree(dir string) []protocol.FileNode {
	return buildTreeRecursive(dir, dir, 0, maxTreeDepth)
}

func buildTreeRecursive(rootDir, currentDir string, depth, maxDepth int) []protocol.FileNode {
	if depth >= maxDepth {
		return nil
	}

	entries, err := os.ReadDir(currentDir)
	if err != nil {
		return nil
	}

	// Separate dirs and files, then sort: dirs first, files second.
	var dirs, files []os.DirEntry
	for _, entry := range entries {
		name := entry.Name()
		if excludedDirs[name] || isHidden(name) {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}

	nodes := make([]protocol.FileNode, 0, len(dirs)+len(files))

	for _, d := range dirs {
		fullPath := filepath.Join(currentDir, d.Name())
		relPath, _ := filepath.Rel(rootDir, fullPath)
		nodes = append(nodes, protocol.FileNode{
			Name:     d.Name(),
			Path:     relPath,
			IsDir:    true,
			Children: buildTreeRecursive(rootDir, fullPath, depth+1, maxDepth),
		})
	}

	for _, f := range files {
		fullPath := filepath.Join(currentDir, f.Name())
		relPath, _ := filepath.Rel(rootDir, fullPath)
		var size int64
		if info, err := f.Info(); err == nil {
			size = info.Size()
		}
		nodes = append(nodes, protocol.FileNode{
			Name:  f.Name(),
			Path:  relPath,
			IsDir: false,
			Size:  size,
		})
	}

	return nodes
}

// addDirsRecursive adds dir and all non-excluded subdirectories to fsW.
func addDirsRecursive(fsW *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if excludedDirs[name] {
			return filepath.SkipDir
		}
		if isHidden(name) && path != dir {
			return filepath.SkipDir
		}
		return fsW.Add(path)
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
