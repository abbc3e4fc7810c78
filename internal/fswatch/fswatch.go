// Package fswatch wraps an fsnotify.Watcher over a collection's workspace
// root, described in SPEC_FULL.md D.3: write/create events for admitted
// files upsert the file index, remove events remove it, and events for
// documents the editor already has open are ignored since the document
// store is authoritative for those. Grounded directly on
// other_examples/d0e96270_kamal-hamza-lx-lsp__server-server.go.go's
// handleFileEvents/updateIndexForFile channel-select loop.
package fswatch

import (
	"log/slog"
	"os"

	"github.com/callumalpass/mdbase-lsp/internal/collcache"
	"github.com/callumalpass/mdbase-lsp/internal/fileindex"
	"github.com/callumalpass/mdbase-lsp/internal/linkresolve"
	"github.com/fsnotify/fsnotify"
)

// OpenChecker reports whether a filesystem path currently has an open
// editor buffer; satisfied by *docstore.Store.
type OpenChecker interface {
	IsOpen(path string) bool
}

// Watcher reflects external filesystem changes (a git checkout, a second
// editor, another process) into the file index.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// New starts watching collection.Root. onRebuild, if non-nil, is called with
// the rebuild kind for each index change.
func New(cache *collcache.Cache, idx *fileindex.Index, open OpenChecker, onRebuild func(kind string)) (*Watcher, error) {
	collection, err := cache.Get()
	if err != nil || collection == nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(collection.Root); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, logger: slog.Default(), done: make(chan struct{})}
	go w.run(cache, idx, open, onRebuild)
	return w, nil
}

func (w *Watcher) run(cache *collcache.Cache, idx *fileindex.Index, open OpenChecker, onRebuild func(kind string)) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, cache, idx, open, onRebuild)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fswatch error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, cache *collcache.Cache, idx *fileindex.Index, open OpenChecker, onRebuild func(kind string)) {
	collection, err := cache.Get()
	if err != nil || collection == nil {
		return
	}

	if open != nil && open.IsOpen(event.Name) {
		return
	}

	rel := linkresolve.RelPathFromURI(collection, event.Name)
	if rel == "" || rel == "." {
		return
	}
	if !linkresolve.IsAdmittedFile(collection, rel) {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		idx.RemovePath(rel)
		if onRebuild != nil {
			onRebuild("incremental")
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		if os.IsNotExist(err) {
			idx.RemovePath(rel)
		}
		return
	}
	idx.UpsertFromText(collection, rel, string(data))
	if onRebuild != nil {
		onRebuild("incremental")
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
