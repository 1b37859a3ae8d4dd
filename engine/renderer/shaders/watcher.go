package shaders

import (
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prisma/engine/core"
)

// sourceWatcher watches the shader source tree and reports changed files so
// the system can drop stale cache entries. Only writes and creates matter;
// editors that rename-over a file show up as Create.
type sourceWatcher struct {
	fswatcher *fsnotify.Watcher
	done      chan struct{}
}

func newSourceWatcher(dir string, changed func(path string)) (*sourceWatcher, error) {
	fswatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fswatcher.Add(path)
		}
		return nil
	})
	if err != nil {
		fswatcher.Close()
		return nil, err
	}

	w := &sourceWatcher{
		fswatcher: fswatcher,
		done:      make(chan struct{}),
	}

	go func() {
		for {
			select {
			case event, ok := <-fswatcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					changed(event.Name)
				}
			case err, ok := <-fswatcher.Errors:
				if !ok {
					return
				}
				core.LogWarn("shader source watcher: %v", err)
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

func (w *sourceWatcher) close() error {
	close(w.done)
	return w.fswatcher.Close()
}
