// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher watches the daemon's config file and the resolved CLI
// adapter binaries (claude, gemini, ...) for on-disk changes and
// publishes an advisory event when one moves. mindmuxd has no hot-reload
// path, so this is purely a signal for an operator tailing /events that
// a restart is warranted.
package watcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/khuongdo/mindmux/internal/events"
)

// AdapterWatcher watches a fixed set of paths (the config file plus each
// CLI adapter's resolved binary) and debounces repeated writes into a
// single event per cooldown window.
type AdapterWatcher struct {
	mu         sync.RWMutex
	bus        events.EventBus
	watcher    *fsnotify.Watcher
	debouncer  *Debouncer
	labels     map[string]string // path -> human label (e.g. "claude", "config")
	lastChange map[string]time.Time
	closed     bool
	closeCh    chan struct{}
	wg         sync.WaitGroup
}

// NewAdapterWatcher creates a watcher publishing change events to bus.
func NewAdapterWatcher(bus events.EventBus, debounce time.Duration) (*AdapterWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: new fsnotify watcher: %w", err)
	}

	w := &AdapterWatcher{
		bus:        bus,
		watcher:    fsWatcher,
		debouncer:  NewDebouncer(debounce),
		labels:     make(map[string]string),
		lastChange: make(map[string]time.Time),
		closeCh:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// WatchConfig adds the daemon's config file to the watch set.
func (w *AdapterWatcher) WatchConfig(path string) error {
	return w.watch(path, "config")
}

// WatchAdapterBinaries resolves each named CLI tool via exec.LookPath
// and watches whichever ones are actually found on PATH. Tools not
// installed are silently skipped rather than treated as an error, since
// an operator may only have a subset of adapters installed.
func (w *AdapterWatcher) WatchAdapterBinaries(toolNames []string) {
	for _, name := range toolNames {
		resolved, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		_ = w.watch(resolved, name)
	}
}

func (w *AdapterWatcher) watch(path, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher: closed")
	}
	if _, already := w.labels[path]; already {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		return fmt.Errorf("watcher: add %s: %w", path, err)
	}
	w.labels[path] = label
	return nil
}

// Watching returns the labels of every path currently watched.
func (w *AdapterWatcher) Watching() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]string, 0, len(w.labels))
	for _, label := range w.labels {
		result = append(result, label)
	}
	return result
}

// Close stops the watcher and releases resources.
func (w *AdapterWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	w.watcher.Close()
	w.wg.Wait()

	return nil
}

func (w *AdapterWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *AdapterWatcher) handleEvent(event fsnotify.Event) {
	// Writes and creates only. Chmod fires every time the adapter binary
	// is executed and would otherwise trigger an event per prompt.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.mu.RLock()
	label, known := w.labels[event.Name]
	w.mu.RUnlock()
	if !known {
		return
	}

	w.triggerChange(label, event.Name)
}

const changeCooldown = 5 * time.Second

func (w *AdapterWatcher) triggerChange(label, path string) {
	w.debouncer.Debounce(path, func() {
		w.mu.Lock()
		if time.Since(w.lastChange[path]) < changeCooldown {
			w.mu.Unlock()
			return
		}
		w.lastChange[path] = time.Now()
		w.mu.Unlock()

		var modTime time.Time
		if info, err := os.Stat(path); err == nil {
			modTime = info.ModTime()
		}

		if w.bus == nil {
			return
		}
		w.bus.Publish(context.Background(), events.Event{
			Type: events.EventAdapterBinaryChanged,
			Payload: map[string]interface{}{
				"label":   label,
				"path":    path,
				"modTime": modTime.Format(time.RFC3339),
			},
		})
	})
}
