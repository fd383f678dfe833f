// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"sync"

	"github.com/quiver-ui/quiver/internal/filetree"
	"github.com/quiver-ui/quiver/internal/table"
)

// ViewKey identifies one open torrent file view.
type ViewKey struct {
	InstanceID int
	Hash       string
}

// ViewManager owns one filetree.Cache per open torrent view. Every cache
// operation runs under the manager's lock, so reconciliations, selection and
// want mutations never interleave mid-operation, matching the caches'
// single-threaded contract.
type ViewManager struct {
	mu    sync.Mutex
	views map[ViewKey]*filetree.Cache
}

func NewViewManager() *ViewManager {
	return &ViewManager{
		views: make(map[ViewKey]*filetree.Cache),
	}
}

// OpenView creates the cache for a view if it does not exist yet and
// reports whether it was newly created.
func (m *ViewManager) OpenView(key ViewKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.views[key]; ok {
		return false
	}
	m.views[key] = filetree.NewCache()
	return true
}

// CloseView discards a view's cache; the view's expansion and selection
// state goes with it.
func (m *ViewManager) CloseView(key ViewKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, key)
}

// Keys lists the currently open views for the poll loop.
func (m *ViewManager) Keys() []ViewKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]ViewKey, 0, len(m.views))
	for key := range m.views {
		keys = append(keys, key)
	}
	return keys
}

// Has reports whether a view is open.
func (m *ViewManager) Has(key ViewKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.views[key]
	return ok
}

// Reconcile merges a fresh snapshot into the view. Unknown views are
// dropped silently; a stale refresh racing CloseView is not an error.
func (m *ViewManager) Reconcile(key ViewKey, snapshot []filetree.FileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.views[key]; ok {
		cache.Reconcile(snapshot)
	}
}

// Flatten returns the expansion-filtered row sequence for the view.
func (m *ViewManager) Flatten(key ViewKey) ([]*filetree.Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.views[key]
	if !ok {
		return nil, false
	}
	return cache.Flatten(), true
}

func (m *ViewManager) SetExpanded(key ViewKey, path string, expanded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.views[key]; ok {
		cache.SetExpanded(path, expanded)
	}
}

func (m *ViewManager) Select(key ViewKey, update table.SelectionUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.views[key]; ok {
		cache.Select(update)
	}
}

// Selected returns the view's selection as a sorted path list.
func (m *ViewManager) Selected(key ViewKey) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.views[key]; ok {
		return cache.Selected()
	}
	return nil
}

// SetWanted applies the local optimistic update and returns the server file
// indexes the outbound mutation must target.
func (m *ViewManager) SetWanted(key ViewKey, path string, want bool) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.views[key]
	if !ok {
		return nil
	}

	node := cache.Node(path)
	if node == nil {
		return nil
	}
	indexes := leafIndexes(node)

	cache.SetWanted(path, want, true)
	return indexes
}

// ClearUpdating drops the in-flight flag once the mutation confirmed.
func (m *ViewManager) ClearUpdating(key ViewKey, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cache, ok := m.views[key]; ok {
		cache.ClearUpdating(path)
	}
}

// Rename re-keys the node and its descendants and returns the old and new
// full paths for the outbound mutation.
func (m *ViewManager) Rename(key ViewKey, path, newName string) (oldPath, newPath string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cache, ok := m.views[key]
	if !ok {
		return "", "", nil
	}

	node := cache.Node(path)
	if node == nil {
		return "", "", nil
	}
	oldPath = node.Path

	if err := cache.Rename(path, newName); err != nil {
		return "", "", err
	}
	// Rename re-keyed the node in place.
	return oldPath, node.Path, nil
}

func leafIndexes(node *filetree.Node) []int {
	if !node.Dir {
		return []int{node.Index}
	}
	var indexes []int
	var walk func(n *filetree.Node)
	walk = func(n *filetree.Node) {
		if !n.Dir {
			indexes = append(indexes, n.Index)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return indexes
}
