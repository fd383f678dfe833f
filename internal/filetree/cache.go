// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/quiver-ui/quiver/internal/table"
)

var (
	// ErrPathConflict is returned by Rename when the target path already
	// exists as a different node. The tree is left unchanged.
	ErrPathConflict = errors.New("path already exists")
	// ErrInvalidName is returned by Rename for empty names or names
	// containing a path separator.
	ErrInvalidName = errors.New("invalid name")
)

// Cache owns the file tree for one torrent view. It reconciles repeated
// flat snapshots into a persistent node graph, preserving client-only state
// (expansion, selection, pending want mutations) across refreshes.
//
// The cache performs no I/O and is not safe for concurrent use; callers
// serialize all mutations (see qbittorrent.ViewManager).
type Cache struct {
	root     *Node
	nodes    map[string]*Node
	selected map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{
		root:     &Node{Dir: true, Expanded: true, Level: -1},
		nodes:    make(map[string]*Node),
		selected: make(map[string]struct{}),
	}
}

// Reconcile merges a complete snapshot into the existing graph in place.
// Known paths keep their node (and all client-only state); server-derived
// fields are overwritten. Paths absent from the snapshot are removed and
// evicted from the selection set. Reconciling the same snapshot twice is a
// no-op for the resulting tree.
func (c *Cache) Reconcile(snapshot []FileEntry) {
	seen := make(map[string]struct{}, len(snapshot))

	for _, entry := range snapshot {
		entry = entry.normalized()
		path := cleanPath(entry.Path)
		if path == "" {
			continue
		}

		node := c.nodes[path]
		if node != nil && node.Dir {
			// A file record colliding with an existing directory is
			// structurally bogus, drop it.
			continue
		}
		if node == nil {
			node = c.insertLeaf(path)
		}

		node.Size = entry.Size
		node.Done = entry.Done
		node.Index = entry.Index
		node.Priority = entry.Priority
		node.Want = entry.Want
		seen[path] = struct{}{}
	}

	c.prune(c.root, seen)
	aggregate(c.root)
}

// Flatten produces the ordered, expansion-filtered row sequence. Collapsed
// directories contribute exactly one row; their descendants are never
// visited, so cost is proportional to the visible row count.
func (c *Cache) Flatten() []*Node {
	out := make([]*Node, 0, 64)
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n)
			if n.Dir && n.Expanded {
				walk(n.Children)
			}
		}
	}
	walk(c.root.Children)
	return out
}

// SetExpanded toggles a directory. Leaves and unknown paths are no-ops.
func (c *Cache) SetExpanded(path string, expanded bool) {
	node := c.nodes[cleanPath(path)]
	if node == nil || !node.Dir {
		return
	}
	node.Expanded = expanded
}

// SetWanted applies a local optimistic want change to a leaf or, for a
// directory, to every descendant leaf in one shot. markUpdating flags the
// affected leaves as having a mutation in flight; the caller clears it via
// ClearUpdating once the external mutation confirms. The actual server
// mutation is never issued here.
func (c *Cache) SetWanted(path string, want bool, markUpdating bool) {
	node := c.nodes[cleanPath(path)]
	if node == nil {
		return
	}

	state := Unwanted
	if want {
		state = Wanted
	}

	var apply func(n *Node)
	apply = func(n *Node) {
		if !n.Dir {
			n.Want = state
			if markUpdating {
				n.WantUpdating = true
			}
			return
		}
		for _, child := range n.Children {
			apply(child)
		}
	}
	apply(node)

	if node.Dir {
		aggregate(node)
	}
	c.reaggregateAncestors(node.Path)
}

// ClearUpdating drops the in-flight flag on a leaf or a whole subtree after
// the external mutation collaborator confirmed or failed.
func (c *Cache) ClearUpdating(path string) {
	node := c.nodes[cleanPath(path)]
	if node == nil {
		return
	}

	var clear func(n *Node)
	clear = func(n *Node) {
		if !n.Dir {
			n.WantUpdating = false
			return
		}
		for _, child := range n.Children {
			clear(child)
		}
	}
	clear(node)

	if node.Dir {
		aggregate(node)
	}
	c.reaggregateAncestors(node.Path)
}

// Rename re-keys the node at oldPath (and, for directories, every
// descendant by prefix substitution) to carry newName as its last path
// segment. Selection entries under the old prefix are remapped. Unknown
// paths are silently dropped; an existing target path fails with
// ErrPathConflict and leaves the tree unchanged.
func (c *Cache) Rename(oldPath, newName string) error {
	old := cleanPath(oldPath)
	node := c.nodes[old]
	if node == nil {
		return nil
	}
	if newName == "" || strings.Contains(newName, "/") {
		return ErrInvalidName
	}

	newPath := newName
	if i := strings.LastIndex(old, "/"); i >= 0 {
		newPath = old[:i+1] + newName
	}
	if newPath == old {
		return nil
	}
	if existing, ok := c.nodes[newPath]; ok && existing != node {
		return ErrPathConflict
	}

	c.rekey(node, newPath)
	node.Name = newName
	return nil
}

// Select applies a selection mutation. The set is authoritative; Selected
// flags on nodes are kept in sync eagerly. Ids not present in the tree are
// ignored.
func (c *Cache) Select(update table.SelectionUpdate) {
	if update.Verb == table.SelectSet {
		for path := range c.selected {
			if n := c.nodes[path]; n != nil {
				n.Selected = false
			}
		}
		c.selected = make(map[string]struct{}, len(update.IDs))
	} else if update.Verb != table.SelectAdd {
		return
	}

	for _, id := range update.IDs {
		if n := c.nodes[cleanPath(id)]; n != nil {
			n.Selected = true
			c.selected[n.Path] = struct{}{}
		}
	}
}

// Selected returns the selection set as a sorted path list.
func (c *Cache) Selected() []string {
	return slices.Sorted(maps.Keys(c.selected))
}

// Node returns the node at path, or nil.
func (c *Cache) Node(path string) *Node {
	return c.nodes[cleanPath(path)]
}

// Len reports the total node count, directories included.
func (c *Cache) Len() int {
	return len(c.nodes)
}

// insertLeaf creates the leaf at path, lazily creating the implied
// intermediate directories. A stale leaf sitting where a directory is now
// needed is converted in place so its path key stays unique.
func (c *Cache) insertLeaf(path string) *Node {
	segments := strings.Split(path, "/")
	parent := c.root

	for i := 0; i < len(segments)-1; i++ {
		dirPath := strings.Join(segments[:i+1], "/")
		dir := c.nodes[dirPath]
		if dir == nil {
			dir = &Node{
				Path:  dirPath,
				Name:  segments[i],
				Level: i,
				Dir:   true,
			}
			c.nodes[dirPath] = dir
			parent.Children = append(parent.Children, dir)
		} else if !dir.Dir {
			dir.Dir = true
			dir.Priority = ""
			dir.Index = 0
			dir.WantUpdating = false
			dir.Selected = false
			delete(c.selected, dirPath)
		}
		parent = dir
	}

	leaf := &Node{
		Path:  path,
		Name:  segments[len(segments)-1],
		Level: len(segments) - 1,
	}
	c.nodes[path] = leaf
	parent.Children = append(parent.Children, leaf)
	return leaf
}

// prune drops leaves absent from the snapshot and directories left without
// children, evicting their selection entries. Post-order so empty directory
// chains collapse in one pass.
func (c *Cache) prune(dir *Node, seen map[string]struct{}) {
	kept := dir.Children[:0]
	for _, child := range dir.Children {
		if child.Dir {
			c.prune(child, seen)
			if len(child.Children) > 0 {
				kept = append(kept, child)
				continue
			}
		} else if _, ok := seen[child.Path]; ok {
			kept = append(kept, child)
			continue
		}
		c.evict(child.Path)
	}
	dir.Children = kept
}

func (c *Cache) evict(path string) {
	delete(c.nodes, path)
	delete(c.selected, path)
}

func (c *Cache) rekey(node *Node, newPath string) {
	if _, ok := c.selected[node.Path]; ok {
		delete(c.selected, node.Path)
		c.selected[newPath] = struct{}{}
	}
	delete(c.nodes, node.Path)
	node.Path = newPath
	c.nodes[newPath] = node

	for _, child := range node.Children {
		c.rekey(child, newPath+"/"+child.Name)
	}
}

// reaggregateAncestors recomputes the aggregates of every directory on the
// path from the mutated node up to the root, shallowly: child aggregates
// are already consistent.
func (c *Cache) reaggregateAncestors(path string) {
	for {
		i := strings.LastIndex(path, "/")
		if i < 0 {
			break
		}
		path = path[:i]
		if dir := c.nodes[path]; dir != nil && dir.Dir {
			combine(dir)
		}
	}
	combine(c.root)
}

// aggregate recomputes a subtree's directory aggregates bottom-up.
func aggregate(n *Node) {
	if !n.Dir {
		return
	}
	for _, child := range n.Children {
		aggregate(child)
	}
	combine(n)
}

// combine derives a directory's aggregates from its direct children:
// size/done sums, tri-state want, and the in-flight flag when any
// descendant has a mutation pending.
func combine(dir *Node) {
	var size, done int64
	allWanted, allUnwanted := true, true
	updating := false

	for _, child := range dir.Children {
		size += child.Size
		done += child.Done
		switch child.Want {
		case Wanted:
			allUnwanted = false
		case Unwanted:
			allWanted = false
		default:
			allWanted, allUnwanted = false, false
		}
		if child.WantUpdating {
			updating = true
		}
	}

	dir.Size = size
	dir.Done = done
	dir.WantUpdating = updating
	switch {
	case allWanted:
		dir.Want = Wanted
	case allUnwanted:
		dir.Want = Unwanted
	default:
		dir.Want = WantMixed
	}
}

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}
