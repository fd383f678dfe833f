// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"testing"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-ui/quiver/internal/filetree"
	"github.com/quiver-ui/quiver/internal/table"
)

func testKey() ViewKey {
	return ViewKey{InstanceID: 1, Hash: "abcdef0123456789abcdef0123456789abcdef01"}
}

func testEntries() []filetree.FileEntry {
	return []filetree.FileEntry{
		{Path: "show/s01/e01.mkv", Index: 0, Size: 100, Done: 50, Priority: filetree.PriorityNormal, Want: filetree.Wanted},
		{Path: "show/s01/e02.mkv", Index: 1, Size: 100, Done: 0, Priority: filetree.PrioritySkip, Want: filetree.Unwanted},
		{Path: "show/cover.jpg", Index: 2, Size: 10, Done: 10, Priority: filetree.PriorityNormal, Want: filetree.Wanted},
	}
}

func TestViewManager_OpenCloseLifecycle(t *testing.T) {
	t.Parallel()

	m := NewViewManager()
	key := testKey()

	assert.True(t, m.OpenView(key), "first open should create the view")
	assert.False(t, m.OpenView(key), "second open should reuse the view")
	assert.True(t, m.Has(key))
	assert.Equal(t, []ViewKey{key}, m.Keys())

	m.CloseView(key)
	assert.False(t, m.Has(key))
	assert.Empty(t, m.Keys())
}

func TestViewManager_ReconcileAndFlatten(t *testing.T) {
	t.Parallel()

	m := NewViewManager()
	key := testKey()
	m.OpenView(key)
	m.Reconcile(key, testEntries())

	rows, ok := m.Flatten(key)
	require.True(t, ok)
	require.Len(t, rows, 1, "collapsed root directory is the only visible row")
	assert.Equal(t, "show", rows[0].Path)
	assert.True(t, rows[0].Dir)

	m.SetExpanded(key, "show", true)
	rows, ok = m.Flatten(key)
	require.True(t, ok)
	require.Len(t, rows, 3)
	assert.Equal(t, "show", rows[0].Path)

	_, ok = m.Flatten(ViewKey{InstanceID: 9, Hash: "missing"})
	assert.False(t, ok)
}

func TestViewManager_SetWantedReturnsLeafIndexes(t *testing.T) {
	t.Parallel()

	m := NewViewManager()
	key := testKey()
	m.OpenView(key)
	m.Reconcile(key, testEntries())

	indexes := m.SetWanted(key, "show/s01", false)
	assert.ElementsMatch(t, []int{0, 1}, indexes)

	rows, ok := m.Flatten(key)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, filetree.WantMixed, rows[0].Want, "show keeps cover.jpg wanted")
	assert.True(t, rows[0].WantUpdating)

	assert.Nil(t, m.SetWanted(key, "show/missing.bin", false))
	assert.Nil(t, m.SetWanted(ViewKey{InstanceID: 9, Hash: "missing"}, "show", false))

	m.ClearUpdating(key, "show/s01")
	rows, _ = m.Flatten(key)
	assert.False(t, rows[0].WantUpdating)
}

func TestViewManager_RenameReturnsFullPaths(t *testing.T) {
	t.Parallel()

	m := NewViewManager()
	key := testKey()
	m.OpenView(key)
	m.Reconcile(key, testEntries())

	oldPath, newPath, err := m.Rename(key, "show/s01", "season-01")
	require.NoError(t, err)
	assert.Equal(t, "show/s01", oldPath)
	assert.Equal(t, "show/season-01", newPath)

	oldPath, newPath, err = m.Rename(key, "show/nope", "x")
	require.NoError(t, err)
	assert.Empty(t, oldPath)
	assert.Empty(t, newPath)

	_, _, err = m.Rename(key, "show/cover.jpg", "season-01")
	require.ErrorIs(t, err, filetree.ErrPathConflict)
}

func TestViewManager_SelectionPerView(t *testing.T) {
	t.Parallel()

	m := NewViewManager()
	key := testKey()
	other := ViewKey{InstanceID: 2, Hash: key.Hash}
	m.OpenView(key)
	m.OpenView(other)
	m.Reconcile(key, testEntries())
	m.Reconcile(other, testEntries())

	m.Select(key, table.SelectionUpdate{Verb: table.SelectSet, IDs: []string{"show/cover.jpg"}})

	assert.Equal(t, []string{"show/cover.jpg"}, m.Selected(key))
	assert.Empty(t, m.Selected(other), "selection is per view")
}

func TestSnapshotEntries_PriorityMapping(t *testing.T) {
	t.Parallel()

	files := qbt.TorrentFiles{
		{Index: 0, Name: "a/skipped.bin", Size: 100, Progress: 0, Priority: 0},
		{Index: 1, Name: "a/normal.bin", Size: 100, Progress: 0.5, Priority: 1},
		{Index: 2, Name: "a/high.bin", Size: 100, Progress: 1, Priority: 6},
		{Index: 3, Name: "a/maximal.bin", Size: 100, Progress: 1, Priority: 7},
	}

	entries := snapshotEntries(files)
	require.Len(t, entries, 4)

	assert.Equal(t, filetree.PrioritySkip, entries[0].Priority)
	assert.Equal(t, filetree.Unwanted, entries[0].Want)

	assert.Equal(t, filetree.PriorityNormal, entries[1].Priority)
	assert.Equal(t, filetree.Wanted, entries[1].Want)
	assert.Equal(t, int64(50), entries[1].Done)

	assert.Equal(t, filetree.PriorityHigh, entries[2].Priority)
	assert.Equal(t, filetree.PriorityHigh, entries[3].Priority)
	assert.Equal(t, int64(100), entries[3].Done)
}
