// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"strconv"
	"strings"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/quiver-ui/quiver/internal/filetree"
)

const (
	fetchAttempts    = 3
	fetchRetryDelay  = 500 * time.Millisecond
	fetchConcurrency = 4
)

// qBittorrent file priority values on the wire.
const (
	filePrioSkip   = 0
	filePrioNormal = 1
	filePrioHigh   = 6
	filePrioMax    = 7
)

// Poller keeps open views in sync with their qBittorrent instances. It
// re-fetches flat file lists on an interval and on demand, and carries
// outbound mutations (want changes, renames) back to the instance with
// optimistic local updates that roll back on failure.
type Poller struct {
	pool     *ClientPool
	views    *ViewManager
	interval time.Duration
}

func NewPoller(pool *ClientPool, views *ViewManager, interval time.Duration) *Poller {
	return &Poller{
		pool:     pool,
		views:    views,
		interval: interval,
	}
}

// Start runs the poll loop until ctx is cancelled. Call it from its own
// goroutine.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", p.interval).Msg("File view poller started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("File view poller stopped")
			return
		case <-ticker.C:
			p.refreshAll(ctx)
		}
	}
}

// refreshAll refreshes every open view, a few concurrently. Per-view
// failures are logged and skipped; one unreachable instance must not
// starve the others.
func (p *Poller) refreshAll(ctx context.Context) {
	keys := p.views.Keys()
	if len(keys) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			if err := p.RefreshNow(gctx, key); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Error().Err(err).
					Int("instanceID", key.InstanceID).
					Str("hash", key.Hash).
					Msg("Failed to refresh file view")
			}
			return nil
		})
	}

	_ = g.Wait()
}

// RefreshNow fetches the view's file list and reconciles it into the
// cache immediately, outside the tick schedule.
func (p *Poller) RefreshNow(ctx context.Context, key ViewKey) error {
	snapshot, err := p.fetchSnapshot(ctx, key)
	if err != nil {
		return err
	}
	p.views.Reconcile(key, snapshot)
	return nil
}

func (p *Poller) fetchSnapshot(ctx context.Context, key ViewKey) ([]filetree.FileEntry, error) {
	client, err := p.pool.GetClient(ctx, key.InstanceID)
	if err != nil {
		return nil, err
	}

	var files *qbt.TorrentFiles
	err = retry.Do(
		func() error {
			fetched, fetchErr := client.GetFilesInformationCtx(ctx, key.Hash)
			if fetchErr != nil {
				return fetchErr
			}
			if fetched == nil {
				return errors.New("empty file list response")
			}
			files = fetched
			return nil
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		// Evict the client so the next fetch re-dials a possibly restarted
		// instance.
		p.pool.Drop(key.InstanceID)
		return nil, errors.Wrapf(err, "fetch files for torrent %s", key.Hash)
	}

	return snapshotEntries(*files), nil
}

// snapshotEntries converts the wire file list into reconciler input.
// Priority 0 means qBittorrent will not download the file, so it maps to
// skip + unwanted; 6 and 7 both render as high.
func snapshotEntries(files qbt.TorrentFiles) []filetree.FileEntry {
	entries := make([]filetree.FileEntry, 0, len(files))
	for _, f := range files {
		entry := filetree.FileEntry{
			Path:  f.Name,
			Index: f.Index,
			Size:  f.Size,
			Done:  int64(float64(f.Progress) * float64(f.Size)),
			Want:  filetree.Wanted,
		}

		switch f.Priority {
		case filePrioSkip:
			entry.Priority = filetree.PrioritySkip
			entry.Want = filetree.Unwanted
		case filePrioHigh, filePrioMax:
			entry.Priority = filetree.PriorityHigh
		default:
			entry.Priority = filetree.PriorityNormal
		}

		entries = append(entries, entry)
	}
	return entries
}

// SubmitWanted flips a file or subtree between wanted and unwanted. The
// cache is updated optimistically with the in-flight flag set; on a
// confirmed write the flag clears, on failure a forced refresh restores
// server state.
func (p *Poller) SubmitWanted(ctx context.Context, key ViewKey, path string, want bool) error {
	indexes := p.views.SetWanted(key, path, want)
	if len(indexes) == 0 {
		// Unknown path or closed view; nothing to submit.
		return nil
	}

	client, err := p.pool.GetClient(ctx, key.InstanceID)
	if err != nil {
		p.views.ClearUpdating(key, path)
		p.rollback(ctx, key)
		return err
	}

	priority := filePrioNormal
	if !want {
		priority = filePrioSkip
	}

	ids := make([]string, len(indexes))
	for i, idx := range indexes {
		ids[i] = strconv.Itoa(idx)
	}

	if err := client.SetFilePriorityCtx(ctx, key.Hash, strings.Join(ids, "|"), priority); err != nil {
		log.Error().Err(err).
			Int("instanceID", key.InstanceID).
			Str("hash", key.Hash).
			Str("path", path).
			Bool("want", want).
			Msg("Failed to set file priority, rolling view back")
		p.views.ClearUpdating(key, path)
		p.rollback(ctx, key)
		return errors.Wrap(err, "set file priority")
	}

	p.views.ClearUpdating(key, path)
	return nil
}

// SubmitRename renames a file or directory inside the torrent. The cache
// re-keys optimistically; filetree.ErrPathConflict surfaces to the caller
// before anything is sent.
func (p *Poller) SubmitRename(ctx context.Context, key ViewKey, path, newName string) error {
	oldPath, newPath, err := p.views.Rename(key, path, newName)
	if err != nil {
		return err
	}
	if oldPath == "" || oldPath == newPath {
		// Unknown path, closed view, or rename to the current name; nothing to submit.
		return nil
	}

	client, err := p.pool.GetClient(ctx, key.InstanceID)
	if err != nil {
		p.rollback(ctx, key)
		return err
	}

	if err := client.RenameFileCtx(ctx, key.Hash, oldPath, newPath); err != nil {
		log.Error().Err(err).
			Int("instanceID", key.InstanceID).
			Str("hash", key.Hash).
			Str("oldPath", oldPath).
			Str("newPath", newPath).
			Msg("Failed to rename file, rolling view back")
		p.rollback(ctx, key)
		return errors.Wrap(err, "rename file")
	}

	return nil
}

// rollback restores a view to server state after a failed mutation. A
// failed rollback is only logged; the next poll tick repairs the view.
func (p *Poller) rollback(ctx context.Context, key ViewKey) {
	if err := p.RefreshNow(ctx, key); err != nil {
		log.Warn().Err(err).
			Int("instanceID", key.InstanceID).
			Str("hash", key.Hash).
			Msg("Rollback refresh failed, next poll will repair the view")
	}
}
