// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quiver-ui/quiver/internal/filetree"
	"github.com/quiver-ui/quiver/internal/models"
	"github.com/quiver-ui/quiver/internal/qbittorrent"
	"github.com/quiver-ui/quiver/internal/table"
)

// TreeMutator carries view refreshes and outbound mutations to the
// qBittorrent instance. Implemented by qbittorrent.Poller.
type TreeMutator interface {
	RefreshNow(ctx context.Context, key qbittorrent.ViewKey) error
	SubmitWanted(ctx context.Context, key qbittorrent.ViewKey, path string, want bool) error
	SubmitRename(ctx context.Context, key qbittorrent.ViewKey, path, newName string) error
}

type FileTreeHandler struct {
	views       *qbittorrent.ViewManager
	mutator     TreeMutator
	columnStore *models.ColumnStateStore
}

func NewFileTreeHandler(views *qbittorrent.ViewManager, mutator TreeMutator, columnStore *models.ColumnStateStore) *FileTreeHandler {
	return &FileTreeHandler{
		views:       views,
		mutator:     mutator,
		columnStore: columnStore,
	}
}

func (h *FileTreeHandler) Routes(r chi.Router) {
	r.Route("/tree", func(r chi.Router) {
		r.Get("/", h.GetTree)
		r.Delete("/", h.CloseTree)
		r.Get("/window", h.Window)
		r.Post("/expand", h.Expand)
		r.Post("/select", h.Select)
		r.Post("/wanted", h.SetWanted)
		r.Post("/rename", h.Rename)
	})
}

type treeResponse struct {
	Rows     []*filetree.Node `json:"rows"`
	Selected []string         `json:"selected"`
}

func (h *FileTreeHandler) treeResponse(key qbittorrent.ViewKey) treeResponse {
	rows, _ := h.views.Flatten(key)
	if rows == nil {
		rows = []*filetree.Node{}
	}
	selected := h.views.Selected(key)
	if selected == nil {
		selected = []string{}
	}
	return treeResponse{Rows: rows, Selected: selected}
}

// GetTree returns the expansion-filtered file rows for a torrent. The first
// request opens the view and fetches from the instance; subsequent requests
// serve the cache unless ?refresh=true forces a fetch.
func (h *FileTreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	key, ok := viewKey(w, r)
	if !ok {
		return
	}

	created := h.views.OpenView(key)
	if created || r.URL.Query().Get("refresh") == "true" {
		if err := h.mutator.RefreshNow(r.Context(), key); err != nil {
			if created {
				h.views.CloseView(key)
			}
			if errors.Is(err, qbittorrent.ErrInstanceNotFound) {
				RespondError(w, http.StatusNotFound, "Instance not found")
				return
			}
			log.Error().Err(err).
				Int("instanceID", key.InstanceID).
				Str("hash", key.Hash).
				Msg("failed to fetch torrent files")
			RespondError(w, http.StatusBadGateway, "Failed to fetch torrent files")
			return
		}
	}

	RespondJSON(w, http.StatusOK, h.treeResponse(key))
}

func (h *FileTreeHandler) CloseTree(w http.ResponseWriter, r *http.Request) {
	key, ok := viewKey(w, r)
	if !ok {
		return
	}
	h.views.CloseView(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *FileTreeHandler) Expand(w http.ResponseWriter, r *http.Request) {
	key, ok := h.openViewKey(w, r)
	if !ok {
		return
	}

	var req struct {
		Path     string `json:"path"`
		Expanded bool   `json:"expanded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	h.views.SetExpanded(key, req.Path, req.Expanded)
	RespondJSON(w, http.StatusOK, h.treeResponse(key))
}

type selectResponse struct {
	treeResponse
	Anchor int `json:"anchor"`
}

// Select applies a selection change. The caller either sends a resolved
// verb+ids update, or a raw row click (clickedIndex, anchor, modifiers)
// which is resolved against the current flatten order; the response
// returns the anchor to use for the next shift-click.
func (h *FileTreeHandler) Select(w http.ResponseWriter, r *http.Request) {
	key, ok := h.openViewKey(w, r)
	if !ok {
		return
	}

	var req struct {
		Verb         table.SelectVerb `json:"verb"`
		IDs          []string         `json:"ids"`
		ClickedIndex *int             `json:"clickedIndex"`
		Anchor       *int             `json:"anchor"`
		Modifiers    table.Modifiers  `json:"modifiers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	anchor := table.NoAnchor
	if req.Anchor != nil {
		anchor = *req.Anchor
	}

	var update table.SelectionUpdate
	if req.ClickedIndex != nil {
		rows, _ := h.views.Flatten(key)
		clicked := *req.ClickedIndex
		if clicked < 0 || clicked >= len(rows) {
			RespondError(w, http.StatusBadRequest, "Clicked row index out of range")
			return
		}
		if anchor < 0 || anchor >= len(rows) {
			// Stale anchors from a previous flatten degrade to a plain click.
			anchor = table.NoAnchor
		}
		update, anchor = table.ResolveClick(clicked, anchor, req.Modifiers, func(i int) string {
			return rows[i].RowID()
		})
	} else {
		update = table.SelectionUpdate{Verb: req.Verb, IDs: req.IDs}
	}

	h.views.Select(key, update)
	RespondJSON(w, http.StatusOK, selectResponse{treeResponse: h.treeResponse(key), Anchor: anchor})
}

type windowRow struct {
	*filetree.Node
	Cells map[string]string `json:"cells"`
}

type windowResponse struct {
	Start       int         `json:"start"`
	End         int         `json:"end"`
	TopPad      int         `json:"topPad"`
	TotalHeight int         `json:"totalHeight"`
	Total       int         `json:"total"`
	Rows        []windowRow `json:"rows"`
}

// Window returns the virtualized slice of the flattened rows for the given
// scroll position, rendered through the persisted column layout. Optional
// sort, dir and filter parameters override the stored sort for the request.
func (h *FileTreeHandler) Window(w http.ResponseWriter, r *http.Request) {
	key, ok := h.openViewKey(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	viewportHeight, err := strconv.Atoi(q.Get("viewportHeight"))
	if err != nil || viewportHeight <= 0 {
		RespondError(w, http.StatusBadRequest, "Invalid viewport height")
		return
	}
	scrollTop, _ := strconv.Atoi(q.Get("scrollTop"))

	columns := filetree.TableColumns()
	state := table.DefaultColumnState(columns)
	if h.columnStore != nil {
		record, err := h.columnStore.Get(r.Context(), filetree.TableID, columns)
		if err != nil {
			log.Error().Err(err).Str("tableID", filetree.TableID).Msg("failed to load column state, using defaults")
		} else {
			state = record.State
		}
	}
	if sortColumn := q.Get("sort"); sortColumn != "" {
		state.SortColumn = sortColumn
		state.SortDirection = table.SortAsc
		if q.Get("dir") == string(table.SortDesc) {
			state.SortDirection = table.SortDesc
		}
	}

	nodes, _ := h.views.Flatten(key)
	rows := make([]table.Row, len(nodes))
	for i, node := range nodes {
		rows[i] = node
	}

	engine := table.NewEngine(columns, state)
	engine.SetRows(rows)
	if filter := q.Get("filter"); filter != "" {
		engine.SetFilter(filter)
	}

	win := engine.Window(scrollTop, viewportHeight)
	out := windowResponse{
		Start:       win.Start,
		End:         win.End,
		TopPad:      win.TopPad,
		TotalHeight: win.TotalHeight,
		Total:       engine.Len(),
		Rows:        make([]windowRow, 0, len(win.Rows)),
	}
	for _, row := range win.Rows {
		out.Rows = append(out.Rows, windowRow{Node: row.(*filetree.Node), Cells: engine.Cells(row)})
	}
	RespondJSON(w, http.StatusOK, out)
}

// SetWanted applies the optimistic want change locally and submits it to
// the instance; the response carries the optimistic rows with the
// in-flight markers still set or already cleared.
func (h *FileTreeHandler) SetWanted(w http.ResponseWriter, r *http.Request) {
	key, ok := h.openViewKey(w, r)
	if !ok {
		return
	}

	var req struct {
		Path string `json:"path"`
		Want bool   `json:"want"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.mutator.SubmitWanted(r.Context(), key, req.Path, req.Want); err != nil {
		RespondError(w, http.StatusBadGateway, "Failed to update file priority")
		return
	}

	RespondJSON(w, http.StatusOK, h.treeResponse(key))
}

func (h *FileTreeHandler) Rename(w http.ResponseWriter, r *http.Request) {
	key, ok := h.openViewKey(w, r)
	if !ok {
		return
	}

	var req struct {
		Path    string `json:"path"`
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.mutator.SubmitRename(r.Context(), key, req.Path, req.NewName); err != nil {
		switch {
		case errors.Is(err, filetree.ErrPathConflict):
			RespondError(w, http.StatusConflict, "A file or folder with that name already exists")
		case errors.Is(err, filetree.ErrInvalidName):
			RespondError(w, http.StatusBadRequest, "Invalid name")
		default:
			RespondError(w, http.StatusBadGateway, "Failed to rename file")
		}
		return
	}

	RespondJSON(w, http.StatusOK, h.treeResponse(key))
}

// openViewKey parses the view key and requires the view to be open;
// mutations against a never-opened view have no cache to act on.
func (h *FileTreeHandler) openViewKey(w http.ResponseWriter, r *http.Request) (qbittorrent.ViewKey, bool) {
	key, ok := viewKey(w, r)
	if !ok {
		return key, false
	}
	if !h.views.Has(key) {
		RespondError(w, http.StatusNotFound, "View not open")
		return key, false
	}
	return key, true
}

func viewKey(w http.ResponseWriter, r *http.Request) (qbittorrent.ViewKey, bool) {
	instanceID, err := strconv.Atoi(chi.URLParam(r, "instanceID"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid instance ID")
		return qbittorrent.ViewKey{}, false
	}

	hash := chi.URLParam(r, "hash")
	if hash == "" {
		RespondError(w, http.StatusBadRequest, "Invalid torrent hash")
		return qbittorrent.ViewKey{}, false
	}

	return qbittorrent.ViewKey{InstanceID: instanceID, Hash: hash}, true
}
