// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quiver-ui/quiver/internal/filetree"
	"github.com/quiver-ui/quiver/internal/models"
	"github.com/quiver-ui/quiver/internal/table"
)

type ColumnsHandler struct {
	store *models.ColumnStateStore
}

func NewColumnsHandler(store *models.ColumnStateStore) *ColumnsHandler {
	return &ColumnsHandler{
		store: store,
	}
}

func (h *ColumnsHandler) Routes(r chi.Router) {
	r.Route("/tables/{tableID}/columns", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})
}

// tableColumns resolves a table ID to its column definitions. Unknown IDs
// have no schema to default from and are rejected.
func tableColumns(tableID string) ([]table.Column, bool) {
	switch tableID {
	case filetree.TableID:
		return filetree.TableColumns(), true
	default:
		return nil, false
	}
}

type columnsResponse struct {
	Columns []table.Column    `json:"columns"`
	State   table.ColumnState `json:"state"`
}

func (h *ColumnsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	columns, ok := tableColumns(tableID)
	if !ok {
		RespondError(w, http.StatusNotFound, "Unknown table")
		return
	}

	record, err := h.store.Get(r.Context(), tableID, columns)
	if err != nil {
		log.Error().Err(err).Str("tableID", tableID).Msg("failed to load column state")
		RespondError(w, http.StatusInternalServerError, "Failed to load column state")
		return
	}

	RespondJSON(w, http.StatusOK, columnsResponse{Columns: columns, State: record.State})
}

func (h *ColumnsHandler) Update(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	columns, ok := tableColumns(tableID)
	if !ok {
		RespondError(w, http.StatusNotFound, "Unknown table")
		return
	}

	var state table.ColumnState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.store.Save(r.Context(), tableID, state); err != nil {
		log.Error().Err(err).Str("tableID", tableID).Msg("failed to save column state")
		RespondError(w, http.StatusInternalServerError, "Failed to save column state")
		return
	}

	RespondJSON(w, http.StatusOK, columnsResponse{Columns: columns, State: state})
}
