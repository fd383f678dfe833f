// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-ui/quiver/internal/config"
	"github.com/quiver-ui/quiver/internal/database"
	"github.com/quiver-ui/quiver/internal/domain"
	"github.com/quiver-ui/quiver/internal/models"
	"github.com/quiver-ui/quiver/internal/qbittorrent"
)

func newTestServer(t *testing.T, baseURL string) *Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "quiver.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	views := qbittorrent.NewViewManager()
	pool := qbittorrent.NewClientPool(nil)

	return NewServer(&Dependencies{
		Config:           &config.AppConfig{Config: &domain.Config{BaseURL: baseURL}},
		Version:          "test",
		Views:            views,
		Mutator:          qbittorrent.NewPoller(pool, views, 0),
		ColumnStateStore: models.NewColumnStateStore(db),
	})
}

func TestServerHandler_Health(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, "/").Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz/liveness", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerHandler_BaseURLMount(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, "/quiver/").Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quiver/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// The bare root refuses with a hint instead of serving the API.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerHandler_UnknownInstanceTree(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, "/").Handler()

	// The pool has no instances configured, so opening a tree 404s and
	// must not leave a view behind.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/instances/1/torrents/feedfacefeedfacefeedfacefeedfacefeedface/tree", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
