// Package control exposes the control-plane operations as plain HTTP
// handlers: refresh a feed immediately, purge all items, and import/export
// subscriptions as OPML. None of these routes require authentication, per
// this pipeline's single-operator deployment model.
package control

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"feedpipe/internal/domain/entity"
	"feedpipe/internal/handler/http/respond"
	"feedpipe/internal/usecase/control"

	"github.com/google/uuid"
)

// maxOPMLUploadSize bounds a multipart OPML import body.
const maxOPMLUploadSize = 5 * 1024 * 1024

// Handler wires the control-plane usecase into net/http handler funcs.
type Handler struct {
	svc *control.Service
}

// New constructs a Handler.
func New(svc *control.Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches every control route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /control/feeds/{id}/refresh", h.refreshFeed)
	mux.HandleFunc("POST /control/items/purge", h.purgeItems)
	mux.HandleFunc("POST /control/opml/import", h.importOPML)
	mux.HandleFunc("GET /control/opml/export", h.exportOPML)
}

func (h *Handler) refreshFeed(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	if err := h.svc.EnqueueNow(r.Context(), id); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, err)
			return
		}
		slog.Error("control: refresh feed failed", slog.Any("error", err))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}

func (h *Handler) purgeItems(w http.ResponseWriter, r *http.Request) {
	itemsDeleted, feedsRequeued, err := h.svc.PurgeAllItems(r.Context())
	if err != nil {
		slog.Error("control: purge items failed", slog.Any("error", err))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]int64{
		"items_deleted":  itemsDeleted,
		"feeds_requeued": int64(feedsRequeued),
	})
}

func (h *Handler) importOPML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOPMLUploadSize)

	var body = r.Body
	if err := r.ParseMultipartForm(maxOPMLUploadSize); err == nil {
		file, _, ferr := r.FormFile("file")
		if ferr == nil {
			defer func() { _ = file.Close() }()
			body = file
		}
	}

	result, err := h.svc.ImportFeeds(r.Context(), body)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err)
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportOPML(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportFeeds(r.Context())
	if err != nil {
		slog.Error("control: export opml failed", slog.Any("error", err))
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	filename := "feeds_" + time.Now().UTC().Format("20060102_150405") + ".opml"
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(data)
}
