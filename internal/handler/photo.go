package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/icloudbridge/bridge/internal/asset"
	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/service"
	"github.com/icloudbridge/bridge/internal/store"
)

// PhotoHandler handles HTTP requests for albums, photos and their assets.
type PhotoHandler struct {
	service *service.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(svc *service.PhotoService) *PhotoHandler {
	return &PhotoHandler{service: svc}
}

// HandleAlbums handles GET /api/v1/albums requests.
func (h *PhotoHandler) HandleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.service.Albums(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// HandleAlbum handles GET /api/v1/albums/{id} requests.
func (h *PhotoHandler) HandleAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := h.service.Album(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// HandlePhotos handles GET /api/v1/albums/{id}/photos requests.
func (h *PhotoHandler) HandlePhotos(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Photos(r.Context(), chi.URLParam(r, "id"), r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandlePhoto handles GET /api/v1/photos/{id} requests.
func (h *PhotoHandler) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := h.service.Photo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

// HandleAsset returns a handler for one asset kind, e.g.
// GET /api/v1/photos/{id}/image. Resident assets are served with 200; a
// download in progress answers 202 with a Retry-After hint.
func (h *PhotoHandler) HandleAsset(kind store.AssetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, err := queryBool(r, "wait")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("wait must be true or false"))
			return
		}

		res, err := h.service.Asset(r.Context(), service.AssetRequest{
			PhotoID: chi.URLParam(r, "id"),
			Kind:    kind,
			Size:    r.URL.Query().Get("size"),
			Wait:    wait,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		if res.State != asset.Ready {
			seconds := retryAfterSeconds(res.RetryAfter)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSON(w, http.StatusAccepted, model.DownloadingResponse{Status: "downloading", RetryAfter: seconds})
			return
		}

		w.Header().Set("Content-Type", res.Asset.MimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Asset.Data)))
		w.WriteHeader(http.StatusOK)
		w.Write(res.Asset.Data)
	}
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
