package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"emberforge/internal/httpkit"
)

// StreamArtifact serves the rendered video for providers that don't
// expose a public URL (localfs, gdrive).
func (h *Handler) StreamArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderID := chi.URLParam(r, "renderId")

	var objectKey, contentType string
	var sizeBytes int64

	err := h.pool.QueryRow(ctx,
		`SELECT object_key, content_type, size_bytes
		 FROM assets WHERE job_id=$1
		 ORDER BY created_at DESC LIMIT 1`,
		renderID,
	).Scan(&objectKey, &contentType, &sizeBytes)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARTIFACT_NOT_FOUND", "no artifact for render", map[string]any{"render_id": renderID})
		return
	}

	rc, ct, _, err := h.sp.GetObject(ctx, objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARTIFACT_FILE_MISSING", "artifact file missing", map[string]any{"object_key": objectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = contentType
	}
	w.Header().Set("Content-Type", ct)
	if sizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(sizeBytes, 10))
	}
	_, _ = io.Copy(w, rc)
}

// GetArtifactURL returns where the artifact can be downloaded from.
// Providers with public URLs answer directly; otherwise a signed URL or
// the streaming route.
func (h *Handler) GetArtifactURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderID := chi.URLParam(r, "renderId")

	var objectKey, publicURL string
	err := h.pool.QueryRow(ctx,
		`SELECT object_key, COALESCE(url,'')
		 FROM assets WHERE job_id=$1
		 ORDER BY created_at DESC LIMIT 1`,
		renderID,
	).Scan(&objectKey, &publicURL)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARTIFACT_NOT_FOUND", "no artifact for render", map[string]any{"render_id": renderID})
		return
	}

	if publicURL != "" {
		httpkit.WriteJSON(w, 200, map[string]any{
			"render_id": renderID,
			"url":       publicURL,
		})
		return
	}

	signed, err := h.sp.GetSignedURL(ctx, objectKey, 30*time.Minute)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "cannot produce artifact url", nil)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"render_id":  renderID,
		"url":        signed.URL,
		"expires_at": signed.ExpiresAt,
	})
}

// DeleteArtifact removes the stored video and its registration.
func (h *Handler) DeleteArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderID := chi.URLParam(r, "renderId")

	var assetID, objectKey string
	err := h.pool.QueryRow(ctx,
		`SELECT id, object_key FROM assets WHERE job_id=$1
		 ORDER BY created_at DESC LIMIT 1`,
		renderID,
	).Scan(&assetID, &objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ARTIFACT_NOT_FOUND", "no artifact for render", map[string]any{"render_id": renderID})
		return
	}

	if err := h.sp.DeleteObject(ctx, objectKey); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage delete failed", map[string]any{"object_key": objectKey})
		return
	}

	if _, err := h.pool.Exec(ctx, `DELETE FROM assets WHERE id=$1`, assetID); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
