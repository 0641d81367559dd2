package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"emberforge/internal/httpapi/util"
	"emberforge/internal/httpkit"
)

type CreatePresetRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty"`
}

type UpdatePresetRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Defaults    *map[string]any `json:"defaults,omitempty"`
}

func (h *Handler) PostPreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreatePresetRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}

	var defaultsJSON any
	if req.Defaults != nil {
		b, _ := json.Marshal(req.Defaults)
		defaultsJSON = b
	}

	id := util.NewID("pst")
	createdAt := time.Now().UTC()

	_, err := h.pool.Exec(ctx, `
		INSERT INTO presets (id, name, description, defaults, created_at)
		VALUES ($1,$2,$3,$4::jsonb,$5)
	`, id, req.Name, nullIfEmpty(req.Description), defaultsJSON, createdAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			httpkit.WriteErr(w, 409, "PRESET_NAME_EXISTS", "preset name already exists", map[string]any{"field": "name"})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"preset": map[string]any{
			"id":          id,
			"name":        req.Name,
			"description": req.Description,
			"defaults":    req.Defaults,
			"created_at":  createdAt,
		},
	})
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.pool.Query(ctx, `
		SELECT id, name, COALESCE(description,''), defaults, created_at
		FROM presets
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	presets := []map[string]any{}

	for rows.Next() {
		var (
			id, name, description string
			defaultsBytes         []byte
			createdAt             time.Time
		)

		if err := rows.Scan(&id, &name, &description, &defaultsBytes, &createdAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}

		var defaults any
		_ = json.Unmarshal(defaultsBytes, &defaults)

		presets = append(presets, map[string]any{
			"id":          id,
			"name":        name,
			"description": description,
			"defaults":    defaults,
			"created_at":  createdAt,
		})
	}

	httpkit.WriteJSON(w, 200, map[string]any{"presets": presets})
}

func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	presetID := chi.URLParam(r, "presetId")

	var (
		id, name, description string
		defaultsBytes         []byte
		createdAt             time.Time
	)

	err := h.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description,''), defaults, created_at
		FROM presets
		WHERE id=$1 AND deleted_at IS NULL
	`, presetID).Scan(&id, &name, &description, &defaultsBytes, &createdAt)

	if err != nil {
		httpkit.WriteErr(w, 404, "PRESET_NOT_FOUND", "preset not found", map[string]any{"preset_id": presetID})
		return
	}

	var defaults any
	_ = json.Unmarshal(defaultsBytes, &defaults)

	httpkit.WriteJSON(w, 200, map[string]any{
		"preset": map[string]any{
			"id":          id,
			"name":        name,
			"description": description,
			"defaults":    defaults,
			"created_at":  createdAt,
		},
	})
}

func (h *Handler) PatchPreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	presetID := chi.URLParam(r, "presetId")

	// read existing first
	var (
		name, description string
		defaultsBytes     []byte
	)

	err := h.pool.QueryRow(ctx, `
		SELECT name, COALESCE(description,''), defaults
		FROM presets
		WHERE id=$1 AND deleted_at IS NULL
	`, presetID).Scan(&name, &description, &defaultsBytes)

	if err != nil {
		httpkit.WriteErr(w, 404, "PRESET_NOT_FOUND", "preset not found", map[string]any{"preset_id": presetID})
		return
	}

	var req UpdatePresetRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name cannot be empty", map[string]any{"field": "name"})
			return
		}
	}
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}

	var defaultsJSON any
	if req.Defaults != nil {
		b, _ := json.Marshal(*req.Defaults)
		defaultsJSON = b
	} else {
		// keep existing
		defaultsJSON = defaultsBytes
	}

	_, err = h.pool.Exec(ctx, `
		UPDATE presets
		SET name=$2, description=$3, defaults=$4::jsonb
		WHERE id=$1 AND deleted_at IS NULL
	`, presetID, name, nullIfEmpty(description), defaultsJSON)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			httpkit.WriteErr(w, 409, "PRESET_NAME_EXISTS", "preset name already exists", map[string]any{"field": "name"})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db update failed", nil)
		return
	}

	// return fresh
	h.GetPreset(w, r)
}

func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	presetID := chi.URLParam(r, "presetId")

	cmd, err := h.pool.Exec(ctx, `
		UPDATE presets
		SET deleted_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
	`, presetID)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}
	if cmd.RowsAffected() == 0 {
		httpkit.WriteErr(w, 404, "PRESET_NOT_FOUND", "preset not found", map[string]any{"preset_id": presetID})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
