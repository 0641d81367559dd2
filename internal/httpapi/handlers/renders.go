package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"emberforge/internal/httpapi/util"
	"emberforge/internal/httpkit"
	"emberforge/internal/timeline"
)

// CreateRenderRequest is the public contract of POST /renders. Storage
// pasa tal cual al worker; el API nunca toca esas credenciales.
type CreateRenderRequest struct {
	ProjectID    string                `json:"project_id"`
	ImageURLs    []string              `json:"image_urls"`
	Timings      []timeline.TimingSpec `json:"timings"`
	AudioURL     string                `json:"audio_url"`
	ApplyEffects any                   `json:"apply_effects,omitempty"`
	PresetID     string                `json:"preset_id,omitempty"`
	Storage      map[string]any        `json:"storage,omitempty"`
}

func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.AudioURL = strings.TrimSpace(req.AudioURL)

	if req.ProjectID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "project_id is required", map[string]any{"field": "project_id"})
		return
	}
	if req.AudioURL == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "audio_url is required", map[string]any{"field": "audio_url"})
		return
	}
	// Rechazo temprano de timelines malformados; el worker revalida tras
	// el merge de preset defaults.
	if req.PresetID == "" {
		if err := timeline.ValidateTimings(len(req.ImageURLs), req.Timings); err != nil {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), map[string]any{"field": "timings"})
			return
		}
	}

	params := map[string]any{
		"project_id": req.ProjectID,
		"image_urls": req.ImageURLs,
		"timings":    req.Timings,
		"audio_url":  req.AudioURL,
	}
	if req.ApplyEffects != nil {
		params["apply_effects"] = req.ApplyEffects
	}
	if req.PresetID != "" {
		params["preset_id"] = req.PresetID
	}
	if req.Storage != nil {
		params["storage"] = req.Storage
	}

	jobID := util.NewID("rnd")
	paramsBytes, _ := json.Marshal(params)
	createdAt := time.Now().UTC()

	_, err := h.pool.Exec(ctx,
		`INSERT INTO jobs (id, project_id, status, params_json, created_at, updated_at)
		 VALUES ($1,$2,'QUEUED',$3,$4,$4)`,
		jobID, req.ProjectID, string(paramsBytes), createdAt,
	)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.rdb.LPush(ctx, h.queueName, jobID).Err(); err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{
		"render": map[string]any{
			"id":         jobID,
			"project_id": req.ProjectID,
			"status":     "QUEUED",
			"created_at": createdAt,
		},
	})
}

func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	limitStr := strings.TrimSpace(r.URL.Query().Get("limit"))
	limit := 50
	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	query := `SELECT id, project_id, status, COALESCE(video_url,''), COALESCE(encoder,''), created_at
	          FROM jobs`
	conds := []string{}
	args := []any{}
	if status != "" {
		args = append(args, status)
		conds = append(conds, "status=$"+strconv.Itoa(len(args)))
	}
	if projectID != "" {
		args = append(args, projectID)
		conds = append(conds, "project_id=$"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	defer rows.Close()

	type item struct {
		ID        string    `json:"id"`
		ProjectID string    `json:"project_id"`
		Status    string    `json:"status"`
		VideoURL  string    `json:"video_url,omitempty"`
		Encoder   string    `json:"encoder,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	out := make([]item, 0, limit)
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.ProjectID, &it.Status, &it.VideoURL, &it.Encoder, &it.CreatedAt); err != nil {
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "row scan failed", nil)
			return
		}
		out = append(out, it)
	}

	httpkit.WriteJSON(w, 200, map[string]any{"renders": out})
}

func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	renderID := chi.URLParam(r, "renderId")

	var (
		id, projectID, status, paramsJSON          string
		videoURL, encoder, errMsg, errCode         string
		renderSeconds                              *float64
		createdAt                                  time.Time
		startedAt, finishedAt                      *time.Time
	)

	err := h.pool.QueryRow(ctx,
		`SELECT id, project_id, status, params_json,
		        COALESCE(video_url,''), COALESCE(encoder,''), render_seconds,
		        COALESCE(error,''), COALESCE(error_code,''),
		        created_at, started_at, finished_at
		 FROM jobs WHERE id=$1`,
		renderID,
	).Scan(&id, &projectID, &status, &paramsJSON, &videoURL, &encoder, &renderSeconds,
		&errMsg, &errCode, &createdAt, &startedAt, &finishedAt)
	if err != nil {
		httpkit.WriteErr(w, 404, "RENDER_NOT_FOUND", "render not found", map[string]any{"render_id": renderID})
		return
	}

	var params map[string]any
	_ = json.Unmarshal([]byte(paramsJSON), &params)
	// Las credenciales de storage del request nunca salen por el API.
	delete(params, "storage")

	render := map[string]any{
		"id":          id,
		"project_id":  projectID,
		"status":      status,
		"params":      params,
		"created_at":  createdAt,
		"started_at":  startedAt,
		"finished_at": finishedAt,
	}
	if videoURL != "" {
		render["video_url"] = videoURL
	}
	if encoder != "" {
		render["encoder"] = encoder
	}
	if renderSeconds != nil {
		render["render_seconds"] = *renderSeconds
	}
	if errMsg != "" {
		render["error"] = errMsg
	}
	if errCode != "" {
		render["error_code"] = errCode
	}

	httpkit.WriteJSON(w, 200, map[string]any{"render": render})
}
