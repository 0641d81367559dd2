package processor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"emberforge/internal/pkg/errors"
	"emberforge/internal/repositories"
	"emberforge/internal/timeline"
)

// StorageOverride son credenciales de object storage provistas por el
// request; si están presentes, el publish del job ignora el provider
// configurado en el proceso.
type StorageOverride struct {
	SupabaseURL string `json:"supabase_url"`
	SupabaseKey string `json:"supabase_key"`
	Bucket      string `json:"bucket,omitempty"`
}

// RenderRequest is the strongly-typed render job, validated exhaustively
// at the boundary before entering the timeline planner.
type RenderRequest struct {
	ImageURLs    []string
	Timings      []timeline.TimingSpec
	AudioURL     string
	ProjectID    string
	ApplyEffects bool
	PresetID     string
	Storage      *StorageOverride
}

// renderParams is the wire shape of jobs.params_json after preset merge.
type renderParams struct {
	ImageURLs []string              `json:"image_urls"`
	Timings   []timeline.TimingSpec `json:"timings"`
	AudioURL  string                `json:"audio_url"`
	ProjectID string                `json:"project_id"`
	PresetID  string                `json:"preset_id,omitempty"`
	Storage   *StorageOverride      `json:"storage,omitempty"`
}

type RequestParser struct {
	presets *repositories.PresetRepository
}

func NewRequestParser(pool *pgxpool.Pool) *RequestParser {
	return &RequestParser{presets: repositories.NewPresetRepository(pool)}
}

// Parse decodes and validates the job params. When the request names a
// preset, the preset defaults merge under the request values (request
// values win). Shape and timing-order validation happen here, before any
// asset is fetched.
func (rp *RequestParser) Parse(ctx context.Context, paramsJSON string) (*RenderRequest, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeValidation, "request.parse", "invalid params_json")
	}

	merged := raw
	if presetID, ok := raw["preset_id"].(string); ok && strings.TrimSpace(presetID) != "" {
		defaults, err := rp.fetchPresetDefaults(ctx, strings.TrimSpace(presetID))
		if err != nil {
			return nil, err
		}
		merged = mergeParams(defaults, raw)
	}

	mergedBytes, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeValidation, "request.parse", "failed to normalize params")
	}

	var wire renderParams
	if err := json.Unmarshal(mergedBytes, &wire); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeValidation, "request.parse", "malformed render params")
	}

	req := &RenderRequest{
		ImageURLs:    wire.ImageURLs,
		Timings:      wire.Timings,
		AudioURL:     strings.TrimSpace(wire.AudioURL),
		ProjectID:    strings.TrimSpace(wire.ProjectID),
		ApplyEffects: IsTruthy(merged["apply_effects"]),
		PresetID:     strings.TrimSpace(wire.PresetID),
		Storage:      wire.Storage,
	}

	if err := req.validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func (req *RenderRequest) validate() error {
	if req.ProjectID == "" {
		return errors.ValidationField("project_id", "project_id is required")
	}
	if req.AudioURL == "" {
		return errors.ValidationField("audio_url", "audio_url is required")
	}
	if err := timeline.ValidateTimings(len(req.ImageURLs), req.Timings); err != nil {
		return err
	}
	if s := req.Storage; s != nil {
		if strings.TrimSpace(s.SupabaseURL) == "" || strings.TrimSpace(s.SupabaseKey) == "" {
			return errors.ValidationField("storage", "storage override requires supabase_url and supabase_key")
		}
	}
	return nil
}

func (rp *RequestParser) fetchPresetDefaults(ctx context.Context, presetID string) (map[string]any, error) {
	defaults, err := rp.presets.Defaults(ctx, presetID)
	if err != nil {
		return nil, errors.Validationf("preset not found: %s", presetID)
	}
	return defaults, nil
}

// mergeParams: defaults del preset -> params del job.
func mergeParams(base, override map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}
