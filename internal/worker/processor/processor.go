package processor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"emberforge/internal/effects"
	"emberforge/internal/encode"
	"emberforge/internal/fetch"
	"emberforge/internal/media"
	"emberforge/internal/pkg/errors"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/ports"
	"emberforge/internal/timeline"
)

// renderer abstracts the encode orchestrator so tests can replace it
// without touching ffmpeg.
type renderer interface {
	Render(ctx context.Context, job encode.Job) (*encode.RenderResult, error)
}

type Deps struct {
	Pool        *pgxpool.Pool
	SP          ports.StorageProvider
	Fetcher     *fetch.Fetcher
	Library     *effects.Library
	Renderer    renderer
	ProbeMedia  media.ProbeFunc
	StorageRoot string
	Log         *logger.Logger
}

// Processor drives a render job end to end: parse, fetch, plan, encode,
// publish. The scratch directory for a job is removed on every exit
// path, success or failure.
type Processor struct {
	pool      *pgxpool.Pool
	parser    *RequestParser
	fetcher   *fetch.Fetcher
	library   *effects.Library
	renderer  renderer
	probe     media.ProbeFunc
	publisher *Publisher
	root      string
	log       *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	probe := d.ProbeMedia
	if probe == nil {
		probe = media.Probe
	}
	fetcher := d.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(log)
	}
	library := d.Library
	if library == nil {
		library = effects.NewLibrary(effects.DefaultDir)
	}
	return &Processor{
		pool:      d.Pool,
		parser:    NewRequestParser(d.Pool),
		fetcher:   fetcher,
		library:   library,
		renderer:  d.Renderer,
		probe:     probe,
		publisher: NewPublisher(d.Pool, d.SP, log),
		root:      d.StorageRoot,
		log:       log.WithComponent("processor"),
	}
}

func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.WithJobID(jobID)

	paramsJSON, err := p.loadParams(ctx, jobID)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	req, err := p.parser.Parse(ctx, paramsJSON)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	if err := p.markRunning(ctx, jobID); err != nil {
		return p.failJob(ctx, jobID, err)
	}

	scratchDir := filepath.Join(p.root, "jobs", jobID)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return p.failJob(ctx, jobID, errors.Wrap(err, "processor.scratch", "failed to create scratch dir"))
	}
	defer func() {
		if rmErr := os.RemoveAll(scratchDir); rmErr != nil {
			log.Warn("scratch cleanup failed", "dir", scratchDir, "error", rmErr.Error())
		}
	}()

	log.Info("fetching inputs",
		"images", len(req.ImageURLs),
		"apply_effects", req.ApplyEffects,
	)

	images, audio, err := p.fetcher.FetchAll(ctx, req.ImageURLs, req.AudioURL, scratchDir)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	audioInfo, err := p.probe(ctx, audio.LocalPath)
	if err != nil {
		return p.failJob(ctx, jobID, errors.WrapWithCode(err, errors.CodeValidation, "processor.probe", "cannot read audio duration"))
	}

	plan, err := timeline.Plan(images, req.Timings, audioInfo.DurationSeconds)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	layers, err := p.library.Compose(plan, req.ApplyEffects)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	result, err := p.renderer.Render(ctx, encode.Job{
		Plan:       plan,
		Layers:     layers,
		AudioPath:  audio.LocalPath,
		ScratchDir: scratchDir,
		OutputPath: filepath.Join(scratchDir, "output.mp4"),
	})
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	artifact, err := p.publisher.Publish(ctx, jobID, req, result.OutputPath)
	if err != nil {
		return p.failJob(ctx, jobID, err)
	}

	if err := p.markDone(ctx, jobID, artifact, result); err != nil {
		return p.failJob(ctx, jobID, err)
	}

	log.Info("render done",
		"encoder", string(result.EncoderUsed),
		"render_seconds", result.WallClockSeconds,
		"video_url", artifact.VideoURL,
	)
	return nil
}

func (p *Processor) loadParams(ctx context.Context, jobID string) (string, error) {
	var paramsJSON string
	err := p.pool.QueryRow(ctx,
		`SELECT params_json FROM jobs WHERE id=$1`,
		jobID,
	).Scan(&paramsJSON)
	if err != nil {
		return "", errors.NotFound("job", jobID)
	}
	return paramsJSON, nil
}

func (p *Processor) markRunning(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs SET status='RUNNING', started_at=$2, updated_at=$2 WHERE id=$1`,
		jobID, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "processor.mark_running", "failed to mark job running")
	}
	return nil
}

func (p *Processor) markDone(ctx context.Context, jobID string, artifact *PublishedArtifact, result *encode.RenderResult) error {
	now := time.Now().UTC()
	_, err := p.pool.Exec(ctx,
		`UPDATE jobs
		 SET status='DONE', video_url=$2, encoder=$3, render_seconds=$4,
		     finished_at=$5, updated_at=$5
		 WHERE id=$1`,
		jobID, artifact.VideoURL, string(result.EncoderUsed), result.WallClockSeconds, now,
	)
	if err != nil {
		return errors.Wrap(err, "processor.mark_done", "failed to mark job done")
	}
	return nil
}

// failJob registra el fallo y devuelve el error original para que el
// run loop lo loguee.
func (p *Processor) failJob(ctx context.Context, jobID string, cause error) error {
	msg := cause.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}

	code := string(errors.GetCode(cause))
	now := time.Now().UTC()

	_, err := p.pool.Exec(ctx,
		`UPDATE jobs
		 SET status='FAILED', error=$2, error_code=$3, finished_at=$4, updated_at=$4
		 WHERE id=$1`,
		jobID, msg, code, now,
	)
	if err != nil {
		p.log.WithJobID(jobID).Error("failed to persist job failure",
			"error", err.Error(),
			"cause", msg,
		)
	}
	return cause
}
