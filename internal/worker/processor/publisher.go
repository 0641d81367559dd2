package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"emberforge/internal/adapters/storage/supabase"
	"emberforge/internal/pkg/errors"
	"emberforge/internal/pkg/logger"
	"emberforge/internal/ports"
	"emberforge/internal/worker/util"
)

// Publisher uploads the finished artifact and registers it in the assets
// table. The request may carry its own supabase credentials; those take
// precedence over the process-level provider.
type Publisher struct {
	pool *pgxpool.Pool
	sp   ports.StorageProvider
	log  *logger.Logger
}

func NewPublisher(pool *pgxpool.Pool, sp ports.StorageProvider, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Publisher{pool: pool, sp: sp, log: log.WithComponent("publisher")}
}

// PublishedArtifact describes where the rendered video ended up.
type PublishedArtifact struct {
	AssetID   string
	ObjectKey string
	Provider  string
	// VideoURL is the provider's public URL when it exposes one, or the
	// API artifact route when the content must be served by us.
	VideoURL string
	Size     int64
}

func (p *Publisher) Publish(ctx context.Context, jobID string, req *RenderRequest, outputPath string) (*PublishedArtifact, error) {
	sp := p.sp
	if req.Storage != nil {
		bucket := req.Storage.Bucket
		if bucket == "" {
			bucket = "generated-assets"
		}
		sp = supabase.New(req.Storage.SupabaseURL, req.Storage.SupabaseKey, bucket)
	}
	if sp == nil {
		return nil, errors.Internal("no storage provider configured")
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUploadFailed, "publish.open", "cannot open rendered artifact")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUploadFailed, "publish.stat", "cannot stat rendered artifact")
	}

	objectKey := outputObjectKey(req.ProjectID)
	out, err := sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUploadFailed, "publish.put", "artifact upload failed").
			WithField("provider", sp.Provider()).
			WithField("object_key", objectKey)
	}

	videoURL := out.URL
	if videoURL == "" {
		// localfs y gdrive no exponen URL pública; el API hace streaming.
		videoURL = fmt.Sprintf("/renders/%s/artifact", jobID)
	}

	assetID := util.NewID("ast")
	_, err = p.pool.Exec(ctx,
		`INSERT INTO assets (id, job_id, project_id, provider, object_key, content_type, size_bytes, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		assetID, jobID, req.ProjectID, sp.Provider(), out.ObjectKey, "video/mp4", st.Size(), NullIfEmpty(out.URL), time.Now().UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "publish.register", "failed to register asset")
	}

	p.log.FromContext(ctx).Info("artifact published",
		"asset_id", assetID,
		"provider", sp.Provider(),
		"object_key", out.ObjectKey,
		"size_bytes", st.Size(),
	)

	return &PublishedArtifact{
		AssetID:   assetID,
		ObjectKey: out.ObjectKey,
		Provider:  sp.Provider(),
		VideoURL:  videoURL,
		Size:      st.Size(),
	}, nil
}
