package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/kbman/internal/domain"
	"github.com/cloo-solutions/kbman/internal/service"
	"github.com/cloo-solutions/kbman/internal/telemetry"
)

const defaultClaimBatch = 10

// Processor claims queued jobs and executes them. Claiming flips the row
// to running under FOR UPDATE SKIP LOCKED, so concurrent workers never
// pick up the same job.
type Processor struct {
	jobRepo    service.JobRepositoryInterface
	indexes    *service.IndexService
	pipelines  *service.PipelineService
	claimBatch int
}

func NewProcessor(jobRepo service.JobRepositoryInterface, indexes *service.IndexService, pipelines *service.PipelineService) *Processor {
	return &Processor{
		jobRepo:    jobRepo,
		indexes:    indexes,
		pipelines:  pipelines,
		claimBatch: defaultClaimBatch,
	}
}

// ProcessJobs drains one batch of queued jobs.
func (p *Processor) ProcessJobs(ctx context.Context) error {
	jobs, err := p.jobRepo.ClaimQueued(ctx, p.claimBatch)
	if err != nil {
		return fmt.Errorf("failed to claim jobs: %w", err)
	}

	for _, job := range jobs {
		p.runJob(ctx, job)
	}
	return nil
}

func (p *Processor) runJob(ctx context.Context, job *domain.Job) {
	ctx, span := telemetry.StartSpan(ctx, "Processor.runJob", telemetry.SpanAttributes{
		ProjectID: job.ProjectID,
		Operation: string(job.Type),
	})
	defer span.End()

	result, err := p.execute(ctx, job)
	if err != nil {
		span.SetError(err)
		log.Printf("job %s (%s) failed: %v", job.ID, job.Type, err)
		if uerr := p.jobRepo.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, nil, err.Error()); uerr != nil {
			log.Printf("job %s: failed to record failure: %v", job.ID, uerr)
		}
		return
	}

	if err := p.jobRepo.UpdateStatus(ctx, job.ID, domain.JobStatusSucceeded, result, ""); err != nil {
		log.Printf("job %s: failed to record success: %v", job.ID, err)
	}
}

func (p *Processor) execute(ctx context.Context, job *domain.Job) (map[string]any, error) {
	switch job.Type {
	case domain.JobTypeIndexBuild:
		buildID, _ := job.Payload["build_id"].(string)
		if buildID == "" {
			return nil, fmt.Errorf("index_build job %s has no build_id", job.ID)
		}
		build, err := p.indexes.RunBuild(ctx, buildID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"build_id":     build.ID,
			"status":       string(build.Status),
			"artifact_uri": build.ArtifactURI,
		}, nil

	case domain.JobTypePipeline:
		result, err := p.pipelines.RunFromPayload(ctx, job.ProjectID, job.Payload)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"document_version_id": result.DocumentVersionID,
			"segment_set_id":      result.SegmentSetID,
			"chunk_set_id":        result.ChunkSetID,
		}
		if result.BuildID != "" {
			out["build_id"] = result.BuildID
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown job type %q", job.Type)
	}
}
