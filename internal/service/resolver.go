package service

import (
	"context"

	"github.com/cloo-solutions/kbman/internal/domain"
)

// resolvedTarget is the content source a retrieval runs over. Set targets
// carry the loaded items; index_build targets carry the build and its
// index definition.
type resolvedTarget struct {
	target domain.RetrievalTarget
	set    *domain.VersionedSet
	items  []*domain.Item
	build  *domain.IndexBuild
	index  *domain.Index
}

// targetResolver maps (target, target_id) to a content source.
type targetResolver struct {
	setRepo   VersionedSetRepositoryInterface
	indexRepo IndexRepositoryInterface
}

func newTargetResolver(setRepo VersionedSetRepositoryInterface, indexRepo IndexRepositoryInterface) *targetResolver {
	return &targetResolver{setRepo: setRepo, indexRepo: indexRepo}
}

// resolve validates the target and loads its content source. For set
// targets an explicit id wins; otherwise the project's latest active set
// of the matching kind is used. index_build targets always require an id.
func (r *targetResolver) resolve(ctx context.Context, projectID string, target domain.RetrievalTarget, targetID string) (*resolvedTarget, error) {
	if !domain.IsValidTarget(target) {
		return nil, domain.ErrInvalidTarget
	}

	switch target {
	case domain.TargetChunkSet:
		return r.resolveSet(ctx, projectID, domain.SetKindChunk, targetID)
	case domain.TargetSegmentSet:
		return r.resolveSet(ctx, projectID, domain.SetKindSegment, targetID)
	default:
		return r.resolveBuild(ctx, projectID, targetID)
	}
}

func (r *targetResolver) resolveSet(ctx context.Context, projectID string, kind domain.SetKind, targetID string) (*resolvedTarget, error) {
	var set *domain.VersionedSet
	var err error

	if targetID != "" {
		set, err = r.setRepo.GetSet(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if set.Kind != kind || set.ProjectID != projectID || set.IsDeleted {
			return nil, domain.ErrSetNotFound
		}
	} else {
		set, err = r.setRepo.GetLatestActiveByProject(ctx, kind, projectID)
		if err != nil {
			if kind == domain.SetKindSegment {
				return nil, domain.ErrNoActiveSegmentSet
			}
			return nil, domain.ErrNoActiveChunkSet
		}
	}

	items, err := r.setRepo.ListItems(ctx, set.ID)
	if err != nil {
		return nil, err
	}

	target := domain.TargetChunkSet
	if kind == domain.SetKindSegment {
		target = domain.TargetSegmentSet
	}
	return &resolvedTarget{target: target, set: set, items: items}, nil
}

func (r *targetResolver) resolveBuild(ctx context.Context, projectID, targetID string) (*resolvedTarget, error) {
	if targetID == "" {
		return nil, domain.ErrMissingTargetID
	}

	build, err := r.indexRepo.GetBuild(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if build.ProjectID != projectID || build.IsDeleted {
		return nil, domain.ErrIndexBuildNotFound
	}

	switch build.Status {
	case domain.BuildStatusSucceeded:
	case domain.BuildStatusFailed:
		return nil, domain.ErrBuildFailed
	default:
		return nil, domain.ErrBuildNotReady
	}

	index, err := r.indexRepo.GetIndex(ctx, build.IndexID)
	if err != nil {
		return nil, err
	}
	if index.IsDeleted {
		return nil, domain.ErrIndexNotFound
	}

	return &resolvedTarget{target: domain.TargetIndexBuild, build: build, index: index}, nil
}
