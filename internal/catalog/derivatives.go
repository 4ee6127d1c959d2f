package catalog

import (
	"context"

	"ourtextscores/internal/domain/catalog"
)

// UpsertDerivatives merges pipeline-generated artifacts into the revision's
// derivative set. Only the provided keys are touched; an empty update set
// issues no writes at all. A reference PDF is mirrored onto the source, but
// only when the revision is the source's current resolved head — an artifact
// generated for a superseded revision must not overwrite the mirror.
func (s *Service) UpsertDerivatives(ctx context.Context, workID, sourceID, revisionID string, updates catalog.DerivativeSet) (*catalog.SourceRevision, error) {
	if updates.IsZero() {
		return s.repos.Revisions.Find(ctx, workID, sourceID, revisionID)
	}

	changed, err := s.repos.Revisions.MergeDerivatives(ctx, workID, sourceID, revisionID, updates)
	if err != nil {
		return nil, err
	}

	rev, err := s.repos.Revisions.Find(ctx, workID, sourceID, revisionID)
	if err != nil {
		return nil, err
	}

	if changed && updates.ReferencePdf != nil {
		if err := s.mirrorReferencePdf(ctx, rev, *updates.ReferencePdf); err != nil {
			return nil, err
		}
	}
	return rev, nil
}

func (s *Service) mirrorReferencePdf(ctx context.Context, rev *catalog.SourceRevision, pdf catalog.StorageLocator) error {
	for i := 0; i < 8; i++ {
		src, err := s.repos.Sources.Find(ctx, rev.WorkID, rev.SourceID)
		if err != nil {
			return err
		}
		if src.LatestRevisionID == nil || *src.LatestRevisionID != rev.RevisionID {
			// superseded revision; keep the newer mirror
			return nil
		}
		loc := pdf
		src.Derivatives.ReferencePdf = &loc
		src.HasReferencePdf = true
		err = s.repos.Sources.Update(ctx, src, src.RowVersion)
		if err == nil {
			s.log.Info("reference pdf mirrored", "work_id", rev.WorkID, "source_id", rev.SourceID, "revision_id", rev.RevisionID)
			if _, err := s.RecomputeSourceRollup(ctx, rev.WorkID); err != nil {
				return err
			}
			return nil
		}
		if catalog.IsConflict(err) {
			continue
		}
		return err
	}
	return &catalog.ConflictError{Reason: "reference pdf mirror kept conflicting", WorkID: rev.WorkID, SourceID: rev.SourceID}
}
