package catalog

import (
	"context"

	"ourtextscores/internal/domain/catalog"
)

// VisibilityTarget names the node the takedown subsystem wants to mutate.
type VisibilityTarget struct {
	Scope      catalog.VisibilityScope
	WorkID     string
	SourceID   string
	RevisionID string
}

// WithholdDetails carries the takedown case data for a withhold; ignored on
// restore.
type WithholdDetails struct {
	CaseID string
	Reason string
	By     string
}

// ApplyVisibility flips the takedown overlay. Source scope cascades to every
// revision under the source; revision scope touches exactly one. Restoring
// clears the withheld record entirely, so a restored node is structurally
// identical to one never withheld. Orthogonal to approval status: pending
// and rejected revisions can be withheld too.
func (s *Service) ApplyVisibility(ctx context.Context, target VisibilityTarget, state catalog.VisibilityState, details WithholdDetails, actor catalog.Actor) error {
	if !actor.IsAdmin() {
		return &catalog.UnauthorizedError{Action: "change visibility", WorkID: target.WorkID, SourceID: target.SourceID, RevisionID: target.RevisionID}
	}

	var wh *catalog.Withholding
	if state == catalog.VisibilityWithheldDMCA {
		if details.CaseID == "" {
			return &catalog.InvalidStateError{Detail: "withholding requires a case id", WorkID: target.WorkID, SourceID: target.SourceID}
		}
		wh = &catalog.Withholding{
			CaseID: details.CaseID,
			Reason: details.Reason,
			By:     details.By,
			At:     s.now().UTC(),
		}
	}

	switch target.Scope {
	case catalog.ScopeSource:
		if err := s.applySourceVisibility(ctx, target.WorkID, target.SourceID, state, wh); err != nil {
			return err
		}
	case catalog.ScopeRevision:
		if err := s.applyRevisionVisibility(ctx, target, state, wh); err != nil {
			return err
		}
	default:
		return &catalog.InvalidStateError{Detail: "unknown visibility scope " + string(target.Scope), WorkID: target.WorkID}
	}

	// the overlay can change which revision is the resolved head
	if err := s.refreshLatest(ctx, target.WorkID, target.SourceID); err != nil {
		return err
	}
	_, err := s.RecomputeSourceRollup(ctx, target.WorkID)
	return err
}

func (s *Service) applySourceVisibility(ctx context.Context, workID, sourceID string, state catalog.VisibilityState, wh *catalog.Withholding) error {
	for i := 0; i < 8; i++ {
		src, err := s.repos.Sources.Find(ctx, workID, sourceID)
		if err != nil {
			return err
		}
		src.Visibility = state
		src.Withheld = wh
		err = s.repos.Sources.Update(ctx, src, src.RowVersion)
		if err == nil {
			n, err := s.repos.Revisions.BulkSetVisibility(ctx, workID, sourceID, state, wh)
			if err != nil {
				return err
			}
			s.log.Info("source visibility applied", "work_id", workID, "source_id", sourceID, "state", state, "revisions", n)
			return nil
		}
		if catalog.IsConflict(err) {
			continue
		}
		return err
	}
	return &catalog.ConflictError{Reason: "source visibility update kept conflicting", WorkID: workID, SourceID: sourceID}
}

func (s *Service) applyRevisionVisibility(ctx context.Context, target VisibilityTarget, state catalog.VisibilityState, wh *catalog.Withholding) error {
	for i := 0; i < 8; i++ {
		rev, err := s.repos.Revisions.Find(ctx, target.WorkID, target.SourceID, target.RevisionID)
		if err != nil {
			return err
		}
		rev.Visibility = state
		rev.Withheld = wh
		err = s.repos.Revisions.Update(ctx, rev, rev.RowVersion)
		if err == nil {
			s.log.Info("revision visibility applied", "work_id", target.WorkID, "source_id", target.SourceID, "revision_id", target.RevisionID, "state", state)
			return nil
		}
		if catalog.IsConflict(err) {
			continue
		}
		return err
	}
	return &catalog.ConflictError{Reason: "revision visibility update kept conflicting", WorkID: target.WorkID, SourceID: target.SourceID, RevisionID: target.RevisionID}
}
