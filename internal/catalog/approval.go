package catalog

import (
	"context"

	"ourtextscores/internal/domain/catalog"
)

// Approve moves a pending revision to approved. Repeating an approval is a
// no-op returning the current state; approving a rejected revision is an
// InvalidState error. Only the revision's approval owner or an admin may
// decide.
func (s *Service) Approve(ctx context.Context, workID, sourceID, revisionID string, actor catalog.Actor) (*catalog.SourceRevision, error) {
	return s.decide(ctx, workID, sourceID, revisionID, actor, catalog.RevisionApproved)
}

// Reject is symmetric to Approve and never touches the source's latest
// pointer or the work aggregates.
func (s *Service) Reject(ctx context.Context, workID, sourceID, revisionID string, actor catalog.Actor) (*catalog.SourceRevision, error) {
	return s.decide(ctx, workID, sourceID, revisionID, actor, catalog.RevisionRejected)
}

func (s *Service) decide(ctx context.Context, workID, sourceID, revisionID string, actor catalog.Actor, outcome catalog.RevisionStatus) (*catalog.SourceRevision, error) {
	for {
		rev, err := s.repos.Revisions.Find(ctx, workID, sourceID, revisionID)
		if err != nil {
			return nil, err
		}

		if rev.Terminal() {
			if rev.Status == outcome {
				// idempotent repeat, nothing written
				return rev, nil
			}
			return nil, &catalog.InvalidStateError{
				Detail:     "revision already " + string(rev.Status),
				WorkID:     workID,
				SourceID:   sourceID,
				RevisionID: revisionID,
			}
		}

		if !s.canDecide(rev, actor) {
			action := "approve"
			if outcome == catalog.RevisionRejected {
				action = "reject"
			}
			return nil, &catalog.UnauthorizedError{Action: action, WorkID: workID, SourceID: sourceID, RevisionID: revisionID}
		}

		now := s.now().UTC()
		rev.Status = outcome
		rev.ReviewedByUserID = actor.CreatedByRef()
		rev.ReviewedAt = &now

		err = s.repos.Revisions.Update(ctx, rev, rev.RowVersion)
		if err == nil {
			s.log.Info("revision reviewed",
				"work_id", workID, "source_id", sourceID,
				"revision_id", revisionID, "outcome", outcome)
			if outcome == catalog.RevisionApproved {
				if err := s.refreshLatest(ctx, workID, sourceID); err != nil {
					return nil, err
				}
				if _, err := s.RecomputeSourceRollup(ctx, workID); err != nil {
					return nil, err
				}
				s.queueNewRevision(ctx, rev)
			}
			return rev, nil
		}
		if catalog.IsConflict(err) {
			// raced with a concurrent decision; re-read and converge
			continue
		}
		return nil, err
	}
}

func (s *Service) canDecide(rev *catalog.SourceRevision, actor catalog.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	// a revision with no recorded approval owner is admin-only approvable
	return rev.ApprovalOwnerUserID != nil && actor.IsUser(*rev.ApprovalOwnerUserID)
}
