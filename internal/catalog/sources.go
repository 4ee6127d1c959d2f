package catalog

import (
	"context"

	"ourtextscores/internal/domain/catalog"

	"github.com/google/uuid"
)

// EnsureWork creates the work if it is not cataloged yet; reports whether a
// new record was created. Newly created works are pushed to the indexer.
func (s *Service) EnsureWork(ctx context.Context, work catalog.Work) (*catalog.Work, bool, error) {
	created, err := s.repos.Works.Ensure(ctx, &work)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.indexWork(ctx, &work)
	}
	return &work, created, nil
}

func (s *Service) GetWork(ctx context.Context, workID string) (*catalog.Work, error) {
	return s.repos.Works.Find(ctx, workID)
}

func (s *Service) ListWorks(ctx context.Context) ([]catalog.Work, error) {
	return s.repos.Works.List(ctx)
}

// CreateSourceInput is the first upload of a new source lineage.
type CreateSourceInput struct {
	WorkID      string
	Label       string
	SourceType  string
	Format      string
	License     string
	Filename    string
	ContentType string
	Content     []byte
	IsPrimary   bool
	IngestType  string // manual | batch | sync
	IngestNotes string
	Validation  catalog.ValidationSnapshot
	Actor       catalog.Actor
}

// CreateSource registers a new upload lineage under a work and appends its
// first revision on "main". Provenance is written once here and never
// mutated afterwards.
func (s *Service) CreateSource(ctx context.Context, in CreateSourceInput) (*catalog.Source, *catalog.SourceRevision, error) {
	if _, err := s.repos.Works.Find(ctx, in.WorkID); err != nil {
		return nil, nil, err
	}

	ingest := in.IngestType
	if ingest == "" {
		ingest = catalog.IngestManual
	}

	now := s.now().UTC()
	src := &catalog.Source{
		SourceID:         uuid.NewString(),
		WorkID:           in.WorkID,
		Label:            in.Label,
		SourceType:       in.SourceType,
		Format:           in.Format,
		License:          in.License,
		OriginalFilename: in.Filename,
		IsPrimary:        in.IsPrimary,
		Visibility:       catalog.VisibilityPublic,
		Provenance: catalog.Provenance{
			IngestType:       ingest,
			UploadedByUserID: in.Actor.CreatedByRef(),
			UploadedAt:       now,
			Notes:            in.IngestNotes,
		},
		CreatedAt: now,
	}
	if err := s.repos.Sources.Create(ctx, src); err != nil {
		return nil, nil, err
	}

	rev, err := s.AppendRevision(ctx, AppendInput{
		WorkID:       in.WorkID,
		SourceID:     src.SourceID,
		BranchName:   catalog.DefaultBranch,
		CreateBranch: true,
		Content:      in.Content,
		Filename:     in.Filename,
		ContentType:  in.ContentType,
		Validation:   in.Validation,
		Actor:        in.Actor,
	})
	if err != nil {
		// roll the empty source back so a failed upload leaves nothing behind
		if derr := s.repos.Sources.Delete(ctx, in.WorkID, src.SourceID); derr != nil {
			s.log.Warn("source rollback failed", "source_id", src.SourceID, "err", derr)
		}
		return nil, nil, err
	}

	// record the original upload's locator on the source itself
	for i := 0; i < 8; i++ {
		fresh, err := s.repos.Sources.Find(ctx, in.WorkID, src.SourceID)
		if err != nil {
			return nil, nil, err
		}
		fresh.Storage = rev.RawStorage
		if err := s.repos.Sources.Update(ctx, fresh, fresh.RowVersion); err == nil {
			src = fresh
			break
		} else if !catalog.IsConflict(err) {
			return nil, nil, err
		}
	}

	if _, err := s.RecomputeSourceRollup(ctx, in.WorkID); err != nil {
		return nil, nil, err
	}

	s.log.Info("source created", "work_id", in.WorkID, "source_id", src.SourceID, "label", in.Label)
	return src, rev, nil
}

// GetSource returns the source; withheld sources are hidden from non-admin
// viewers as if they did not exist.
func (s *Service) GetSource(ctx context.Context, workID, sourceID string, viewer catalog.Actor) (*catalog.Source, error) {
	src, err := s.repos.Sources.Find(ctx, workID, sourceID)
	if err != nil {
		return nil, err
	}
	if src.Visibility != catalog.VisibilityPublic && !viewer.IsAdmin() {
		return nil, &catalog.NotFoundError{Kind: "source", WorkID: workID, SourceID: sourceID}
	}
	return src, nil
}

func (s *Service) ListSources(ctx context.Context, workID string, viewer catalog.Actor) ([]catalog.Source, error) {
	if _, err := s.repos.Works.Find(ctx, workID); err != nil {
		return nil, err
	}
	all, err := s.repos.Sources.ListByWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Source, 0, len(all))
	for _, src := range all {
		if src.Visibility != catalog.VisibilityPublic && !viewer.IsAdmin() {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

// DeleteSource removes the source with all revisions, branches and project
// links, deletes its stored objects best-effort, and recomputes the work
// rollup once.
func (s *Service) DeleteSource(ctx context.Context, workID, sourceID string, actor catalog.Actor) error {
	src, err := s.repos.Sources.Find(ctx, workID, sourceID)
	if err != nil {
		return err
	}
	owner := src.OwnerUserID()
	if !actor.IsAdmin() && (owner == nil || !actor.IsUser(*owner)) {
		return &catalog.UnauthorizedError{Action: "delete source", WorkID: workID, SourceID: sourceID}
	}

	revs, err := s.repos.Revisions.ListBySource(ctx, workID, sourceID)
	if err != nil {
		return err
	}
	for i := range revs {
		s.discardObject(ctx, revs[i].RawStorage)
		if revs[i].Manifest != nil {
			s.discardObject(ctx, *revs[i].Manifest)
		}
		for _, loc := range []*catalog.StorageLocator{
			revs[i].Derivatives.MusicDiffHtml,
			revs[i].Derivatives.MusicDiffPdf,
			revs[i].Derivatives.MusicDiffReport,
			revs[i].Derivatives.LinearizedXml,
			revs[i].Derivatives.ReferencePdf,
		} {
			if loc != nil {
				s.discardObject(ctx, *loc)
			}
		}
	}

	if _, err := s.repos.Revisions.DeleteBySource(ctx, workID, sourceID); err != nil {
		return err
	}
	if err := s.repos.Branches.DeleteBySource(ctx, workID, sourceID); err != nil {
		return err
	}
	if err := s.repos.Projects.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	if err := s.repos.Sources.Delete(ctx, workID, sourceID); err != nil {
		return err
	}

	s.log.Info("source deleted", "work_id", workID, "source_id", sourceID, "revisions", len(revs))
	_, err = s.RecomputeSourceRollup(ctx, workID)
	return err
}

type ModerationKind string

const (
	ModerationVerify ModerationKind = "verify"
	ModerationFlag   ModerationKind = "flag"
)

// SetModeration toggles the admin verified/flagged flag on a source with the
// reviewing actor, time and note, then recomputes the work rollup.
func (s *Service) SetModeration(ctx context.Context, workID, sourceID string, kind ModerationKind, value bool, note string, actor catalog.Actor) (*catalog.Source, error) {
	if !actor.IsAdmin() {
		return nil, &catalog.UnauthorizedError{Action: string(kind) + " source", WorkID: workID, SourceID: sourceID}
	}
	for i := 0; i < 8; i++ {
		src, err := s.repos.Sources.Find(ctx, workID, sourceID)
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		by := actor.CreatedByRef()
		switch kind {
		case ModerationVerify:
			src.AdminVerified = value
			src.VerifiedBy = by
			src.VerifiedAt = &now
			src.VerifiedNote = note
		case ModerationFlag:
			src.AdminFlagged = value
			src.FlaggedBy = by
			src.FlaggedAt = &now
			src.FlaggedNote = note
		default:
			return nil, &catalog.InvalidStateError{Detail: "unknown moderation kind " + string(kind), WorkID: workID, SourceID: sourceID}
		}
		err = s.repos.Sources.Update(ctx, src, src.RowVersion)
		if err == nil {
			if _, err := s.RecomputeSourceRollup(ctx, workID); err != nil {
				return nil, err
			}
			return src, nil
		}
		if !catalog.IsConflict(err) {
			return nil, err
		}
	}
	return nil, &catalog.ConflictError{Reason: "moderation update kept conflicting", WorkID: workID, SourceID: sourceID}
}

// LinkProject attaches the source to a project and refreshes the cached
// link count. Idempotent.
func (s *Service) LinkProject(ctx context.Context, workID, sourceID, projectID string, actor catalog.Actor) error {
	src, err := s.repos.Sources.Find(ctx, workID, sourceID)
	if err != nil {
		return err
	}
	owner := src.OwnerUserID()
	if !actor.IsAdmin() && (owner == nil || !actor.IsUser(*owner)) {
		return &catalog.UnauthorizedError{Action: "link project", WorkID: workID, SourceID: sourceID}
	}
	created, err := s.repos.Projects.Link(ctx, &catalog.ProjectLink{
		ProjectID: projectID,
		SourceID:  sourceID,
		WorkID:    workID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	return s.refreshProjectLinkCount(ctx, workID, sourceID)
}

func (s *Service) UnlinkProject(ctx context.Context, workID, sourceID, projectID string, actor catalog.Actor) error {
	src, err := s.repos.Sources.Find(ctx, workID, sourceID)
	if err != nil {
		return err
	}
	owner := src.OwnerUserID()
	if !actor.IsAdmin() && (owner == nil || !actor.IsUser(*owner)) {
		return &catalog.UnauthorizedError{Action: "unlink project", WorkID: workID, SourceID: sourceID}
	}
	removed, err := s.repos.Projects.Unlink(ctx, projectID, sourceID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	return s.refreshProjectLinkCount(ctx, workID, sourceID)
}

func (s *Service) refreshProjectLinkCount(ctx context.Context, workID, sourceID string) error {
	for i := 0; i < 8; i++ {
		src, err := s.repos.Sources.Find(ctx, workID, sourceID)
		if err != nil {
			return err
		}
		n, err := s.repos.Projects.CountBySource(ctx, sourceID)
		if err != nil {
			return err
		}
		if src.ProjectLinkCount == n {
			return nil
		}
		src.ProjectLinkCount = n
		err = s.repos.Sources.Update(ctx, src, src.RowVersion)
		if err == nil {
			return nil
		}
		if !catalog.IsConflict(err) {
			return err
		}
	}
	return &catalog.ConflictError{Reason: "project link count update kept conflicting", WorkID: workID, SourceID: sourceID}
}
