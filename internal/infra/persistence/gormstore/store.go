// Package gormstore implements the catalog repositories on postgres via
// gorm. Unique indexes on (source_id, sequence_number) and
// (source_id, name) arbitrate the append and branch-create races; optimistic
// row versions guard every other mutation.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"

	svc "ourtextscores/internal/catalog"
	"ourtextscores/internal/domain/catalog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Repositories() svc.Repositories {
	return svc.Repositories{
		Works:     &worksRepo{s.db},
		Sources:   &sourcesRepo{s.db},
		Revisions: &revisionsRepo{s.db},
		Branches:  &branchesRepo{s.db},
		Projects:  &linksRepo{s.db},
	}
}

/* ---------------- works ---------------- */

type worksRepo struct{ db *gorm.DB }

func (r *worksRepo) Ensure(ctx context.Context, work *catalog.Work) (bool, error) {
	var existing catalog.Work
	err := r.db.WithContext(ctx).Where("work_id = ?", work.WorkID).First(&existing).Error
	if err == nil {
		*work = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	err = r.db.WithContext(ctx).Create(work).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// raced with a concurrent ensure
		if ferr := r.db.WithContext(ctx).Where("work_id = ?", work.WorkID).First(&existing).Error; ferr != nil {
			return false, ferr
		}
		*work = existing
		return false, nil
	}
	return err == nil, err
}

func (r *worksRepo) Find(ctx context.Context, workID string) (*catalog.Work, error) {
	var work catalog.Work
	err := r.db.WithContext(ctx).Where("work_id = ?", workID).First(&work).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &catalog.NotFoundError{Kind: "work", WorkID: workID}
	}
	if err != nil {
		return nil, err
	}
	return &work, nil
}

func (r *worksRepo) List(ctx context.Context) ([]catalog.Work, error) {
	var works []catalog.Work
	err := r.db.WithContext(ctx).Order("title ASC").Find(&works).Error
	return works, err
}

func (r *worksRepo) UpdateAggregates(ctx context.Context, workID string, agg catalog.WorkAggregates) error {
	formats, err := json.Marshal(agg.AvailableFormats)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&catalog.Work{}).
		Where("work_id = ?", workID).
		Updates(map[string]interface{}{
			"source_count":         agg.SourceCount,
			"available_formats":    string(formats),
			"has_reference_pdf":    agg.HasReferencePdf,
			"has_verified_sources": agg.HasVerifiedSources,
			"has_flagged_sources":  agg.HasFlaggedSources,
			"latest_revision_at":   agg.LatestRevisionAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &catalog.NotFoundError{Kind: "work", WorkID: workID}
	}
	return nil
}

/* ---------------- sources ---------------- */

type sourcesRepo struct{ db *gorm.DB }

func (r *sourcesRepo) Create(ctx context.Context, src *catalog.Source) error {
	err := r.db.WithContext(ctx).Create(src).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &catalog.ConflictError{Reason: "source already exists", WorkID: src.WorkID, SourceID: src.SourceID}
	}
	return err
}

func (r *sourcesRepo) Find(ctx context.Context, workID, sourceID string) (*catalog.Source, error) {
	var src catalog.Source
	err := r.db.WithContext(ctx).Where("source_id = ? AND work_id = ?", sourceID, workID).First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &catalog.NotFoundError{Kind: "source", WorkID: workID, SourceID: sourceID}
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (r *sourcesRepo) ListByWork(ctx context.Context, workID string) ([]catalog.Source, error) {
	var sources []catalog.Source
	err := r.db.WithContext(ctx).Where("work_id = ?", workID).Order("created_at ASC").Find(&sources).Error
	return sources, err
}

func (r *sourcesRepo) Update(ctx context.Context, src *catalog.Source, expected int64) error {
	src.RowVersion = expected + 1
	res := r.db.WithContext(ctx).Model(&catalog.Source{}).
		Where("source_id = ? AND work_id = ? AND row_version = ?", src.SourceID, src.WorkID, expected).
		Select("*").Omit("source_id", "work_id", "created_at").
		Updates(src)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		r.db.WithContext(ctx).Model(&catalog.Source{}).
			Where("source_id = ? AND work_id = ?", src.SourceID, src.WorkID).Count(&n)
		if n == 0 {
			return &catalog.NotFoundError{Kind: "source", WorkID: src.WorkID, SourceID: src.SourceID}
		}
		return &catalog.ConflictError{Reason: "row version mismatch", WorkID: src.WorkID, SourceID: src.SourceID}
	}
	return nil
}

func (r *sourcesRepo) Delete(ctx context.Context, workID, sourceID string) error {
	res := r.db.WithContext(ctx).Where("source_id = ? AND work_id = ?", sourceID, workID).Delete(&catalog.Source{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &catalog.NotFoundError{Kind: "source", WorkID: workID, SourceID: sourceID}
	}
	return nil
}

/* ---------------- revisions ---------------- */

type revisionsRepo struct{ db *gorm.DB }

func (r *revisionsRepo) Create(ctx context.Context, rev *catalog.SourceRevision) error {
	err := r.db.WithContext(ctx).Create(rev).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &catalog.ConflictError{Reason: "duplicate sequence number", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
	}
	return err
}

func (r *revisionsRepo) Find(ctx context.Context, workID, sourceID, revisionID string) (*catalog.SourceRevision, error) {
	var rev catalog.SourceRevision
	err := r.db.WithContext(ctx).
		Where("revision_id = ? AND source_id = ? AND work_id = ?", revisionID, sourceID, workID).
		First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &catalog.NotFoundError{Kind: "revision", WorkID: workID, SourceID: sourceID, RevisionID: revisionID}
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *revisionsRepo) ListBySource(ctx context.Context, workID, sourceID string) ([]catalog.SourceRevision, error) {
	var revs []catalog.SourceRevision
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Order("sequence_number ASC").
		Find(&revs).Error
	return revs, err
}

func (r *revisionsRepo) MaxSequence(ctx context.Context, workID, sourceID string) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&catalog.SourceRevision{}).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Select("COALESCE(MAX(sequence_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *revisionsRepo) Update(ctx context.Context, rev *catalog.SourceRevision, expected int64) error {
	rev.RowVersion = expected + 1
	res := r.db.WithContext(ctx).Model(&catalog.SourceRevision{}).
		Where("revision_id = ? AND row_version = ?", rev.RevisionID, expected).
		Select("status", "reviewed_by_user_id", "reviewed_at", "derivatives", "visibility", "withheld", "row_version").
		Updates(rev)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		r.db.WithContext(ctx).Model(&catalog.SourceRevision{}).Where("revision_id = ?", rev.RevisionID).Count(&n)
		if n == 0 {
			return &catalog.NotFoundError{Kind: "revision", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
		}
		return &catalog.ConflictError{Reason: "row version mismatch", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
	}
	return nil
}

// MergeDerivatives merges under a row lock so two pipeline callbacks landing
// different artifact kinds concurrently cannot clobber each other.
func (r *revisionsRepo) MergeDerivatives(ctx context.Context, workID, sourceID, revisionID string, updates catalog.DerivativeSet) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rev catalog.SourceRevision
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("revision_id = ? AND source_id = ? AND work_id = ?", revisionID, sourceID, workID).
			First(&rev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &catalog.NotFoundError{Kind: "revision", WorkID: workID, SourceID: sourceID, RevisionID: revisionID}
		}
		if err != nil {
			return err
		}
		if !rev.Derivatives.Merge(updates) {
			return nil
		}
		changed = true
		derivs, err := json.Marshal(rev.Derivatives)
		if err != nil {
			return err
		}
		return tx.Model(&catalog.SourceRevision{}).
			Where("revision_id = ?", revisionID).
			Updates(map[string]interface{}{
				"derivatives": string(derivs),
				"row_version": gorm.Expr("row_version + 1"),
			}).Error
	})
	return changed, err
}

func (r *revisionsRepo) BulkSetVisibility(ctx context.Context, workID, sourceID string, vis catalog.VisibilityState, wh *catalog.Withholding) (int64, error) {
	var withheld interface{}
	if wh != nil {
		data, err := json.Marshal(wh)
		if err != nil {
			return 0, err
		}
		withheld = string(data)
	}
	res := r.db.WithContext(ctx).Model(&catalog.SourceRevision{}).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Updates(map[string]interface{}{
			"visibility":  vis,
			"withheld":    withheld,
			"row_version": gorm.Expr("row_version + 1"),
		})
	return res.RowsAffected, res.Error
}

func (r *revisionsRepo) DeleteBySource(ctx context.Context, workID, sourceID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Delete(&catalog.SourceRevision{})
	return res.RowsAffected, res.Error
}

/* ---------------- branches ---------------- */

type branchesRepo struct{ db *gorm.DB }

func (r *branchesRepo) Create(ctx context.Context, b *catalog.Branch) error {
	err := r.db.WithContext(ctx).Create(b).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &catalog.ConflictError{Reason: "branch already exists", WorkID: b.WorkID, SourceID: b.SourceID, Branch: b.Name}
	}
	return err
}

func (r *branchesRepo) Find(ctx context.Context, workID, sourceID, name string) (*catalog.Branch, error) {
	var b catalog.Branch
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND work_id = ? AND name = ?", sourceID, workID, name).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &catalog.NotFoundError{Kind: "branch", WorkID: workID, SourceID: sourceID, Branch: name}
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *branchesRepo) ListBySource(ctx context.Context, workID, sourceID string) ([]catalog.Branch, error) {
	var branches []catalog.Branch
	err := r.db.WithContext(ctx).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Order("created_at ASC").
		Find(&branches).Error
	return branches, err
}

func (r *branchesRepo) DeleteBySource(ctx context.Context, workID, sourceID string) error {
	return r.db.WithContext(ctx).
		Where("source_id = ? AND work_id = ?", sourceID, workID).
		Delete(&catalog.Branch{}).Error
}

/* ---------------- project links ---------------- */

type linksRepo struct{ db *gorm.DB }

func (r *linksRepo) Link(ctx context.Context, link *catalog.ProjectLink) (bool, error) {
	err := r.db.WithContext(ctx).Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return err == nil, err
}

func (r *linksRepo) Unlink(ctx context.Context, projectID, sourceID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND source_id = ?", projectID, sourceID).
		Delete(&catalog.ProjectLink{})
	return res.RowsAffected > 0, res.Error
}

func (r *linksRepo) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&catalog.ProjectLink{}).
		Where("source_id = ?", sourceID).
		Count(&n).Error
	return int(n), err
}

func (r *linksRepo) DeleteBySource(ctx context.Context, sourceID string) error {
	return r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Delete(&catalog.ProjectLink{}).Error
}
