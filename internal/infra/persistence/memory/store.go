// Package memory implements the catalog repositories in process memory.
// Intended for tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	svc "ourtextscores/internal/catalog"
	"ourtextscores/internal/domain/catalog"
)

// Store backs all catalog repositories with maps behind one mutex, which
// also makes every repository call atomic the way a document store write is.
type Store struct {
	mu        sync.RWMutex
	works     map[string]*catalog.Work
	sources   map[string]*catalog.Source
	revisions map[string]*catalog.SourceRevision
	branches  map[string]*catalog.Branch
	links     map[string]*catalog.ProjectLink
	branchSeq uint
}

func New() *Store {
	return &Store{
		works:     make(map[string]*catalog.Work),
		sources:   make(map[string]*catalog.Source),
		revisions: make(map[string]*catalog.SourceRevision),
		branches:  make(map[string]*catalog.Branch),
		links:     make(map[string]*catalog.ProjectLink),
	}
}

// Repositories bundles the store behind the service's repository interfaces.
func (s *Store) Repositories() svc.Repositories {
	return svc.Repositories{
		Works:     &worksRepo{s},
		Sources:   &sourcesRepo{s},
		Revisions: &revisionsRepo{s},
		Branches:  &branchesRepo{s},
		Projects:  &linksRepo{s},
	}
}

func branchKey(sourceID, name string) string { return sourceID + "\x00" + name }

func linkKey(projectID, sourceID string) string { return projectID + "\x00" + sourceID }

/* ---------------- works ---------------- */

type worksRepo struct{ s *Store }

func (r *worksRepo) Ensure(_ context.Context, work *catalog.Work) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.works[work.WorkID]; ok {
		*work = *copyWork(existing)
		return false, nil
	}
	r.s.works[work.WorkID] = copyWork(work)
	return true, nil
}

func (r *worksRepo) Find(_ context.Context, workID string) (*catalog.Work, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.works[workID]
	if !ok {
		return nil, &catalog.NotFoundError{Kind: "work", WorkID: workID}
	}
	return copyWork(w), nil
}

func (r *worksRepo) List(_ context.Context) ([]catalog.Work, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]catalog.Work, 0, len(r.s.works))
	for _, w := range r.s.works {
		out = append(out, *copyWork(w))
	}
	return out, nil
}

func (r *worksRepo) UpdateAggregates(_ context.Context, workID string, agg catalog.WorkAggregates) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.works[workID]
	if !ok {
		return &catalog.NotFoundError{Kind: "work", WorkID: workID}
	}
	w.SourceCount = agg.SourceCount
	w.AvailableFormats = append([]string(nil), agg.AvailableFormats...)
	w.HasReferencePdf = agg.HasReferencePdf
	w.HasVerifiedSources = agg.HasVerifiedSources
	w.HasFlaggedSources = agg.HasFlaggedSources
	w.LatestRevisionAt = copyTime(agg.LatestRevisionAt)
	return nil
}

/* ---------------- sources ---------------- */

type sourcesRepo struct{ s *Store }

func (r *sourcesRepo) Create(_ context.Context, src *catalog.Source) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sources[src.SourceID]; ok {
		return &catalog.ConflictError{Reason: "source already exists", WorkID: src.WorkID, SourceID: src.SourceID}
	}
	r.s.sources[src.SourceID] = copySource(src)
	return nil
}

func (r *sourcesRepo) Find(_ context.Context, workID, sourceID string) (*catalog.Source, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	src, ok := r.s.sources[sourceID]
	if !ok || src.WorkID != workID {
		return nil, &catalog.NotFoundError{Kind: "source", WorkID: workID, SourceID: sourceID}
	}
	return copySource(src), nil
}

func (r *sourcesRepo) ListByWork(_ context.Context, workID string) ([]catalog.Source, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []catalog.Source
	for _, src := range r.s.sources {
		if src.WorkID == workID {
			out = append(out, *copySource(src))
		}
	}
	return out, nil
}

func (r *sourcesRepo) Update(_ context.Context, src *catalog.Source, expected int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.sources[src.SourceID]
	if !ok || stored.WorkID != src.WorkID {
		return &catalog.NotFoundError{Kind: "source", WorkID: src.WorkID, SourceID: src.SourceID}
	}
	if stored.RowVersion != expected {
		return &catalog.ConflictError{Reason: "row version mismatch", WorkID: src.WorkID, SourceID: src.SourceID}
	}
	src.RowVersion = expected + 1
	r.s.sources[src.SourceID] = copySource(src)
	return nil
}

func (r *sourcesRepo) Delete(_ context.Context, workID, sourceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	src, ok := r.s.sources[sourceID]
	if !ok || src.WorkID != workID {
		return &catalog.NotFoundError{Kind: "source", WorkID: workID, SourceID: sourceID}
	}
	delete(r.s.sources, sourceID)
	return nil
}

/* ---------------- revisions ---------------- */

type revisionsRepo struct{ s *Store }

func (r *revisionsRepo) Create(_ context.Context, rev *catalog.SourceRevision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.revisions[rev.RevisionID]; ok {
		return &catalog.ConflictError{Reason: "revision already exists", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
	}
	for _, other := range r.s.revisions {
		if other.SourceID == rev.SourceID && other.SequenceNumber == rev.SequenceNumber {
			return &catalog.ConflictError{Reason: "duplicate sequence number", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
		}
	}
	r.s.revisions[rev.RevisionID] = copyRevision(rev)
	return nil
}

func (r *revisionsRepo) Find(_ context.Context, workID, sourceID, revisionID string) (*catalog.SourceRevision, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rev, ok := r.s.revisions[revisionID]
	if !ok || rev.WorkID != workID || rev.SourceID != sourceID {
		return nil, &catalog.NotFoundError{Kind: "revision", WorkID: workID, SourceID: sourceID, RevisionID: revisionID}
	}
	return copyRevision(rev), nil
}

func (r *revisionsRepo) ListBySource(_ context.Context, workID, sourceID string) ([]catalog.SourceRevision, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []catalog.SourceRevision
	for _, rev := range r.s.revisions {
		if rev.WorkID == workID && rev.SourceID == sourceID {
			out = append(out, *copyRevision(rev))
		}
	}
	return out, nil
}

func (r *revisionsRepo) MaxSequence(_ context.Context, workID, sourceID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var max int64
	for _, rev := range r.s.revisions {
		if rev.WorkID == workID && rev.SourceID == sourceID && rev.SequenceNumber > max {
			max = rev.SequenceNumber
		}
	}
	return max, nil
}

func (r *revisionsRepo) Update(_ context.Context, rev *catalog.SourceRevision, expected int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.revisions[rev.RevisionID]
	if !ok || stored.WorkID != rev.WorkID || stored.SourceID != rev.SourceID {
		return &catalog.NotFoundError{Kind: "revision", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
	}
	if stored.RowVersion != expected {
		return &catalog.ConflictError{Reason: "row version mismatch", WorkID: rev.WorkID, SourceID: rev.SourceID, RevisionID: rev.RevisionID}
	}
	rev.RowVersion = expected + 1
	r.s.revisions[rev.RevisionID] = copyRevision(rev)
	return nil
}

func (r *revisionsRepo) MergeDerivatives(_ context.Context, workID, sourceID, revisionID string, updates catalog.DerivativeSet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rev, ok := r.s.revisions[revisionID]
	if !ok || rev.WorkID != workID || rev.SourceID != sourceID {
		return false, &catalog.NotFoundError{Kind: "revision", WorkID: workID, SourceID: sourceID, RevisionID: revisionID}
	}
	if !rev.Derivatives.Merge(updates) {
		return false, nil
	}
	rev.RowVersion++
	return true, nil
}

func (r *revisionsRepo) BulkSetVisibility(_ context.Context, workID, sourceID string, vis catalog.VisibilityState, wh *catalog.Withholding) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, rev := range r.s.revisions {
		if rev.WorkID != workID || rev.SourceID != sourceID {
			continue
		}
		rev.Visibility = vis
		rev.Withheld = copyWithholding(wh)
		rev.RowVersion++
		n++
	}
	return n, nil
}

func (r *revisionsRepo) DeleteBySource(_ context.Context, workID, sourceID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, rev := range r.s.revisions {
		if rev.WorkID == workID && rev.SourceID == sourceID {
			delete(r.s.revisions, id)
			n++
		}
	}
	return n, nil
}

/* ---------------- branches ---------------- */

type branchesRepo struct{ s *Store }

func (r *branchesRepo) Create(_ context.Context, b *catalog.Branch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := branchKey(b.SourceID, b.Name)
	if _, ok := r.s.branches[key]; ok {
		return &catalog.ConflictError{Reason: "branch already exists", WorkID: b.WorkID, SourceID: b.SourceID, Branch: b.Name}
	}
	r.s.branchSeq++
	b.ID = r.s.branchSeq
	cp := *b
	r.s.branches[key] = &cp
	return nil
}

func (r *branchesRepo) Find(_ context.Context, workID, sourceID, name string) (*catalog.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.branches[branchKey(sourceID, name)]
	if !ok || b.WorkID != workID {
		return nil, &catalog.NotFoundError{Kind: "branch", WorkID: workID, SourceID: sourceID, Branch: name}
	}
	cp := *b
	return &cp, nil
}

func (r *branchesRepo) ListBySource(_ context.Context, workID, sourceID string) ([]catalog.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []catalog.Branch
	for _, b := range r.s.branches {
		if b.WorkID == workID && b.SourceID == sourceID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *branchesRepo) DeleteBySource(_ context.Context, workID, sourceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, b := range r.s.branches {
		if b.WorkID == workID && b.SourceID == sourceID {
			delete(r.s.branches, key)
		}
	}
	return nil
}

/* ---------------- project links ---------------- */

type linksRepo struct{ s *Store }

func (r *linksRepo) Link(_ context.Context, link *catalog.ProjectLink) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := linkKey(link.ProjectID, link.SourceID)
	if _, ok := r.s.links[key]; ok {
		return false, nil
	}
	cp := *link
	r.s.links[key] = &cp
	return true, nil
}

func (r *linksRepo) Unlink(_ context.Context, projectID, sourceID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := linkKey(projectID, sourceID)
	if _, ok := r.s.links[key]; !ok {
		return false, nil
	}
	delete(r.s.links, key)
	return true, nil
}

func (r *linksRepo) CountBySource(_ context.Context, sourceID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, l := range r.s.links {
		if l.SourceID == sourceID {
			n++
		}
	}
	return n, nil
}

func (r *linksRepo) DeleteBySource(_ context.Context, sourceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for key, l := range r.s.links {
		if l.SourceID == sourceID {
			delete(r.s.links, key)
		}
	}
	return nil
}

/* ---------------- copies ---------------- */

func copyWork(w *catalog.Work) *catalog.Work {
	cp := *w
	cp.AvailableFormats = append([]string(nil), w.AvailableFormats...)
	cp.LatestRevisionAt = copyTime(w.LatestRevisionAt)
	return &cp
}

func copySource(s *catalog.Source) *catalog.Source {
	cp := *s
	cp.LatestRevisionID = copyString(s.LatestRevisionID)
	cp.LatestRevisionAt = copyTime(s.LatestRevisionAt)
	cp.VerifiedBy = copyUint(s.VerifiedBy)
	cp.VerifiedAt = copyTime(s.VerifiedAt)
	cp.FlaggedBy = copyUint(s.FlaggedBy)
	cp.FlaggedAt = copyTime(s.FlaggedAt)
	cp.Withheld = copyWithholding(s.Withheld)
	cp.Provenance.UploadedByUserID = copyUint(s.Provenance.UploadedByUserID)
	cp.Derivatives = copyDerivatives(s.Derivatives)
	return &cp
}

func copyRevision(r *catalog.SourceRevision) *catalog.SourceRevision {
	cp := *r
	cp.CreatedByUserID = copyUint(r.CreatedByUserID)
	cp.FossilParentArtifactIDs = append([]string(nil), r.FossilParentArtifactIDs...)
	cp.ApprovalOwnerUserID = copyUint(r.ApprovalOwnerUserID)
	cp.ReviewedByUserID = copyUint(r.ReviewedByUserID)
	cp.ReviewedAt = copyTime(r.ReviewedAt)
	cp.Withheld = copyWithholding(r.Withheld)
	cp.Derivatives = copyDerivatives(r.Derivatives)
	if r.Manifest != nil {
		m := *r.Manifest
		cp.Manifest = &m
	}
	cp.Validation.Issues = append([]catalog.ValidationIssue(nil), r.Validation.Issues...)
	return &cp
}

func copyDerivatives(d catalog.DerivativeSet) catalog.DerivativeSet {
	return catalog.DerivativeSet{
		MusicDiffHtml:   copyLocator(d.MusicDiffHtml),
		MusicDiffPdf:    copyLocator(d.MusicDiffPdf),
		MusicDiffReport: copyLocator(d.MusicDiffReport),
		LinearizedXml:   copyLocator(d.LinearizedXml),
		ReferencePdf:    copyLocator(d.ReferencePdf),
	}
}

func copyLocator(l *catalog.StorageLocator) *catalog.StorageLocator {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}

func copyWithholding(w *catalog.Withholding) *catalog.Withholding {
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func copyUint(u *uint) *uint {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
