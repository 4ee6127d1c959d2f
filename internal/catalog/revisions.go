package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"

	"ourtextscores/internal/domain/catalog"

	"github.com/google/uuid"
)

// sequence allocation races with concurrent appends on the same source; the
// unique (source, sequence) index arbitrates and losers re-read the max.
const maxSequenceRetries = 64

// AppendInput describes one uploaded file becoming a new revision.
type AppendInput struct {
	WorkID     string
	SourceID   string
	BranchName string // defaults to "main"
	// CreateBranch controls whether a missing branch is created as a new
	// root of history or treated as an error.
	CreateBranch bool
	Content      []byte
	Filename     string
	ContentType  string
	Validation   catalog.ValidationSnapshot
	Actor        catalog.Actor
}

type revisionManifest struct {
	RevisionID       string `json:"revision_id"`
	SourceID         string `json:"source_id"`
	WorkID           string `json:"work_id"`
	RawKey           string `json:"raw_key"`
	Checksum         string `json:"checksum"`
	FossilArtifactID string `json:"fossil_artifact_id"`
}

// AppendRevision writes the payload to the object store and the fossil
// backend, then records an immutable revision at the next source-global
// sequence number. Bytes are durably written before any metadata references
// them; an upstream failure aborts the append with nothing recorded.
func (s *Service) AppendRevision(ctx context.Context, in AppendInput) (*catalog.SourceRevision, error) {
	src, err := s.repos.Sources.Find(ctx, in.WorkID, in.SourceID)
	if err != nil {
		return nil, err
	}

	branchName := in.BranchName
	if branchName == "" {
		branchName = catalog.DefaultBranch
	}

	if err := s.ensureBranch(ctx, src, branchName, in.CreateBranch, in.Actor); err != nil {
		return nil, err
	}

	head, err := s.ResolveHead(ctx, in.WorkID, in.SourceID, branchName)
	if err != nil && !catalog.IsNotFound(err) {
		return nil, err
	}

	revisionID := uuid.NewString()
	sum := sha256.Sum256(in.Content)
	checksum := hex.EncodeToString(sum[:])

	rawKey := path.Join("works", in.WorkID, "sources", in.SourceID, "revisions", revisionID, "raw", safeFilename(in.Filename))
	rawLoc, err := s.objects.Put(ctx, s.bucket, rawKey, in.Content, in.ContentType)
	if err != nil {
		return nil, &catalog.UpstreamError{Op: "object put", WorkID: in.WorkID, SourceID: in.SourceID, Err: err}
	}
	rawLoc.Checksum = checksum

	var parents []string
	if head != nil && head.FossilArtifactID != "" {
		parents = []string{head.FossilArtifactID}
	}
	artifactID, err := s.fossil.Commit(ctx, in.Content, parents)
	if err != nil {
		s.discardObject(ctx, rawLoc)
		return nil, &catalog.UpstreamError{Op: "fossil commit", WorkID: in.WorkID, SourceID: in.SourceID, Err: err}
	}

	manifestLoc, err := s.writeManifest(ctx, revisionManifest{
		RevisionID:       revisionID,
		SourceID:         in.SourceID,
		WorkID:           in.WorkID,
		RawKey:           rawKey,
		Checksum:         checksum,
		FossilArtifactID: artifactID,
	})
	if err != nil {
		s.discardObject(ctx, rawLoc)
		return nil, &catalog.UpstreamError{Op: "manifest put", WorkID: in.WorkID, SourceID: in.SourceID, Err: err}
	}

	now := s.now().UTC()
	rev := &catalog.SourceRevision{
		RevisionID:              revisionID,
		WorkID:                  in.WorkID,
		SourceID:                in.SourceID,
		BranchName:              branchName,
		CreatedByUserID:         in.Actor.CreatedByRef(),
		CreatedAt:               now,
		RawStorage:              rawLoc,
		Checksum:                checksum,
		Validation:              in.Validation,
		Manifest:                &manifestLoc,
		FossilArtifactID:        artifactID,
		FossilParentArtifactIDs: parents,
		Visibility:              catalog.VisibilityPublic,
	}

	owner := src.OwnerUserID()
	selfAuthored := owner != nil && in.Actor.IsUser(*owner)
	if selfAuthored || in.Actor.IsAdmin() {
		// Owner and admin uploads skip review.
		rev.Status = catalog.RevisionApproved
		rev.ApprovalOwnerUserID = in.Actor.CreatedByRef()
		rev.ReviewedByUserID = in.Actor.CreatedByRef()
		rev.ReviewedAt = &now
	} else {
		rev.Status = catalog.RevisionPending
		rev.ApprovalOwnerUserID = owner // nil = admin-only approvable
	}

	if err := s.createWithSequence(ctx, rev); err != nil {
		s.discardObject(ctx, rawLoc)
		s.discardObject(ctx, manifestLoc)
		return nil, err
	}

	s.log.Info("revision appended",
		"work_id", in.WorkID, "source_id", in.SourceID,
		"revision_id", rev.RevisionID, "seq", rev.SequenceNumber,
		"branch", branchName, "status", rev.Status)

	if rev.Status == catalog.RevisionApproved {
		if err := s.refreshLatest(ctx, in.WorkID, in.SourceID); err != nil {
			return nil, err
		}
		if _, err := s.RecomputeSourceRollup(ctx, in.WorkID); err != nil {
			return nil, err
		}
		s.queueNewRevision(ctx, rev)
	}
	return rev, nil
}

// createWithSequence allocates the next source-global sequence number with a
// read-then-insert retry loop. Two concurrent appends can never share a
// number; the loser's insert conflicts and it re-reads the max.
func (s *Service) createWithSequence(ctx context.Context, rev *catalog.SourceRevision) error {
	for i := 0; i < maxSequenceRetries; i++ {
		max, err := s.repos.Revisions.MaxSequence(ctx, rev.WorkID, rev.SourceID)
		if err != nil {
			return err
		}
		rev.SequenceNumber = max + 1
		err = s.repos.Revisions.Create(ctx, rev)
		if err == nil {
			return nil
		}
		if catalog.IsConflict(err) {
			continue
		}
		return err
	}
	return &catalog.ConflictError{
		Reason:   fmt.Sprintf("sequence allocation did not settle after %d attempts", maxSequenceRetries),
		WorkID:   rev.WorkID,
		SourceID: rev.SourceID,
	}
}

func (s *Service) ensureBranch(ctx context.Context, src *catalog.Source, name string, create bool, actor catalog.Actor) error {
	_, err := s.repos.Branches.Find(ctx, src.WorkID, src.SourceID, name)
	if err == nil {
		return nil
	}
	if !catalog.IsNotFound(err) {
		return err
	}
	if !create {
		return &catalog.NotFoundError{Kind: "branch", WorkID: src.WorkID, SourceID: src.SourceID, Branch: name}
	}
	b := &catalog.Branch{
		WorkID:          src.WorkID,
		SourceID:        src.SourceID,
		Name:            name,
		CreatedByUserID: actor.CreatedByRef(),
		CreatedAt:       s.now().UTC(),
	}
	err = s.repos.Branches.Create(ctx, b)
	if catalog.IsConflict(err) {
		// lost a race with a concurrent append creating the same branch
		return nil
	}
	return err
}

// ResolveHead returns the newest approved, public revision on the branch.
// A branch holding only pending or rejected revisions is empty and yields
// NotFound.
func (s *Service) ResolveHead(ctx context.Context, workID, sourceID, branchName string) (*catalog.SourceRevision, error) {
	if branchName == "" {
		branchName = catalog.DefaultBranch
	}
	revs, err := s.repos.Revisions.ListBySource(ctx, workID, sourceID)
	if err != nil {
		return nil, err
	}
	var head *catalog.SourceRevision
	for i := range revs {
		r := &revs[i]
		if r.BranchName != branchName || !r.Eligible() {
			continue
		}
		if head == nil || r.SequenceNumber > head.SequenceNumber {
			head = r
		}
	}
	if head == nil {
		return nil, &catalog.NotFoundError{Kind: "revision", WorkID: workID, SourceID: sourceID, Branch: branchName}
	}
	return head, nil
}

// ListBranches returns every branch of the source with its resolved head
// revision id, if any. Pure read.
func (s *Service) ListBranches(ctx context.Context, workID, sourceID string) ([]catalog.BranchHead, error) {
	if _, err := s.repos.Sources.Find(ctx, workID, sourceID); err != nil {
		return nil, err
	}
	branches, err := s.repos.Branches.ListBySource(ctx, workID, sourceID)
	if err != nil {
		return nil, err
	}
	revs, err := s.repos.Revisions.ListBySource(ctx, workID, sourceID)
	if err != nil {
		return nil, err
	}
	heads := make(map[string]*catalog.SourceRevision, len(branches))
	for i := range revs {
		r := &revs[i]
		if !r.Eligible() {
			continue
		}
		if cur, ok := heads[r.BranchName]; !ok || r.SequenceNumber > cur.SequenceNumber {
			heads[r.BranchName] = r
		}
	}
	out := make([]catalog.BranchHead, 0, len(branches))
	for _, b := range branches {
		bh := catalog.BranchHead{Name: b.Name}
		if h, ok := heads[b.Name]; ok {
			bh.HeadRevisionID = &h.RevisionID
			bh.HeadSequence = &h.SequenceNumber
		}
		out = append(out, bh)
	}
	return out, nil
}

// refreshLatest recomputes the source's latest pointer from its revisions:
// the newest approved, public one, or unset when none qualifies. Writing the
// pointer as a total function of current state keeps it monotone under
// out-of-order approvals and correct after takedowns.
func (s *Service) refreshLatest(ctx context.Context, workID, sourceID string) error {
	for i := 0; i < 8; i++ {
		src, err := s.repos.Sources.Find(ctx, workID, sourceID)
		if err != nil {
			return err
		}
		revs, err := s.repos.Revisions.ListBySource(ctx, workID, sourceID)
		if err != nil {
			return err
		}
		var latest *catalog.SourceRevision
		for j := range revs {
			r := &revs[j]
			if !r.Eligible() {
				continue
			}
			if latest == nil || r.SequenceNumber > latest.SequenceNumber {
				latest = r
			}
		}

		changed := false
		if latest == nil {
			if src.LatestRevisionID != nil || src.LatestRevisionAt != nil {
				src.LatestRevisionID = nil
				src.LatestRevisionAt = nil
				changed = true
			}
		} else if src.LatestRevisionID == nil || *src.LatestRevisionID != latest.RevisionID {
			id := latest.RevisionID
			at := latest.CreatedAt
			src.LatestRevisionID = &id
			src.LatestRevisionAt = &at
			changed = true
		}
		if !changed {
			return nil
		}
		err = s.repos.Sources.Update(ctx, src, src.RowVersion)
		if err == nil {
			return nil
		}
		if catalog.IsConflict(err) {
			continue
		}
		return err
	}
	return &catalog.ConflictError{Reason: "latest pointer update kept conflicting", WorkID: workID, SourceID: sourceID}
}

// ListRevisions returns the source's revisions ordered by sequence number.
// Non-admin viewers do not see withheld revisions.
func (s *Service) ListRevisions(ctx context.Context, workID, sourceID string, viewer catalog.Actor) ([]catalog.SourceRevision, error) {
	if _, err := s.repos.Sources.Find(ctx, workID, sourceID); err != nil {
		return nil, err
	}
	revs, err := s.repos.Revisions.ListBySource(ctx, workID, sourceID)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.SourceRevision, 0, len(revs))
	for _, r := range revs {
		if r.Visibility != catalog.VisibilityPublic && !viewer.IsAdmin() {
			continue
		}
		out = append(out, r)
	}
	sortRevisions(out)
	return out, nil
}

func sortRevisions(revs []catalog.SourceRevision) {
	for i := 1; i < len(revs); i++ {
		for j := i; j > 0 && revs[j-1].SequenceNumber > revs[j].SequenceNumber; j-- {
			revs[j-1], revs[j] = revs[j], revs[j-1]
		}
	}
}

func (s *Service) writeManifest(ctx context.Context, m revisionManifest) (catalog.StorageLocator, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return catalog.StorageLocator{}, err
	}
	key := path.Join("works", m.WorkID, "sources", m.SourceID, "revisions", m.RevisionID, "manifest.json")
	return s.objects.Put(ctx, s.bucket, key, data, "application/json")
}

// discardObject best-effort removes an object written during an append that
// was aborted before its metadata committed.
func (s *Service) discardObject(ctx context.Context, loc catalog.StorageLocator) {
	if loc.IsZero() {
		return
	}
	if err := s.objects.Delete(ctx, loc); err != nil {
		s.log.Warn("orphaned object cleanup failed", "bucket", loc.Bucket, "key", loc.Key, "err", err)
	}
}

func safeFilename(name string) string {
	if name == "" {
		return "upload"
	}
	return path.Base(name)
}
