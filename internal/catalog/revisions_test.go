package catalog_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
)

func TestCreateSourceFirstRevision(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")

	src, rev, err := e.svc.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:      "imslp:1",
		Label:       "Urtext score",
		Format:      "musicxml",
		Filename:    "goldberg.mxl",
		ContentType: "application/octet-stream",
		Content:     []byte("mxl-bytes"),
		Actor:       owner,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	if rev.SequenceNumber != 1 {
		t.Fatalf("first revision sequence = %d, want 1", rev.SequenceNumber)
	}
	if rev.BranchName != domain.DefaultBranch {
		t.Fatalf("first revision branch = %q, want main", rev.BranchName)
	}
	if rev.Status != domain.RevisionApproved {
		t.Fatalf("owner upload status = %s, want approved", rev.Status)
	}
	if len(rev.FossilParentArtifactIDs) != 0 {
		t.Fatalf("root revision has parents: %v", rev.FossilParentArtifactIDs)
	}
	if !e.fossil.Knows(rev.FossilArtifactID) {
		t.Fatal("artifact id was not committed through the fossil client")
	}
	if rev.Manifest == nil {
		t.Fatal("revision has no manifest locator")
	}

	got, err := e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.LatestRevisionID == nil || *got.LatestRevisionID != rev.RevisionID {
		t.Fatal("latest pointer not set to the first approved revision")
	}
	if got.Storage.Key != rev.RawStorage.Key {
		t.Fatalf("source storage %q != revision raw storage %q", got.Storage.Key, rev.RawStorage.Key)
	}
	if got.Provenance.IngestType != domain.IngestManual {
		t.Fatalf("ingest type = %q, want manual", got.Provenance.IngestType)
	}

	// first upload's bytes must be durably stored
	data, err := e.blobs.Get(context.Background(), rev.RawStorage)
	if err != nil || string(data) != "mxl-bytes" {
		t.Fatalf("raw object readback = %q err=%v", data, err)
	}
}

func TestAppendBuildsParentChain(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, first := e.mustSource(t, "imslp:1", owner)

	second := e.mustAppend(t, "imslp:1", src.SourceID, "v2", owner)
	third := e.mustAppend(t, "imslp:1", src.SourceID, "v3", owner)

	if second.SequenceNumber != 2 || third.SequenceNumber != 3 {
		t.Fatalf("sequences = %d, %d; want 2, 3", second.SequenceNumber, third.SequenceNumber)
	}
	if len(second.FossilParentArtifactIDs) != 1 || second.FossilParentArtifactIDs[0] != first.FossilArtifactID {
		t.Fatalf("second parents = %v, want [%s]", second.FossilParentArtifactIDs, first.FossilArtifactID)
	}
	if len(third.FossilParentArtifactIDs) != 1 || third.FossilParentArtifactIDs[0] != second.FossilArtifactID {
		t.Fatalf("third parents = %v, want [%s]", third.FossilParentArtifactIDs, second.FossilArtifactID)
	}
}

func TestConcurrentAppendsStayGapless(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, _ := e.mustSource(t, "imslp:1", owner)

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := e.svc.AppendRevision(context.Background(), catalog.AppendInput{
					WorkID:   "imslp:1",
					SourceID: src.SourceID,
					Content:  []byte(fmt.Sprintf("worker-%d-%d", w, i)),
					Filename: "score.musicxml",
					Actor:    owner,
				})
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append: %v", err)
	}

	revs, err := e.svc.ListRevisions(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	want := 1 + workers*perWorker
	if len(revs) != want {
		t.Fatalf("revision count = %d, want %d", len(revs), want)
	}
	for i, r := range revs {
		if r.SequenceNumber != int64(i+1) {
			t.Fatalf("sequence at index %d = %d; numbering has a gap or duplicate", i, r.SequenceNumber)
		}
	}
}

func TestAppendToMissingBranchFails(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, _ := e.mustSource(t, "imslp:1", owner)

	_, err := e.svc.AppendRevision(context.Background(), catalog.AppendInput{
		WorkID:     "imslp:1",
		SourceID:   src.SourceID,
		BranchName: "ossia",
		Content:    []byte("v2"),
		Filename:   "score.musicxml",
		Actor:      owner,
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("append to missing branch: want NotFound, got %v", err)
	}
}

func TestCreateBranchAndResolveHeads(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, first := e.mustSource(t, "imslp:1", owner)

	branched, err := e.svc.AppendRevision(context.Background(), catalog.AppendInput{
		WorkID:       "imslp:1",
		SourceID:     src.SourceID,
		BranchName:   "ossia",
		CreateBranch: true,
		Content:      []byte("ossia-v1"),
		Filename:     "score.musicxml",
		Actor:        owner,
	})
	if err != nil {
		t.Fatalf("branched append: %v", err)
	}
	if branched.SequenceNumber != 2 {
		t.Fatalf("branch revision sequence = %d; numbering is source-global, want 2", branched.SequenceNumber)
	}
	// a new branch starts a fresh line of history
	if len(branched.FossilParentArtifactIDs) != 0 {
		t.Fatalf("new branch root has parents: %v", branched.FossilParentArtifactIDs)
	}

	mainHead, err := e.svc.ResolveHead(context.Background(), "imslp:1", src.SourceID, "main")
	if err != nil {
		t.Fatalf("ResolveHead(main): %v", err)
	}
	if mainHead.RevisionID != first.RevisionID {
		t.Fatal("main head moved when only ossia was appended to")
	}

	ossiaHead, err := e.svc.ResolveHead(context.Background(), "imslp:1", src.SourceID, "ossia")
	if err != nil {
		t.Fatalf("ResolveHead(ossia): %v", err)
	}
	if ossiaHead.RevisionID != branched.RevisionID {
		t.Fatal("ossia head is not the branched revision")
	}

	heads, err := e.svc.ListBranches(context.Background(), "imslp:1", src.SourceID)
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(heads) != 2 {
		t.Fatalf("branch count = %d, want 2", len(heads))
	}
	for _, h := range heads {
		if h.HeadRevisionID == nil {
			t.Fatalf("branch %q has no resolved head", h.Name)
		}
	}
}

func TestResolveHeadSkipsPendingRevisions(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	contributor := domain.UserActor(8)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, first := e.mustSource(t, "imslp:1", owner)

	pending := e.mustAppend(t, "imslp:1", src.SourceID, "v2", contributor)
	if pending.Status != domain.RevisionPending {
		t.Fatalf("non-owner upload status = %s, want pending", pending.Status)
	}

	head, err := e.svc.ResolveHead(context.Background(), "imslp:1", src.SourceID, "main")
	if err != nil {
		t.Fatalf("ResolveHead: %v", err)
	}
	if head.RevisionID != first.RevisionID {
		t.Fatal("pending revision resolved as head")
	}
}

func TestAppendRollsBackOnFossilFailure(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, _ := e.mustSource(t, "imslp:1", owner)

	broken := catalog.NewService(catalog.Deps{
		Repos:   e.store.Repositories(),
		Objects: e.blobs,
		Fossil:  failingFossil{},
	})

	before := e.blobs.Len()
	_, err := broken.AppendRevision(context.Background(), catalog.AppendInput{
		WorkID:   "imslp:1",
		SourceID: src.SourceID,
		Content:  []byte("v2"),
		Filename: "score.musicxml",
		Actor:    owner,
	})
	if !domain.IsUpstream(err) {
		t.Fatalf("want UpstreamError, got %v", err)
	}
	if e.blobs.Len() != before {
		t.Fatalf("aborted append left objects behind: %d -> %d", before, e.blobs.Len())
	}

	revs, err := e.svc.ListRevisions(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("ListRevisions: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("aborted append recorded a revision: %d", len(revs))
	}
}

type failingFossil struct{}

func (failingFossil) Commit(context.Context, []byte, []string) (string, error) {
	return "", fmt.Errorf("bridge unavailable")
}
