package catalog_test

import (
	"context"
	"testing"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
)

func TestCreateSourceRollsBackOnUploadFailure(t *testing.T) {
	e := newEnv(t)
	e.mustWork(t, "imslp:1", "Goldberg Variations")

	broken := catalog.NewService(catalog.Deps{
		Repos:   e.store.Repositories(),
		Objects: e.blobs,
		Fossil:  failingFossil{},
	})

	_, _, err := broken.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:   "imslp:1",
		Label:    "Urtext score",
		Filename: "score.musicxml",
		Content:  []byte("v1"),
		Actor:    domain.UserActor(7),
	})
	if !domain.IsUpstream(err) {
		t.Fatalf("want UpstreamError, got %v", err)
	}

	sources, err := e.svc.ListSources(context.Background(), "imslp:1", domain.AdminActor(1))
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("failed upload left %d sources behind", len(sources))
	}
}

func TestWorkRollupAggregatesSources(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")

	_, _, err := e.svc.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:   "imslp:1",
		Label:    "Urtext score",
		Format:   "musicxml",
		Filename: "score.musicxml",
		Content:  []byte("v1"),
		Actor:    owner,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	second, _, err := e.svc.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:   "imslp:1",
		Label:    "Engraved parts",
		Format:   "pdf",
		Filename: "parts.pdf",
		Content:  []byte("pdf"),
		Actor:    owner,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	work, err := e.svc.GetWork(context.Background(), "imslp:1")
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if work.SourceCount != 2 {
		t.Fatalf("source count = %d, want 2", work.SourceCount)
	}
	if len(work.AvailableFormats) != 2 || work.AvailableFormats[0] != "musicxml" || work.AvailableFormats[1] != "pdf" {
		t.Fatalf("available formats = %v", work.AvailableFormats)
	}
	if work.LatestRevisionAt == nil {
		t.Fatal("latest revision timestamp missing from rollup")
	}

	// the newest source's revision time wins
	src, err := e.svc.GetSource(context.Background(), "imslp:1", second.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if !work.LatestRevisionAt.Equal(*src.LatestRevisionAt) {
		t.Fatalf("rollup timestamp %v != newest source %v", work.LatestRevisionAt, src.LatestRevisionAt)
	}

	// recomputing with nothing changed is a no-op on the values
	again, err := e.svc.RecomputeSourceRollup(context.Background(), "imslp:1")
	if err != nil {
		t.Fatalf("RecomputeSourceRollup: %v", err)
	}
	if again.SourceCount != work.SourceCount || len(again.AvailableFormats) != len(work.AvailableFormats) {
		t.Fatal("redundant recompute changed the aggregates")
	}
}

func TestModerationFlagsRollUp(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, _ := e.mustSource(t, "imslp:1", owner)

	if _, err := e.svc.SetModeration(context.Background(), "imslp:1", src.SourceID, catalog.ModerationVerify, true, "checked against facsimile", domain.AdminActor(1)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := e.svc.SetModeration(context.Background(), "imslp:1", src.SourceID, catalog.ModerationFlag, true, "suspicious engraving", domain.AdminActor(1)); err != nil {
		t.Fatalf("flag: %v", err)
	}

	got, err := e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if !got.AdminVerified || got.VerifiedBy == nil || *got.VerifiedBy != 1 || got.VerifiedNote == "" {
		t.Fatal("verify stamp incomplete")
	}
	if !got.AdminFlagged || got.FlaggedAt == nil {
		t.Fatal("flag stamp incomplete")
	}

	work, err := e.svc.GetWork(context.Background(), "imslp:1")
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if !work.HasVerifiedSources || !work.HasFlaggedSources {
		t.Fatal("moderation flags not rolled up to the work")
	}

	// moderation is admin-only
	if _, err := e.svc.SetModeration(context.Background(), "imslp:1", src.SourceID, catalog.ModerationVerify, false, "", owner); !domain.IsUnauthorized(err) {
		t.Fatalf("user moderation: want Unauthorized, got %v", err)
	}
}

func TestProjectLinksAreIdempotent(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, _ := e.mustSource(t, "imslp:1", owner)

	for i := 0; i < 2; i++ {
		if err := e.svc.LinkProject(context.Background(), "imslp:1", src.SourceID, "proj-1", owner); err != nil {
			t.Fatalf("LinkProject: %v", err)
		}
	}
	if err := e.svc.LinkProject(context.Background(), "imslp:1", src.SourceID, "proj-2", owner); err != nil {
		t.Fatalf("LinkProject: %v", err)
	}

	got, err := e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.ProjectLinkCount != 2 {
		t.Fatalf("link count = %d, want 2", got.ProjectLinkCount)
	}

	if err := e.svc.UnlinkProject(context.Background(), "imslp:1", src.SourceID, "proj-1", owner); err != nil {
		t.Fatalf("UnlinkProject: %v", err)
	}
	got, err = e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.ProjectLinkCount != 1 {
		t.Fatalf("link count after unlink = %d, want 1", got.ProjectLinkCount)
	}

	// a stranger may not manage links on someone else's source
	if err := e.svc.LinkProject(context.Background(), "imslp:1", src.SourceID, "proj-3", domain.UserActor(99)); !domain.IsUnauthorized(err) {
		t.Fatalf("stranger link: want Unauthorized, got %v", err)
	}
}

func TestDeleteSourceCascades(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, rev := e.mustSource(t, "imslp:1", owner)
	e.mustAppend(t, "imslp:1", src.SourceID, "v2", owner)
	if err := e.svc.LinkProject(context.Background(), "imslp:1", src.SourceID, "proj-1", owner); err != nil {
		t.Fatalf("LinkProject: %v", err)
	}
	if _, err := e.svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, rev.RevisionID,
		domain.DerivativeSet{LinearizedXml: loc("lin.xml")}); err != nil {
		t.Fatalf("UpsertDerivatives: %v", err)
	}

	// a stranger may not delete
	if err := e.svc.DeleteSource(context.Background(), "imslp:1", src.SourceID, domain.UserActor(99)); !domain.IsUnauthorized(err) {
		t.Fatalf("stranger delete: want Unauthorized, got %v", err)
	}

	if err := e.svc.DeleteSource(context.Background(), "imslp:1", src.SourceID, owner); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}

	if _, err := e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, domain.AdminActor(1)); !domain.IsNotFound(err) {
		t.Fatalf("source survived delete: %v", err)
	}
	if _, err := e.svc.ListRevisions(context.Background(), "imslp:1", src.SourceID, domain.AdminActor(1)); !domain.IsNotFound(err) {
		t.Fatalf("revisions survived delete: %v", err)
	}

	work, err := e.svc.GetWork(context.Background(), "imslp:1")
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if work.SourceCount != 0 || work.LatestRevisionAt != nil {
		t.Fatalf("rollup not reset after delete: count=%d", work.SourceCount)
	}

	// stored raw objects and manifests are gone
	if e.blobs.Len() != 0 {
		t.Fatalf("%d objects survived the delete", e.blobs.Len())
	}
}
