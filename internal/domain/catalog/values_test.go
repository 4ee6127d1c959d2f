package catalog

import "testing"

func TestDerivativeSetMerge(t *testing.T) {
	lin := &StorageLocator{Bucket: "scores", Key: "lin.xml"}
	pdf := &StorageLocator{Bucket: "scores", Key: "ref.pdf"}

	var d DerivativeSet
	if !d.IsZero() {
		t.Fatal("zero value reported non-zero")
	}

	if !d.Merge(DerivativeSet{LinearizedXml: lin}) {
		t.Fatal("first merge reported no change")
	}
	if d.LinearizedXml == nil || d.LinearizedXml.Key != "lin.xml" {
		t.Fatalf("merge result = %+v", d)
	}

	// merging another key leaves the first alone
	if !d.Merge(DerivativeSet{ReferencePdf: pdf}) {
		t.Fatal("second merge reported no change")
	}
	if d.LinearizedXml == nil || d.ReferencePdf == nil {
		t.Fatal("merge dropped an existing entry")
	}

	// re-merging identical values is a no-op
	if d.Merge(DerivativeSet{LinearizedXml: lin, ReferencePdf: pdf}) {
		t.Fatal("identical merge reported a change")
	}

	// merged locators are copies, not aliases
	lin.Key = "mutated"
	if d.LinearizedXml.Key != "lin.xml" {
		t.Fatal("merge aliased the caller's locator")
	}
}

func TestActorIdentity(t *testing.T) {
	user := UserActor(7)
	admin := AdminActor(1)
	system := SystemActor()

	if user.IsAdmin() || user.IsSystem() {
		t.Fatal("user actor has elevated capability")
	}
	if !admin.IsAdmin() || admin.IsSystem() {
		t.Fatal("admin actor capability wrong")
	}
	if !system.IsAdmin() || !system.IsSystem() {
		t.Fatal("system actor capability wrong")
	}

	if !user.IsUser(7) || user.IsUser(8) {
		t.Fatal("IsUser identity check wrong")
	}
	if system.IsUser(0) {
		t.Fatal("system actor matched a user id")
	}

	if ref := user.CreatedByRef(); ref == nil || *ref != 7 {
		t.Fatal("user CreatedByRef wrong")
	}
	if system.CreatedByRef() != nil {
		t.Fatal("system CreatedByRef should be nil")
	}
}

func TestRevisionStateHelpers(t *testing.T) {
	r := SourceRevision{Status: RevisionPending, Visibility: VisibilityPublic}
	if r.Terminal() || r.Eligible() {
		t.Fatal("pending revision is terminal or eligible")
	}
	r.Status = RevisionApproved
	if !r.Terminal() || !r.Eligible() {
		t.Fatal("approved public revision should be terminal and eligible")
	}
	r.Visibility = VisibilityWithheldDMCA
	if r.Eligible() {
		t.Fatal("withheld revision is eligible")
	}
	r = SourceRevision{Status: RevisionRejected, Visibility: VisibilityPublic}
	if !r.Terminal() || r.Eligible() {
		t.Fatal("rejected revision state helpers wrong")
	}
}
