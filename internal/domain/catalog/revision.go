package catalog

import "time"

type RevisionStatus string

const (
	RevisionPending  RevisionStatus = "pending"
	RevisionApproved RevisionStatus = "approved"
	RevisionRejected RevisionStatus = "rejected"
)

const DefaultBranch = "main"

// SourceRevision is one immutable snapshot in a Source's history. Sequence
// numbers are source-global (not per-branch) so ordering stays comparable
// across branches. After creation only status, the review stamps,
// derivatives and visibility may change.
type SourceRevision struct {
	RevisionID string `gorm:"type:uuid;primaryKey" json:"revision_id"`
	WorkID     string `gorm:"size:128;not null;index" json:"work_id"`
	SourceID   string `gorm:"type:uuid;not null;uniqueIndex:idx_revisions_source_seq,priority:1" json:"source_id"`

	SequenceNumber int64  `gorm:"not null;uniqueIndex:idx_revisions_source_seq,priority:2" json:"sequence_number"`
	BranchName     string `gorm:"size:100;not null;default:'main';index" json:"branch_name"`

	CreatedByUserID *uint     `json:"created_by_user_id,omitempty"` // nil = system
	CreatedAt       time.Time `json:"created_at"`

	RawStorage StorageLocator     `gorm:"embedded;embeddedPrefix:raw_" json:"raw_storage"`
	Checksum   string             `gorm:"size:128;index" json:"checksum,omitempty"`
	Validation ValidationSnapshot `gorm:"serializer:json" json:"validation,omitempty"`

	Derivatives DerivativeSet   `gorm:"serializer:json" json:"derivatives,omitempty"`
	Manifest    *StorageLocator `gorm:"serializer:json" json:"manifest,omitempty"`

	FossilArtifactID        string   `gorm:"size:128;index" json:"fossil_artifact_id,omitempty"`
	FossilParentArtifactIDs []string `gorm:"serializer:json" json:"fossil_parent_artifact_ids,omitempty"`

	Status RevisionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	// ApprovalOwnerUserID is the source owner entitled to approve or reject
	// this revision; nil means admin-only.
	ApprovalOwnerUserID *uint      `json:"approval_owner_user_id,omitempty"`
	ReviewedByUserID    *uint      `json:"reviewed_by_user_id,omitempty"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`

	Visibility VisibilityState `gorm:"size:20;not null;default:'public'" json:"visibility"`
	Withheld   *Withholding    `gorm:"serializer:json" json:"withheld,omitempty"`

	RowVersion int64 `gorm:"not null;default:0" json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the revision's approval state can no longer move.
func (r *SourceRevision) Terminal() bool {
	return r.Status == RevisionApproved || r.Status == RevisionRejected
}

// Eligible reports whether the revision can be a source's resolved head.
func (r *SourceRevision) Eligible() bool {
	return r.Status == RevisionApproved && r.Visibility == VisibilityPublic
}

// Branch is a named line of revisions within a Source's history. "main"
// always exists once a source has at least one revision.
type Branch struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	WorkID   string `gorm:"size:128;not null;index" json:"work_id"`
	SourceID string `gorm:"type:uuid;not null;uniqueIndex:idx_branches_source_name,priority:1" json:"source_id"`
	Name     string `gorm:"size:100;not null;uniqueIndex:idx_branches_source_name,priority:2" json:"name"`

	CreatedByUserID *uint     `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BranchHead pairs a branch name with its resolved head, if any.
type BranchHead struct {
	Name           string  `json:"name"`
	HeadRevisionID *string `json:"head_revision_id,omitempty"`
	HeadSequence   *int64  `json:"head_sequence,omitempty"`
}
