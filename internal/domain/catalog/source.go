package catalog

import "time"

// Source is one named upload lineage under a Work ("Urtext score", "Parts").
// LatestRevisionID/At always point to the newest approved, non-withheld
// revision; a source with zero such revisions has both unset.
type Source struct {
	SourceID string `gorm:"type:uuid;primaryKey" json:"source_id"`
	WorkID   string `gorm:"size:128;not null;index" json:"work_id"`

	Label            string `gorm:"not null" json:"label"`
	SourceType       string `json:"source_type,omitempty"`
	Format           string `gorm:"index" json:"format,omitempty"`
	License          string `json:"license,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	IsPrimary        bool   `gorm:"not null;default:false" json:"is_primary"`
	HasReferencePdf  bool   `gorm:"not null;default:false" json:"has_reference_pdf"`

	Storage StorageLocator `gorm:"embedded;embeddedPrefix:storage_" json:"storage"`

	LatestRevisionID *string    `gorm:"type:uuid" json:"latest_revision_id,omitempty"`
	LatestRevisionAt *time.Time `json:"latest_revision_at,omitempty"`

	AdminVerified bool       `gorm:"not null;default:false" json:"admin_verified"`
	VerifiedBy    *uint      `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	VerifiedNote  string     `json:"verified_note,omitempty"`
	AdminFlagged  bool       `gorm:"not null;default:false" json:"admin_flagged"`
	FlaggedBy     *uint      `json:"flagged_by,omitempty"`
	FlaggedAt     *time.Time `json:"flagged_at,omitempty"`
	FlaggedNote   string     `json:"flagged_note,omitempty"`

	Visibility VisibilityState `gorm:"size:20;not null;default:'public'" json:"visibility"`
	Withheld   *Withholding    `gorm:"serializer:json" json:"withheld,omitempty"`

	Provenance Provenance `gorm:"embedded;embeddedPrefix:provenance_" json:"provenance"`

	// Mirror of the resolved head's reference PDF (only the latest approved
	// derivative is mirrored here).
	Derivatives DerivativeSet `gorm:"serializer:json" json:"derivatives,omitempty"`

	ProjectLinkCount int `gorm:"not null;default:0" json:"project_link_count"`

	RowVersion int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerUserID is the user entitled to approve revisions on this source.
// nil means the source was batch-ingested with no recorded uploader and is
// admin-only approvable.
func (s *Source) OwnerUserID() *uint {
	return s.Provenance.UploadedByUserID
}

// ProjectLink joins a Source to an external project. The count is cached on
// the Source as ProjectLinkCount.
type ProjectLink struct {
	ProjectID string    `gorm:"size:128;primaryKey" json:"project_id"`
	SourceID  string    `gorm:"type:uuid;primaryKey;index" json:"source_id"`
	WorkID    string    `gorm:"size:128;not null;index" json:"work_id"`
	CreatedAt time.Time `json:"created_at"`
}
