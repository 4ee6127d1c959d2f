package catalog

import "time"

// Work is one musical composition, identified by a stable external catalog
// id (e.g. "imslp:12345"). The aggregate fields are a pure function of the
// Sources currently linked to the work; only the stats recompute writes them.
type Work struct {
	WorkID        string `gorm:"primaryKey;size:128" json:"work_id"`
	Title         string `gorm:"not null" json:"title"`
	Composer      string `json:"composer,omitempty"`
	CatalogNumber string `json:"catalog_number,omitempty"`

	SourceCount        int        `gorm:"not null;default:0" json:"source_count"`
	AvailableFormats   []string   `gorm:"serializer:json" json:"available_formats,omitempty"`
	HasReferencePdf    bool       `gorm:"not null;default:false" json:"has_reference_pdf"`
	HasVerifiedSources bool       `gorm:"not null;default:false" json:"has_verified_sources"`
	HasFlaggedSources  bool       `gorm:"not null;default:false" json:"has_flagged_sources"`
	LatestRevisionAt   *time.Time `json:"latest_revision_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkAggregates is the recomputed rollup written back onto a Work.
type WorkAggregates struct {
	SourceCount        int
	AvailableFormats   []string
	HasReferencePdf    bool
	HasVerifiedSources bool
	HasFlaggedSources  bool
	LatestRevisionAt   *time.Time
}
