package catalog

import "time"

// StorageLocator points at one object in the external object store. The
// catalog only ever stores locators, never bytes.
type StorageLocator struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func (l StorageLocator) IsZero() bool {
	return l.Bucket == "" && l.Key == ""
}

const (
	IngestManual = "manual"
	IngestBatch  = "batch"
	IngestSync   = "sync"
)

// Provenance records who/what ingested a Source. Written once at source
// creation, never mutated afterwards.
type Provenance struct {
	IngestType       string    `json:"ingest_type"`
	UploadedByUserID *uint     `json:"uploaded_by_user_id,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
	Notes            string    `json:"notes,omitempty"`
}

type ValidationIssue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ValidationSnapshot is the outcome of the external format validation
// pipeline for one uploaded file.
type ValidationSnapshot struct {
	Status string            `json:"status,omitempty"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// DerivativeSet holds the generated artifacts attached to a revision (and
// mirrored in part onto its source). All entries are optional.
type DerivativeSet struct {
	MusicDiffHtml   *StorageLocator `json:"music_diff_html,omitempty"`
	MusicDiffPdf    *StorageLocator `json:"music_diff_pdf,omitempty"`
	MusicDiffReport *StorageLocator `json:"music_diff_report,omitempty"`
	LinearizedXml   *StorageLocator `json:"linearized_xml,omitempty"`
	ReferencePdf    *StorageLocator `json:"reference_pdf,omitempty"`
}

func (d DerivativeSet) IsZero() bool {
	return d.MusicDiffHtml == nil &&
		d.MusicDiffPdf == nil &&
		d.MusicDiffReport == nil &&
		d.LinearizedXml == nil &&
		d.ReferencePdf == nil
}

// Merge copies the entries present in in onto d, leaving the rest alone.
// Reports whether anything actually changed.
func (d *DerivativeSet) Merge(in DerivativeSet) bool {
	changed := false
	apply := func(dst **StorageLocator, src *StorageLocator) {
		if src == nil {
			return
		}
		if *dst == nil || **dst != *src {
			loc := *src
			*dst = &loc
			changed = true
		}
	}
	apply(&d.MusicDiffHtml, in.MusicDiffHtml)
	apply(&d.MusicDiffPdf, in.MusicDiffPdf)
	apply(&d.MusicDiffReport, in.MusicDiffReport)
	apply(&d.LinearizedXml, in.LinearizedXml)
	apply(&d.ReferencePdf, in.ReferencePdf)
	return changed
}
