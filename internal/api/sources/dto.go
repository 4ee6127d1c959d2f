package sources

import domain "ourtextscores/internal/domain/catalog"

// ---------- requests

type LocatorInput struct {
	Bucket      string `json:"bucket" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"content_type"`
}

func (l *LocatorInput) toLocator() *domain.StorageLocator {
	if l == nil {
		return nil
	}
	return &domain.StorageLocator{
		Bucket:      l.Bucket,
		Key:         l.Key,
		Size:        l.Size,
		Checksum:    l.Checksum,
		ContentType: l.ContentType,
	}
}

// DerivativesRequest is the pipeline callback payload. Absent keys are left
// untouched on the revision.
type DerivativesRequest struct {
	MusicDiffHtml   *LocatorInput `json:"musicdiff_html"`
	MusicDiffPdf    *LocatorInput `json:"musicdiff_pdf"`
	MusicDiffReport *LocatorInput `json:"musicdiff_report"`
	LinearizedXml   *LocatorInput `json:"linearized_xml"`
	ReferencePdf    *LocatorInput `json:"reference_pdf"`
}

func (r *DerivativesRequest) toSet() domain.DerivativeSet {
	return domain.DerivativeSet{
		MusicDiffHtml:   r.MusicDiffHtml.toLocator(),
		MusicDiffPdf:    r.MusicDiffPdf.toLocator(),
		MusicDiffReport: r.MusicDiffReport.toLocator(),
		LinearizedXml:   r.LinearizedXml.toLocator(),
		ReferencePdf:    r.ReferencePdf.toLocator(),
	}
}
