package catalog

import (
	"context"
	"sort"

	"ourtextscores/internal/domain/catalog"
)

// RecomputeSourceRollup rebuilds the work's aggregate fields as a total
// function of its current sources. It is idempotent and safe to invoke
// redundantly; all writes to the work document funnel through here, never
// through ad hoc field increments.
func (s *Service) RecomputeSourceRollup(ctx context.Context, workID string) (*catalog.Work, error) {
	work, err := s.repos.Works.Find(ctx, workID)
	if err != nil {
		return nil, err
	}
	sources, err := s.repos.Sources.ListByWork(ctx, workID)
	if err != nil {
		return nil, err
	}

	agg := catalog.WorkAggregates{SourceCount: len(sources)}
	formats := map[string]struct{}{}
	for i := range sources {
		src := &sources[i]
		if src.Format != "" {
			formats[src.Format] = struct{}{}
		}
		agg.HasReferencePdf = agg.HasReferencePdf || src.HasReferencePdf
		agg.HasVerifiedSources = agg.HasVerifiedSources || src.AdminVerified
		agg.HasFlaggedSources = agg.HasFlaggedSources || src.AdminFlagged
		if src.LatestRevisionAt != nil {
			if agg.LatestRevisionAt == nil || src.LatestRevisionAt.After(*agg.LatestRevisionAt) {
				at := *src.LatestRevisionAt
				agg.LatestRevisionAt = &at
			}
		}
	}
	for f := range formats {
		agg.AvailableFormats = append(agg.AvailableFormats, f)
	}
	sort.Strings(agg.AvailableFormats)

	if err := s.repos.Works.UpdateAggregates(ctx, workID, agg); err != nil {
		return nil, err
	}

	work.SourceCount = agg.SourceCount
	work.AvailableFormats = agg.AvailableFormats
	work.HasReferencePdf = agg.HasReferencePdf
	work.HasVerifiedSources = agg.HasVerifiedSources
	work.HasFlaggedSources = agg.HasFlaggedSources
	work.LatestRevisionAt = agg.LatestRevisionAt

	s.indexWork(ctx, work)
	return work, nil
}
