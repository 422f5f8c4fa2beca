package estimate

import (
	"context"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/internal/geodata"
	"github.com/camroute/fare-engine/pkg/config"
)

// CorpusSource is the trip store read path the filter consumes.
type CorpusSource interface {
	Candidates(ctx context.Context, depart, arrival corpus.AreaRef) ([]*corpus.Trip, error)
}

// CandidateFilter narrows the corpus to trips joining the query's
// administrative areas before any geometric test runs. It is a size
// reduction, never the final similarity decision.
type CandidateFilter struct {
	corpus           CorpusSource
	districtFallback bool
}

// NewCandidateFilter creates a candidate filter.
func NewCandidateFilter(source CorpusSource, cfg *config.EstimatorConfig) *CandidateFilter {
	return &CandidateFilter{corpus: source, districtFallback: cfg.DistrictFallback}
}

// areaFor maps administrative context to a search area, preferring the
// neighborhood and falling back to the district when enabled. The city is
// carried alongside for the zone price aggregate; it never filters
// candidates.
func (f *CandidateFilter) areaFor(info *geodata.AdministrativeInfo) corpus.AreaRef {
	if info == nil {
		return corpus.AreaRef{}
	}
	if info.Neighborhood != "" {
		return corpus.AreaRef{Neighborhood: info.Neighborhood, City: info.City}
	}
	if f.districtFallback {
		return corpus.AreaRef{District: info.District, City: info.City}
	}
	return corpus.AreaRef{City: info.City}
}

// Candidates returns the area-filtered trip set for the query, or nil when
// the filter cannot identify areas or finds fewer than two trips. Fewer
// than two candidates never justifies running geometric containment.
func (f *CandidateFilter) Candidates(ctx context.Context, departInfo, arrivalInfo *geodata.AdministrativeInfo) ([]*corpus.Trip, error) {
	depart := f.areaFor(departInfo)
	arrival := f.areaFor(arrivalInfo)
	if depart.Empty() || arrival.Empty() {
		return nil, nil
	}

	trips, err := f.corpus.Candidates(ctx, depart, arrival)
	if err != nil {
		return nil, err
	}
	if len(trips) < 2 {
		return nil, nil
	}
	return trips, nil
}
