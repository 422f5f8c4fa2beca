package estimate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/camroute/fare-engine/internal/corpus"
	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/logger"
)

// CorpusAggregates is the corpus-wide read path the fallback consumes.
type CorpusAggregates interface {
	AvgPricePerKm(ctx context.Context) (float64, int64, error)
	MeanPriceByArea(ctx context.Context, area corpus.AreaRef) (float64, int64, error)
}

// BandClassifier maps features to a price band.
type BandClassifier interface {
	Classify(f Features) (float64, error)
}

// Fallback produces a blended estimate from four independent heuristics
// when no historical match exists. Each sub-estimate is snapped to a band
// before blending and the blend is snapped again.
type Fallback struct {
	corpus     CorpusAggregates
	classifier BandClassifier
	cfg        *config.EstimatorConfig
}

// NewFallback creates a fallback estimator.
func NewFallback(aggregates CorpusAggregates, classifier BandClassifier, cfg *config.EstimatorConfig) *Fallback {
	return &Fallback{corpus: aggregates, classifier: classifier, cfg: cfg}
}

// zoneMean resolves the area price aggregate, widening to the whole city
// when the primary area has no recorded trips.
func (f *Fallback) zoneMean(ctx context.Context, area corpus.AreaRef) (float64, int64, error) {
	mean, count, err := f.corpus.MeanPriceByArea(ctx, area)
	if err != nil || count > 0 {
		return mean, count, err
	}
	if area.City == "" || (area.Neighborhood == "" && area.District == "") {
		return mean, count, nil
	}
	return f.corpus.MeanPriceByArea(ctx, corpus.AreaRef{City: area.City})
}

func (f *Fallback) tariffFor(timeOfDay string) float64 {
	if timeOfDay == corpus.TimeNight {
		return SnapToBand(f.cfg.NightTariff)
	}
	return SnapToBand(f.cfg.DayTariff)
}

// Estimate returns the blended price and the sub-estimate breakdown. An
// untrained classifier collapses the whole path to the standardized tariff,
// marked degraded; any other missing input just drops out of the blend.
func (f *Fallback) Estimate(ctx context.Context, q *Query, area corpus.AreaRef) (float64, *FallbackBreakdown) {
	breakdown := &FallbackBreakdown{Tariff: f.tariffFor(q.TimeOfDay)}

	classified, err := f.classifier.Classify(BuildFeatures(q))
	if err != nil {
		if errors.Is(err, common.ErrInsufficientCorpus) {
			breakdown.Degraded = true
			return breakdown.Tariff, breakdown
		}
		logger.WarnContext(ctx, "classifier unavailable, dropping sub-estimate", zap.Error(err))
	} else {
		snapped := SnapToBand(classified)
		breakdown.Classifier = &snapped
	}

	if avg, count, err := f.corpus.AvgPricePerKm(ctx); err != nil {
		logger.WarnContext(ctx, "price-per-km aggregate unavailable", zap.Error(err))
	} else if count > 0 {
		snapped := SnapToBand(q.RouteDistanceM / 1000 * avg)
		breakdown.DistanceBased = &snapped
	}

	if mean, count, err := f.zoneMean(ctx, area); err != nil {
		logger.WarnContext(ctx, "area mean aggregate unavailable", zap.Error(err))
	} else if count > 0 {
		snapped := SnapToBand(mean)
		breakdown.ZoneBased = &snapped
	}

	weights := f.cfg.BlendWeights
	sum := breakdown.Tariff * weights.Tariff
	weight := weights.Tariff
	if breakdown.DistanceBased != nil {
		sum += *breakdown.DistanceBased * weights.Distance
		weight += weights.Distance
	}
	if breakdown.ZoneBased != nil {
		sum += *breakdown.ZoneBased * weights.Zone
		weight += weights.Zone
	}
	if breakdown.Classifier != nil {
		sum += *breakdown.Classifier * weights.Classifier
		weight += weights.Classifier
	}

	return SnapToBand(sum / weight), breakdown
}
