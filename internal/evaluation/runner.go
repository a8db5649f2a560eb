package evaluation

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
)

// Runner runs evaluation across a set of golden cases.
type Runner struct {
	predictor providers.HealthPredictor
}

func NewRunner(predictor providers.HealthPredictor) *Runner {
	return &Runner{predictor: predictor}
}

func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*Summary, error) {
	summary := &Summary{
		Predictor:  r.predictor.Name(),
		TotalCases: len(cases),
		SiteMAE:    make(map[string]float64),
		ByCategory: make(map[Category]*CategorySummary),
		Cases:      make([]CaseResult, 0, len(cases)),
	}

	for _, gc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := r.evaluate(ctx, gc)
		summary.Cases = append(summary.Cases, result)
		if result.Failed() {
			log.Warn().Str("case_id", gc.ID).Str("error", result.Error).Msg("Golden case failed")
		}
	}

	finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) evaluate(ctx context.Context, gc GoldenCase) CaseResult {
	result := CaseResult{CaseID: gc.ID, Category: gc.Category}

	start := time.Now()
	prediction, err := r.predictor.Predict(ctx, gc.Input)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if prediction == nil {
		result.Error = "predictor returned no result"
		return result
	}

	predicted := make(map[string]float64, len(prediction.Predictions))
	for site, p := range prediction.Predictions {
		predicted[site] = p.BoneLossPercent
	}
	siteErrors, err := SiteAbsoluteErrors(gc.ExpectedSites, predicted)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.SiteErrors = siteErrors
	result.MAE = MeanAbsoluteError(siteErrors)
	result.MaxAbsError = MaxAbsoluteError(siteErrors)
	result.AverageError = math.Abs(gc.ExpectedAverage - prediction.OverallAssessment.AverageBoneLossPercent)
	result.RiskMatch = prediction.OverallAssessment.RiskLevel == gc.ExpectedRiskLevel
	result.RecommendationMatch = len(prediction.OverallAssessment.Recommendations) == gc.ExpectedRecommendations
	result.Source = string(prediction.Source)
	return result
}

func finalizeSummary(s *Summary) {
	var (
		evaluated   int
		riskMatches int
		recMatches  int
		latency     time.Duration
		siteCounts  = make(map[string]int)
		catMatches  = make(map[Category]int)
	)

	for _, res := range s.Cases {
		latency += res.Latency
		if res.Failed() {
			s.FailedCases++
			continue
		}
		evaluated++
		s.MAE += res.MAE
		if res.MaxAbsError > s.MaxAbsError {
			s.MaxAbsError = res.MaxAbsError
		}
		for site, e := range res.SiteErrors {
			s.SiteMAE[site] += e
			siteCounts[site]++
		}
		if res.RiskMatch {
			riskMatches++
			catMatches[res.Category]++
		}
		if res.RecommendationMatch {
			recMatches++
		}

		cs, ok := s.ByCategory[res.Category]
		if !ok {
			cs = &CategorySummary{}
			s.ByCategory[res.Category] = cs
		}
		cs.Count++
		cs.MAE += res.MAE
	}

	if evaluated > 0 {
		s.MAE /= float64(evaluated)
	}
	for site, n := range siteCounts {
		s.SiteMAE[site] /= float64(n)
	}
	if len(s.Cases) > 0 {
		s.AvgLatency = latency / time.Duration(len(s.Cases))
	}
	// failed cases count against agreement
	s.RiskAgreement = AgreementRate(riskMatches, s.TotalCases)
	s.RecommendationAgreement = AgreementRate(recMatches, s.TotalCases)

	for cat, cs := range s.ByCategory {
		cs.RiskAgreement = AgreementRate(catMatches[cat], cs.Count)
		cs.MAE /= float64(cs.Count)
	}
}
