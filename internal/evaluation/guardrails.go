package evaluation

import "fmt"

type GuardrailConfig struct {
	MaxMAE           float64
	MaxAbsError      float64 // 0 disables the check
	MinRiskAgreement float64
	MaxFailedCases   int
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MaxMAE <= 0 {
		config.MaxMAE = 0.5
	}
	if config.MinRiskAgreement <= 0 {
		config.MinRiskAgreement = 0.9
	}
	return &Guardrails{config: config}
}

// Violations lists every threshold the summary breaches. An empty result means the run passed.
func (g *Guardrails) Violations(s *Summary) []string {
	var out []string
	if s.TotalCases == 0 {
		return []string{"no golden cases evaluated"}
	}
	if s.FailedCases > g.config.MaxFailedCases {
		out = append(out, fmt.Sprintf("failed cases %d exceeds %d", s.FailedCases, g.config.MaxFailedCases))
	}
	if s.MAE > g.config.MaxMAE {
		out = append(out, fmt.Sprintf("mae %.4f exceeds %.4f", s.MAE, g.config.MaxMAE))
	}
	if g.config.MaxAbsError > 0 && s.MaxAbsError > g.config.MaxAbsError {
		out = append(out, fmt.Sprintf("max abs error %.4f exceeds %.4f", s.MaxAbsError, g.config.MaxAbsError))
	}
	if s.RiskAgreement < g.config.MinRiskAgreement {
		out = append(out, fmt.Sprintf("risk agreement %.2f below %.2f", s.RiskAgreement, g.config.MinRiskAgreement))
	}
	return out
}

func (g *Guardrails) Passed(s *Summary) bool {
	return len(g.Violations(s)) == 0
}
