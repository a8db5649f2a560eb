package evaluation

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestGuardrails_Defaults(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})

	assert.True(t, g.Passed(&Summary{TotalCases: 3, MAE: 0.5, RiskAgreement: 0.9}))
	assert.False(t, g.Passed(&Summary{TotalCases: 3, MAE: 0.51, RiskAgreement: 1}))
	assert.False(t, g.Passed(&Summary{TotalCases: 3, MAE: 0, RiskAgreement: 0.5}))
}

func TestGuardrails_Violations(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{MaxMAE: 1.0, MaxAbsError: 2.0, MinRiskAgreement: 0.8})

	violations := g.Violations(&Summary{
		TotalCases:    4,
		FailedCases:   1,
		MAE:           1.5,
		MaxAbsError:   3.0,
		RiskAgreement: 0.75,
	})

	assert.Len(t, violations, 4)
	assert.Contains(t, violations[0], "failed cases")
	assert.Contains(t, violations[1], "mae")
	assert.Contains(t, violations[2], "max abs error")
	assert.Contains(t, violations[3], "risk agreement")
}

func TestGuardrails_EmptyRun(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})
	assert.Equal(t, []string{"no golden cases evaluated"}, g.Violations(&Summary{}))
}
