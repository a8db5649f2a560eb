package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
)

// LoadGoldenCases reads and parses a golden case set from a JSON file.
func LoadGoldenCases(path string) ([]GoldenCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden cases file: %w", err)
	}

	var cases []GoldenCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse golden cases: %w", err)
	}

	return cases, nil
}

var validRiskLevels = map[entities.RiskLevel]bool{
	entities.RiskLow:      true,
	entities.RiskModerate: true,
	entities.RiskHigh:     true,
	entities.RiskVeryHigh: true,
}

// ValidateGoldenCases checks that all golden cases have required fields and valid values.
func ValidateGoldenCases(cases []GoldenCase) error {
	seen := make(map[string]struct{}, len(cases))
	sites := services.BoneSites()

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if !c.Category.IsValid() {
			return fmt.Errorf("case %q: invalid category %q", c.ID, c.Category)
		}
		if err := services.ValidatePredictionInput(c.Input); err != nil {
			return fmt.Errorf("case %q: %w", c.ID, err)
		}
		if len(c.ExpectedSites) != len(sites) {
			return fmt.Errorf("case %q: expected %d sites, got %d", c.ID, len(sites), len(c.ExpectedSites))
		}
		for _, site := range sites {
			if _, ok := c.ExpectedSites[site]; !ok {
				return fmt.Errorf("case %q: missing expected site %q", c.ID, site)
			}
		}
		if !validRiskLevels[c.ExpectedRiskLevel] {
			return fmt.Errorf("case %q: invalid risk level %q", c.ID, c.ExpectedRiskLevel)
		}
		if c.ExpectedRecommendations < 2 {
			return fmt.Errorf("case %q: expected_recommendations must be at least 2", c.ID)
		}
	}

	return nil
}
