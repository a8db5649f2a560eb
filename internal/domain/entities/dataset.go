package entities

import (
	"encoding/json"
	"regexp"
	"time"
)

var datasetNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidDatasetName reports whether name is safe to resolve inside the datasets directory.
func ValidDatasetName(name string) bool {
	return datasetNamePattern.MatchString(name)
}

// DatasetInfo describes a pre-computed crew-health document.
type DatasetInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Dataset is a document together with its raw JSON content.
type Dataset struct {
	DatasetInfo
	Content json.RawMessage `json:"content"`
}
