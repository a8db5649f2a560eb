package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/domain/entities"
	"github.com/zatekoja/isscrewhealth/internal/domain/repositories"
	apperrors "github.com/zatekoja/isscrewhealth/pkg/errors"
)

const datasetExt = ".json"

// DatasetAdapter implements DatasetRepository over a directory of JSON documents.
// Names are file names without the extension.
type DatasetAdapter struct {
	dir string
}

// NewDatasetAdapter creates a new dataset adapter rooted at dir
func NewDatasetAdapter(dir string) repositories.DatasetRepository {
	return &DatasetAdapter{dir: dir}
}

// List returns every fetchable dataset in the directory sorted by name
func (a *DatasetAdapter) List(ctx context.Context) ([]entities.DatasetInfo, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []entities.DatasetInfo{}, nil
		}
		return nil, apperrors.NewInternalError("failed to read datasets directory", err)
	}

	datasets := make([]entities.DatasetInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), datasetExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), datasetExt)
		if !entities.ValidDatasetName(name) {
			// Get would reject it, so listing it only advertises a 400
			log.Warn().Str("file", entry.Name()).Msg("Skipping dataset with unsupported name")
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable dataset")
			continue
		}
		datasets = append(datasets, entities.DatasetInfo{
			Name:       name,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Name < datasets[j].Name })
	return datasets, nil
}

// Get reads one dataset. Callers validate the name first.
func (a *DatasetAdapter) Get(ctx context.Context, name string) (*entities.Dataset, error) {
	path := filepath.Join(a.dir, name+datasetExt)
	if filepath.Dir(path) != filepath.Clean(a.dir) {
		return nil, apperrors.NewInvalidInputError("name", "must not contain path separators")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("dataset not found: " + name)
		}
		return nil, apperrors.NewInternalError("failed to stat dataset", err)
	}
	if info.IsDir() {
		return nil, apperrors.NewNotFoundError("dataset not found: " + name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read dataset", err)
	}
	if !json.Valid(content) {
		log.Error().Str("dataset", name).Str("path", path).Msg("Dataset file is not valid JSON")
		return nil, apperrors.NewInternalError("dataset "+name+" is not valid JSON", nil)
	}

	return &entities.Dataset{
		DatasetInfo: entities.DatasetInfo{
			Name:       name,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		},
		Content: json.RawMessage(content),
	}, nil
}
