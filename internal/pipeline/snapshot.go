package pipeline

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sgtransit/stops-cli/internal/model"
)

// WriteSnapshot stores raw search results as gzip-compressed JSON.
func WriteSnapshot(path string, results []model.SearchResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create snapshot %s", path)
	}

	if results == nil {
		results = []model.SearchResult{}
	}

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(results); err != nil {
		zw.Close() //nolint:errcheck
		f.Close()  //nolint:errcheck
		return eris.Wrapf(err, "pipeline: encode snapshot %s", path)
	}
	if err := zw.Close(); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "pipeline: flush snapshot %s", path)
	}
	return eris.Wrapf(f.Close(), "pipeline: close snapshot %s", path)
}

// ReadSnapshot loads results written by WriteSnapshot.
func ReadSnapshot(path string) ([]model.SearchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open snapshot %s", path)
	}
	defer f.Close() //nolint:errcheck

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read snapshot %s", path)
	}
	defer zr.Close() //nolint:errcheck

	var results []model.SearchResult
	if err := json.NewDecoder(zr).Decode(&results); err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode snapshot %s", path)
	}
	return results, nil
}
