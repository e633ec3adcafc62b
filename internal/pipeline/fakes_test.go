package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/sgtransit/stops-cli/internal/config"
	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/pkg/datamall"
	"github.com/sgtransit/stops-cli/pkg/onemap"
)

// fakeOneMap returns canned Paginate results keyed by pattern.
type fakeOneMap struct {
	mu      sync.Mutex
	results map[string][]model.SearchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeOneMap) Search(context.Context, string, int) (*onemap.Page, error) {
	return nil, eris.New("fakeOneMap: Search not implemented")
}

func (f *fakeOneMap) Paginate(ctx context.Context, pattern string) ([]model.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, pattern)
	f.mu.Unlock()

	if err, ok := f.errs[pattern]; ok {
		return nil, err
	}
	return f.results[pattern], nil
}

func (f *fakeOneMap) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeDataMall struct {
	stops []datamall.BusStop
	err   error
	calls int
}

func (f *fakeDataMall) BusStops(context.Context) ([]datamall.BusStop, error) {
	f.calls++
	return f.stops, f.err
}

// testConfig returns a config whose outputs live in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Fetch.Concurrency = 1
	cfg.Stations.Patterns = []string{"MRT STATION", "LRT STATION"}
	cfg.Stations.BankNamesFile = filepath.Join(dir, "bank_names.txt")
	cfg.Output = config.OutputConfig{
		Dir:              dir,
		BusStops:         "bus_stops.csv",
		Stations:         "mrt_lrt.csv",
		Combined:         "combined.csv",
		BusStopsSnapshot: "busstops2.json.gz",
		StationsSnapshot: "mrt_lrt.json.gz",
	}
	return cfg
}

func sr(name string, x, y float64) model.SearchResult {
	return model.SearchResult{SearchVal: name, X: x, Y: y}
}
