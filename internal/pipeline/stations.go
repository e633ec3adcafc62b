package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/internal/table"
)

// StationPattern wraps a name fragment in OneMap's LIKE wildcards.
func StationPattern(fragment string) string {
	return "$" + fragment + "$"
}

// FetchStations paginates OneMap for every configured station pattern and
// returns the raw results in pattern order.
func (p *Pipeline) FetchStations(ctx context.Context) ([]model.SearchResult, error) {
	if p.onemap == nil {
		return nil, eris.New("pipeline: onemap client not configured")
	}

	var all []model.SearchResult
	for _, fragment := range p.cfg.Stations.Patterns {
		results, err := p.onemap.Paginate(ctx, StationPattern(fragment))
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fetch stations %q", fragment)
		}
		zap.L().Info("pipeline: stations fetched",
			zap.String("pattern", fragment),
			zap.Int("results", len(results)),
		)
		all = append(all, results...)
	}
	return all, nil
}

// FilterStations keeps results whose name ends in STATION and is not a bank
// branch listing.
func FilterStations(results []model.SearchResult, banks *BankFilter) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if !strings.HasSuffix(r.SearchVal, "STATION") {
			continue
		}
		if banks != nil && banks.Match(r.SearchVal) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// StationPoints inverse-projects search results into station rows.
func StationPoints(results []model.SearchResult) []model.Point {
	points := make([]model.Point, 0, len(results))
	for _, r := range results {
		points = append(points, model.PointFromSearch(r.SearchVal, r))
	}
	return points
}

// Stations fetches, filters, and writes the MRT/LRT station table. When
// offline is set, the filtered results are reloaded from the last snapshot
// instead of OneMap.
func (p *Pipeline) Stations(ctx context.Context, offline bool) (*StageResult, error) {
	start := time.Now()
	out := p.cfg.Output
	snapshot := out.Path(out.StationsSnapshot)
	res := &StageResult{Stage: StageStations}

	var kept []model.SearchResult
	if offline {
		var err error
		kept, err = ReadSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		res.Fetched = len(kept)
	} else {
		names, err := LoadBankNames(p.cfg.Stations.BankNamesFile)
		if err != nil {
			return nil, err
		}
		banks := NewBankFilter(names)

		fetched, err := p.FetchStations(ctx)
		if err != nil {
			return nil, err
		}
		res.Fetched = len(fetched)

		kept = FilterStations(fetched, banks)
		zap.L().Info("pipeline: stations filtered",
			zap.Int("fetched", len(fetched)),
			zap.Int("kept", len(kept)),
			zap.Int("bank_names", banks.Len()),
		)

		if err := WriteSnapshot(snapshot, kept); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, snapshot)
	}

	csvPath := out.Path(out.Stations)
	points := StationPoints(kept)
	if err := table.WriteFile(csvPath, points); err != nil {
		return nil, eris.Wrap(err, "pipeline: write stations")
	}
	res.Files = append(res.Files, csvPath)
	res.Rows = len(points)
	res.Duration = time.Since(start)
	logStage(res)
	return res, nil
}
