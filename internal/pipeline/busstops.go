package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/internal/table"
	"github.com/sgtransit/stops-cli/pkg/datamall"
	"github.com/sgtransit/stops-cli/pkg/svy21"
)

// ErrBusStopCode is returned when a bus stop name does not carry a 5-digit code.
var ErrBusStopCode = eris.New("pipeline: bus stop name has no 5-digit code")

var (
	busStopNameRe = regexp.MustCompile(`^([0-9]{5}) \(BUS STOP\)`)
	busStopCodeRe = regexp.MustCompile(`^[0-9]{5}$`)
)

// BusStopPrefixes returns the two-digit code prefixes "00" through "99".
func BusStopPrefixes() []string {
	prefixes := make([]string, 100)
	for i := range prefixes {
		prefixes[i] = fmt.Sprintf("%02d", i)
	}
	return prefixes
}

// BusStopPattern is the OneMap LIKE pattern for stops whose code starts with prefix.
func BusStopPattern(prefix string) string {
	return prefix + "$BUS STOP$"
}

// BusStopName is the search value OneMap uses for a stop code.
func BusStopName(code string) string {
	return code + " (BUS STOP)"
}

// ExtractBusStopCode returns the 5-digit code at the start of a
// "<code> (BUS STOP)" search value.
func ExtractBusStopCode(searchVal string) (string, error) {
	m := busStopNameRe.FindStringSubmatch(searchVal)
	if m == nil {
		return "", eris.Wrapf(ErrBusStopCode, "%q", searchVal)
	}
	return m[1], nil
}

// FetchBusStops paginates OneMap for every prefix. Up to concurrency
// prefixes are fetched at once; results are returned in prefix order.
func (p *Pipeline) FetchBusStops(ctx context.Context, concurrency int) ([]model.SearchResult, error) {
	if p.onemap == nil {
		return nil, eris.New("pipeline: onemap client not configured")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	prefixes := BusStopPrefixes()
	pages := make([][]model.SearchResult, len(prefixes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, prefix := range prefixes {
		g.Go(func() error {
			results, err := p.onemap.Paginate(gctx, BusStopPattern(prefix))
			if err != nil {
				return eris.Wrapf(err, "pipeline: fetch bus stops prefix %s", prefix)
			}
			zap.L().Debug("pipeline: prefix fetched",
				zap.String("prefix", prefix),
				zap.Int("results", len(results)),
			)
			pages[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.SearchResult
	for _, page := range pages {
		all = append(all, page...)
	}
	return all, nil
}

// DataMallResults converts DataMall stops into search results. Stops with a
// zero longitude or a code that is not exactly 5 digits are skipped.
func DataMallResults(stops []datamall.BusStop) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(stops))
	for _, s := range stops {
		if s.Longitude == 0 {
			continue
		}
		if !busStopCodeRe.MatchString(s.BusStopCode) {
			continue
		}
		x, y := svy21.Project(s.Longitude, s.Latitude)
		out = append(out, model.SearchResult{
			SearchVal: BusStopName(s.BusStopCode),
			X:         x,
			Y:         y,
		})
	}
	return out
}

// BusStopPoints extracts each result's code and keeps the first result per
// code, in input order.
func BusStopPoints(results []model.SearchResult) ([]model.Point, error) {
	seen := make(map[string]struct{}, len(results))
	points := make([]model.Point, 0, len(results))
	for _, r := range results {
		code, err := ExtractBusStopCode(r.SearchVal)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		points = append(points, model.PointFromSearch(code, r))
	}
	return points, nil
}

// BusStops fetches OneMap and DataMall bus stops, merges them, and writes the
// bus stop table. When offline is set, the merged results are reloaded from
// the last snapshot.
func (p *Pipeline) BusStops(ctx context.Context, offline bool) (*StageResult, error) {
	start := time.Now()
	out := p.cfg.Output
	snapshot := out.Path(out.BusStopsSnapshot)
	res := &StageResult{Stage: StageBusStops}

	var merged []model.SearchResult
	if offline {
		var err error
		merged, err = ReadSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
	} else {
		fromOneMap, err := p.FetchBusStops(ctx, p.cfg.Fetch.Concurrency)
		if err != nil {
			return nil, err
		}
		if p.datamall == nil {
			return nil, eris.New("pipeline: datamall client not configured")
		}
		stops, err := p.datamall.BusStops(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: fetch datamall bus stops")
		}
		fromDataMall := DataMallResults(stops)
		zap.L().Info("pipeline: bus stops fetched",
			zap.Int("onemap", len(fromOneMap)),
			zap.Int("datamall", len(stops)),
			zap.Int("datamall_kept", len(fromDataMall)),
		)

		merged = append(fromOneMap, fromDataMall...)
		if err := WriteSnapshot(snapshot, merged); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, snapshot)
	}
	res.Fetched = len(merged)

	points, err := BusStopPoints(merged)
	if err != nil {
		return nil, err
	}

	csvPath := out.Path(out.BusStops)
	if err := table.WriteFile(csvPath, points); err != nil {
		return nil, eris.Wrap(err, "pipeline: write bus stops")
	}
	res.Files = append(res.Files, csvPath)
	res.Rows = len(points)
	res.Duration = time.Since(start)
	logStage(res)
	return res, nil
}
