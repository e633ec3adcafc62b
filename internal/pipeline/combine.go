package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/export"
	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/internal/table"
)

// ErrStationSuffix is returned when a station name lacks an MRT/LRT suffix or
// has nothing left once it is removed.
var ErrStationSuffix = eris.New("pipeline: station name has no MRT/LRT suffix")

// StationSuffixes are removed from station names in the combined table.
var StationSuffixes = []string{" MRT STATION", " LRT STATION"}

// StripStationSuffix removes the trailing " MRT STATION" or " LRT STATION".
func StripStationSuffix(name string) (string, error) {
	for _, suffix := range StationSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			if strings.TrimSpace(base) == "" {
				return "", eris.Wrapf(ErrStationSuffix, "%q has an empty base name", name)
			}
			return base, nil
		}
	}
	return "", eris.Wrapf(ErrStationSuffix, "%q", name)
}

// CombinePoints concatenates bus stops then stations, renaming stations to
// their base name.
func CombinePoints(busStops, stations []model.Point) ([]model.Point, error) {
	combined := make([]model.Point, 0, len(busStops)+len(stations))
	combined = append(combined, busStops...)
	for _, s := range stations {
		base, err := StripStationSuffix(s.Name)
		if err != nil {
			return nil, err
		}
		s.Name = base
		combined = append(combined, s)
	}
	return combined, nil
}

// Combine reads the bus stop and station tables, writes the combined table,
// and exports it in each of formats.
func (p *Pipeline) Combine(ctx context.Context, formats []string) (*StageResult, error) {
	start := time.Now()
	out := p.cfg.Output
	res := &StageResult{Stage: StageCombine}

	busStops, err := table.ReadFile(out.Path(out.BusStops))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read bus stops")
	}
	stations, err := table.ReadFile(out.Path(out.Stations))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read stations")
	}
	res.Fetched = len(busStops) + len(stations)

	combined, err := CombinePoints(busStops, stations)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pipeline: combined",
		zap.Int("bus_stops", len(busStops)),
		zap.Int("stations", len(stations)),
	)

	csvPath := out.Path(out.Combined)
	if err := table.WriteFile(csvPath, combined); err != nil {
		return nil, eris.Wrap(err, "pipeline: write combined")
	}
	res.Files = append(res.Files, csvPath)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(formats) > 0 {
		base := strings.TrimSuffix(out.Combined, filepath.Ext(out.Combined))
		paths, err := export.Write(filepath.Dir(csvPath), filepath.Base(base), combined, formats)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: export combined")
		}
		res.Files = append(res.Files, paths...)
	}

	res.Rows = len(combined)
	res.Duration = time.Since(start)
	logStage(res)
	return res, nil
}
