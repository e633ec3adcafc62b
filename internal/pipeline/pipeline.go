package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/config"
	"github.com/sgtransit/stops-cli/pkg/datamall"
	"github.com/sgtransit/stops-cli/pkg/onemap"
)

// Stage names.
const (
	StageStations = "stations"
	StageBusStops = "busstops"
	StageCombine  = "combine"
)

// Pipeline runs the station, bus stop, and combine stages.
type Pipeline struct {
	cfg      *config.Config
	onemap   onemap.Client
	datamall datamall.Client
}

// New creates a Pipeline. Either client may be nil when the stages that
// need it are run offline or not at all.
func New(cfg *config.Config, om onemap.Client, dm datamall.Client) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		onemap:   om,
		datamall: dm,
	}
}

// StageResult summarizes a completed stage.
type StageResult struct {
	Stage    string
	Fetched  int
	Rows     int
	Files    []string
	Duration time.Duration
}

// Options control a full run.
type Options struct {
	Offline bool
	Formats []string
}

// RunAll runs stations, bus stops, then combine, stopping at the first error.
func (p *Pipeline) RunAll(ctx context.Context, opts Options) ([]*StageResult, error) {
	stages := []func(context.Context) (*StageResult, error){
		func(ctx context.Context) (*StageResult, error) { return p.Stations(ctx, opts.Offline) },
		func(ctx context.Context) (*StageResult, error) { return p.BusStops(ctx, opts.Offline) },
		func(ctx context.Context) (*StageResult, error) { return p.Combine(ctx, opts.Formats) },
	}

	var results []*StageResult
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := stage(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func logStage(res *StageResult) {
	zap.L().Info("pipeline: stage complete",
		zap.String("stage", res.Stage),
		zap.Int("fetched", res.Fetched),
		zap.Int("rows", res.Rows),
		zap.Strings("files", res.Files),
		zap.Duration("duration", res.Duration),
	)
}
