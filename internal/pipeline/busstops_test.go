package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/internal/table"
	"github.com/sgtransit/stops-cli/pkg/datamall"
)

func TestBusStopPrefixes(t *testing.T) {
	p := BusStopPrefixes()
	require.Len(t, p, 100)
	assert.Equal(t, "00", p[0])
	assert.Equal(t, "07", p[7])
	assert.Equal(t, "99", p[99])
	assert.Equal(t, "01$BUS STOP$", BusStopPattern(p[1]))
}

func TestExtractBusStopCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "01012 (BUS STOP)", want: "01012"},
		{in: "99189 (BUS STOP) OPP BLK 1", want: "99189"},
		{in: "1012 (BUS STOP)", wantErr: true},
		{in: "01012 BUS STOP", wantErr: true},
		{in: "X1012 (BUS STOP)", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, err := ExtractBusStopCode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, ErrBusStopCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
			assert.Len(t, code, 5)
		})
	}
}

func TestDataMallResults(t *testing.T) {
	stops := []datamall.BusStop{
		{BusStopCode: "01012", Latitude: 1.29684, Longitude: 103.85253},
		{BusStopCode: "46239", Latitude: 1.4589, Longitude: 0},
		{BusStopCode: "E0123", Latitude: 1.3, Longitude: 103.8},
		{BusStopCode: "123456", Latitude: 1.3, Longitude: 103.8},
		{BusStopCode: "46101", Latitude: 1.4612, Longitude: 103.7643},
	}
	out := DataMallResults(stops)
	require.Len(t, out, 2)
	assert.Equal(t, "01012 (BUS STOP)", out[0].SearchVal)
	assert.Equal(t, "46101 (BUS STOP)", out[1].SearchVal)

	// Projected into SVY21 metres.
	assert.InDelta(t, 30138, out[0].X, 100)
	assert.InDelta(t, 31023, out[0].Y, 100)
}

func TestBusStopPoints_DedupeFirstWins(t *testing.T) {
	in := []model.SearchResult{
		sr("01012 (BUS STOP)", 30130.5, 31030.25),
		sr("01013 (BUS STOP)", 30200.0, 31100.0),
		sr("01012 (BUS STOP)", 99999.0, 99999.0),
	}
	points, err := BusStopPoints(in)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "01012", points[0].Name)
	assert.InDelta(t, 30130.5, points[0].X, 1e-9)
	assert.Equal(t, "01013", points[1].Name)
}

func TestBusStopPoints_BadName(t *testing.T) {
	_, err := BusStopPoints([]model.SearchResult{sr("BLK 123 (BUS STOP)", 1, 1)})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBusStopCode))
}

func busStopFixture() *fakeOneMap {
	return &fakeOneMap{results: map[string][]model.SearchResult{
		"01$BUS STOP$": {
			sr("01012 (BUS STOP)", 30130.5, 31030.25),
			sr("01013 (BUS STOP)", 30200.0, 31100.0),
		},
		"46$BUS STOP$": {
			sr("46101 (BUS STOP)", 20400.0, 47900.0),
		},
	}}
}

func TestFetchBusStops_Order(t *testing.T) {
	for _, concurrency := range []int{0, 1, 8} {
		om := busStopFixture()
		p := New(testConfig(t), om, nil)

		results, err := p.FetchBusStops(context.Background(), concurrency)
		require.NoError(t, err)
		assert.Equal(t, 100, om.callCount())
		require.Len(t, results, 3)
		assert.Equal(t, "01012 (BUS STOP)", results[0].SearchVal)
		assert.Equal(t, "46101 (BUS STOP)", results[2].SearchVal)
	}
}

func TestFetchBusStops_Error(t *testing.T) {
	om := busStopFixture()
	om.errs = map[string]error{"50$BUS STOP$": eris.New("boom")}

	_, err := New(testConfig(t), om, nil).FetchBusStops(context.Background(), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix 50")
}

func TestBusStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetch.Concurrency = 4
	om := busStopFixture()
	dm := &fakeDataMall{stops: []datamall.BusStop{
		{BusStopCode: "01012", Latitude: 1.29684, Longitude: 103.85253},
		{BusStopCode: "46009", Latitude: 1.4491, Longitude: 103.7701},
		{BusStopCode: "47009", Latitude: 1.45, Longitude: 0},
	}}

	res, err := New(cfg, om, dm).BusStops(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StageBusStops, res.Stage)
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 1, dm.calls)

	points, err := table.ReadFile(cfg.Output.Path(cfg.Output.BusStops))
	require.NoError(t, err)
	names := make([]string, len(points))
	for i, pt := range points {
		names[i] = pt.Name
		assert.Len(t, pt.Name, 5)
	}
	assert.Equal(t, []string{"01012", "01013", "46101", "46009"}, names)
	// OneMap coordinates win for duplicated codes.
	assert.InDelta(t, 30130.5, points[0].X, 1e-6)

	snap, err := ReadSnapshot(cfg.Output.Path(cfg.Output.BusStopsSnapshot))
	require.NoError(t, err)
	assert.Len(t, snap, 5)
}

func TestBusStops_Offline(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, WriteSnapshot(cfg.Output.Path(cfg.Output.BusStopsSnapshot), []model.SearchResult{
		sr("01012 (BUS STOP)", 30130.5, 31030.25),
		sr("01012 (BUS STOP)", 30130.5, 31030.25),
	}))

	om := &fakeOneMap{}
	dm := &fakeDataMall{}
	res, err := New(cfg, om, dm).BusStops(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Zero(t, om.callCount())
	assert.Zero(t, dm.calls)
}

func TestBusStops_DataMallError(t *testing.T) {
	cfg := testConfig(t)
	dm := &fakeDataMall{err: datamall.ErrNoAccountKey}

	_, err := New(cfg, busStopFixture(), dm).BusStops(context.Background(), false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, datamall.ErrNoAccountKey))
}

func TestBusStops_BadCodeAborts(t *testing.T) {
	cfg := testConfig(t)
	om := &fakeOneMap{results: map[string][]model.SearchResult{
		"12$BUS STOP$": {sr("12 (BUS STOP)", 1, 1)},
	}}

	_, err := New(cfg, om, &fakeDataMall{}).BusStops(context.Background(), false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBusStopCode))
}
