package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgtransit/stops-cli/internal/model"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mrt_lrt.json.gz")
	in := []model.SearchResult{
		{SearchVal: "ORCHARD MRT STATION", X: 27831, Y: 31848.39, Category: "Transport", PostalCode: "238801"},
		sr("01012 (BUS STOP)", 30130.5, 31030.25),
	}
	require.NoError(t, WriteSnapshot(path, in))

	out, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSnapshot_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json.gz")
	require.NoError(t, WriteSnapshot(path, nil))

	out, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadSnapshot_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	_, err := ReadSnapshot(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read snapshot")
}

func TestReadSnapshot_Missing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json.gz"))
	require.Error(t, err)
}
