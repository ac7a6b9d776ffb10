package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	path := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
2025-06-02T13:30:00Z,18000,18010,17995,18005,1200
2025-06-02T13:31:00Z,18005,18012,18001,18010,950
2025-06-02T13:32:00Z,18010,18015,18002,18003,1100
`)

	series, err := LoadBarsCSV(path, "NQ", "1m")
	require.NoError(t, err)

	assert.Equal(t, "NQ", series.Symbol)
	assert.Equal(t, "1m", series.Timeframe)
	require.Equal(t, 3, series.Len())
	assert.Equal(t, time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC), series.Bars[0].Timestamp)
	assert.Equal(t, 18005.0, series.Bars[0].Close)
	assert.Equal(t, 950.0, series.Bars[1].Volume)
}

func TestLoadBarsCSV_UnixTimestamps(t *testing.T) {
	path := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
1748871000,18000,18010,17995,18005,100
1748871060,18005,18012,18001,18010,100
`)

	series, err := LoadBarsCSV(path, "NQ", "1m")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, int64(1748871000), series.Bars[0].Timestamp.Unix())
}

func TestLoadBarsCSV_RejectsMalformedData(t *testing.T) {
	t.Run("out of order", func(t *testing.T) {
		path := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
2025-06-02T13:31:00Z,18005,18012,18001,18010,950
2025-06-02T13:30:00Z,18000,18010,17995,18005,1200
`)
		_, err := LoadBarsCSV(path, "NQ", "1m")
		assert.Error(t, err)
	})

	t.Run("bad number", func(t *testing.T) {
		path := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
2025-06-02T13:30:00Z,18000,oops,17995,18005,1200
`)
		_, err := LoadBarsCSV(path, "NQ", "1m")
		assert.Error(t, err)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		path := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
yesterday,18000,18010,17995,18005,1200
`)
		_, err := LoadBarsCSV(path, "NQ", "1m")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBarsCSV(filepath.Join(t.TempDir(), "absent.csv"), "NQ", "1m")
		assert.Error(t, err)
	})
}

func TestLoadModelsCSV(t *testing.T) {
	barsPath := writeFile(t, "bars.csv", `ts,open,high,low,close,volume
2025-06-02T13:30:00Z,18000,18010,17995,18005,1200
2025-06-02T13:31:00Z,18005,18012,18001,18010,950
`)
	series, err := LoadBarsCSV(barsPath, "NQ", "1m")
	require.NoError(t, err)

	modelsPath := writeFile(t, "models.csv", `ts,prob_up,prob_down,expected_return
2025-06-02T13:30:00Z,0.58,0.42,0.0004
2025-06-02T13:31:00Z,0.47,0.53,-0.0001
2025-06-02T13:45:00Z,0.99,0.01,0.5
`)
	require.NoError(t, LoadModelsCSV(modelsPath, series))

	m, ok := series.ModelAt(series.Bars[0].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 0.58, m.ProbUp, 1e-9)
	assert.InDelta(t, 0.0004, m.ExpectedReturn, 1e-9)

	m, ok = series.ModelAt(series.Bars[1].Timestamp)
	require.True(t, ok)
	assert.InDelta(t, 0.53, m.ProbDown, 1e-9)

	// The row with no matching bar is dropped silently.
	_, ok = series.ModelAt(time.Date(2025, 6, 2, 13, 45, 0, 0, time.UTC))
	assert.False(t, ok)
}
