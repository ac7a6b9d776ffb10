// Package data loads bar series and aligned model outputs from disk and
// computes the derived features the strategy reads.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/market"
)

// LoadBarsCSV reads a bar file into a validated series. Expected header:
// ts,open,high,low,close,volume with RFC3339 or unix-second timestamps.
func LoadBarsCSV(path, symbol, timeframe string) (*market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open bars: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	header := true
	series := market.NewSeries(symbol, timeframe)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("data: read bars: %w", err)
		}
		line++
		if header {
			header = false
			continue
		}

		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line, err)
		}
		vals, err := parseFloats(rec[1:6])
		if err != nil {
			return nil, fmt.Errorf("data: line %d: %w", line, err)
		}
		series.Append(market.Bar{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("data: %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bars", series.Len()).Msg("bars loaded")
	return series, nil
}

// LoadModelsCSV attaches model outputs to an existing series. Expected
// header: ts,prob_up,prob_down,expected_return. Rows whose timestamp matches
// no bar are ignored, which lets one model file cover many date ranges.
func LoadModelsCSV(path string, series *market.Series) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("data: open models: %w", err)
	}
	defer f.Close()

	known := make(map[int64]bool, series.Len())
	for _, b := range series.Bars {
		known[b.Timestamp.UnixNano()] = true
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4

	header := true
	attached := 0
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("data: read models: %w", err)
		}
		line++
		if header {
			header = false
			continue
		}

		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return fmt.Errorf("data: line %d: %w", line, err)
		}
		if !known[ts.UnixNano()] {
			continue
		}
		vals, err := parseFloats(rec[1:4])
		if err != nil {
			return fmt.Errorf("data: line %d: %w", line, err)
		}
		series.SetModel(market.ModelOutput{
			Timestamp:      ts,
			ProbUp:         vals[0],
			ProbDown:       vals[1],
			ExpectedReturn: vals[2],
		})
		attached++
	}

	log.Info().Str("path", path).Int("rows", attached).Msg("model outputs loaded")
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("unparseable number %q", s)
		}
		out[i] = v
	}
	return out, nil
}
