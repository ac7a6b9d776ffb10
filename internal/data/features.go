package data

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/session"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// atrPeriod is the lookback for the Wilder-smoothed average true range.
const atrPeriod = 14

// BuildFeatures computes the strategy's feature vectors from bars already in
// the series: Wilder ATR, session-anchored VWAP, and the prior session's
// extremes. Every value at bar t is derived from bars with timestamp <= t,
// so a backtest over enriched data can never look ahead. Bars inside the
// warmup window get no vector and are skipped downstream.
func BuildFeatures(series *market.Series, cal *session.Calendar) {
	var (
		atr        float64
		trCount    int
		prevClose  float64
		currentDay time.Time

		vwapPV, vwapVol    float64
		dayHigh, dayLow    float64
		priorHigh, priorLo float64
	)

	emitted := 0
	for i, b := range series.Bars {
		day := cal.SessionDay(b.Timestamp)
		if !day.Equal(currentDay) {
			if !currentDay.IsZero() {
				priorHigh, priorLo = dayHigh, dayLow
			}
			currentDay = day
			vwapPV, vwapVol = 0, 0
			dayHigh, dayLow = b.High, b.Low
		}

		if b.High > dayHigh {
			dayHigh = b.High
		}
		if b.Low < dayLow {
			dayLow = b.Low
		}

		typical := (b.High + b.Low + b.Close) / 3
		vwapPV += typical * b.Volume
		vwapVol += b.Volume

		tr := b.High - b.Low
		if i > 0 {
			tr = math.Max(tr, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
		}
		prevClose = b.Close

		trCount++
		if trCount <= atrPeriod {
			atr += tr
			if trCount == atrPeriod {
				atr /= atrPeriod
			}
		} else {
			atr = (atr*(atrPeriod-1) + tr) / atrPeriod
		}
		if trCount < atrPeriod {
			continue // warmup: no vector for this bar
		}

		values := map[string]float64{strategy.FeatureATR: atr}
		if vwapVol > 0 {
			values[strategy.FeatureVWAP] = vwapPV / vwapVol
		}
		if priorHigh > 0 {
			values[strategy.FeaturePriorHigh] = priorHigh
			values[strategy.FeaturePriorLow] = priorLo
		}
		series.SetFeatures(market.FeatureVector{Timestamp: b.Timestamp, Values: values})
		emitted++
	}

	log.Debug().
		Str("symbol", series.Symbol).
		Int("bars", series.Len()).
		Int("vectors", emitted).
		Msg("features built")
}
