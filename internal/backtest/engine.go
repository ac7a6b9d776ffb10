package backtest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/contracts"
	"github.com/jcqlabs/futrun/internal/market"
	"github.com/jcqlabs/futrun/internal/risk"
	"github.com/jcqlabs/futrun/internal/session"
	"github.com/jcqlabs/futrun/internal/sim"
	"github.com/jcqlabs/futrun/internal/strategy"
)

// Observer receives engine events for metrics collection. A nil observer is
// valid and ignored.
type Observer interface {
	BarProcessed()
	CandidateGenerated()
	Rejection(stage, name string)
	TradeClosed(exitReason string)
}

// Engine runs one full decision-and-execution pass over a bar series. One
// engine instance owns one ledger and one risk state; instances share
// nothing, so folds and experiments can run engines in parallel safely.
type Engine struct {
	generator *strategy.Generator
	filter    *strategy.Filter
	riskMgr   *risk.Manager
	broker    sim.Broker
	cal       *session.Calendar
	state     *risk.State
	observer  Observer
}

// NewEngine wires an engine from its collaborators. The broker is an
// interface so paper simulation and future live adapters interchange.
func NewEngine(gen *strategy.Generator, filter *strategy.Filter, riskMgr *risk.Manager, broker sim.Broker, cal *session.Calendar) *Engine {
	return &Engine{
		generator: gen,
		filter:    filter,
		riskMgr:   riskMgr,
		broker:    broker,
		cal:       cal,
		state:     risk.NewState(),
	}
}

// SetObserver attaches a metrics observer.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// Run executes the backtest. Decisions at bar t use only data with timestamp
// <= t; fills resolve against bar t+1 and later. Input violations abort the
// run; recoverable rejections are counted and the pass continues. Re-running
// with identical inputs and configuration reproduces the result exactly.
func (e *Engine) Run(series *market.Series) (*RunResult, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: input validation: %w", err)
	}

	start, end := series.Range()
	result := &RunResult{
		ID:         uuid.New(),
		Symbol:     series.Symbol,
		Timeframe:  series.Timeframe,
		Start:      start,
		End:        end,
		Equity:     make([]EquityPoint, 0, series.Len()),
		Rejections: make(map[string]int),
	}

	realized := 0.0
	for _, bar := range series.Bars {
		e.observe(func(o Observer) { o.BarProcessed() })

		// Resolve open orders against this bar before any new decision, so
		// a decision never sees a fill that has not happened yet.
		for _, tr := range e.broker.MarkBar(bar) {
			e.state.Release(tr.ID)
			day := e.cal.SessionDay(tr.ExitTime)
			e.state.RecordRealized(day, tr.RMultiple)
			realized += tr.PnL
			result.Trades = append(result.Trades, tr)
			e.observe(func(o Observer) { o.TradeClosed(string(tr.ExitReason)) })
		}
		result.Equity = append(result.Equity, EquityPoint{Timestamp: bar.Timestamp, CumPnL: realized})

		feats, ok := series.FeaturesAt(bar.Timestamp)
		if !ok {
			result.SkippedBars++
			continue
		}
		model, ok := series.ModelAt(bar.Timestamp)
		if !ok {
			result.SkippedBars++
			continue
		}

		cand, ok := e.generator.Generate(series.Symbol, bar, feats, model)
		if !ok {
			continue
		}
		e.observe(func(o Observer) { o.CandidateGenerated() })

		day := e.cal.SessionDay(bar.Timestamp)
		since, hasTraded := e.state.SinceLastTrade(bar.Timestamp)
		view := strategy.PortfolioView{
			OpenPositions:  e.state.OpenPositions(),
			DailyTrades:    e.state.DailyTrades(day),
			DailyRealizedR: e.state.DailyRealizedR(day),
			SinceLastTrade: since,
			HasTraded:      hasTraded,
		}

		if dec := e.filter.Evaluate(cand, view); !dec.Allowed {
			result.Rejections["rule:"+dec.Gate]++
			e.observe(func(o Observer) { o.Rejection("rule", dec.Gate) })
			continue
		}

		sized, rdec := e.riskMgr.Size(cand, e.state)
		if !rdec.Allowed {
			result.Rejections["risk:"+rdec.Limit]++
			e.observe(func(o Observer) { o.Rejection("risk", rdec.Limit) })
			log.Debug().
				Str("symbol", cand.Symbol).
				Time("ts", bar.Timestamp).
				Str("limit", rdec.Limit).
				Str("reason", rdec.Reason).
				Msg("candidate rejected by risk manager")
			continue
		}

		id := e.broker.Submit(sized)
		e.state.Reserve(id, sized.RiskUSD)
		e.state.RecordOpen(day, bar.Timestamp)
	}

	result.OpenAtEnd = len(e.broker.OpenOrders())
	result.Summary = Summarize(result.Trades)

	log.Info().
		Str("symbol", result.Symbol).
		Str("timeframe", result.Timeframe).
		Int("trades", result.Summary.NumTrades).
		Float64("total_r", result.Summary.TotalR).
		Float64("total_pnl", result.Summary.TotalPnL).
		Int("skipped_bars", result.SkippedBars).
		Int("open_at_end", result.OpenAtEnd).
		Msg("backtest completed")
	return result, nil
}

// observe runs f against the observer when one is attached.
func (e *Engine) observe(f func(Observer)) {
	if e.observer != nil {
		f(e.observer)
	}
}

// PipelineConfig bundles everything needed to assemble one engine.
type PipelineConfig struct {
	Generator strategy.GeneratorConfig `yaml:"generator"`
	Rules     strategy.RulesConfig     `yaml:"rules"`
	Risk      risk.Config              `yaml:"risk"`
	Slippage  sim.SlippageConfig       `yaml:"slippage"`
	Costs     sim.CostConfig           `yaml:"costs"`
	MaxHold   int                      `yaml:"max_hold_bars"`
	Session   session.Config           `yaml:"session"`
}

// DefaultPipelineConfig returns the production defaults for every stage.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Generator: strategy.DefaultGeneratorConfig(),
		Rules:     strategy.DefaultRulesConfig(),
		Risk:      risk.DefaultConfig(),
		Slippage:  sim.SlippageConfig{Model: "fixed_ticks", Ticks: 0.5},
		Costs:     sim.CostConfig{FeePerContract: 0.50},
		MaxHold:   60,
		Session:   session.DefaultConfig(),
	}
}

// NewEngineFromConfig assembles the standard paper-broker pipeline. Every
// call returns a fully independent engine with its own risk state and
// broker, which is what parallel fold evaluation requires.
func NewEngineFromConfig(cfg PipelineConfig, registry *contracts.Registry) (*Engine, error) {
	cal, err := session.NewCalendar(cfg.Session)
	if err != nil {
		return nil, err
	}
	slip, err := sim.BuildSlippage(cfg.Slippage)
	if err != nil {
		return nil, err
	}
	gen := strategy.NewGenerator(cfg.Generator, cal)
	filter := strategy.NewFilter(cfg.Rules, cal)
	riskMgr := risk.NewManager(cfg.Risk, registry)
	broker := sim.NewPaperBroker(slip, cfg.Costs, cfg.MaxHold)
	return NewEngine(gen, filter, riskMgr, broker, cal), nil
}
