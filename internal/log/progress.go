// Package log configures zerolog for the process and renders terminal
// progress for long experiments.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Pretty switches from JSON to
// the human console writer.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// Progress renders a single-line progress bar with ETA for long-running
// experiments: walk-forward folds, resampling paths. With Interactive false
// it degrades to periodic log lines, which is what CI output wants.
type Progress struct {
	mu          sync.Mutex
	name        string
	total       int
	current     int
	started     time.Time
	lastLog     time.Time
	interactive bool
}

// NewProgress starts tracking total units of work.
func NewProgress(name string, total int, interactive bool) *Progress {
	return &Progress{
		name:        name,
		total:       total,
		started:     time.Now(),
		interactive: interactive,
	}
}

// Add advances progress by n units.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += n
	if p.current > p.total {
		p.current = p.total
	}

	if p.interactive {
		fmt.Fprint(os.Stderr, p.render())
		return
	}
	// Non-interactive: one log line every few seconds, never per unit.
	if time.Since(p.lastLog) >= 5*time.Second {
		p.lastLog = time.Now()
		log.Info().
			Str("task", p.name).
			Int("done", p.current).
			Int("total", p.total).
			Msg("progress")
	}
}

// Done finishes the line and reports the wall time.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.started).Round(time.Millisecond)
	if p.interactive {
		fmt.Fprintf(os.Stderr, "\r\033[K%s: %d/%d in %v\n", p.name, p.current, p.total, elapsed)
		return
	}
	log.Info().
		Str("task", p.name).
		Int("total", p.total).
		Dur("elapsed", elapsed).
		Msg("completed")
}

// render draws the carriage-returned bar line.
func (p *Progress) render() string {
	var b strings.Builder
	b.WriteString("\r\033[K")
	b.WriteString(p.name)

	if p.total > 0 {
		const width = 24
		filled := width * p.current / p.total
		b.WriteString(" [")
		b.WriteString(strings.Repeat("=", filled))
		b.WriteString(strings.Repeat(" ", width-filled))
		fmt.Fprintf(&b, "] %d/%d", p.current, p.total)

		if p.current > 0 && p.current < p.total {
			elapsed := time.Since(p.started)
			perUnit := elapsed / time.Duration(p.current)
			eta := perUnit * time.Duration(p.total-p.current)
			fmt.Fprintf(&b, " eta %v", eta.Round(time.Second))
		}
	} else {
		fmt.Fprintf(&b, " %d", p.current)
	}
	return b.String()
}
