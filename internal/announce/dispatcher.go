// Package announce implements the speech dispatcher that UI handlers use to
// play bilingual announcements.
package announce

import (
	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Announcer = (*Dispatcher)(nil)

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithBoundary sets where StopAll cuts the utterance in flight.
func WithBoundary(b domain.Boundary) Option {
	return func(d *Dispatcher) {
		d.boundary = b
	}
}

// Dispatcher owns the process's one speech engine for the lifetime of the
// application. It is created once in main and handed to the UI.
type Dispatcher struct {
	speaker  domain.Speaker
	log      *logger.Logger
	boundary domain.Boundary
}

// New creates a dispatcher that submits to speaker.
func New(speaker domain.Speaker, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		speaker:  speaker,
		log:      log,
		boundary: domain.BoundaryWord,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Speak queues the Mandarin utterance, its trailing pause, and the English
// utterance as one batch. Returns immediately.
func (d *Dispatcher) Speak(e domain.Entry) {
	utts := e.Utterances()
	d.log.Debug("announce: %s (%s, %s)", e.Label, e.ZhVoice, e.EnVoice)
	d.speaker.Submit(utts...)
}

// StopAll halts the current utterance and drops everything queued.
func (d *Dispatcher) StopAll() {
	d.log.Debug("announce: stop all (%s)", d.boundary)
	d.speaker.StopAll(d.boundary)
}

// Boundary returns the stop boundary in use.
func (d *Dispatcher) Boundary() domain.Boundary { return d.boundary }
