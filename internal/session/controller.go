// Package session ties the estimator, stabilizer and mapper together into a
// listening session and drives it from an audio source.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/0xlemi/notetrainer/internal/audio"
	"github.com/0xlemi/notetrainer/internal/instrument"
	"github.com/0xlemi/notetrainer/internal/music"
	"github.com/0xlemi/notetrainer/internal/observe"
	"github.com/0xlemi/notetrainer/internal/pitch"
	"github.com/0xlemi/notetrainer/internal/stabilizer"
)

var (
	ErrAlreadyListening = errors.New("session: already listening")
	ErrNotListening     = errors.New("session: not listening")
)

// State is the lifecycle state of a [Controller].
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config wires a [Controller] to its collaborators. Table and Estimator are
// required.
type Config struct {
	Table      *instrument.Table
	Estimator  pitch.Estimator
	Stabilizer stabilizer.Params

	// Display receives every changed result. May be nil.
	Display Display

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

// sessionState exists only while listening.
type sessionState struct {
	profile    instrument.Profile
	stabilizer *stabilizer.Stabilizer
	last       Result
	emitted    bool
	target     int
	hasTarget  bool
}

// Controller runs the detection cycle for one performer. All methods are safe
// for concurrent use; Process and Run are meant for a single audio goroutine.
type Controller struct {
	table     *instrument.Table
	estimator pitch.Estimator
	params    stabilizer.Params
	display   Display
	metrics   *observe.Metrics
	log       *slog.Logger

	mu    sync.Mutex
	state *sessionState
}

// New creates an idle controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Table == nil {
		return nil, errors.New("session: instrument table is required")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("session: estimator is required")
	}
	if err := cfg.Stabilizer.Validate(); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		table:     cfg.Table,
		estimator: cfg.Estimator,
		params:    cfg.Stabilizer,
		display:   cfg.Display,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return Idle
	}
	return Listening
}

// Start begins a session for the given instrument. An unknown instrument
// leaves the controller idle.
func (c *Controller) Start(instrumentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != nil {
		return ErrAlreadyListening
	}
	profile, err := c.table.Lookup(instrumentID)
	if err != nil {
		return fmt.Errorf("session: start: %w", err)
	}
	stab, err := stabilizer.New(c.params)
	if err != nil {
		return fmt.Errorf("session: start: %w", err)
	}

	c.state = &sessionState{profile: profile, stabilizer: stab}
	c.metrics.ActiveSessions.Add(context.Background(), 1)
	c.log.Info("session started", "instrument", profile.Name, "transposition", profile.Transposition)
	return nil
}

// Stop ends the session and discards its state. Stopping an idle controller
// is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return
	}
	c.state = nil
	c.metrics.ActiveSessions.Add(context.Background(), -1)
	c.log.Info("session stopped")
}

// SetInstrument switches the instrument profile and clears the pitch
// history. An unknown instrument keeps the current profile.
func (c *Controller) SetInstrument(instrumentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return ErrNotListening
	}
	profile, err := c.table.Lookup(instrumentID)
	if err != nil {
		return fmt.Errorf("session: set instrument: %w", err)
	}
	c.state.profile = profile
	c.state.stabilizer.Reset()
	c.log.Info("instrument changed", "instrument", profile.Name)
	return nil
}

// Instrument returns the profile of the running session.
func (c *Controller) Instrument() (instrument.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return instrument.Profile{}, false
	}
	return c.state.profile, true
}

// SetTarget sets the written MIDI note the performer should play.
func (c *Controller) SetTarget(writtenMidi int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return ErrNotListening
	}
	c.state.target = writtenMidi
	c.state.hasTarget = true
	c.log.Debug("target set", "target", music.NoteName(writtenMidi), "octave", music.OctaveOf(writtenMidi))
	return nil
}

// ClearTarget removes the practice target.
func (c *Controller) ClearTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != nil {
		c.state.target = 0
		c.state.hasTarget = false
	}
}

// Process runs one detection cycle on frame. It returns the cycle's result
// and whether it was delivered to the display. Idle controllers ignore
// frames.
func (c *Controller) Process(frame audio.Frame) (Result, bool) {
	ctx := context.Background()

	c.mu.Lock()
	st := c.state
	if st == nil {
		c.mu.Unlock()
		return Result{}, false
	}

	start := time.Now()
	est := c.estimator.Estimate(frame)
	c.metrics.RecordEstimate(ctx, time.Since(start), est.Confidence)

	res := Result{
		Instrument: st.profile.Name,
		Target:     st.target,
		HasTarget:  st.hasTarget,
	}
	freq, ok := st.stabilizer.Accept(est, st.profile)
	c.metrics.RecordFrame(ctx, frameOutcome(est, st.stabilizer.LastOutcome()))

	if ok {
		p := music.Map(freq, st.profile)
		res.Valid = true
		res.Pitch = p
		res.Frequency = freq
		res.Confidence = est.Confidence
		res.Cents = p.CentsOff
		res.Matched = st.hasTarget && p.WrittenMidi == st.target
	}

	emit := !st.emitted || !res.sameAs(st.last)
	if emit {
		st.last = res
		st.emitted = true
	}
	c.mu.Unlock()

	if !emit {
		return res, false
	}
	c.metrics.RecordEmission(ctx, res.Valid)
	if res.Valid {
		c.log.Debug("note",
			"note", res.Pitch.String(),
			"written_midi", res.Pitch.WrittenMidi,
			"frequency", res.Frequency,
			"cents", res.Cents,
			"matched", res.Matched,
		)
	}
	if c.display != nil {
		c.display.Show(res)
	}
	return res, true
}

func frameOutcome(est pitch.Estimate, o stabilizer.Outcome) string {
	if !est.Voiced() {
		return observe.OutcomeSilent
	}
	switch o {
	case stabilizer.Stable:
		return observe.OutcomeStable
	case stabilizer.Pending, stabilizer.Inconsistent:
		return observe.OutcomePending
	}
	return observe.OutcomeRejected
}

// Run pulls frames from src and processes them until ctx is done, the
// controller is stopped or a finite source is exhausted. A tick of zero reads
// frames back to back. src is started if it is not capturing yet and stopped
// again on return.
func (c *Controller) Run(ctx context.Context, src audio.Capturer, tick time.Duration) error {
	if c.State() != Listening {
		return ErrNotListening
	}

	if !src.IsCapturing() {
		if err := src.Start(); err != nil {
			return fmt.Errorf("session: start source: %w", sourceError(err))
		}
		defer func() {
			if err := src.Stop(); err != nil {
				c.log.Warn("failed to stop audio source", "err", err)
			}
		}()
	}

	var ticks <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		if ticks != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticks:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if c.State() != Listening {
			return nil
		}

		frame, err := src.ReadFrame()
		switch {
		case err == nil:
		case errors.Is(err, audio.ErrFrameNotReady):
			continue
		case errors.Is(err, io.EOF):
			c.log.Debug("audio source exhausted")
			return nil
		default:
			return fmt.Errorf("session: read frame: %w", sourceError(err))
		}

		c.Process(frame)
	}
}

func sourceError(err error) error {
	if errors.Is(err, audio.ErrSourceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", audio.ErrSourceUnavailable, err)
}
