// Package midiout echoes detected notes to a MIDI output port.
package midiout

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xlemi/notetrainer/internal/session"
	"gitlab.com/gomidi/midi/v2"
)

const noKey = -1

// Sink is a [session.Display] that holds a MIDI note for as long as a stable
// pitch is detected. It sends concert pitch so a connected synth sounds what
// the performer played.
type Sink struct {
	mu       sync.Mutex
	send     func(midi.Message) error
	channel  uint8
	velocity uint8
	key      int
	log      *slog.Logger
}

// NewSink creates a sink writing messages through send.
func NewSink(send func(midi.Message) error, channel, velocity uint8, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		send:     send,
		channel:  channel,
		velocity: velocity,
		key:      noKey,
		log:      logger,
	}
}

// Open connects a sink to the output port matching name. A MIDI driver must
// be registered by the caller.
func Open(name string, channel, velocity uint8, logger *slog.Logger) (*Sink, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("midiout: find port %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midiout: open port %q: %w", name, err)
	}
	return NewSink(send, channel, velocity, logger), nil
}

// Ports lists the names of the available output ports.
func Ports() []string {
	var names []string
	for _, p := range midi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// Show updates the sounding note to match r.
func (s *Sink) Show(r session.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := noKey
	if r.Valid && r.Pitch.ConcertMidi >= 0 && r.Pitch.ConcertMidi <= 127 {
		key = r.Pitch.ConcertMidi
	}
	if key == s.key {
		return
	}

	s.release()
	if key != noKey {
		if err := s.send(midi.NoteOn(s.channel, uint8(key), s.velocity)); err != nil {
			s.log.Warn("midi note on failed", "key", key, "err", err)
			return
		}
		s.key = key
	}
}

// Close releases the sounding note, if any.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
	return nil
}

// release must be called with s.mu held.
func (s *Sink) release() {
	if s.key == noKey {
		return
	}
	if err := s.send(midi.NoteOff(s.channel, uint8(s.key))); err != nil {
		s.log.Warn("midi note off failed", "key", s.key, "err", err)
	}
	s.key = noKey
}
