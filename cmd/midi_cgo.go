//go:build cgo

package main

// Registers the rtmidi driver used by midiout.Open.
import _ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
