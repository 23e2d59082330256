/*
NAME
  config.go

DESCRIPTION
  config.go defines the modem's configuration surface -- the options
  enumerated in §6 -- and validates it, defaulting and logging bad
  fields the way a revid instance validates its own Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides the modem's configuration struct and
// validation, in the style of revid's config package.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Config provides the parameters relevant to one modem Session. A new
// Config must be passed to the constructor; Validate defaults any
// fields left unset.
type Config struct {
	// Modulation selects the OFDM profile, constellation, and bit
	// repetition factor, per §6's table.
	Modulation Modulation

	// ChunkThreshold is a file size in bytes, defaulted by Validate to
	// 32 KiB. Session.SendFile does not read it: the legacy/chunked
	// choice always uses the fixed sender.ChunkThreshold (also 32 KiB).
	ChunkThreshold int

	SampleRate int  // Samples a second (Hz), passed through to the audio device.
	Channels   uint // Number of audio channels asked of the audio device; samples are read and written as one interleaved stream.
	BitDepth   uint // Sample bit depth negotiated with the audio device.

	AudioTitle string // ALSA device title to match, or "" for the first suitable device.

	ACKTimeout time.Duration // ARQ acknowledgement timeout; not read by the Session's transport, which uses arq.ACKTimeout.
	Turnaround time.Duration // ARQ reply delay; not read by the Session's transport, which uses arq.Turnaround.
	MaxRetries int           // ARQ retransmission budget; not read by the Session's transport, which uses arq.MaxRetries.

	Suppress bool // Holds logger suppression state.
	Logger   logging.Logger
}

// Defaults mirrored from the modem packages' own constants, applied
// when a field is left at its zero value. SampleRate has no fixed
// default here -- it is taken from the resolved Modulation's OFDM
// profile, since every profile's symbol timing (CP boundaries, FFT
// windows, Schmidl-Cox correlation) is authored against its own rate
// and a mismatched device rate corrupts all of it.
const (
	defaultChunkThreshold = 32 * 1024
	defaultChannels       = 1
	defaultBitDepth       = 16
)

// Validate defaults any unset or invalid fields, logging each one, and
// reports the first fatal error -- an unrecognized Modulation, which
// has no sensible default.
func (c *Config) Validate() error {
	profile, _, err := c.Modulation.Resolve()
	if err != nil {
		return err
	}
	if c.ChunkThreshold <= 0 {
		c.logDefault("ChunkThreshold", defaultChunkThreshold)
		c.ChunkThreshold = defaultChunkThreshold
	}
	if c.SampleRate <= 0 {
		c.logDefault("SampleRate", profile.SampleRate)
		c.SampleRate = profile.SampleRate
	}
	if c.Channels == 0 {
		c.logDefault("Channels", defaultChannels)
		c.Channels = defaultChannels
	}
	if c.BitDepth == 0 {
		c.logDefault("BitDepth", defaultBitDepth)
		c.BitDepth = defaultBitDepth
	}
	if c.ACKTimeout <= 0 {
		c.logDefault("ACKTimeout", 500*time.Millisecond)
		c.ACKTimeout = 500 * time.Millisecond
	}
	if c.Turnaround <= 0 {
		c.logDefault("Turnaround", 50*time.Millisecond)
		c.Turnaround = 50 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.logDefault("MaxRetries", 3)
		c.MaxRetries = 3
	}
	return nil
}

func (c *Config) logDefault(name string, def interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Log(logging.Info, name+" bad or unset, defaulting", name, def)
}
