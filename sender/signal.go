/*
NAME
  signal.go

DESCRIPTION
  signal.go implements the transmit signal builder of §4.K: silence
  padding, concatenation of preamble + CE + data symbols, and a single
  uniform peak-normalization pass over the whole buffer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sender implements the sender pipeline (§4.J): chunking a file
// into metadata/data-chunk OFDM waveforms (or one legacy waveform for
// small files), and the shared transmit signal builder (§4.K).
package sender

import (
	"math"
	"time"

	"github.com/ausocean/acoustic-modem/ofdm"
	"github.com/ausocean/acoustic-modem/ofdm/preamble"
)

// Silence durations from §4.J.
const (
	LeadingSilenceAcoustic = 500 * time.Millisecond
	LeadingSilenceDefault  = 300 * time.Millisecond
	LeadingSilenceRepeat   = 50 * time.Millisecond
	TrailingSilence        = 20 * time.Millisecond
)

// headroomTarget is the peak amplitude the whole transmit buffer is
// normalized to, per §6.
const headroomTarget = 0.8

// minPeak below which normalization is skipped (degenerate silence-only
// buffer).
const minPeak = 1e-10

// LeadingSilence returns the leading silence duration for the first
// frame of a burst: the long acoustic-profile duration if the profile
// is "acoustic" (CPLen >= 128), the short default otherwise.
func LeadingSilence(profile ofdm.Profile) time.Duration {
	if profile.IsAcoustic() {
		return LeadingSilenceAcoustic
	}
	return LeadingSilenceDefault
}

// silence returns n samples of silence for d at the given sample rate.
func silence(d time.Duration, sampleRate int) []float64 {
	n := int(d.Seconds() * float64(sampleRate))
	if n < 0 {
		n = 0
	}
	return make([]float64, n)
}

// BuildFrame assembles one OFDM burst: leading silence, P1, P2, CE, the
// data symbols in order, and trailing silence, then performs the single
// uniform peak normalization of §4.K. leading is LeadingSilenceDefault/
// LeadingSilenceAcoustic for the first frame of a burst, or
// LeadingSilenceRepeat for subsequent frames.
func BuildFrame(profile ofdm.Profile, p1, p2, ce preamble.Symbol, dataSymbols [][]float64, leading time.Duration) []float64 {
	lead := silence(leading, profile.SampleRate)
	trail := silence(TrailingSilence, profile.SampleRate)

	total := len(lead) + len(p1.Samples) + len(p2.Samples) + len(ce.Samples) + len(trail)
	for _, s := range dataSymbols {
		total += len(s)
	}

	out := make([]float64, 0, total)
	out = append(out, lead...)
	out = append(out, p1.Samples...)
	out = append(out, p2.Samples...)
	out = append(out, ce.Samples...)
	for _, s := range dataSymbols {
		out = append(out, s...)
	}
	out = append(out, trail...)

	normalizeUniform(out)
	return out
}

// normalizeUniform scales the whole buffer, in one pass, so its peak is
// headroomTarget. It must never be applied per-symbol after this point
// -- the CE and data symbols share this one scale so that channel
// estimation on the receiving end remains valid.
func normalizeUniform(samples []float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < minPeak {
		return
	}
	scale := headroomTarget / peak
	for i := range samples {
		samples[i] *= scale
	}
}
