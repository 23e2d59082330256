/*
NAME
  detector.go

DESCRIPTION
  detector.go implements the coarse auto-correlation and fine
  cross-correlation preamble detectors of §4.E: an O(n) sliding-window
  auto-correlation against P1's two-half symmetry, and a bounded
  cross-correlation refinement against the known P1 waveform.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package preamble

import "math"

// AutoCorrState is the incrementally-updatable running state of the
// coarse auto-correlation detector, anchored at a given start index d
// over a half-symbol window of length half.
type AutoCorrState struct {
	half    int
	p       float64 // sum s[d+m] * s[d+m+half]
	ra      float64 // sum s[d+m]^2
	rb      float64 // sum s[d+m+half]^2
}

// NewAutoCorrState initializes the running sums for a window starting
// at d in s, covering [d, d+2*half).
func NewAutoCorrState(s []float64, d, half int) AutoCorrState {
	var st AutoCorrState
	st.half = half
	for m := 0; m < half; m++ {
		a := s[d+m]
		b := s[d+m+half]
		st.p += a * b
		st.ra += a * a
		st.rb += b * b
	}
	return st
}

// Metric returns M(d) = P(d)^2 / (Ra(d)*Rb(d)), clamped to [0,1]; it is
// 0 when the denominator is non-positive (degenerate, e.g. silence).
func (st AutoCorrState) Metric() float64 {
	denom := st.ra * st.rb
	if denom <= 0 {
		return 0
	}
	m := (st.p * st.p) / denom
	if m > 1 {
		return 1
	}
	if m < 0 {
		return 0
	}
	return m
}

// Slide advances the window by one sample: s was previously anchored at
// d, and is now anchored at d+1. outgoing is s[d] (leaving window A),
// incoming is s[d+2*half] (entering window B). The caller supplies the
// four sample values touched by the shift.
func (st *AutoCorrState) Slide(outA, inA, outB, inB float64) {
	st.p += -outA*outB + inA*inB
	st.ra += inA*inA - outA*outA
	st.rb += inB*inB - outB*outB
}

// DetectThreshold is the coarse auto-correlation acceptance threshold
// from §4.E; the fine detector uses CrossCorrFineThreshold instead.
const DetectThreshold = 0.5

// ScanAutoCorrelation runs the coarse detector densely over every
// candidate start in s (used for short, already-buffered signals, e.g.
// in tests); streaming callers should use AutoCorrState directly and
// slide incrementally. half is FFTSize/2. Returns the best start index
// and its metric; ok is true only if the metric exceeds DetectThreshold.
func ScanAutoCorrelation(s []float64, half int) (pos int, metric float64, ok bool) {
	if len(s) < 2*half {
		return 0, 0, false
	}
	best := -1
	bestM := 0.0
	st := NewAutoCorrState(s, 0, half)
	for d := 0; ; d++ {
		m := st.Metric()
		if m > bestM {
			bestM = m
			best = d
		}
		next := d + 1
		if next+2*half > len(s) {
			break
		}
		st.Slide(s[d], s[d+half], s[d+half], s[d+2*half])
	}
	return best, bestM, bestM > DetectThreshold
}

// CrossCorrFineThreshold is the acceptance threshold when the fine
// cross-correlation detector runs as a refinement of a coarse estimate.
const CrossCorrFineThreshold = 0.1

// CrossCorrStandaloneThreshold is the (higher) acceptance threshold
// when the cross-correlation detector is run standalone, without a
// prior coarse estimate.
const CrossCorrStandaloneThreshold = 0.15

// CrossCorrelate runs the fine cross-correlation detector against ref
// (P1's time-domain samples) within s, searching candidate starts in
// [center-radius, center+radius]. It returns the argmax start and its
// normalized correlation r(d).
func CrossCorrelate(s []float64, ref []float64, center, radius int) (pos int, score float64) {
	n := len(ref)
	var et float64
	for _, v := range ref {
		et += v * v
	}

	lo := center - radius
	if lo < 0 {
		lo = 0
	}
	hi := center + radius
	best := lo
	bestScore := -1.0
	for d := lo; d <= hi; d++ {
		if d+n > len(s) {
			break
		}
		var cross, energy float64
		for i := 0; i < n; i++ {
			v := s[d+i]
			cross += v * ref[i]
			energy += v * v
		}
		denom := et * energy
		if denom <= 0 {
			continue
		}
		r := cross / math.Sqrt(denom)
		if r > bestScore {
			bestScore = r
			best = d
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, bestScore
}
