/*
NAME
  preamble.go

DESCRIPTION
  preamble.go generates the three deterministic Schmidl-Cox training
  symbols (P1, P2, CE) from a seeded linear-congruential bitstream, and
  builds the known frequency-domain reference used by channel
  estimation. Reproducibility of this generator across independent
  implementations is normative (§4.E, §8 property 3).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package preamble implements Schmidl-Cox preamble generation,
// auto/cross-correlation frame detection, and channel estimation.
package preamble

import "github.com/ausocean/acoustic-modem/ofdm"

// Seeds for the three training symbols. Normative: both endpoints of a
// link must use these exact seeds for the waveforms to match.
const (
	SeedP1 = 42
	SeedP2 = 43
	SeedCE = 44
)

// lcg is the deterministic bitstream generator specified by §4.E:
// s <- (s*1103515245 + 12345) mod 2^31, bit = 1 if s/2^31 > 0.5 else 0.
type lcg struct{ s uint64 }

func newLCG(seed int64) *lcg { return &lcg{s: uint64(seed)} }

const lcgMod = 1 << 31

func (g *lcg) nextBit() int {
	g.s = (g.s*1103515245 + 12345) % lcgMod
	if float64(g.s)/float64(lcgMod) > 0.5 {
		return 1
	}
	return 0
}

// Symbol is one generated training symbol: its time-domain samples
// (through IFFT + cyclic prefix + peak normalization) and the
// frequency-domain reference spectrum that produced it, indexed by
// subcarrier.
type Symbol struct {
	Samples  []float64
	Spectrum []complex128 // length profile.FFTSize
}

// BuildP1 generates the seed-42 training symbol: +-1 on even in-band
// subcarriers only. Its time domain has two identical halves of length
// FFTSize/2, which is what makes auto-correlation detection work.
func BuildP1(profile ofdm.Profile) Symbol {
	return build(profile, SeedP1, true)
}

// BuildP2 generates the seed-43 training symbol: +-1 on every in-band
// subcarrier, used to stabilize fine alignment.
func BuildP2(profile ofdm.Profile) Symbol {
	return build(profile, SeedP2, false)
}

// BuildCE generates the seed-44 channel-estimation symbol: +-1 on every
// in-band subcarrier. The returned Spectrum is X_known, shared by
// transmitter and receiver for channel estimation.
func BuildCE(profile ofdm.Profile) Symbol {
	return build(profile, SeedCE, false)
}

func build(profile ofdm.Profile, seed int64, evenOnly bool) Symbol {
	re := make([]float64, profile.FFTSize)
	im := make([]float64, profile.FFTSize)
	g := newLCG(seed)

	for k := profile.SubStart; k <= profile.SubEnd; k++ {
		if evenOnly && k%2 != 0 {
			continue
		}
		v := 1.0
		if g.nextBit() == 0 {
			v = -1.0
		}
		re[k] = v
	}

	spectrum := make([]complex128, profile.FFTSize)
	for k := range re {
		spectrum[k] = complex(re[k], im[k])
	}

	ofdm.ImposeHermitianSymmetry(re, im)
	td, err := ofdm.RealIFFT(re, im)
	if err != nil {
		// RealIFFT fails only for a zero or non-power-of-two length;
		// every built-in profile uses a power-of-two FFTSize.
		panic(err)
	}
	samples := ofdm.CyclicPrefix(td, profile.CPLen)
	ofdm.ScaleToHeadroom(samples)

	return Symbol{Samples: samples, Spectrum: spectrum}
}
