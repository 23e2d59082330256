/*
NAME
  channel.go

DESCRIPTION
  channel.go derives the per-subcarrier channel estimate H[k] from a
  received CE symbol and the shared known reference spectrum, with
  optional linear interpolation across holes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package preamble

import (
	"github.com/pkg/errors"

	"github.com/ausocean/acoustic-modem/ofdm"
)

// MinKnownPower is the minimum |X_known[k]|^2 for subcarrier k to be
// used as a channel-estimation reference.
const MinKnownPower = 1e-10

// ErrChannelUnobservable is returned when too few in-band subcarriers
// yield a usable estimate, i.e. the CE symbol does not usefully
// constrain the channel.
var ErrChannelUnobservable = errors.New("preamble: channel unobservable")

// Estimate computes H[k] = Y[k]*conj(X_known[k]) / |X_known[k]|^2 for
// every in-band k with sufficient known power, given one CE symbol's
// worth of received time-domain samples (CP included) and the profile
// that describes the in-band range. Holes (subcarriers below
// MinKnownPower) are left at zero and then filled by linear
// interpolation across neighboring estimates, per §4.E.
func Estimate(ceSamples []float64, knownSpectrum []complex128, profile ofdm.Profile) ([]complex128, error) {
	if len(ceSamples) < profile.SymbolLen() {
		return nil, errors.New("preamble: ce sample slice too short")
	}
	body := ceSamples[profile.CPLen:profile.SymbolLen()]
	reY, imY, err := ofdm.RealFFT(body)
	if err != nil {
		return nil, errors.Wrap(err, "preamble: fft")
	}

	H := make([]complex128, profile.FFTSize)
	known := make([]bool, profile.FFTSize)
	observed := 0
	for k := profile.SubStart; k <= profile.SubEnd; k++ {
		xk := knownSpectrum[k]
		p := real(xk)*real(xk) + imag(xk)*imag(xk)
		if p <= MinKnownPower {
			continue
		}
		y := complex(reY[k], imY[k])
		H[k] = y * complex(real(xk), -imag(xk)) / complex(p, 0)
		known[k] = true
		observed++
	}

	total := profile.SubEnd - profile.SubStart + 1
	if observed == 0 || observed*4 < total {
		return nil, ErrChannelUnobservable
	}

	interpolateHoles(H, known, profile.SubStart, profile.SubEnd)
	return H, nil
}

// interpolateHoles fills H[k] for unknown k in [start,end] by linear
// interpolation between the nearest known neighbours on either side;
// an unknown run at either edge of the band is held flat at the
// nearest known value.
func interpolateHoles(H []complex128, known []bool, start, end int) {
	// Forward-fill leading holes.
	firstKnown := -1
	for k := start; k <= end; k++ {
		if known[k] {
			firstKnown = k
			break
		}
	}
	if firstKnown == -1 {
		return
	}
	for k := start; k < firstKnown; k++ {
		H[k] = H[firstKnown]
	}

	prev := firstKnown
	for k := prev + 1; k <= end; k++ {
		if known[k] {
			if k-prev > 1 {
				span := complex128(complex(float64(k-prev), 0))
				step := (H[k] - H[prev]) / span
				for j := prev + 1; j < k; j++ {
					H[j] = H[prev] + step*complex(float64(j-prev), 0)
				}
			}
			prev = k
		}
	}
	// Trailing holes after the last known subcarrier.
	for k := prev + 1; k <= end; k++ {
		H[k] = H[prev]
	}
}
