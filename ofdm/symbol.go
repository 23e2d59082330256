/*
NAME
  symbol.go

DESCRIPTION
  symbol.go implements the per-symbol OFDM codec: bits to one
  cyclic-prefixed time-domain symbol on encode, and the inverse
  (equalize, pilot phase-correct, demap) on decode.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ofdm

import (
	"math"

	"github.com/pkg/errors"
)

// minH2 is the minimum |H[k]|^2 below which equalization is skipped and
// the received coefficient is passed through unchanged (§4.D step 3).
const minH2 = 1e-10

// minRe is the minimum |Re(X)| below which a pilot's phase contribution
// is ignored by the small-angle phase estimator (§4.D step 4).
const minRe = 1e-6

// headroomTarget is the post-IFFT scale target, leaving peak headroom.
const headroomTarget = 0.8

// minPeak is the peak below which no headroom scaling is applied.
const minPeak = 1e-10

// ErrShortSlice is returned when a sample slice is shorter than one
// profile symbol.
var ErrShortSlice = errors.New("ofdm: sample slice shorter than one symbol")

// EncodeSymbol packs up to BitsPerOFDM(profile, c) bits into one
// cyclic-prefixed time-domain OFDM symbol, per §4.D encode steps 1-6.
func EncodeSymbol(bits []int, profile Profile, c Constellation) ([]float64, error) {
	bps := c.BitsPerSymbol()
	need := profile.BitsPerOFDM(c)
	if len(bits) > need {
		return nil, errors.Errorf("ofdm: too many bits for one symbol: got %d, max %d", len(bits), need)
	}

	re := make([]float64, profile.FFTSize)
	im := make([]float64, profile.FFTSize)

	bitPos := 0
	for k := profile.SubStart; k <= profile.SubEnd; k++ {
		if profile.isPilot(k) {
			re[k] = 1
			im[k] = 0
			continue
		}
		var group []int
		if bitPos+bps <= len(bits) {
			group = bits[bitPos : bitPos+bps]
		} else {
			group = make([]int, bps)
			copy(group, bits[bitPos:])
		}
		bitPos += bps
		p, err := c.Map(group)
		if err != nil {
			return nil, errors.Wrap(err, "ofdm: map data subcarrier")
		}
		re[k] = real(p)
		im[k] = imag(p)
	}

	ImposeHermitianSymmetry(re, im)

	td, err := RealIFFT(re, im)
	if err != nil {
		return nil, errors.Wrap(err, "ofdm: ifft")
	}

	out := CyclicPrefix(td, profile.CPLen)
	ScaleToHeadroom(out)
	return out, nil
}

// CyclicPrefix prepends the last cpLen samples of td to itself.
func CyclicPrefix(td []float64, cpLen int) []float64 {
	out := make([]float64, cpLen+len(td))
	copy(out[:cpLen], td[len(td)-cpLen:])
	copy(out[cpLen:], td)
	return out
}

// ImposeHermitianSymmetry mirrors S[k] onto S[N-k] for 1<=k<N/2, and
// forces S[0] and Im(S[N/2]) to zero, so the inverse FFT is real.
func ImposeHermitianSymmetry(re, im []float64) {
	n := len(re)
	for k := 1; k < n/2; k++ {
		re[n-k] = re[k]
		im[n-k] = -im[k]
	}
	re[0] = 0
	im[0] = 0
	im[n/2] = 0
}

// ScaleToHeadroom scales samples in place to peak headroomTarget unless
// the peak is negligible, in which case it is left untouched.
func ScaleToHeadroom(samples []float64) {
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

// DecodeSymbol inverts EncodeSymbol: strips the cyclic prefix, runs a
// real FFT, zero-forcing equalizes against H, small-angle pilot phase
// corrects, then demaps every in-band data subcarrier in ascending
// order. H may be nil, meaning no channel estimate is available yet --
// equalization is then a no-op (every |H[k]|^2 treated as below
// tolerance).
func DecodeSymbol(samples []float64, profile Profile, c Constellation, H []complex128) ([]int, error) {
	if len(samples) < profile.SymbolLen() {
		return nil, ErrShortSlice
	}
	body := samples[profile.CPLen:profile.SymbolLen()]

	reY, imY, err := RealFFT(body)
	if err != nil {
		return nil, errors.Wrap(err, "ofdm: fft")
	}

	xRe := make([]float64, profile.FFTSize)
	xIm := make([]float64, profile.FFTSize)
	for k := 0; k < profile.FFTSize; k++ {
		yr, yi := reY[k], imY[k]
		if H == nil {
			xRe[k], xIm[k] = yr, yi
			continue
		}
		h := H[k]
		h2 := real(h)*real(h) + imag(h)*imag(h)
		if h2 <= minH2 {
			xRe[k], xIm[k] = yr, yi
			continue
		}
		// X_hat = Y * conj(H) / |H|^2
		hConjRe, hConjIm := real(h), -imag(h)
		nr := yr*hConjRe - yi*hConjIm
		ni := yr*hConjIm + yi*hConjRe
		xRe[k] = nr / h2
		xIm[k] = ni / h2
	}

	theta := estimatePhase(xRe, xIm, profile)

	bits := make([]int, 0, profile.DataSubs()*c.BitsPerSymbol())
	for k := profile.SubStart; k <= profile.SubEnd; k++ {
		if profile.isPilot(k) {
			continue
		}
		re, im := xRe[k], xIm[k]
		rotRe := re + theta*im
		rotIm := im - theta*re
		bits = append(bits, c.Demap(complex(rotRe, rotIm))...)
	}
	return bits, nil
}

// estimatePhase computes the small-angle residual phase estimate
// theta = mean_{p in pilots} Im(X_hat[p]) / Re(X_hat[p]), ignoring
// pilots whose |Re| is below minRe.
func estimatePhase(xRe, xIm []float64, profile Profile) float64 {
	var sum float64
	var n int
	for _, p := range profile.Pilots {
		re := xRe[p]
		if math.Abs(re) < minRe {
			continue
		}
		sum += xIm[p] / re
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
