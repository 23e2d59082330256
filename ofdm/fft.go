/*
NAME
  fft.go

DESCRIPTION
  fft.go provides the forward/inverse FFT over separate real and
  imaginary float64 slices, and the real-input convenience wrappers
  used by the OFDM symbol codec, built on top of go-dsp/fft the way
  codec/pcm/filters.go's fastConvolve computes its forward and inverse
  transforms around fft.FFTReal/fft.IFFT.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ofdm implements the OFDM waveform layer: FFT, the QAM/PSK
// constellation, named profiles, and the per-symbol encode/decode
// pipeline used by the frame and chunk protocols.
package ofdm

import (
	dspfft "github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
)

// ErrBadLength is returned by FFT/IFFT when the input length is zero or
// not a power of two.
var ErrBadLength = errors.New("ofdm: length must be a non-zero power of two")

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// FFT computes the in-place forward discrete Fourier transform of the
// equal-length real and imag slices, via go-dsp/fft.FFT.
func FFT(re, im []float64) error {
	return transform(re, im, false)
}

// IFFT computes the in-place inverse transform, via go-dsp/fft.IFFT,
// which normalizes by N as required by the usual convention.
func IFFT(re, im []float64) error {
	return transform(re, im, true)
}

// RealFFT returns the forward transform of a real-valued signal, i.e.
// FFT(x, zeros(len(x))), via go-dsp/fft.FFTReal -- the same entry point
// codec/pcm/filters.go's fastConvolve uses to transform a PCM sample
// buffer.
func RealFFT(x []float64) (re, im []float64, err error) {
	n := len(x)
	if !isPow2(n) {
		return nil, nil, ErrBadLength
	}
	spectrum := dspfft.FFTReal(x)
	return splitComplex(spectrum), splitImag(spectrum), nil
}

// RealIFFT runs the inverse transform on the given spectrum and discards
// the (theoretically negligible) imaginary remainder, returning the real
// time-domain signal.
func RealIFFT(re, im []float64) ([]float64, error) {
	n := len(re)
	if n == 0 || len(im) != n || !isPow2(n) {
		return nil, ErrBadLength
	}
	td := dspfft.IFFT(mergeComplex(re, im))
	out := make([]float64, n)
	for i, c := range td {
		out[i] = real(c)
	}
	return out, nil
}

// transform is the shared forward/inverse path for FFT/IFFT, converting
// to and from go-dsp/fft's []complex128 representation.
func transform(re, im []float64, inverse bool) error {
	n := len(re)
	if n == 0 || len(im) != n || !isPow2(n) {
		return ErrBadLength
	}
	in := mergeComplex(re, im)
	var out []complex128
	if inverse {
		out = dspfft.IFFT(in)
	} else {
		out = dspfft.FFT(in)
	}
	for i, c := range out {
		re[i] = real(c)
		im[i] = imag(c)
	}
	return nil
}

func mergeComplex(re, im []float64) []complex128 {
	out := make([]complex128, len(re))
	for i := range re {
		out[i] = complex(re[i], im[i])
	}
	return out
}

func splitComplex(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

func splitImag(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = imag(v)
	}
	return out
}
