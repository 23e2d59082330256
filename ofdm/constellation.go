/*
NAME
  constellation.go

DESCRIPTION
  constellation.go builds Gray-coded, unit-average-power QAM/PSK
  constellations and provides nearest-neighbour map/demap.

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
	"math/cmplx"

	"github.com/pkg/errors"
)

// Kind identifies a constellation shape.
type Kind int

// Supported constellation kinds, named by bits-per-symbol.
const (
	BPSK  Kind = 1
	QPSK  Kind = 2
	QAM16 Kind = 4
	QAM64 Kind = 6
)

// ErrBadBits is returned when Map is given the wrong number of bits.
var ErrBadBits = errors.New("ofdm: wrong number of bits for constellation")

// Constellation is a fixed, Gray-coded, unit-average-power point set.
// Points[i] is the symbol for the bit pattern whose MSB-first binary
// value equals i.
type Constellation struct {
	kind   Kind
	Points []complex128
}

// BitsPerSymbol returns the number of bits mapped by one constellation
// point.
func (c Constellation) BitsPerSymbol() int { return int(c.kind) }

// NewConstellation builds the constellation for the given kind.
func NewConstellation(k Kind) Constellation {
	var pts []complex128
	switch k {
	case BPSK:
		pts = []complex128{-1, 1}
	case QPSK:
		pts = qamLattice(2)
	case QAM16:
		pts = qamLattice(4)
	case QAM64:
		pts = qamLattice(8)
	default:
		pts = qamLattice(2)
	}
	normalize(pts)
	return Constellation{kind: k, Points: pts}
}

// gray returns the Gray code of x.
func gray(x int) int { return x ^ (x >> 1) }

// qamLattice builds the raw (unnormalized) square QAM lattice of the
// given side order (order = sqrt(constellation size)), Gray-coded on
// both row and column so point index i (MSB-first bits) is the i'th
// entry of the row-major (row, col) scan.
func qamLattice(order int) []complex128 {
	pts := make([]complex128, 0, order*order)
	for row := 0; row < order; row++ {
		for col := 0; col < order; col++ {
			i := 2*gray(col) - order + 1
			q := 2*gray(row) - order + 1
			pts = append(pts, complex(float64(i), float64(q)))
		}
	}
	return pts
}

// normalize rescales pts in place so the mean of |p|^2 equals 1.
func normalize(pts []complex128) {
	var sum float64
	for _, p := range pts {
		sum += real(p)*real(p) + imag(p)*imag(p)
	}
	if len(pts) == 0 || sum == 0 {
		return
	}
	mean := sum / float64(len(pts))
	scale := 1 / math.Sqrt(mean)
	for i := range pts {
		pts[i] *= complex(scale, 0)
	}
}

// Map interprets bits (length BitsPerSymbol, MSB first) as an index and
// returns the corresponding constellation point.
func (c Constellation) Map(bits []int) (complex128, error) {
	if len(bits) != c.BitsPerSymbol() {
		return 0, ErrBadBits
	}
	idx := 0
	for _, b := range bits {
		idx = idx<<1 | (b & 1)
	}
	if idx < 0 || idx >= len(c.Points) {
		return 0, ErrBadBits
	}
	return c.Points[idx], nil
}

// Demap finds the nearest constellation point to x by squared Euclidean
// distance (ties resolved to the lowest index) and returns its index as
// MSB-first bits.
func (c Constellation) Demap(x complex128) []int {
	best := 0
	bestDist := math.Inf(1)
	for i, p := range c.Points {
		d := cmplx.Abs(x - p)
		d *= d
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	bits := make([]int, c.BitsPerSymbol())
	for i := len(bits) - 1; i >= 0; i-- {
		bits[i] = best & 1
		best >>= 1
	}
	return bits
}
