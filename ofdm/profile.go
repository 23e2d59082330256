/*
NAME
  profile.go

DESCRIPTION
  profile.go defines the three named OFDM parameter sets (standard,
  acoustic, narrowband) and the derived subcarrier bookkeeping used by
  the symbol codec.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ofdm

import "github.com/pkg/errors"

// ProfileName identifies one of the three compile-time-constant
// parameter sets.
type ProfileName string

// The three supported profiles.
const (
	Standard   ProfileName = "standard"
	Acoustic   ProfileName = "acoustic"
	Narrowband ProfileName = "narrowband"
)

// Profile is an immutable, named OFDM parameter set, passed by value --
// it is never behaviorally subtyped, per the session-scoped "pass it
// explicitly, never globally" design note.
type Profile struct {
	Name       ProfileName
	FFTSize    int
	CPLen      int
	SampleRate int
	SubStart   int
	SubEnd     int // inclusive
	Pilots     []int
}

// SymbolLen is FFTSize + CPLen, the length in samples of one OFDM
// symbol including its cyclic prefix.
func (p Profile) SymbolLen() int { return p.FFTSize + p.CPLen }

// IsAcoustic reports whether this profile's CP length marks it as an
// "acoustic" (long channel delay spread) profile, per §3: CPLen >= 128
// widens silence padding and lowers throughput budgeting.
func (p Profile) IsAcoustic() bool { return p.CPLen >= 128 }

// isPilot reports whether subcarrier k is a pilot under this profile.
func (p Profile) isPilot(k int) bool {
	for _, pk := range p.Pilots {
		if pk == k {
			return true
		}
	}
	return false
}

// DataSubs returns the number of non-pilot in-band subcarriers.
func (p Profile) DataSubs() int {
	n := 0
	for k := p.SubStart; k <= p.SubEnd; k++ {
		if !p.isPilot(k) {
			n++
		}
	}
	return n
}

// BitsPerOFDM returns the number of payload bits carried by one OFDM
// symbol under the given constellation.
func (p Profile) BitsPerOFDM(c Constellation) int {
	return p.DataSubs() * c.BitsPerSymbol()
}

func pilotSet(start, end, step int) []int {
	var out []int
	for k := start; k <= end; k += step {
		out = append(out, k)
	}
	return out
}

// StandardProfile is the wide-band, short cyclic-prefix profile.
func StandardProfile() Profile {
	return Profile{
		Name:       Standard,
		FFTSize:    512,
		CPLen:      32,
		SampleRate: 44100,
		SubStart:   16,
		SubEnd:     200,
		Pilots:     pilotSet(16, 200, 8),
	}
}

// AcousticProfile is the narrower, long cyclic-prefix profile whose
// CPLen >= 128 marks it "acoustic" for silence-padding purposes.
func AcousticProfile() Profile {
	return Profile{
		Name:       Acoustic,
		FFTSize:    512,
		CPLen:      128,
		SampleRate: 44100,
		SubStart:   24,
		SubEnd:     120,
		Pilots:     pilotSet(24, 120, 8),
	}
}

// NarrowbandProfile is the narrowest band, longest cyclic-prefix
// profile, used with heavy repetition coding over noisy acoustic paths.
func NarrowbandProfile() Profile {
	return Profile{
		Name:       Narrowband,
		FFTSize:    512,
		CPLen:      160,
		SampleRate: 44100,
		SubStart:   32,
		SubEnd:     80,
		Pilots:     pilotSet(32, 80, 8),
	}
}

// ErrUnknownProfile is returned by ProfileByName for an unrecognised name.
var ErrUnknownProfile = errors.New("ofdm: unknown profile name")

// ProfileByName resolves a profile by its name, the "set_profile"
// session-scoped switch described in §4.C.
func ProfileByName(name ProfileName) (Profile, error) {
	switch name {
	case Standard:
		return StandardProfile(), nil
	case Acoustic:
		return AcousticProfile(), nil
	case Narrowband:
		return NarrowbandProfile(), nil
	default:
		return Profile{}, ErrUnknownProfile
	}
}
