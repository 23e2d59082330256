/*
NAME
  modulation.go

DESCRIPTION
  modulation.go maps the five configuration-level modulation options of
  §6 onto an OFDM profile, constellation kind, and bit-repetition
  factor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"github.com/ausocean/acoustic-modem/ofdm"
)

// Modulation is a configuration-level choice of profile, constellation,
// and repetition factor, per §6's table.
type Modulation int

// The five supported modulation options.
const (
	QPSK Modulation = iota
	QAM16
	BPSKAcoustic
	BPSKRepeat
	BPSKNarrow
)

func (m Modulation) String() string {
	switch m {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16-QAM"
	case BPSKAcoustic:
		return "BPSK-ACOUSTIC"
	case BPSKRepeat:
		return "BPSK-REPEAT"
	case BPSKNarrow:
		return "BPSK-NARROW"
	default:
		return "unknown"
	}
}

// ProfileName returns the OFDM profile this modulation uses.
func (m Modulation) ProfileName() ofdm.ProfileName {
	switch m {
	case QPSK, QAM16:
		return ofdm.Standard
	case BPSKAcoustic, BPSKRepeat:
		return ofdm.Acoustic
	case BPSKNarrow:
		return ofdm.Narrowband
	default:
		return ofdm.Standard
	}
}

// ConstellationKind returns the constellation kind this modulation uses.
func (m Modulation) ConstellationKind() ofdm.Kind {
	switch m {
	case QPSK:
		return ofdm.QPSK
	case QAM16:
		return ofdm.QAM16
	default:
		return ofdm.BPSK
	}
}

// Repetition returns the bit-repetition factor this modulation uses.
func (m Modulation) Repetition() int {
	switch m {
	case BPSKRepeat:
		return 3
	case BPSKNarrow:
		return 3
	default:
		return 1
	}
}

// ChunkSize returns the large-file chunk size (bytes) this modulation's
// constellation uses, per §4.J: QAM16=4096, QPSK=2048, BPSK*=512.
func (m Modulation) ChunkSize() int {
	switch m.ConstellationKind() {
	case ofdm.QAM16:
		return 4096
	case ofdm.QPSK:
		return 2048
	default:
		return 512
	}
}

// Resolve builds the concrete Profile and Constellation for this
// modulation.
func (m Modulation) Resolve() (ofdm.Profile, ofdm.Constellation, error) {
	p, err := ofdm.ProfileByName(m.ProfileName())
	if err != nil {
		return ofdm.Profile{}, ofdm.Constellation{}, err
	}
	return p, ofdm.NewConstellation(m.ConstellationKind()), nil
}
