/*
NAME
  legacy.go

DESCRIPTION
  legacy.go implements the single-shot decode path of §6
  ("decode_received_signal"): given a whole captured buffer rather than
  a live stream, find the preamble by standalone cross-correlation,
  then demodulate exactly one frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package receiver

import (
	"github.com/pkg/errors"

	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/ofdm"
	"github.com/ausocean/acoustic-modem/ofdm/preamble"
)

// ErrPreambleNotFound is returned by Decode when no candidate preamble
// clears the standalone cross-correlation threshold.
var ErrPreambleNotFound = errors.New("receiver: no preamble found in buffer")

// Result is the outcome of a single-shot legacy decode.
type Result struct {
	Name     string
	Data     []byte
	CRCValid bool
}

// Decode implements the legacy single-shot path: samples is a whole
// captured buffer (not a live stream) expected to contain one frame.
// It scans for the preamble by standalone cross-correlation (the 0.15
// fallback threshold of §4.I), estimates the channel from the CE
// symbol, demodulates every following data symbol, reverses repetition
// coding, and parses the resulting payload as a legacy packet.
func Decode(samples []float64, params Params) (Result, error) {
	payload, err := DecodePayload(samples, params)
	if err != nil {
		return Result{}, err
	}
	lp, err := chunk.DecodeLegacy(payload)
	if err != nil {
		return Result{}, errors.Wrap(err, "receiver: decode legacy packet")
	}
	return Result{Name: lp.Name, Data: lp.Data, CRCValid: lp.CRCValid}, nil
}

// DecodePayload recovers the raw demodulated payload of a single frame
// from a whole captured buffer, without interpreting its tag byte --
// the shared core of the legacy-packet path and the ARQ control-plane
// bridge, both of which locate a frame by standalone cross-correlation
// rather than the streaming receiver's coarse/fine two-stage scan.
func DecodePayload(samples []float64, params Params) ([]byte, error) {
	p1 := preamble.BuildP1(params.Profile)
	ce := preamble.BuildCE(params.Profile)
	symLen := params.Profile.SymbolLen()

	pos, score := preamble.CrossCorrelate(samples, p1.Samples, len(samples)/2, len(samples)/2)
	if score < preamble.CrossCorrStandaloneThreshold {
		return nil, ErrPreambleNotFound
	}

	frameStart := pos
	ceStart := frameStart + 2*symLen
	dataStart := frameStart + 3*symLen
	if ceStart+symLen > len(samples) || dataStart > len(samples) {
		return nil, errors.New("receiver: buffer too short for CE symbol after preamble")
	}

	slice := append([]float64(nil), samples[frameStart:]...)
	normalizeByPeak(slice)

	ceSlice := slice[2*symLen : 3*symLen]
	H, err := preamble.Estimate(ceSlice, ce.Spectrum, params.Profile)
	if err != nil {
		return nil, errors.Wrap(err, "receiver: channel estimation")
	}

	var bits []int
	for off := 3 * symLen; off+symLen <= len(slice); off += symLen {
		b, err := ofdm.DecodeSymbol(slice[off:off+symLen], params.Profile, params.Constellation, H)
		if err != nil {
			return nil, errors.Wrap(err, "receiver: demodulate symbol")
		}
		bits = append(bits, b...)
	}

	if params.Repetition > 1 {
		bits = majorityVote(bits, params.Repetition)
	}
	payload := packBits(bits)
	if len(payload) == 0 {
		return nil, errors.New("receiver: empty payload after demodulation")
	}
	return payload, nil
}
