/*
NAME
  streaming.go

DESCRIPTION
  streaming.go implements the streaming receiver state machine of
  §4.I: preamble scan, fine alignment, per-frame demodulation, and
  chunk-assembler wiring, driven by arriving audio blocks.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package receiver

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/ofdm"
	"github.com/ausocean/acoustic-modem/ofdm/preamble"
)

// State names the streaming receiver's per-session state.
type State int

// The four states of §4.I.
const (
	Idle State = iota
	PreambleDetected
	CollectingFrame
	Demodulating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case PreambleDetected:
		return "PreambleDetected"
	case CollectingFrame:
		return "CollectingFrame"
	case Demodulating:
		return "Demodulating"
	default:
		return "Unknown"
	}
}

// dcAlpha is the exponential-moving-average coefficient for the
// DC-removal preprocessor (§4.I step 1).
const dcAlpha = 0.999

// legacyMetadataBudget is the placeholder payload size used to size the
// expected-frame-end estimate before any metadata has been received
// (§4.I: "280 before any metadata is known").
const legacyMetadataBudget = 280

// dataChunkOverhead is the DATA_CHUNK framing overhead (tag + seqNum +
// dataLen + CRC).
const dataChunkOverhead = 1 + 4 + 2 + 4

// Handler receives the streaming receiver's event stream: decoded
// metadata, per-chunk outcomes, assembled completion, and legacy
// single-shot packets -- the "event stream {metadata, chunk(seq, ok),
// complete(file)}" of §6.
type Handler interface {
	OnMetadata(m chunk.Metadata)
	OnChunk(seq uint32, stored bool)
	OnComplete(file []byte, name string)
	OnLegacy(name string, data []byte, crcValid bool)
	OnFrameError(err error)
}

// Params bundles the fixed, session-scoped parameters a StreamingReceiver
// needs: the OFDM profile and constellation in use, and the bit
// repetition factor (§6 modulation table).
type Params struct {
	Profile       ofdm.Profile
	Constellation ofdm.Constellation
	Repetition    int
}

// StreamingReceiver is the "heart of the system": one live thread of
// execution per session, driven by Feed as audio blocks arrive.
type StreamingReceiver struct {
	log     logging.Logger
	ring    *RingBuffer
	params  Params
	handler Handler
	asm     *chunk.Assembler

	p1 preamble.Symbol
	ce preamble.Symbol

	dcMean float64

	state             State
	acScanPos         uint64
	ac                *preamble.AutoCorrState
	bestPos           uint64
	bestM             float64
	preambleGlobalPos uint64
	frameStart        uint64
	expectedFrameEnd  uint64

	errorCount uint64
}

// New constructs a StreamingReceiver over a fresh ring buffer sized for
// at least 3 maximum frame lengths plus margin.
func New(params Params, store chunk.Store, handler Handler, log logging.Logger) *StreamingReceiver {
	maxFrameLen := 3*params.Profile.SymbolLen() + frameSymbolBudget(params, legacyMetadataBudget)*params.Profile.SymbolLen()
	capacity := maxFrameLen*3 + 8*params.Profile.SymbolLen()

	return &StreamingReceiver{
		log:     log,
		ring:    NewRingBuffer(capacity),
		params:  params,
		handler: handler,
		asm:     chunk.NewAssembler(store, log),
		p1:      preamble.BuildP1(params.Profile),
		ce:      preamble.BuildCE(params.Profile),
		state:   Idle,
	}
}

// ErrorCount is the running count of frames abandoned or failed to
// decode since construction; the receiver never throws on a single bad
// frame (§7 policy), it counts and resumes.
func (sr *StreamingReceiver) ErrorCount() uint64 { return sr.errorCount }

// State returns the receiver's current state.
func (sr *StreamingReceiver) State() State { return sr.state }

// frameSymbolBudget returns ceil(8*payloadBytes*repetition / BitsPerOFDM).
func frameSymbolBudget(params Params, payloadBytes int) int {
	bits := params.Profile.BitsPerOFDM(params.Constellation)
	if bits == 0 {
		return 1
	}
	need := 8 * payloadBytes * params.Repetition
	return (need + bits - 1) / bits
}

// Feed preprocesses (DC-removes) one block of raw samples, appends the
// cleaned samples to the ring buffer, and advances the state machine as
// far as the currently buffered data allows. It is idempotent under
// reentry with no new samples (§9 "coroutine control flow").
func (sr *StreamingReceiver) Feed(samples []float32) {
	cleaned := make([]float64, len(samples))
	mu := sr.dcMean
	for i, s := range samples {
		x := float64(s)
		mu = dcAlpha*mu + (1-dcAlpha)*x
		cleaned[i] = x - mu
	}
	sr.dcMean = mu
	sr.ring.Append(cleaned)

	for sr.pump() {
	}
}

// pump advances the state machine by as much as currently-buffered data
// allows, returning true if it made progress (so Feed can loop).
func (sr *StreamingReceiver) pump() bool {
	switch sr.state {
	case Idle:
		return sr.stepIdle()
	case PreambleDetected:
		return sr.stepRefine()
	case CollectingFrame:
		return sr.stepCollecting()
	case Demodulating:
		sr.stepDemodulate()
		return true
	default:
		return false
	}
}

// stepIdle advances the coarse auto-correlation scan by one sample, or
// commits to a candidate preamble position, per §4.I "State Idle".
func (sr *StreamingReceiver) stepIdle() bool {
	half := sr.params.Profile.FFTSize / 2

	if sr.ac == nil {
		win, err := sr.ring.Read(sr.acScanPos, 2*half)
		if err != nil {
			return false // not enough data buffered yet; resume next block
		}
		st := preamble.NewAutoCorrState(win, 0, half)
		sr.ac = &st
		sr.bestM = 0
		sr.bestPos = sr.acScanPos
	}

	m := sr.ac.Metric()
	if m > sr.bestM {
		sr.bestM = m
		sr.bestPos = sr.acScanPos
	} else if sr.bestM > preamble.DetectThreshold && m < 0.7*sr.bestM {
		sr.preambleGlobalPos = sr.bestPos
		sr.ac = nil
		sr.transition(PreambleDetected)
		return true
	}

	outA, err1 := sr.ring.Read(sr.acScanPos, 1)
	inA, err2 := sr.ring.Read(sr.acScanPos+uint64(half), 1)
	inB, err3 := sr.ring.Read(sr.acScanPos+uint64(2*half), 1)
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	sr.ac.Slide(outA[0], inA[0], inA[0], inB[0])
	sr.acScanPos++
	return true
}

// refineRadius is the window, in samples, searched by the fine
// cross-correlation detector around the coarse candidate.
func (sr *StreamingReceiver) refineRadius() int { return 3 * sr.params.Profile.CPLen }

// stepRefine runs the fine cross-correlation detector once enough
// samples past the candidate are buffered, per §4.I "State
// PreambleDetected".
func (sr *StreamingReceiver) stepRefine() bool {
	radius := sr.refineRadius()
	symLen := sr.params.Profile.SymbolLen()
	need := sr.preambleGlobalPos + uint64(radius) + uint64(symLen)
	if sr.ring.TotalWritten() < need {
		return false
	}

	var winStart uint64
	if sr.preambleGlobalPos > uint64(radius) {
		winStart = sr.preambleGlobalPos - uint64(radius)
	}
	winLen := int(need - winStart)
	win, err := sr.ring.Read(winStart, winLen)
	if err != nil {
		sr.abandon(err)
		return true
	}

	center := int(sr.preambleGlobalPos - winStart)
	pos, score := preamble.CrossCorrelate(win, sr.p1.Samples, center, radius)
	if score < preamble.CrossCorrFineThreshold {
		sr.log.Log(logging.Debug, "receiver: preamble candidate abandoned", "score", score)
		sr.acScanPos = sr.preambleGlobalPos + 1
		sr.errorCount++
		sr.transition(Idle)
		return true
	}

	sr.preambleGlobalPos = winStart + uint64(pos)
	sr.frameStart = sr.preambleGlobalPos
	budget := legacyMetadataBudget
	if meta, ok := sr.asm.Metadata(); ok {
		budget = int(meta.ChunkSize) + dataChunkOverhead
	}
	numDataSymbols := frameSymbolBudget(sr.params, budget)
	sr.expectedFrameEnd = sr.frameStart + uint64(3*symLen) + uint64(numDataSymbols*symLen)
	sr.transition(CollectingFrame)
	return true
}

// stepCollecting waits for the ring buffer to hold the complete
// estimated frame.
func (sr *StreamingReceiver) stepCollecting() bool {
	if sr.ring.TotalWritten() < sr.expectedFrameEnd {
		return false
	}
	sr.transition(Demodulating)
	return true
}

// stepDemodulate fetches, equalizes, and decodes the frame, dispatches
// it to the assembler or handler, and always returns to Idle with
// acScanPos advanced past the frame, per §4.I "State Demodulating".
func (sr *StreamingReceiver) stepDemodulate() {
	length := int(sr.expectedFrameEnd - sr.frameStart)
	slice, err := sr.ring.Read(sr.frameStart, length)
	if err != nil {
		sr.errorCount++
		sr.log.Log(logging.Warning, "receiver: frame overwritten before demodulation", "err", err)
		sr.resetTo(sr.expectedFrameEnd)
		return
	}

	normalizeByPeak(slice)

	symLen := sr.params.Profile.SymbolLen()
	ceSlice := slice[2*symLen : 3*symLen]
	H, err := preamble.Estimate(ceSlice, sr.ce.Spectrum, sr.params.Profile)
	if err != nil {
		sr.errorCount++
		sr.handler.OnFrameError(errors.Wrap(err, "receiver: channel estimation"))
		sr.resetTo(sr.expectedFrameEnd)
		return
	}

	var bits []int
	for off := 3 * symLen; off+symLen <= len(slice); off += symLen {
		b, err := ofdm.DecodeSymbol(slice[off:off+symLen], sr.params.Profile, sr.params.Constellation, H)
		if err != nil {
			sr.errorCount++
			sr.handler.OnFrameError(errors.Wrap(err, "receiver: demodulate symbol"))
			sr.resetTo(sr.expectedFrameEnd)
			return
		}
		bits = append(bits, b...)
	}

	if sr.params.Repetition > 1 {
		bits = majorityVote(bits, sr.params.Repetition)
	}
	payload := packBits(bits)
	if len(payload) == 0 {
		sr.resetTo(sr.expectedFrameEnd)
		return
	}

	sr.dispatchPayload(payload)
	sr.resetTo(sr.expectedFrameEnd)
}

// dispatchPayload routes a demodulated payload by its tag byte to the
// metadata, data-chunk, or legacy parser, and reports the outcome.
func (sr *StreamingReceiver) dispatchPayload(payload []byte) {
	switch payload[0] {
	case chunk.TagMetadata:
		m, err := chunk.DecodeMetadata(payload)
		if err != nil {
			sr.errorCount++
			sr.handler.OnFrameError(errors.Wrap(err, "receiver: decode metadata"))
			return
		}
		if err := sr.asm.HandleMetadata(m); err != nil {
			sr.errorCount++
		}
		sr.handler.OnMetadata(m)

	case chunk.TagData:
		d, err := chunk.DecodeDataChunk(payload)
		if err != nil {
			sr.errorCount++
			sr.handler.OnFrameError(errors.Wrap(err, "receiver: decode data chunk"))
			return
		}
		stored, err := sr.asm.HandleDataChunk(d)
		if err != nil {
			sr.errorCount++
		}
		sr.handler.OnChunk(d.SeqNum, stored)
		if sr.asm.Complete() {
			file, err := sr.asm.Assemble()
			if err != nil {
				sr.errorCount++
				sr.handler.OnFrameError(errors.Wrap(err, "receiver: assemble"))
				return
			}
			meta, _ := sr.asm.Metadata()
			sr.handler.OnComplete(file, meta.Name)
		}

	default:
		lp, err := chunk.DecodeLegacy(payload)
		if err != nil {
			sr.errorCount++
			sr.handler.OnFrameError(errors.Wrap(err, "receiver: decode legacy packet"))
			return
		}
		sr.handler.OnLegacy(lp.Name, lp.Data, lp.CRCValid)
	}
}

// abandon counts an error and resets the scanner to Idle, advancing the
// scan position past the abandoned candidate.
func (sr *StreamingReceiver) abandon(err error) {
	sr.errorCount++
	sr.handler.OnFrameError(errors.Wrap(err, "receiver: abandoning candidate"))
	sr.acScanPos = sr.preambleGlobalPos + 1
	sr.transition(Idle)
}

// resetTo returns the scanner to Idle with acScanPos set to pos, so
// scanning resumes immediately after the just-processed frame.
func (sr *StreamingReceiver) resetTo(pos uint64) {
	sr.acScanPos = pos
	sr.ac = nil
	sr.transition(Idle)
}

func (sr *StreamingReceiver) transition(next State) {
	sr.log.Log(logging.Debug, "receiver: state transition", "from", sr.state.String(), "to", next.String())
	sr.state = next
}

// normalizeByPeak scales samples in place so the maximum absolute value
// is 1, unless the peak is negligible.
func normalizeByPeak(samples []float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 1e-10 {
		return
	}
	for i := range samples {
		samples[i] /= peak
	}
}

// majorityVote collapses repeat(s, R) back to s by majority vote over
// every consecutive run of R bits (§8 property 5).
func majorityVote(bits []int, r int) []int {
	n := len(bits) / r
	out := make([]int, n)
	for i := 0; i < n; i++ {
		sum := 0
		for j := 0; j < r; j++ {
			sum += bits[i*r+j]
		}
		if sum*2 > r {
			out[i] = 1
		}
	}
	return out
}

// packBits packs MSB-first bits into bytes, discarding any trailing
// partial byte.
func packBits(bits []int) []byte {
	n := len(bits) / 8
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | byte(bits[i*8+j]&1)
		}
		out[i] = b
	}
	return out
}
