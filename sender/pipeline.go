/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go implements the sender pipeline of §4.J: file-to-frame
  chunking, bit repetition and symbol packing, the legacy small-file
  path, and double-buffered waveform production ahead of playback.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sender

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/bitrate"
	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/pool"

	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/ofdm"
	"github.com/ausocean/acoustic-modem/ofdm/preamble"
)

// ChunkThreshold is the size (bytes) at or below which a file is sent
// as one legacy packet rather than a chunked burst sequence (§6).
const ChunkThreshold = 32 * 1024

// queueDepth is how many synthesized chunk waveforms may sit ahead of
// the one currently playing -- the double-buffering margin of §4.J.
const queueDepth = 3

// Params bundles the fixed OFDM parameters a Pipeline synthesizes
// waveforms with.
type Params struct {
	Profile       ofdm.Profile
	Constellation ofdm.Constellation
	Repetition    int
	ChunkSize     int // large-file chunk size, chosen by modulation per §4.J
}

// AudioSink is the host collaborator a Pipeline plays synthesized
// samples through (§6 "audio_sink.write").
type AudioSink interface {
	Write(samples []float32) error
}

// Pipeline is the sender-side session object: it builds waveforms for
// one file and plays them through an AudioSink, double-buffering the
// next chunk's waveform while the current one plays.
type Pipeline struct {
	log     logging.Logger
	params  Params
	p1, p2  preamble.Symbol
	ce      preamble.Symbol
	bitrate bitrate.Calculator
	debug   io.Writer // optional fan-out target for diagnostic capture
}

// NewPipeline constructs a Pipeline for the given OFDM parameters.
func NewPipeline(params Params, log logging.Logger) *Pipeline {
	return &Pipeline{
		log:    log,
		params: params,
		p1:     preamble.BuildP1(params.Profile),
		p2:     preamble.BuildP2(params.Profile),
		ce:     preamble.BuildCE(params.Profile),
	}
}

// SetDebugCapture sets an optional writer that receives a copy of every
// played sample block. Pass nil to disable.
func (p *Pipeline) SetDebugCapture(w io.Writer) { p.debug = w }

// Bitrate reports the effective throughput, in bits/sec, of the most
// recently completed Send call.
func (p *Pipeline) Bitrate() float64 { return p.bitrate.Bitrate() }

// bytesToBits unpacks bytes into MSB-first bits.
func bytesToBits(data []byte) []int {
	bits := make([]int, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int((b>>uint(i))&1))
		}
	}
	return bits
}

// expandRepetition repeats each bit r times.
func expandRepetition(bits []int, r int) []int {
	if r <= 1 {
		return bits
	}
	out := make([]int, 0, len(bits)*r)
	for _, b := range bits {
		for i := 0; i < r; i++ {
			out = append(out, b)
		}
	}
	return out
}

// encodeDataSymbols splits payload into OFDM data symbols, after
// repetition coding, padding the final symbol with zero bits.
func (p *Pipeline) encodeDataSymbols(payload []byte) ([][]float64, error) {
	bits := expandRepetition(bytesToBits(payload), p.params.Repetition)
	bps := p.params.Profile.BitsPerOFDM(p.params.Constellation)
	if bps == 0 {
		return nil, errors.New("sender: profile/constellation yields zero bits per symbol")
	}

	var symbols [][]float64
	for off := 0; off < len(bits); off += bps {
		end := off + bps
		if end > len(bits) {
			end = len(bits)
		}
		sym, err := ofdm.EncodeSymbol(bits[off:end], p.params.Profile, p.params.Constellation)
		if err != nil {
			return nil, errors.Wrap(err, "sender: encode symbol")
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

func (p *Pipeline) leadingFor(first bool) time.Duration {
	if first {
		return LeadingSilence(p.params.Profile)
	}
	return LeadingSilenceRepeat
}

// BuildARQFrame builds one waveform carrying a raw link-layer frame
// (§4.H control plane: DATA/ACK/NACK/CONTROL/PING/PONG), always using
// the short inter-frame leading silence since ARQ exchanges many small
// frames per session rather than one burst.
func (p *Pipeline) BuildARQFrame(payload []byte) ([]float64, error) {
	symbols, err := p.encodeDataSymbols(payload)
	if err != nil {
		return nil, err
	}
	return BuildFrame(p.params.Profile, p.p1, p.p2, p.ce, symbols, LeadingSilenceRepeat), nil
}

// BuildLegacy builds one complete legacy waveform for a small file.
func (p *Pipeline) BuildLegacy(name string, data []byte) ([]float64, int, error) {
	payload, err := chunk.EncodeLegacy(name, data)
	if err != nil {
		return nil, 0, errors.Wrap(err, "sender: encode legacy packet")
	}
	symbols, err := p.encodeDataSymbols(payload)
	if err != nil {
		return nil, 0, err
	}
	out := BuildFrame(p.params.Profile, p.p1, p.p2, p.ce, symbols, p.leadingFor(true))
	return out, len(symbols), nil
}

// BuildMetadataFrame builds one METADATA waveform. first indicates
// whether this is the first frame played in the burst (long leading
// silence) or a following one (short).
func (p *Pipeline) BuildMetadataFrame(totalChunks, totalFileSize uint32, chunkSize uint16, name string, first bool) ([]float64, error) {
	payload, err := chunk.EncodeMetadata(totalChunks, totalFileSize, chunkSize, name)
	if err != nil {
		return nil, errors.Wrap(err, "sender: encode metadata")
	}
	symbols, err := p.encodeDataSymbols(payload)
	if err != nil {
		return nil, err
	}
	return BuildFrame(p.params.Profile, p.p1, p.p2, p.ce, symbols, p.leadingFor(first)), nil
}

// BuildDataChunkFrame builds one DATA_CHUNK waveform.
func (p *Pipeline) BuildDataChunkFrame(seqNum uint32, data []byte, first bool) ([]float64, error) {
	payload, err := chunk.EncodeDataChunk(seqNum, data)
	if err != nil {
		return nil, errors.Wrap(err, "sender: encode data chunk")
	}
	symbols, err := p.encodeDataSymbols(payload)
	if err != nil {
		return nil, err
	}
	return BuildFrame(p.params.Profile, p.p1, p.p2, p.ce, symbols, p.leadingFor(first)), nil
}

// maxFrameSamples bounds the number of samples any one frame built by
// this Pipeline can contain, used to size the double-buffering queue's
// per-element byte budget.
func (p *Pipeline) maxFrameSamples(payloadBudget int) int {
	symLen := p.params.Profile.SymbolLen()
	bps := p.params.Profile.BitsPerOFDM(p.params.Constellation)
	if bps == 0 {
		bps = 1
	}
	dataSymbols := (8*payloadBudget*p.params.Repetition + bps - 1) / bps
	leadSamples := int(LeadingSilenceAcoustic.Seconds() * float64(p.params.Profile.SampleRate))
	trailSamples := int(TrailingSilence.Seconds() * float64(p.params.Profile.SampleRate))
	return leadSamples + trailSamples + (3+dataSymbols)*symLen
}

// Send plays a complete file through sink, choosing the legacy path for
// files at or below ChunkThreshold and the chunked path otherwise.
func (p *Pipeline) Send(sink AudioSink, name string, data []byte) error {
	write := func(f32 []float32) error {
		if p.debug != nil {
			if err := writeFloat32(p.debug, f32); err != nil {
				p.log.Log(logging.Warning, "sender: debug capture write failed", "err", err)
			}
		}
		p.bitrate.Report(len(f32) * 4)
		return sink.Write(f32)
	}

	if len(data) <= ChunkThreshold {
		samples, _, err := p.BuildLegacy(name, data)
		if err != nil {
			return err
		}
		return write(ToFloat32(samples))
	}
	return p.sendChunked(write, name, data)
}

// sendChunked implements the large-file path: one METADATA waveform
// followed by one DATA_CHUNK waveform per chunk. The next chunk's
// waveform is synthesized up to queueDepth frames ahead of the one
// currently playing, via a pool.Buffer double-buffering queue.
func (p *Pipeline) sendChunked(write func([]float32) error, name string, data []byte) error {
	chunkSize := p.params.ChunkSize
	total := len(data)
	totalChunks := (total + chunkSize - 1) / chunkSize

	meta, err := p.BuildMetadataFrame(uint32(totalChunks), uint32(total), uint16(chunkSize), name, true)
	if err != nil {
		return err
	}
	if err := write(ToFloat32(meta)); err != nil {
		return errors.Wrap(err, "sender: play metadata frame")
	}

	elementSize := p.maxFrameSamples(chunkSize+dataChunkOverhead)*4 + 64
	queue := pool.NewBuffer(queueDepth, elementSize, 0)
	defer queue.Close()

	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for seq := 0; seq < totalChunks; seq++ {
			lo := seq * chunkSize
			hi := lo + chunkSize
			if hi > total {
				hi = total
			}
			waveform, err := p.BuildDataChunkFrame(uint32(seq), data[lo:hi], false)
			if err != nil {
				errc <- errors.Wrapf(err, "sender: build chunk %d", seq)
				return
			}
			if _, err := queue.Write(float32Bytes(ToFloat32(waveform))); err != nil {
				errc <- errors.Wrapf(err, "sender: queue chunk %d", seq)
				return
			}
		}
	}()

	for seq := 0; seq < totalChunks; seq++ {
		c, err := queue.Next(0)
		if err != nil {
			return errors.Wrapf(err, "sender: dequeue chunk %d", seq)
		}
		if err := write(bytesFloat32(c.Bytes())); err != nil {
			return errors.Wrapf(err, "sender: play chunk %d", seq)
		}
	}
	if err := <-errc; err != nil {
		return err
	}
	return nil
}

// dataChunkOverhead is the DATA_CHUNK framing overhead (tag + seqNum +
// dataLen + CRC), mirrored from the chunk package's wire layout.
const dataChunkOverhead = 1 + 4 + 2 + 4

// ToFloat32 narrows a float64 sample slice to float32 for the wire/host
// boundary (§6: "32-bit float or 16-bit PCM").
func ToFloat32(samples []float64) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	return out
}

// float32Bytes serializes float32 samples as big-endian IEEE-754 words,
// the wire shape queued in the double-buffering pool.Buffer.
func float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.BigEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// bytesFloat32 is the inverse of float32Bytes.
func bytesFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return out
}

// writeFloat32 writes samples to w as big-endian IEEE-754 words.
func writeFloat32(w io.Writer, samples []float32) error {
	_, err := w.Write(float32Bytes(samples))
	return err
}
