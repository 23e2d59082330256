/*
NAME
  session.go

DESCRIPTION
  session.go wires the OFDM, frame, chunk, ARQ, sender, and receiver
  packages into one Session object: the core the host interfaces of §6
  are built around.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package modem wires the OFDM, frame, chunk, ARQ, sender, and receiver
// packages into one session, and defines the host interfaces (audio
// sink/source, chunk store, clock) an embedding application must
// supply.
package modem

import (
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/acoustic-modem/arq"
	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/frame"
	"github.com/ausocean/acoustic-modem/modem/config"
	"github.com/ausocean/acoustic-modem/receiver"
	"github.com/ausocean/acoustic-modem/sender"
)

// AudioSource is the host collaborator a Session reads captured
// samples from (§6 "audio_source.read(n)").
type AudioSource interface {
	Read(n int) ([]float32, error)
}

// feedBlockSamples is how many samples RunReceiver reads from the
// audio source per Feed call.
const feedBlockSamples = 4096

// Session is one end of an acoustic-modem link: it can send files
// through an AudioSink and, concurrently, decode a live stream of
// captured samples into delivered files via a StreamingReceiver. A
// stop-and-wait ARQ Transport, always built, rides the same channel
// for the handshake and for acknowledged control frames.
type Session struct {
	log      logging.Logger
	cfg      config.Config
	pipeline *sender.Pipeline
	sink     sender.AudioSink
	source   AudioSource
	receiver *receiver.StreamingReceiver
	arq      *arq.Transport
}

// New validates cfg and constructs a Session over the given host
// collaborators. store persists assembled chunks (§6
// "chunk_store.put/get/clear"); handler receives the streaming
// receiver's event stream.
func New(cfg config.Config, sink sender.AudioSink, source AudioSource, store chunk.Store, handler receiver.Handler) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	profile, constellation, err := cfg.Modulation.Resolve()
	if err != nil {
		return nil, err
	}

	params := receiver.Params{
		Profile:       profile,
		Constellation: constellation,
		Repetition:    cfg.Modulation.Repetition(),
	}

	s := &Session{
		log: cfg.Logger,
		cfg: cfg,
		pipeline: sender.NewPipeline(sender.Params{
			Profile:       profile,
			Constellation: constellation,
			Repetition:    cfg.Modulation.Repetition(),
			ChunkSize:     cfg.Modulation.ChunkSize(),
		}, cfg.Logger),
		sink:     sink,
		source:   source,
		receiver: receiver.New(params, store, handler, cfg.Logger),
	}

	s.arq = arq.New(&arqFrameSender{pipeline: s.pipeline, sink: sink}, &arqFrameReceiver{source: source, params: params, clock: arq.RealClock{}}, arq.RealClock{}, cfg.Logger)
	return s, nil
}

// SendFile plays name/data through the audio sink, choosing the legacy
// or chunked path by the fixed sender.ChunkThreshold; the configured
// ChunkThreshold is not consulted.
func (s *Session) SendFile(name string, data []byte) error {
	return s.pipeline.Send(s.sink, name, data)
}

// Bitrate reports the effective throughput of the most recently
// completed SendFile call.
func (s *Session) Bitrate() float64 { return s.pipeline.Bitrate() }

// ErrorCount is the running count of frames the streaming receiver has
// abandoned or failed to decode.
func (s *Session) ErrorCount() uint64 { return s.receiver.ErrorCount() }

// RunReceiver drives the streaming receiver from the audio source
// until stop is closed or the source returns an error. It is the
// implementation of "StreamingReceiver::feed(samples)" driven from a
// blocking audio_source.read loop rather than a device callback.
func (s *Session) RunReceiver(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		block, err := s.source.Read(feedBlockSamples)
		if err != nil {
			return err
		}
		s.receiver.Feed(block)
	}
}

// Handshake performs the ARQ initiator handshake: send PING, wait up
// to 2*ACKTimeout for PONG.
func (s *Session) Handshake() error { return s.arq.Handshake() }

// AwaitHandshake performs the ARQ responder handshake: wait (bounded
// by deadline) for PING, then reply PONG.
func (s *Session) AwaitHandshake(deadline time.Time) error { return s.arq.AwaitHandshake(deadline) }

// SendControl sends a control-plane frame and waits for its ACK,
// retrying per the ARQ transport's policy.
func (s *Session) SendControl(payload []byte) error {
	return s.arq.Send(frame.CONTROL, payload)
}
