/*
NAME
  pipeline_test.go

DESCRIPTION
  pipeline_test.go tests the sender pipeline: the legacy small-file echo
  (§8 scenario 1), the chunked large-file path end to end through the
  streaming receiver, and bitrate reporting.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sender

import (
	"bytes"
	"testing"

	"github.com/ausocean/acoustic-modem/chunk"
	"github.com/ausocean/acoustic-modem/ofdm"
	"github.com/ausocean/acoustic-modem/receiver"
)

type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

type captureSink struct {
	blocks [][]float32
}

func (s *captureSink) Write(samples []float32) error {
	s.blocks = append(s.blocks, append([]float32(nil), samples...))
	return nil
}

func (s *captureSink) all() []float64 {
	var out []float64
	for _, b := range s.blocks {
		for _, s := range b {
			out = append(out, float64(s))
		}
	}
	return out
}

// TestSendLegacyEcho builds and plays a small file through the legacy
// path, then decodes the played samples back, checking the name and
// data survive the round trip (§8 scenario 1: small-file legacy echo).
func TestSendLegacyEcho(t *testing.T) {
	profile := ofdm.AcousticProfile()
	constellation := ofdm.NewConstellation(ofdm.BPSK)
	p := NewPipeline(Params{Profile: profile, Constellation: constellation, Repetition: 1}, dumbLogger{})

	sink := &captureSink{}
	name := "echo.txt"
	data := []byte("a small file well under the chunk threshold")
	if err := p.Send(sink, name, data); err != nil {
		t.Fatalf("Send: %v", err)
	}

	params := receiver.Params{Profile: profile, Constellation: constellation, Repetition: 1}
	result, err := receiver.Decode(sink.all(), params)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !result.CRCValid || result.Name != name || !bytes.Equal(result.Data, data) {
		t.Errorf("decoded result = %+v, want name=%q data=%q", result, name, data)
	}
}

// TestSendChunkedEndToEnd drives the chunked path through a real
// StreamingReceiver and checks the whole file is reassembled correctly.
func TestSendChunkedEndToEnd(t *testing.T) {
	profile := ofdm.AcousticProfile()
	constellation := ofdm.NewConstellation(ofdm.BPSK)
	p := NewPipeline(Params{
		Profile:       profile,
		Constellation: constellation,
		Repetition:    1,
		ChunkSize:     64,
	}, dumbLogger{})

	sink := &captureSink{}
	data := bytes.Repeat([]byte("0123456789abcdef"), 50)
	if err := p.Send(sink, "large.bin", data); err != nil {
		t.Fatalf("Send: %v", err)
	}

	store := newStoreStub()
	handler := &stubHandler{}
	rparams := receiver.Params{Profile: profile, Constellation: constellation, Repetition: 1}
	sr := receiver.New(rparams, store, handler, dumbLogger{})

	samples := sink.all()
	f32 := make([]float32, len(samples))
	for i, s := range samples {
		f32[i] = float32(s)
	}
	const block = 4096
	for off := 0; off < len(f32); off += block {
		end := off + block
		if end > len(f32) {
			end = len(f32)
		}
		sr.Feed(f32[off:end])
	}

	if handler.completed == nil {
		t.Fatal("streaming receiver never completed the transfer")
	}
	if !bytes.Equal(handler.completed, data) {
		t.Errorf("reassembled file mismatch: got %d bytes, want %d bytes", len(handler.completed), len(data))
	}
}

// TestBitrateReportsAfterSend checks Bitrate is non-zero after a
// completed Send call.
func TestBitrateReportsAfterSend(t *testing.T) {
	profile := ofdm.AcousticProfile()
	p := NewPipeline(Params{Profile: profile, Constellation: ofdm.NewConstellation(ofdm.BPSK), Repetition: 1}, dumbLogger{})
	sink := &captureSink{}
	if err := p.Send(sink, "f", []byte("payload")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if p.Bitrate() <= 0 {
		t.Errorf("Bitrate() = %v, want > 0", p.Bitrate())
	}
}

type storeStub struct{ m map[uint32][]byte }

func newStoreStub() *storeStub { return &storeStub{m: make(map[uint32][]byte)} }

func (s *storeStub) Put(seq uint32, data []byte) error {
	s.m[seq] = append([]byte(nil), data...)
	return nil
}

func (s *storeStub) Get(seq uint32) ([]byte, bool, error) {
	d, ok := s.m[seq]
	return d, ok, nil
}

func (s *storeStub) Clear() error {
	s.m = make(map[uint32][]byte)
	return nil
}

type stubHandler struct {
	completed []byte
}

func (h *stubHandler) OnMetadata(m chunk.Metadata)              {}
func (h *stubHandler) OnChunk(seq uint32, stored bool)           {}
func (h *stubHandler) OnComplete(file []byte, name string)       { h.completed = file }
func (h *stubHandler) OnLegacy(name string, data []byte, ok bool) {}
func (h *stubHandler) OnFrameError(err error)                    {}
