/*
NAME
  wavio.go

DESCRIPTION
  wavio.go provides WAV-file-backed implementations of the modem's
  audio sink and audio source interfaces, for bench testing a session
  against a recorded or synthesized acoustic channel without a sound
  card.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavio provides WAV-file-backed implementations of the
// modem's audio sink and audio source interfaces.
package wavio

import (
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const bitDepth = 16
const wavFormat = 1 // PCM

// Sink writes every played sample block to a WAV file, encoding each
// block to the file as it is written; Close finalizes the header.
type Sink struct {
	w          io.WriteSeeker
	closer     io.Closer
	enc        *wav.Encoder
	sampleRate int
	channels   int
}

// NewSink creates path and prepares it to receive samples at
// sampleRate, single channel.
func NewSink(path string, sampleRate int) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "wavio: create file")
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, wavFormat)
	return &Sink{w: f, closer: f, enc: enc, sampleRate: sampleRate, channels: 1}, nil
}

// Write encodes samples as 16-bit PCM and appends them to the file.
func (s *Sink) Write(samples []float32) error {
	data := make([]int, len(samples))
	for i, f := range samples {
		data[i] = int(clampInt16(f))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.channels, SampleRate: s.sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	return s.enc.Write(buf)
}

// Close finalizes the WAV header and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.enc.Close(); err != nil {
		return err
	}
	return s.closer.Close()
}

func clampInt16(f float32) int16 {
	v := f * float32(math.MaxInt16)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// Source serves samples read once, in full, from a WAV file.
type Source struct {
	samples []float32
	pos     int
}

// NewSource decodes the complete contents of path into memory.
func NewSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "wavio: open file")
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "wavio: decode file")
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = float32(v) / float32(math.MaxInt16)
	}
	return &Source{samples: out}, nil
}

// Read returns the next n samples, or fewer at end of file, or
// io.EOF once exhausted.
func (s *Source) Read(n int) ([]float32, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := s.pos + n
	if end > len(s.samples) {
		end = len(s.samples)
	}
	out := s.samples[s.pos:end]
	s.pos = end
	return out, nil
}
