/*
NAME
  audioio.go

DESCRIPTION
  audioio.go adapts ALSA device negotiation into the two host
  collaborators §6 calls "audio_sink" and "audio_source": blocking
  f32[] writers and readers the core modem never constructs directly.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package audioio provides ALSA-backed implementations of the modem's
// audio sink and audio source interfaces.
package audioio

import (
	"encoding/binary"
	"math"

	yalsa "github.com/yobert/alsa"

	"github.com/ausocean/utils/logging"
)

const pkg = "audioio: "

// Config is the fixed audio format a Source or Sink negotiates with the
// underlying card. SampleRate and Channels follow the OFDM profile in
// use; BitDepth is the PCM word size the card is asked for.
type Config struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Title      string // card title to match, or "" for the first suitable device
}

func (c Config) normalize() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.BitDepth <= 0 {
		c.BitDepth = 16
	}
	return c
}

// findDevice scans every card for a device matching title that supports
// record (wantRecord) or playback (wantPlay), the same scan ausocean's
// ALSA capture device performs at open time.
func findDevice(title string, wantRecord, wantPlay bool) (*yalsa.Device, error) {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return nil, err
	}
	defer yalsa.CloseCards(cards)

	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM {
				continue
			}
			if wantRecord && !dev.Record {
				continue
			}
			if wantPlay && !dev.Play {
				continue
			}
			if title == "" || dev.Title == title {
				return dev, nil
			}
		}
	}
	return nil, errNoDevice
}

var errNoDevice = alsaError("audioio: no matching ALSA device found")

type alsaError string

func (e alsaError) Error() string { return string(e) }

// negotiate applies the channel/rate/format negotiation sequence the
// capture device performs, returning the negotiated bit depth.
func negotiate(dev *yalsa.Device, cfg Config) (int, error) {
	if err := dev.Open(); err != nil {
		return 0, err
	}
	if _, err := dev.NegotiateChannels(cfg.Channels); err != nil {
		return 0, err
	}
	if _, err := dev.NegotiateRate(cfg.SampleRate); err != nil {
		return 0, err
	}

	var want yalsa.FormatType
	switch cfg.BitDepth {
	case 32:
		want = yalsa.S32_LE
	default:
		want = yalsa.S16_LE
	}
	got, err := dev.NegotiateFormat(want)
	if err != nil {
		return 0, err
	}
	var bitDepth int
	switch got {
	case yalsa.S32_LE:
		bitDepth = 32
	default:
		bitDepth = 16
	}

	const wantPeriodSeconds = 0.05
	bytesPerSecond := cfg.SampleRate * cfg.Channels * (bitDepth / 8)
	periodSize, err := dev.NegotiatePeriodSize(int(float64(bytesPerSecond) * wantPeriodSeconds))
	if err != nil {
		return 0, err
	}
	if _, err := dev.NegotiateBufferSize(periodSize * 4); err != nil {
		return 0, err
	}
	if err := dev.Prepare(); err != nil {
		return 0, err
	}
	return bitDepth, nil
}

// Source is an ALSA capture device presented as the modem's
// audio_source collaborator.
type Source struct {
	log      logging.Logger
	dev      *yalsa.Device
	bitDepth int
}

// NewSource opens and negotiates a capture device matching cfg.
func NewSource(cfg Config, log logging.Logger) (*Source, error) {
	cfg = cfg.normalize()
	dev, err := findDevice(cfg.Title, true, false)
	if err != nil {
		return nil, err
	}
	bitDepth, err := negotiate(dev, cfg)
	if err != nil {
		return nil, err
	}
	log.Log(logging.Info, pkg+"capture device ready", "title", dev.Title, "bitDepth", bitDepth)
	return &Source{log: log, dev: dev, bitDepth: bitDepth}, nil
}

// Read blocks until n samples have been captured, converting the
// card's native PCM format to float32 in [-1, 1].
func (s *Source) Read(n int) ([]float32, error) {
	raw := make([]byte, n*(s.bitDepth/8))
	if err := s.dev.Read(raw); err != nil {
		return nil, err
	}
	return pcmToFloat32(raw, s.bitDepth), nil
}

// Close releases the underlying ALSA device.
func (s *Source) Close() error { return s.dev.Close() }

// Sink is an ALSA playback device presented as the modem's audio_sink
// collaborator.
type Sink struct {
	log      logging.Logger
	dev      *yalsa.Device
	bitDepth int
}

// NewSink opens and negotiates a playback device matching cfg.
func NewSink(cfg Config, log logging.Logger) (*Sink, error) {
	cfg = cfg.normalize()
	dev, err := findDevice(cfg.Title, false, true)
	if err != nil {
		return nil, err
	}
	bitDepth, err := negotiate(dev, cfg)
	if err != nil {
		return nil, err
	}
	log.Log(logging.Info, pkg+"playback device ready", "title", dev.Title, "bitDepth", bitDepth)
	return &Sink{log: log, dev: dev, bitDepth: bitDepth}, nil
}

// Write blocks until samples have been buffered for playback.
func (s *Sink) Write(samples []float32) error {
	raw := float32ToPCM(samples, s.bitDepth)
	return s.dev.Write(raw)
}

// Close releases the underlying ALSA device.
func (s *Sink) Close() error { return s.dev.Close() }

func pcmToFloat32(raw []byte, bitDepth int) []float32 {
	switch bitDepth {
	case 32:
		out := make([]float32, len(raw)/4)
		for i := range out {
			v := int32(binary.LittleEndian.Uint32(raw[i*4:]))
			out[i] = float32(v) / float32(math.MaxInt32)
		}
		return out
	default:
		out := make([]float32, len(raw)/2)
		for i := range out {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			out[i] = float32(v) / float32(math.MaxInt16)
		}
		return out
	}
}

func float32ToPCM(samples []float32, bitDepth int) []byte {
	switch bitDepth {
	case 32:
		out := make([]byte, len(samples)*4)
		for i, s := range samples {
			v := int32(clamp(s) * float32(math.MaxInt32))
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
		return out
	default:
		out := make([]byte, len(samples)*2)
		for i, s := range samples {
			v := int16(clamp(s) * float32(math.MaxInt16))
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
		return out
	}
}

func clamp(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	default:
		return s
	}
}
