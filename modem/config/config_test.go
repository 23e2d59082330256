/*
NAME
  config_test.go

DESCRIPTION
  config_test.go tests Config.Validate's defaulting behaviour and the
  Modulation-to-profile resolution table, in the style of revid's own
  config test.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/acoustic-modem/ofdm"
)

func TestValidateDefaults(t *testing.T) {
	// The zero Modulation is QPSK, which resolves to the standard
	// profile; SampleRate defaults from that profile's rate, not a
	// fixed constant, so it stays in lockstep with whichever profile
	// Modulation.Resolve picks.
	standard, _, err := QPSK.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := Config{}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := Config{
		ChunkThreshold: defaultChunkThreshold,
		SampleRate:     standard.SampleRate,
		Channels:       defaultChannels,
		BitDepth:       defaultBitDepth,
		ACKTimeout:     500 * time.Millisecond,
		Turnaround:     50 * time.Millisecond,
		MaxRetries:     3,
	}
	if !cmp.Equal(got, want) {
		t.Errorf("Validate() = %+v, want %+v", got, want)
	}
}

func TestValidateDefaultsSampleRateFollowsProfile(t *testing.T) {
	acoustic, _, err := BPSKAcoustic.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	c := Config{Modulation: BPSKAcoustic}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.SampleRate != acoustic.SampleRate {
		t.Errorf("SampleRate = %d, want %d (the acoustic profile's rate)", c.SampleRate, acoustic.SampleRate)
	}
}

func TestValidatePreservesExplicitValues(t *testing.T) {
	c := Config{
		ChunkThreshold: 1024,
		SampleRate:     8000,
		Channels:       2,
		BitDepth:       32,
		ACKTimeout:     time.Second,
		Turnaround:     10 * time.Millisecond,
		MaxRetries:     5,
	}
	want := c
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c != want {
		t.Errorf("Validate() modified explicit values: got %+v, want %+v", c, want)
	}
}

func TestModulationResolve(t *testing.T) {
	cases := []struct {
		m        Modulation
		profile  ofdm.ProfileName
		kind     ofdm.Kind
		rep      int
		chunkLen int
	}{
		{QPSK, ofdm.Standard, ofdm.QPSK, 1, 2048},
		{QAM16, ofdm.Standard, ofdm.QAM16, 1, 4096},
		{BPSKAcoustic, ofdm.Acoustic, ofdm.BPSK, 1, 512},
		{BPSKRepeat, ofdm.Acoustic, ofdm.BPSK, 3, 512},
		{BPSKNarrow, ofdm.Narrowband, ofdm.BPSK, 3, 512},
	}
	for _, c := range cases {
		profile, constellation, err := c.m.Resolve()
		if err != nil {
			t.Fatalf("%v: Resolve: %v", c.m, err)
		}
		if profile.Name != c.profile {
			t.Errorf("%v: profile = %v, want %v", c.m, profile.Name, c.profile)
		}
		if constellation.BitsPerSymbol() != int(c.kind) {
			t.Errorf("%v: bits per symbol = %d, want %d", c.m, constellation.BitsPerSymbol(), int(c.kind))
		}
		if c.m.Repetition() != c.rep {
			t.Errorf("%v: Repetition() = %d, want %d", c.m, c.m.Repetition(), c.rep)
		}
		if c.m.ChunkSize() != c.chunkLen {
			t.Errorf("%v: ChunkSize() = %d, want %d", c.m, c.m.ChunkSize(), c.chunkLen)
		}
	}
}

func TestModulationUnknownDefaultsToStandardBPSK(t *testing.T) {
	m := Modulation(99)
	profile, constellation, err := m.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if profile.Name != ofdm.Standard {
		t.Errorf("profile = %v, want %v", profile.Name, ofdm.Standard)
	}
	if constellation.BitsPerSymbol() != int(ofdm.BPSK) {
		t.Errorf("bits per symbol = %d, want %d", constellation.BitsPerSymbol(), int(ofdm.BPSK))
	}
}

func TestModulationString(t *testing.T) {
	cases := map[Modulation]string{
		QPSK:          "QPSK",
		QAM16:         "16-QAM",
		BPSKAcoustic:  "BPSK-ACOUSTIC",
		BPSKRepeat:    "BPSK-REPEAT",
		BPSKNarrow:    "BPSK-NARROW",
		Modulation(9): "unknown",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Modulation(%d).String() = %q, want %q", m, got, want)
		}
	}
}
