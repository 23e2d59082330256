/*
NAME
  audioio_test.go

DESCRIPTION
  audioio_test.go tests the PCM/float32 conversion helpers directly,
  and skips the real device round trip when no ALSA device is available
  in the test environment, mirroring the pack's own ALSA test.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package audioio

import (
	"math"
	"os"
	"testing"

	"github.com/ausocean/utils/logging"
)

func TestPCMFloat32RoundTrip16Bit(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 0.25}
	raw := float32ToPCM(samples, 16)
	got := pcmToFloat32(raw, 16)
	for i := range samples {
		if math.Abs(float64(got[i]-samples[i])) > 1.0/math.MaxInt16 {
			t.Errorf("sample %d = %v, want ~%v", i, got[i], samples[i])
		}
	}
}

func TestPCMFloat32RoundTrip32Bit(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	raw := float32ToPCM(samples, 32)
	got := pcmToFloat32(raw, 32)
	for i := range samples {
		if math.Abs(float64(got[i]-samples[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want ~%v", i, got[i], samples[i])
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(2) != 1 {
		t.Errorf("clamp(2) = %v, want 1", clamp(2))
	}
	if clamp(-2) != -1 {
		t.Errorf("clamp(-2) = %v, want -1", clamp(-2))
	}
	if clamp(0.3) != 0.3 {
		t.Errorf("clamp(0.3) = %v, want 0.3", clamp(0.3))
	}
}

func TestConfigNormalize(t *testing.T) {
	c := Config{}.normalize()
	if c.SampleRate != 48000 || c.Channels != 1 || c.BitDepth != 16 {
		t.Errorf("normalize() = %+v, want defaults 48000/1/16", c)
	}
}

// TestDeviceRoundTrip exercises NewSource/NewSink against a real ALSA
// device, skipping when the test environment has none, per the pack's
// own ALSA test convention.
func TestDeviceRoundTrip(t *testing.T) {
	l := logging.New(logging.Debug, os.Stderr, true)
	cfg := Config{SampleRate: 8000, Channels: 1, BitDepth: 16}

	source, err := NewSource(cfg, l)
	if err != nil {
		t.Skipf("no capture device available: %v", err)
	}
	defer source.Close()

	sink, err := NewSink(cfg, l)
	if err != nil {
		t.Skipf("no playback device available: %v", err)
	}
	defer sink.Close()

	if err := sink.Write(make([]float32, 256)); err != nil {
		t.Errorf("Write: %v", err)
	}
	if _, err := source.Read(256); err != nil {
		t.Errorf("Read: %v", err)
	}
}
