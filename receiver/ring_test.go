/*
NAME
  ring_test.go

DESCRIPTION
  ring_test.go tests RingBuffer's append/read contract: in-range reads,
  the not-yet-available error, and the overrun error once the buffer
  wraps past retained history.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package receiver

import "testing"

func TestRingBufferReadWriteRoundTrip(t *testing.T) {
	r := NewRingBuffer(16)
	r.Append([]float64{1, 2, 3, 4, 5})

	got, err := r.Read(1, 3)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Read()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRingBufferNotAvailable(t *testing.T) {
	r := NewRingBuffer(16)
	r.Append([]float64{1, 2, 3})
	if _, err := r.Read(0, 10); err != ErrNotAvailable {
		t.Errorf("Read(beyond written) = %v, want ErrNotAvailable", err)
	}
}

func TestRingBufferOverrun(t *testing.T) {
	r := NewRingBuffer(4)
	r.Append([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if _, err := r.Read(0, 2); err != ErrOverrun {
		t.Errorf("Read(overwritten range) = %v, want ErrOverrun", err)
	}
	got, err := r.Read(6, 2)
	if err != nil {
		t.Fatalf("Read(recent range): %v", err)
	}
	if got[0] != 7 || got[1] != 8 {
		t.Errorf("Read(6,2) = %v, want [7 8]", got)
	}
}

func TestRingBufferTotalWritten(t *testing.T) {
	r := NewRingBuffer(8)
	r.Append([]float64{1, 2, 3})
	r.Append([]float64{4, 5})
	if got := r.TotalWritten(); got != 5 {
		t.Errorf("TotalWritten() = %d, want 5", got)
	}
}
