/*
NAME
  ring.go

DESCRIPTION
  ring.go implements the streaming receiver's ring buffer: a
  single-producer/single-consumer circular float64 buffer addressed by
  a global monotonic sample position, as described in §3 and §5.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package receiver implements the streaming receiver: the ring buffer,
// the preamble-scanning/demodulating state machine, and the chunk
// assembler wiring that turns a free-running capture into delivered
// files.
package receiver

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrOverrun is returned by RingBuffer.Read when the requested range has
// already been overwritten by newer samples.
var ErrOverrun = errors.New("receiver: requested range overwritten")

// ErrNotAvailable is returned by RingBuffer.Read when the requested
// range has not been written yet.
var ErrNotAvailable = errors.New("receiver: requested range not yet available")

// RingBuffer is produced by the audio callback (Append) and consumed by
// the scanner (Read); the scanner never mutates it. Capacity should be
// at least 3 maximum frame lengths plus margin, per §3.
type RingBuffer struct {
	mu           sync.Mutex
	buf          []float64
	totalWritten atomic.Uint64
}

// NewRingBuffer allocates a ring buffer with room for capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{buf: make([]float64, capacity)}
}

// Cap returns the buffer's sample capacity.
func (r *RingBuffer) Cap() int { return len(r.buf) }

// TotalWritten returns the monotonic count of samples ever appended.
func (r *RingBuffer) TotalWritten() uint64 { return r.totalWritten.Load() }

// Append writes samples to the buffer at the current global position
// and advances TotalWritten. Safe to call concurrently with Read from a
// different goroutine (single producer, single consumer).
func (r *RingBuffer) Append(samples []float64) {
	if len(samples) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.buf)
	start := int(r.totalWritten.Load() % uint64(n))
	for i, s := range samples {
		r.buf[(start+i)%n] = s
	}
	r.totalWritten.Add(uint64(len(samples)))
}

// Read returns the length-many samples starting at global position pos.
// It returns ErrNotAvailable if pos+length has not yet been written, or
// ErrOverrun if pos predates the oldest sample still held.
func (r *RingBuffer) Read(pos uint64, length int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.totalWritten.Load()
	if pos+uint64(length) > total {
		return nil, ErrNotAvailable
	}
	n := uint64(len(r.buf))
	if total > n && pos < total-n {
		return nil, ErrOverrun
	}

	out := make([]float64, length)
	nn := len(r.buf)
	start := int(pos % uint64(nn))
	for i := range out {
		out[i] = r.buf[(start+i)%nn]
	}
	return out, nil
}
