/*
NAME
  transport.go

DESCRIPTION
  transport.go implements the stop-and-wait ARQ transport of §4.H: an
  8-bit sender sequence counter, bounded retries on timeout or NACK, a
  responder that turns an accepted frame around into an ACK, and a
  PING/PONG handshake.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package arq implements the stop-and-wait ARQ control plane that sits
// beside the streaming receiver and sender pipeline when per-frame
// acknowledgement is enabled.
package arq

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/acoustic-modem/frame"
)

// Timing constants from §4.H.
const (
	ACKTimeout = 500 * time.Millisecond
	Turnaround = 50 * time.Millisecond
	MaxRetries = 3
)

// State names the initiator/responder stop-and-wait states, kept only
// for observability (logging, tests) -- control flow is a straight-line
// sequence of blocking calls, not a dispatched state machine.
type State int

const (
	Idle State = iota
	Sending
	WaitingACK
	Receiving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sending:
		return "Sending"
	case WaitingACK:
		return "WaitingACK"
	case Receiving:
		return "Receiving"
	default:
		return "Unknown"
	}
}

// Clock is the host collaborator used for turnaround/timeout delays
// (§6 "clock.now() and sleep(duration)").
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock is the default Clock, backed by the standard library.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Sleep calls time.Sleep.
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// FrameSender modulates and transmits one frame over the physical
// layer, blocking until playback completes.
type FrameSender interface {
	SendFrame(f frame.Frame) error
}

// FrameReceiver waits for and demodulates the next frame from the
// physical layer, blocking up to deadline.
type FrameReceiver interface {
	ReceiveFrame(deadline time.Time) (frame.Frame, error)
}

// Errors surfaced by the transport, per §7.
var (
	ErrTimeout          = errors.New("arq: timeout")
	ErrRetriesExhausted = errors.New("arq: retries exhausted")
)

// Transport is the stop-and-wait ARQ endpoint. A Transport is either an
// initiator (calling Send/Handshake) or a responder (calling
// Receive/AwaitHandshake); both roles share the same sequence counter,
// which only the transport itself may mutate.
type Transport struct {
	log   logging.Logger
	clock Clock
	tx    FrameSender
	rx    FrameReceiver
	seq   uint8
	state State
}

// New constructs a Transport over the given physical-layer sender and
// receiver.
func New(tx FrameSender, rx FrameReceiver, clock Clock, log logging.Logger) *Transport {
	if clock == nil {
		clock = RealClock{}
	}
	return &Transport{log: log, clock: clock, tx: tx, rx: rx}
}

// State returns the transport's last-observed state, for logging/tests.
func (t *Transport) State() State { return t.state }

// Seq returns the transport's current 8-bit sequence number.
func (t *Transport) Seq() uint8 { return t.seq }

// Send modulates payload as a frame of the given type at the current
// seq, and waits up to ACKTimeout for a matching ACK. On timeout or
// NACK it retries up to MaxRetries times; on success it advances seq
// and returns. The last cause is wrapped into ErrRetriesExhausted if
// retries are exhausted.
func (t *Transport) Send(typ frame.Type, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		t.state = Sending
		f := frame.Frame{Type: typ, Seq: t.seq, Payload: payload}
		if err := t.tx.SendFrame(f); err != nil {
			lastErr = errors.Wrap(err, "arq: send frame")
			continue
		}

		t.state = WaitingACK
		deadline := t.clock.Now().Add(ACKTimeout)
		ack, err := t.rx.ReceiveFrame(deadline)
		if err != nil {
			lastErr = ErrTimeout
			t.log.Log(logging.Warning, "arq: ack wait failed", "attempt", attempt, "err", err)
			continue
		}
		if ack.Type == frame.NACK {
			lastErr = errors.New("arq: nack received")
			continue
		}
		if ack.Type != frame.ACK || ack.Seq != t.seq {
			lastErr = errors.New("arq: mismatched ack")
			continue
		}

		t.seq++
		t.state = Idle
		return nil
	}
	t.state = Idle
	return errors.Wrap(ErrRetriesExhausted, lastErr.Error())
}

// Receive waits up to deadline for the next frame, then after
// Turnaround sends an ACK for its seq and returns the frame to the
// caller.
func (t *Transport) Receive(deadline time.Time) (frame.Frame, error) {
	t.state = Receiving
	f, err := t.rx.ReceiveFrame(deadline)
	if err != nil {
		t.state = Idle
		return frame.Frame{}, ErrTimeout
	}

	t.clock.Sleep(Turnaround)
	t.state = Sending
	ack := frame.Frame{Type: frame.ACK, Seq: f.Seq}
	if err := t.tx.SendFrame(ack); err != nil {
		t.state = Idle
		return frame.Frame{}, errors.Wrap(err, "arq: send ack")
	}
	t.state = Idle
	return f, nil
}

// Handshake is the initiator side: send PING, wait up to 2*ACKTimeout
// for PONG.
func (t *Transport) Handshake() error {
	if err := t.tx.SendFrame(frame.Frame{Type: frame.PING, Seq: t.seq}); err != nil {
		return errors.Wrap(err, "arq: send ping")
	}
	deadline := t.clock.Now().Add(2 * ACKTimeout)
	f, err := t.rx.ReceiveFrame(deadline)
	if err != nil || f.Type != frame.PONG {
		return ErrTimeout
	}
	return nil
}

// AwaitHandshake is the responder side: wait (bounded by deadline,
// which the caller may set far in the future) for PING, then reply
// PONG after Turnaround.
func (t *Transport) AwaitHandshake(deadline time.Time) error {
	f, err := t.rx.ReceiveFrame(deadline)
	if err != nil || f.Type != frame.PING {
		return ErrTimeout
	}
	t.clock.Sleep(Turnaround)
	return t.tx.SendFrame(frame.Frame{Type: frame.PONG, Seq: f.Seq})
}
