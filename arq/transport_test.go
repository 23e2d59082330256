/*
NAME
  transport_test.go

DESCRIPTION
  transport_test.go tests the stop-and-wait ARQ transport against fake
  frame sender/receiver pairs: successful Send/ACK, NACK and timeout
  retry exhaustion, Receive's ACK turnaround, and the PING/PONG
  handshake including its timeout path.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package arq

import (
	"testing"
	"time"

	"github.com/ausocean/acoustic-modem/frame"
)

type dumbLogger struct{}

func (dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dumbLogger) SetLevel(l int8)                         {}
func (dumbLogger) Debug(msg string, args ...interface{})   {}
func (dumbLogger) Info(msg string, args ...interface{})    {}
func (dumbLogger) Warning(msg string, args ...interface{}) {}
func (dumbLogger) Error(msg string, args ...interface{})   {}
func (dumbLogger) Fatal(msg string, args ...interface{})   {}

// fakeClock never actually blocks; Sleep just advances the clock.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// fakeLink is a scriptable FrameSender/FrameReceiver pair: sent
// records every frame passed to SendFrame, and recvQueue is consumed in
// order by ReceiveFrame. A nil entry in recvQueue means "fail with
// ErrTimeout".
type fakeLink struct {
	sent      []frame.Frame
	recvQueue []*frame.Frame
	recvErr   []error
}

func (f *fakeLink) SendFrame(fr frame.Frame) error {
	f.sent = append(f.sent, fr)
	return nil
}

func (f *fakeLink) ReceiveFrame(deadline time.Time) (frame.Frame, error) {
	if len(f.recvQueue) == 0 {
		return frame.Frame{}, ErrTimeout
	}
	next := f.recvQueue[0]
	err := f.recvErr[0]
	f.recvQueue = f.recvQueue[1:]
	f.recvErr = f.recvErr[1:]
	if next == nil {
		return frame.Frame{}, err
	}
	return *next, err
}

func (f *fakeLink) queueFrame(fr frame.Frame) {
	f.recvQueue = append(f.recvQueue, &fr)
	f.recvErr = append(f.recvErr, nil)
}

func (f *fakeLink) queueTimeout() {
	f.recvQueue = append(f.recvQueue, nil)
	f.recvErr = append(f.recvErr, ErrTimeout)
}

func TestSendSuccess(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueFrame(frame.Frame{Type: frame.ACK, Seq: 0})
	if err := tr.Send(frame.DATA, []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if tr.Seq() != 1 {
		t.Errorf("Seq() = %d, want 1", tr.Seq())
	}
	if len(link.sent) != 1 || link.sent[0].Type != frame.DATA {
		t.Errorf("sent frames = %+v", link.sent)
	}
}

// TestSendRetriesOnNACK checks a NACK triggers a retry with the same
// sequence number, and a subsequent ACK completes the send.
func TestSendRetriesOnNACK(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueFrame(frame.Frame{Type: frame.NACK, Seq: 0})
	link.queueFrame(frame.Frame{Type: frame.ACK, Seq: 0})

	if err := tr.Send(frame.DATA, []byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(link.sent) != 2 {
		t.Fatalf("sent %d frames, want 2 (one retry)", len(link.sent))
	}
	if link.sent[0].Seq != link.sent[1].Seq {
		t.Errorf("retry used a different seq: %d vs %d", link.sent[0].Seq, link.sent[1].Seq)
	}
}

// TestSendRetriesExhausted checks that persistent timeouts exhaust
// MaxRetries and return ErrRetriesExhausted.
func TestSendRetriesExhausted(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	for i := 0; i <= MaxRetries; i++ {
		link.queueTimeout()
	}

	err := tr.Send(frame.DATA, []byte("hi"))
	if err == nil {
		t.Fatal("Send succeeded, want ErrRetriesExhausted")
	}
	if len(link.sent) != MaxRetries+1 {
		t.Errorf("sent %d frames, want %d (1+MaxRetries)", len(link.sent), MaxRetries+1)
	}
	if tr.Seq() != 0 {
		t.Errorf("Seq() = %d, want 0 (unchanged on failure)", tr.Seq())
	}
}

// TestReceiveAcksAndReturnsFrame checks Receive turns an accepted frame
// around into a matching ACK.
func TestReceiveAcksAndReturnsFrame(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueFrame(frame.Frame{Type: frame.DATA, Seq: 5, Payload: []byte("x")})
	got, err := tr.Receive(time.Unix(0, 0).Add(time.Second))
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Seq != 5 {
		t.Errorf("Receive() seq = %d, want 5", got.Seq)
	}
	if len(link.sent) != 1 || link.sent[0].Type != frame.ACK || link.sent[0].Seq != 5 {
		t.Errorf("sent ack = %+v", link.sent)
	}
}

// TestHandshakeSuccess checks the initiator handshake sends PING and
// accepts a PONG reply.
func TestHandshakeSuccess(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueFrame(frame.Frame{Type: frame.PONG})
	if err := tr.Handshake(); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if len(link.sent) != 1 || link.sent[0].Type != frame.PING {
		t.Errorf("sent = %+v, want one PING", link.sent)
	}
}

// TestHandshakeTimeout checks the initiator handshake reports
// ErrTimeout when no PONG ever arrives (§8 handshake-timeout scenario).
func TestHandshakeTimeout(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueTimeout()
	if err := tr.Handshake(); err != ErrTimeout {
		t.Errorf("Handshake() = %v, want ErrTimeout", err)
	}
}

// TestAwaitHandshakeSuccess checks the responder side replies PONG to
// an incoming PING.
func TestAwaitHandshakeSuccess(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueFrame(frame.Frame{Type: frame.PING, Seq: 0})
	if err := tr.AwaitHandshake(time.Unix(0, 0).Add(time.Second)); err != nil {
		t.Fatalf("AwaitHandshake: %v", err)
	}
	if len(link.sent) != 1 || link.sent[0].Type != frame.PONG {
		t.Errorf("sent = %+v, want one PONG", link.sent)
	}
}

// TestAwaitHandshakeTimeout checks the responder reports ErrTimeout
// when no PING ever arrives.
func TestAwaitHandshakeTimeout(t *testing.T) {
	link := &fakeLink{}
	tr := New(link, link, &fakeClock{now: time.Unix(0, 0)}, dumbLogger{})

	link.queueTimeout()
	if err := tr.AwaitHandshake(time.Unix(0, 0).Add(time.Second)); err != ErrTimeout {
		t.Errorf("AwaitHandshake() = %v, want ErrTimeout", err)
	}
}
