/*
NAME
  arqbridge.go

DESCRIPTION
  arqbridge.go adapts the sender/receiver OFDM pipeline into the
  arq.FrameSender/FrameReceiver pair the control plane needs, so a
  Session can drive a stop-and-wait handshake over the same acoustic
  channel its bulk transfer uses (§4.I: "Control plane sits beside I/J
  when ARQ is enabled").

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package modem

import (
	"time"

	"github.com/ausocean/acoustic-modem/arq"
	"github.com/ausocean/acoustic-modem/frame"
	"github.com/ausocean/acoustic-modem/receiver"
	"github.com/ausocean/acoustic-modem/sender"
)

// pollSamples is how many samples arqFrameReceiver reads from the
// audio source per poll while waiting for a control frame.
const pollSamples = 2048

// arqFrameSender modulates a link-layer frame and plays it through an
// AudioSink, implementing arq.FrameSender.
type arqFrameSender struct {
	pipeline *sender.Pipeline
	sink     sender.AudioSink
}

func (a *arqFrameSender) SendFrame(f frame.Frame) error {
	payload, err := f.Encode()
	if err != nil {
		return err
	}
	samples, err := a.pipeline.BuildARQFrame(payload)
	if err != nil {
		return err
	}
	return a.sink.Write(sender.ToFloat32(samples))
}

// arqFrameReceiver accumulates samples from an AudioSource and, after
// every poll, attempts a standalone decode, implementing
// arq.FrameReceiver. It is intentionally simple (poll-and-retry) since
// control frames are short and infrequent relative to bulk transfer.
type arqFrameReceiver struct {
	source AudioSource
	params receiver.Params
	clock  arq.Clock
}

func (a *arqFrameReceiver) ReceiveFrame(deadline time.Time) (frame.Frame, error) {
	var buf []float64
	for a.clock.Now().Before(deadline) {
		block, err := a.source.Read(pollSamples)
		if err != nil {
			return frame.Frame{}, err
		}
		for _, s := range block {
			buf = append(buf, float64(s))
		}
		payload, err := receiver.DecodePayload(buf, a.params)
		if err != nil {
			continue
		}
		f, err := frame.Decode(payload)
		if err != nil {
			continue
		}
		return f, nil
	}
	return frame.Frame{}, arq.ErrTimeout
}
