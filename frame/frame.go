/*
NAME
  frame.go

DESCRIPTION
  frame.go implements the link-layer Frame: a four-byte header, a
  payload of up to 1024 bytes, and a trailing CRC-32/IEEE over header
  plus payload.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame implements the acoustic modem's link-layer framing:
// type + sequence + length header, payload, and a CRC-32/IEEE trailer.
package frame

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/pkg/errors"
)

// Type identifies the kind of frame carried by one link-layer record.
type Type uint8

// The enumerated frame types. Any other byte value decodes successfully
// as an Unknown type, labeled by its raw value.
const (
	DATA      Type = 1
	ACK       Type = 2
	NACK      Type = 3
	CONTROL   Type = 4
	FILEMETA  Type = 5
	FILEEND   Type = 6
	PING      Type = 7
	PONG      Type = 8
)

// String renders known types by name and unknown ones as UNKNOWN(0xXX),
// per §4.F.
func (t Type) String() string {
	switch t {
	case DATA:
		return "DATA"
	case ACK:
		return "ACK"
	case NACK:
		return "NACK"
	case CONTROL:
		return "CONTROL"
	case FILEMETA:
		return "FILE_META"
	case FILEEND:
		return "FILE_END"
	case PING:
		return "PING"
	case PONG:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
	}
}

// HeaderLen is the fixed size of a Frame's header: type, seq, len_hi, len_lo.
const HeaderLen = 4

// CRCLen is the size of the trailing CRC-32.
const CRCLen = 4

// MaxPayload is the largest payload a Frame may carry (§6).
const MaxPayload = 1024

// MaxFrameLen is HeaderLen + MaxPayload + CRCLen.
const MaxFrameLen = HeaderLen + MaxPayload + CRCLen

// Errors surfaced by Decode, per §4.F and §7.
var (
	ErrTooShort    = errors.New("frame: shorter than header+crc")
	ErrTruncated   = errors.New("frame: declared length exceeds available bytes")
	ErrCrcMismatch = errors.New("frame: crc mismatch")
	ErrTooLarge    = errors.New("frame: payload exceeds MaxPayload")
)

// Frame is one link-layer record. It is produced once by Encode and
// consumed once by the caller; it never mutates after decode.
type Frame struct {
	Type    Type
	Seq     uint8
	Payload []byte
}

// Encode writes the four-byte header (big-endian length), the payload,
// and a trailing big-endian CRC-32/IEEE over header+payload.
func (f Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, ErrTooLarge
	}
	out := make([]byte, HeaderLen+len(f.Payload)+CRCLen)
	out[0] = byte(f.Type)
	out[1] = f.Seq
	binary.BigEndian.PutUint16(out[2:4], uint16(len(f.Payload)))
	copy(out[HeaderLen:], f.Payload)

	sum := crc32.ChecksumIEEE(out[:HeaderLen+len(f.Payload)])
	binary.BigEndian.PutUint32(out[len(out)-CRCLen:], sum)
	return out, nil
}

// Decode parses and CRC-validates a wire-format frame.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderLen+CRCLen {
		return Frame{}, ErrTooShort
	}
	n := int(binary.BigEndian.Uint16(b[2:4]))
	total := HeaderLen + n + CRCLen
	if len(b) < total {
		return Frame{}, ErrTruncated
	}

	want := binary.BigEndian.Uint32(b[total-CRCLen : total])
	got := crc32.ChecksumIEEE(b[:total-CRCLen])
	if want != got {
		return Frame{}, ErrCrcMismatch
	}

	payload := make([]byte, n)
	copy(payload, b[HeaderLen:HeaderLen+n])
	return Frame{
		Type:    Type(b[0]),
		Seq:     b[1],
		Payload: payload,
	}, nil
}
