/*
NAME
  frame_test.go

DESCRIPTION
  frame_test.go tests Frame encode/decode round-tripping, the declared-
  length and CRC validation paths, and the type string renderer.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Frame{
		{Type: DATA, Seq: 7, Payload: []byte("hello world")},
		{Type: ACK, Seq: 0, Payload: nil},
		{Type: PING, Seq: 255, Payload: []byte{0x01}},
		{Type: FILEMETA, Seq: 1, Payload: bytes.Repeat([]byte{0xAB}, MaxPayload)},
	}
	for _, f := range cases {
		enc, err := f.Encode()
		if err != nil {
			t.Fatalf("Encode(%v): %v", f.Type, err)
		}
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%v): %v", f.Type, err)
		}
		if got.Type != f.Type || got.Seq != f.Seq || !bytes.Equal(got.Payload, f.Payload) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, f)
		}
	}
}

func TestEncodeTooLarge(t *testing.T) {
	f := Frame{Type: DATA, Payload: make([]byte, MaxPayload+1)}
	if _, err := f.Encode(); err != ErrTooLarge {
		t.Errorf("Encode(oversized) = %v, want ErrTooLarge", err)
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderLen+CRCLen-1)); err != ErrTooShort {
		t.Errorf("Decode(short) = %v, want ErrTooShort", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	f := Frame{Type: DATA, Seq: 1, Payload: []byte("abcdef")}
	enc, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(enc[:len(enc)-2]); err != ErrTruncated {
		t.Errorf("Decode(truncated) = %v, want ErrTruncated", err)
	}
}

func TestDecodeCrcMismatch(t *testing.T) {
	f := Frame{Type: DATA, Seq: 1, Payload: []byte("abcdef")}
	enc, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	enc[len(enc)-1] ^= 0xFF
	if _, err := Decode(enc); err != ErrCrcMismatch {
		t.Errorf("Decode(flipped crc byte) = %v, want ErrCrcMismatch", err)
	}
}

func TestDecodeFlippedPayloadBitFailsCrc(t *testing.T) {
	f := Frame{Type: DATA, Seq: 1, Payload: []byte("abcdef")}
	enc, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	enc[HeaderLen] ^= 0x01
	if _, err := Decode(enc); err != ErrCrcMismatch {
		t.Errorf("Decode(flipped payload bit) = %v, want ErrCrcMismatch", err)
	}
}

func TestTypeString(t *testing.T) {
	cases := map[Type]string{
		DATA:     "DATA",
		ACK:      "ACK",
		NACK:     "NACK",
		CONTROL:  "CONTROL",
		FILEMETA: "FILE_META",
		FILEEND:  "FILE_END",
		PING:     "PING",
		PONG:     "PONG",
		Type(99): "UNKNOWN(0x63)",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
