/*
NAME
  protocol_test.go

DESCRIPTION
  protocol_test.go tests the three payload codecs: encode/decode round
  trips, the name-length safety clamp against tag-byte collision, and
  CRC-failure reporting via CRCValid rather than an error.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package chunk

import (
	"bytes"
	"strings"
	"testing"
)

func TestMetadataRoundTrip(t *testing.T) {
	b, err := EncodeMetadata(10, 40960, 4096, "video.mp4")
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	m, err := DecodeMetadata(b)
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if !m.CRCValid {
		t.Fatal("metadata CRC invalid on clean round trip")
	}
	if m.TotalChunks != 10 || m.TotalFileSize != 40960 || m.ChunkSize != 4096 || m.Name != "video.mp4" {
		t.Errorf("decoded metadata mismatch: %+v", m)
	}
}

func TestEncodeMetadataZeroChunks(t *testing.T) {
	if _, err := EncodeMetadata(0, 0, 0, "x"); err != ErrZeroChunks {
		t.Errorf("EncodeMetadata(0 chunks) = %v, want ErrZeroChunks", err)
	}
}

func TestEncodeMetadataNameUnsafe(t *testing.T) {
	name := strings.Repeat("a", int(MaxNameLenSafe)+1)
	if _, err := EncodeMetadata(1, 1, 1, name); err != ErrNameUnsafe {
		t.Errorf("EncodeMetadata(unsafe name len) = %v, want ErrNameUnsafe", err)
	}
}

func TestMetadataCRCInvalidOnCorruption(t *testing.T) {
	b, err := EncodeMetadata(1, 100, 100, "a")
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	b[len(b)-1] ^= 0xFF
	m, err := DecodeMetadata(b)
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if m.CRCValid {
		t.Error("corrupted metadata reported CRCValid = true")
	}
}

func TestDataChunkRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 2048)
	b, err := EncodeDataChunk(7, data)
	if err != nil {
		t.Fatalf("EncodeDataChunk: %v", err)
	}
	d, err := DecodeDataChunk(b)
	if err != nil {
		t.Fatalf("DecodeDataChunk: %v", err)
	}
	if !d.CRCValid {
		t.Fatal("data chunk CRC invalid on clean round trip")
	}
	if d.SeqNum != 7 || !bytes.Equal(d.Data, data) {
		t.Errorf("decoded data chunk mismatch: seq=%d data len=%d", d.SeqNum, len(d.Data))
	}
}

func TestEncodeDataChunkTooLarge(t *testing.T) {
	if _, err := EncodeDataChunk(0, make([]byte, MaxChunkSize+1)); err != ErrChunkTooLarge {
		t.Errorf("EncodeDataChunk(oversized) = %v, want ErrChunkTooLarge", err)
	}
}

func TestDataChunkCRCInvalidOnCorruption(t *testing.T) {
	b, err := EncodeDataChunk(1, []byte("payload"))
	if err != nil {
		t.Fatalf("EncodeDataChunk: %v", err)
	}
	b[len(b)-2] ^= 0x01
	d, err := DecodeDataChunk(b)
	if err != nil {
		t.Fatalf("DecodeDataChunk: %v", err)
	}
	if d.CRCValid {
		t.Error("corrupted data chunk reported CRCValid = true")
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	b, err := EncodeLegacy("note.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("EncodeLegacy: %v", err)
	}
	p, err := DecodeLegacy(b)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if !p.CRCValid || p.Name != "note.txt" || string(p.Data) != "hello" {
		t.Errorf("decoded legacy packet mismatch: %+v", p)
	}
}

func TestLegacyNameUnsafe(t *testing.T) {
	name := strings.Repeat("z", int(MaxNameLenSafe)+1)
	if _, err := EncodeLegacy(name, nil); err != ErrNameUnsafe {
		t.Errorf("EncodeLegacy(unsafe name len) = %v, want ErrNameUnsafe", err)
	}
}

func TestLegacyCRCInvalidOnCorruption(t *testing.T) {
	b, err := EncodeLegacy("f", []byte("data"))
	if err != nil {
		t.Fatalf("EncodeLegacy: %v", err)
	}
	b[len(b)-3] ^= 0xFF
	p, err := DecodeLegacy(b)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if p.CRCValid {
		t.Error("corrupted legacy packet reported CRCValid = true")
	}
}

func TestDecodeMetadataWrongTag(t *testing.T) {
	b, err := EncodeDataChunk(0, []byte("x"))
	if err != nil {
		t.Fatalf("EncodeDataChunk: %v", err)
	}
	if _, err := DecodeMetadata(b); err == nil {
		t.Error("DecodeMetadata accepted a data-chunk payload")
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := DecodeMetadata(nil); err != ErrTooShort {
		t.Errorf("DecodeMetadata(nil) = %v, want ErrTooShort", err)
	}
	if _, err := DecodeDataChunk(nil); err != ErrTooShort {
		t.Errorf("DecodeDataChunk(nil) = %v, want ErrTooShort", err)
	}
	if _, err := DecodeLegacy(nil); err != ErrTooShort {
		t.Errorf("DecodeLegacy(nil) = %v, want ErrTooShort", err)
	}
}
