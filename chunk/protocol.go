/*
NAME
  protocol.go

DESCRIPTION
  protocol.go implements the streaming chunk-protocol payload shapes
  carried directly inside an OFDM waveform (METADATA, DATA_CHUNK, and
  the legacy single-shot packet), each with its own inner CRC-32.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package chunk implements the streaming chunked-file wire protocol:
// metadata and data-chunk payloads, the legacy small-file packet, and
// the chunk assembler that reconstructs a file from a bitmap of
// received, CRC-checked chunks.
package chunk

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Tag bytes that route a decoded OFDM payload to the right parser.
const (
	TagMetadata byte = 0xFE
	TagData     byte = 0xFF
)

// MaxNameLen is the largest file-name length the wire format can carry;
// §9's Open Question requires encoders to clamp further to
// MaxNameLenSafe so a name length can never collide with a tag byte.
const MaxNameLen = 255

// MaxNameLenSafe is the largest name length an encoder may actually
// produce, so that a legacy packet's leading name-length byte can never
// be confused with TagMetadata or TagData.
const MaxNameLenSafe = TagMetadata - 1 // 253

// MaxChunkSize is the largest dataLen a DATA_CHUNK may declare.
const MaxChunkSize = 0xFFFF

// Errors surfaced by the codec.
var (
	ErrTooShort      = errors.New("chunk: payload shorter than fixed fields")
	ErrNameTooLong   = errors.New("chunk: name exceeds MaxNameLen")
	ErrNameUnsafe    = errors.New("chunk: name length collides with a tag byte")
	ErrChunkTooLarge = errors.New("chunk: chunkSize/dataLen exceeds MaxChunkSize")
	ErrZeroChunks    = errors.New("chunk: totalChunks is zero")
)

// Metadata is the decoded METADATA payload (tag 0xFE).
type Metadata struct {
	TotalChunks   uint32
	TotalFileSize uint32
	ChunkSize     uint16
	Name          string
	CRCValid      bool
}

// EncodeMetadata builds the wire-format METADATA payload: tag,
// totalChunks, totalFileSize, chunkSize, nameLen, name, CRC-32 over
// everything preceding it.
func EncodeMetadata(totalChunks, totalFileSize uint32, chunkSize uint16, name string) ([]byte, error) {
	if totalChunks == 0 {
		return nil, ErrZeroChunks
	}
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if len(name) > MaxNameLenSafe {
		return nil, ErrNameUnsafe
	}

	body := make([]byte, 1+4+4+2+1+len(name))
	body[0] = TagMetadata
	binary.BigEndian.PutUint32(body[1:5], totalChunks)
	binary.BigEndian.PutUint32(body[5:9], totalFileSize)
	binary.BigEndian.PutUint16(body[9:11], chunkSize)
	body[11] = byte(len(name))
	copy(body[12:], name)

	return appendCRC(body), nil
}

// DecodeMetadata parses a METADATA payload. It never errors on a CRC
// failure -- the assembler wants to see a flagged-invalid result and
// count it -- but does return a structural error if the bytes are too
// short to contain the fixed fields and declared name.
func DecodeMetadata(b []byte) (Metadata, error) {
	const fixed = 1 + 4 + 4 + 2 + 1
	if len(b) < fixed {
		return Metadata{}, ErrTooShort
	}
	if b[0] != TagMetadata {
		return Metadata{}, errors.New("chunk: not a metadata payload")
	}
	nameLen := int(b[11])
	total := fixed + nameLen + crcLen
	if len(b) < total {
		return Metadata{}, ErrTooShort
	}

	m := Metadata{
		TotalChunks:   binary.BigEndian.Uint32(b[1:5]),
		TotalFileSize: binary.BigEndian.Uint32(b[5:9]),
		ChunkSize:     binary.BigEndian.Uint16(b[9:11]),
		Name:          string(b[12 : 12+nameLen]),
		CRCValid:      verifyCRC(b[:total]),
	}
	return m, nil
}

// DataChunk is the decoded DATA_CHUNK payload (tag 0xFF).
type DataChunk struct {
	SeqNum   uint32
	Data     []byte
	CRCValid bool
}

// EncodeDataChunk builds the wire-format DATA_CHUNK payload: tag,
// seqNum, dataLen, data, CRC-32 over everything preceding it.
func EncodeDataChunk(seqNum uint32, data []byte) ([]byte, error) {
	if len(data) > MaxChunkSize {
		return nil, ErrChunkTooLarge
	}
	body := make([]byte, 1+4+2+len(data))
	body[0] = TagData
	binary.BigEndian.PutUint32(body[1:5], seqNum)
	binary.BigEndian.PutUint16(body[5:7], uint16(len(data)))
	copy(body[7:], data)
	return appendCRC(body), nil
}

// DecodeDataChunk parses a DATA_CHUNK payload; CRC failures are
// reported via CRCValid rather than an error.
func DecodeDataChunk(b []byte) (DataChunk, error) {
	const fixed = 1 + 4 + 2
	if len(b) < fixed {
		return DataChunk{}, ErrTooShort
	}
	if b[0] != TagData {
		return DataChunk{}, errors.New("chunk: not a data-chunk payload")
	}
	dataLen := int(binary.BigEndian.Uint16(b[5:7]))
	total := fixed + dataLen + crcLen
	if len(b) < total {
		return DataChunk{}, ErrTooShort
	}

	data := make([]byte, dataLen)
	copy(data, b[7:7+dataLen])
	return DataChunk{
		SeqNum:   binary.BigEndian.Uint32(b[1:5]),
		Data:     data,
		CRCValid: verifyCRC(b[:total]),
	}, nil
}

// LegacyPacket is the small-file, non-chunked payload: [nameLen(1)]
// [name][dataLen(4 BE)][data][CRC-32(4 BE)]. Its first byte is a name
// length, not a tag, and must be distinguished from TagMetadata/TagData
// by the caller before attempting this decode.
type LegacyPacket struct {
	Name     string
	Data     []byte
	CRCValid bool
}

// EncodeLegacy builds a legacy single-shot packet.
func EncodeLegacy(name string, data []byte) ([]byte, error) {
	if len(name) > MaxNameLenSafe {
		return nil, ErrNameUnsafe
	}
	body := make([]byte, 1+len(name)+4+len(data))
	body[0] = byte(len(name))
	copy(body[1:], name)
	binary.BigEndian.PutUint32(body[1+len(name):5+len(name)], uint32(len(data)))
	copy(body[5+len(name):], data)
	return appendCRC(body), nil
}

// DecodeLegacy parses a legacy packet; CRC failures are reported via
// CRCValid rather than an error.
func DecodeLegacy(b []byte) (LegacyPacket, error) {
	if len(b) < 1 {
		return LegacyPacket{}, ErrTooShort
	}
	nameLen := int(b[0])
	if len(b) < 1+nameLen+4 {
		return LegacyPacket{}, ErrTooShort
	}
	dataLen := int(binary.BigEndian.Uint32(b[1+nameLen : 5+nameLen]))
	total := 5 + nameLen + dataLen + crcLen
	if len(b) < total {
		return LegacyPacket{}, ErrTooShort
	}

	data := make([]byte, dataLen)
	copy(data, b[5+nameLen:5+nameLen+dataLen])
	return LegacyPacket{
		Name:     string(b[1 : 1+nameLen]),
		Data:     data,
		CRCValid: verifyCRC(b[:total]),
	}, nil
}
