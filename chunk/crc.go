/*
NAME
  crc.go

DESCRIPTION
  crc.go holds the inner CRC-32/IEEE helpers shared by every chunk
  payload shape.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package chunk

import (
	"encoding/binary"
	"hash/crc32"
)

const crcLen = 4

// appendCRC appends a big-endian CRC-32/IEEE over body to body.
func appendCRC(body []byte) []byte {
	out := make([]byte, len(body)+crcLen)
	copy(out, body)
	binary.BigEndian.PutUint32(out[len(body):], crc32.ChecksumIEEE(body))
	return out
}

// verifyCRC reports whether the trailing four bytes of b are a valid
// CRC-32/IEEE over the preceding bytes.
func verifyCRC(b []byte) bool {
	if len(b) < crcLen {
		return false
	}
	want := binary.BigEndian.Uint32(b[len(b)-crcLen:])
	got := crc32.ChecksumIEEE(b[:len(b)-crcLen])
	return want == got
}
