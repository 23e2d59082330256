/*
NAME
  assembler.go

DESCRIPTION
  assembler.go implements the chunk assembler: a received-bitmap over
  totalChunks, a CRC-error counter, and a persistent seqNum-addressed
  store, from which the file is reassembled in ascending seqNum order
  regardless of arrival order.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package chunk

import (
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

// Store is the persistent, seqNum-addressed chunk store the assembler
// is built on -- the "chunk_store" host collaborator of §6. Ordered per
// seq; no iteration contract is required of implementations.
type Store interface {
	Put(seq uint32, data []byte) error
	Get(seq uint32) ([]byte, bool, error)
	Clear() error
}

const pkg = "chunk: "

// Assembler reconstructs a file from a stream of METADATA and
// DATA_CHUNK payloads. It is created fresh on the first good METADATA
// and destroyed after delivery or abort (§3 "Lifecycles").
type Assembler struct {
	log   logging.Logger
	store Store

	haveMeta      bool
	meta          Metadata
	bitmap        []byte
	receivedCount uint32
	crcErrors     uint32
}

// NewAssembler constructs an Assembler bound to the given persistent
// store.
func NewAssembler(store Store, log logging.Logger) *Assembler {
	return &Assembler{store: store, log: log}
}

// HandleMetadata applies a decoded METADATA payload. A CRC-invalid or
// zero-totalChunks metadata is rejected and does not reset assembler
// state. A valid METADATA clears any prior persistent contents and
// starts a fresh assembly.
func (a *Assembler) HandleMetadata(m Metadata) error {
	if !m.CRCValid {
		a.crcErrors++
		return errors.New(pkg + "metadata crc mismatch")
	}
	if m.TotalChunks == 0 {
		return errors.New(pkg + "metadata declares zero chunks")
	}
	if err := a.store.Clear(); err != nil {
		return errors.Wrap(err, pkg+"clear store")
	}
	a.meta = m
	a.haveMeta = true
	a.bitmap = make([]byte, (m.TotalChunks+7)/8)
	a.receivedCount = 0
	a.crcErrors = 0
	a.log.Log(logging.Info, pkg+"metadata received", "name", m.Name, "totalChunks", m.TotalChunks, "totalFileSize", m.TotalFileSize)
	return nil
}

// HandleDataChunk applies a decoded DATA_CHUNK. CRC-failed chunks are
// counted and discarded, never stored. A chunk whose seqNum is out of
// range, or already marked received, is a no-op (idempotence, §5
// ordering guarantee iv). Returns true iff the chunk was newly stored.
func (a *Assembler) HandleDataChunk(d DataChunk) (bool, error) {
	if !d.CRCValid {
		a.crcErrors++
		return false, nil
	}
	if !a.haveMeta || d.SeqNum >= a.meta.TotalChunks {
		return false, nil
	}
	if a.bitSet(d.SeqNum) {
		return false, nil
	}
	if err := a.store.Put(d.SeqNum, d.Data); err != nil {
		return false, errors.Wrap(err, pkg+"store put")
	}
	a.setBit(d.SeqNum)
	a.receivedCount++
	a.log.Log(logging.Debug, pkg+"chunk received", "seq", d.SeqNum, "received", a.receivedCount, "total", a.meta.TotalChunks)
	return true, nil
}

func (a *Assembler) bitSet(seq uint32) bool {
	return a.bitmap[seq/8]&(1<<(seq%8)) != 0
}

func (a *Assembler) setBit(seq uint32) {
	a.bitmap[seq/8] |= 1 << (seq % 8)
}

// ReceivedCount is popcount(bitmap).
func (a *Assembler) ReceivedCount() uint32 { return a.receivedCount }

// CRCErrorCount is the running count of CRC-failed chunks (and
// metadata) seen since construction or since the last accepted
// METADATA, which resets it to zero.
func (a *Assembler) CRCErrorCount() uint32 { return a.crcErrors }

// Complete reports receivedCount == totalChunks.
func (a *Assembler) Complete() bool {
	return a.haveMeta && a.receivedCount == a.meta.TotalChunks
}

// Metadata returns the metadata this assembler was started from, and
// whether any has been received yet.
func (a *Assembler) Metadata() (Metadata, bool) { return a.meta, a.haveMeta }

// Missing returns the seqNums not yet marked received, ascending.
func (a *Assembler) Missing() []uint32 {
	if !a.haveMeta {
		return nil
	}
	var missing []uint32
	for seq := uint32(0); seq < a.meta.TotalChunks; seq++ {
		if !a.bitSet(seq) {
			missing = append(missing, seq)
		}
	}
	return missing
}

// Assemble concatenates every received chunk in ascending seqNum order
// and truncates the result to totalFileSize. It returns an error if the
// assembly is not yet Complete.
func (a *Assembler) Assemble() ([]byte, error) {
	if !a.Complete() {
		return nil, errors.New(pkg + "assembly incomplete")
	}
	out := make([]byte, 0, a.meta.TotalFileSize)
	for seq := uint32(0); seq < a.meta.TotalChunks; seq++ {
		data, ok, err := a.store.Get(seq)
		if err != nil {
			return nil, errors.Wrapf(err, pkg+"get chunk %d", seq)
		}
		if !ok {
			return nil, errors.Errorf(pkg+"missing chunk %d despite complete bitmap", seq)
		}
		out = append(out, data...)
	}
	if uint32(len(out)) > a.meta.TotalFileSize {
		out = out[:a.meta.TotalFileSize]
	}
	return out, nil
}
