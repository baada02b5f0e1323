// Package wire implements the sync frame layout from spec §4.7:
// length-prefixed type name, update/remove counts, and per-record
// payloads, each carrying its own flags byte. Grounded on
// DataSyncManager::WriteOutgoingRecords in
// original_source/libcomp/src/DataSyncManager.h for the UUID-vs-snapshot
// branch.
//
// Every payload, persistent or transient, is itself u32-length-prefixed
// and flags-prefixed. This is more than spec §4.7 spells out, but §4.6
// requires it implicitly ("read the remaining bytes to keep the stream
// aligned" on an unknown type name) — without a self-describing length,
// an unrecognized type could not be skipped without first knowing
// whether it was persistent — and compression/encryption are decided
// per record (core/wire/payload.go's CompressIfWorthwhile only kicks in
// above a size threshold, and may decline even then), so a single
// frame-wide flags byte cannot describe a batch mixing, say, one
// over-threshold and one under-threshold transient snapshot. The
// 16-bytes-per-persistent-record invariant (spec §8 property 5) still
// holds for the payload itself.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Flag bits carried in each payload's own flags byte.
const (
	FlagCompressed byte = 1 << 0
	FlagEncrypted  byte = 1 << 1
)

// Payload is one record's wire-encoded bytes plus the flags describing
// how Data was transformed (compressed/encrypted) at encode time.
// Persistent-type payloads (raw 16-byte UUIDs) always carry Flags 0.
type Payload struct {
	Flags byte
	Data  []byte
}

// Frame is the decoded wire representation of one sync exchange for a
// single type. Updates/Removes are raw per-record payloads: 16-byte
// UUIDs for persistent types, (possibly compressed/encrypted) snapshot
// bytes for transient ones. wire does not interpret payload contents —
// that needs the Type Registry, which wire must not depend on.
type Frame struct {
	TypeName string
	Updates  []Payload
	Removes  []Payload
}

// Encode serializes f per the layout above.
func Encode(f Frame) ([]byte, error) {
	var buf bytes.Buffer

	if len(f.TypeName) > 0xFFFF {
		return nil, errors.Errorf("type name %q too long for u16 length prefix", f.TypeName)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(f.TypeName))); err != nil {
		return nil, err
	}
	buf.WriteString(f.TypeName)

	if err := writePayloads(&buf, f.Updates); err != nil {
		return nil, errors.Wrap(err, "encode updates")
	}
	if err := writePayloads(&buf, f.Removes); err != nil {
		return nil, errors.Wrap(err, "encode removes")
	}

	return buf.Bytes(), nil
}

func writePayloads(buf *bytes.Buffer, payloads []Payload) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(payloads))); err != nil {
		return err
	}
	for _, p := range payloads {
		buf.WriteByte(p.Flags)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(p.Data))); err != nil {
			return err
		}
		buf.Write(p.Data)
	}
	return nil
}

// Decode parses b into a Frame. Decoding never consults a type registry;
// it fully consumes the bytes regardless of whether the type turns out
// to be known, so the caller can safely abandon an unknown-type frame
// without desynchronizing the stream (spec §4.6, §7 ErrDecode/UnknownType
// split).
func Decode(b []byte) (Frame, error) {
	r := bytes.NewReader(b)
	var f Frame

	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return Frame{}, errors.Wrap(err, "read type name length")
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return Frame{}, errors.Wrap(err, "read type name")
	}
	f.TypeName = string(nameBuf)

	var err error
	f.Updates, err = readPayloads(r)
	if err != nil {
		return Frame{}, errors.Wrap(err, "read updates")
	}
	f.Removes, err = readPayloads(r)
	if err != nil {
		return Frame{}, errors.Wrap(err, "read removes")
	}

	return f, nil
}

// readPayloads reads a u32 count followed by that many flags+length-
// prefixed payloads. Both the count and each payload's length prefix are
// attacker-controlled (they arrive straight off the wire), so neither is
// trusted to size an allocation directly: each is capped against the
// reader's remaining byte count, which is itself bounded by the size of
// the frame actually received. A malformed count or length simply fails
// the subsequent io.ReadFull instead of first reserving gigabytes.
func readPayloads(r *bytes.Reader) ([]Payload, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	remaining := uint32(r.Len())
	if count > remaining {
		return nil, errors.Errorf("payload count %d exceeds %d remaining bytes", count, remaining)
	}
	out := make([]Payload, 0, count)
	for i := uint32(0); i < count; i++ {
		flags, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		var plen uint32
		if err := binary.Read(r, binary.LittleEndian, &plen); err != nil {
			return nil, err
		}
		if plen > uint32(r.Len()) {
			return nil, errors.Errorf("payload length %d exceeds %d remaining bytes", plen, r.Len())
		}
		data := make([]byte, plen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		out = append(out, Payload{Flags: flags, Data: data})
	}
	return out, nil
}
