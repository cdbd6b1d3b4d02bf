// Package commit implements the no-WAL, single-marker commit protocol:
// preflight a batch of row mutations against a staging overlay, persist
// one marker describing the whole batch, apply index then data ops
// infallibly, clear the marker. A marker found on the next mutation
// entrypoint after a crash is replayed the same way (spec §3.4, §4.2).
package commit

import (
	"encoding/binary"

	"icydb/internal/errs"
)

// CommitRowOp is one row's before/after state plus the schema shape that
// was active when it was prepared, persisted inside the marker so
// recovery can re-derive index ops without re-running application logic
// (spec §3.4).
type CommitRowOp struct {
	EntityPath        string
	DataKey           []byte
	BeforeRow         []byte // nil means the row did not exist before
	AfterRow          []byte // nil means the row was deleted
	SchemaFingerprint [16]byte
}

// CommitMarker is the single stable record persisted in the commit cell
// for the duration of an apply window (spec §3.4).
type CommitMarker struct {
	ID     [16]byte
	RowOps []CommitRowOp
}

// Encode serializes a marker to its self-describing on-disk form:
// [version:1][id:16][row_op_count:u32 BE]{row op}*, each row op framed as
// length-prefixed strings/blobs so decoding never needs external
// knowledge of field widths (spec §6.2).
const markerVersion = 1

func (m CommitMarker) Encode() ([]byte, error) {
	out := make([]byte, 0, 64)
	out = append(out, markerVersion)
	out = append(out, m.ID[:]...)
	out = appendUint32(out, uint32(len(m.RowOps)))
	for _, op := range m.RowOps {
		out = appendLenPrefixed(out, []byte(op.EntityPath))
		out = appendLenPrefixed(out, op.DataKey)
		out = appendOptionalBytes(out, op.BeforeRow)
		out = appendOptionalBytes(out, op.AfterRow)
		out = append(out, op.SchemaFingerprint[:]...)
	}
	return out, nil
}

// DecodeMarker reverses Encode, failing closed with errs.Corruption on any
// malformed input since this path also backs recovery prevalidation
// (spec §4.2: "Recovery prevalidation failures ... leave the marker intact
// and return Corruption").
func DecodeMarker(raw []byte) (CommitMarker, error) {
	var m CommitMarker
	if len(raw) < 1+16+4 {
		return m, errs.New(errs.Corruption, errs.Store, "commit marker shorter than envelope")
	}
	if raw[0] != markerVersion {
		return m, errs.Newf(errs.Corruption, errs.Store, "commit marker has unknown version %d", raw[0])
	}
	pos := 1
	copy(m.ID[:], raw[pos:pos+16])
	pos += 16
	count := binary.BigEndian.Uint32(raw[pos : pos+4])
	pos += 4

	rowOps := make([]CommitRowOp, 0, count)
	for i := uint32(0); i < count; i++ {
		var op CommitRowOp
		var err error
		op.EntityPath, pos, err = readLenPrefixedString(raw, pos)
		if err != nil {
			return m, err
		}
		op.DataKey, pos, err = readLenPrefixedBytes(raw, pos)
		if err != nil {
			return m, err
		}
		op.BeforeRow, pos, err = readOptionalBytes(raw, pos)
		if err != nil {
			return m, err
		}
		op.AfterRow, pos, err = readOptionalBytes(raw, pos)
		if err != nil {
			return m, err
		}
		if pos+16 > len(raw) {
			return m, errs.New(errs.Corruption, errs.Store, "truncated schema fingerprint")
		}
		copy(op.SchemaFingerprint[:], raw[pos:pos+16])
		pos += 16
		rowOps = append(rowOps, op)
	}
	if pos != len(raw) {
		return m, errs.New(errs.Corruption, errs.Store, "trailing bytes after commit marker")
	}
	m.RowOps = rowOps
	return m, nil
}

func appendUint32(out []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(out, b[:]...)
}

func appendLenPrefixed(out, b []byte) []byte {
	out = appendUint32(out, uint32(len(b)))
	return append(out, b...)
}

// appendOptionalBytes frames b as a presence byte (0/1) followed by a
// length-prefixed payload when present, distinguishing "absent" (nil: row
// did not exist / was deleted) from "present but empty".
func appendOptionalBytes(out, b []byte) []byte {
	if b == nil {
		return append(out, 0)
	}
	out = append(out, 1)
	return appendLenPrefixed(out, b)
}

func readLenPrefixedBytes(raw []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(raw) {
		return nil, pos, errs.New(errs.Corruption, errs.Store, "truncated length prefix")
	}
	n := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(raw) {
		return nil, pos, errs.New(errs.Corruption, errs.Store, "truncated length-prefixed bytes")
	}
	b := make([]byte, n)
	copy(b, raw[pos:pos+n])
	return b, pos + n, nil
}

func readLenPrefixedString(raw []byte, pos int) (string, int, error) {
	b, pos, err := readLenPrefixedBytes(raw, pos)
	if err != nil {
		return "", pos, err
	}
	return string(b), pos, nil
}

func readOptionalBytes(raw []byte, pos int) ([]byte, int, error) {
	if pos+1 > len(raw) {
		return nil, pos, errs.New(errs.Corruption, errs.Store, "truncated presence byte")
	}
	present := raw[pos]
	pos++
	if present == 0 {
		return nil, pos, nil
	}
	return readLenPrefixedBytes(raw, pos)
}
