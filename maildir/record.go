package maildir

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

// On-disk record layout, big-endian:
//
//	"FVLT" | version u8 | name u16-prefixed | tenant u16-prefixed |
//	wrapped key u16-prefixed | iv u8-prefixed | uploaded unix-nano i64 |
//	ciphertext (rest of file)
//
// Version 1 records have no tenant field.
const (
	recordMagic   = "FVLT"
	recordVersion = 2
)

// record is a decoded maildir file.
type record struct {
	name     string
	tenant   string
	uploaded time.Time
	payload  filevault.EncryptedPayload
}

func encodeRecord(name, tenant string, uploaded time.Time, payload *filevault.EncryptedPayload) ([]byte, error) {
	if len(name) > math.MaxUint16 {
		return nil, fmt.Errorf("file name too long: %d bytes", len(name))
	}
	if len(tenant) > math.MaxUint16 {
		return nil, fmt.Errorf("tenant too long: %d bytes", len(tenant))
	}
	if len(payload.WrappedKey) > math.MaxUint16 || len(payload.IV) > math.MaxUint8 {
		return nil, errors.ErrMalformedPayload
	}

	var buf bytes.Buffer
	buf.Grow(len(recordMagic) + 1 + 2 + len(name) + 2 + len(tenant) + 2 + len(payload.WrappedKey) +
		1 + len(payload.IV) + 8 + len(payload.Ciphertext))

	buf.WriteString(recordMagic)
	buf.WriteByte(recordVersion)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(name)))
	buf.WriteString(name)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(tenant)))
	buf.WriteString(tenant)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload.WrappedKey)))
	buf.Write(payload.WrappedKey)
	buf.WriteByte(byte(len(payload.IV)))
	buf.Write(payload.IV)
	_ = binary.Write(&buf, binary.BigEndian, uploaded.UnixNano())
	buf.Write(payload.Ciphertext)
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*record, error) {
	r := recordReader{data: data}

	if string(r.next(len(recordMagic))) != recordMagic {
		return nil, fmt.Errorf("%w: bad magic", errors.ErrCorruptRecord)
	}
	version := r.next(1)
	if r.err == nil && (version[0] < 1 || version[0] > recordVersion) {
		return nil, fmt.Errorf("%w: unsupported version %d", errors.ErrCorruptRecord, version[0])
	}

	name := r.next(int(r.uint16()))
	var tenant []byte
	if r.err == nil && version[0] >= 2 {
		tenant = r.next(int(r.uint16()))
	}
	wrapped := r.next(int(r.uint16()))
	ivLen := r.next(1)
	var iv []byte
	if r.err == nil {
		iv = r.next(int(ivLen[0]))
	}
	ts := r.next(8)
	if r.err != nil {
		return nil, r.err
	}

	return &record{
		name:     string(name),
		tenant:   string(tenant),
		uploaded: time.Unix(0, int64(binary.BigEndian.Uint64(ts))).UTC(),
		payload: filevault.EncryptedPayload{
			Ciphertext: bytes.Clone(r.data[r.off:]),
			WrappedKey: bytes.Clone(wrapped),
			IV:         bytes.Clone(iv),
		},
	}, nil
}

// recordReader walks a record, remembering the first short read.
type recordReader struct {
	data []byte
	off  int
	err  error
}

func (r *recordReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: truncated", errors.ErrCorruptRecord)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *recordReader) uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}
