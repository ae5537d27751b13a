package boltstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const signBit = 1 << 63

// encodeInt renders v so that byte order matches numeric order, negative
// values included.
func encodeInt(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v)^signBit)
	return b[:]
}

func decodeInt(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ signBit)
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return buf.Bytes(), nil
}

func decodeValue(data []byte, v any) error {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return fmt.Errorf("failed to decode msgpack into %T: %w", v, err)
	}
	return nil
}

// utc pins a decoded timestamp to UTC; msgpack decodes into time.Local.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
