// Binary encoding for snapshot headers.
//
// The header lets List report sizes and timestamps without unmarshalling
// the record payload.
//
// Header format v1 (little-endian, 13 bytes):
//
//	version:      uint8
//	totalRecords: uint32
//	savedAt:      int64 (unix seconds)
package bbolt

import (
	"encoding/binary"
	"fmt"
)

const (
	headerVersion = 1
	headerSize    = 1 + 4 + 8
)

type snapshotHeader struct {
	TotalRecords uint32
	SavedAt      int64
}

func encodeHeader(h snapshotHeader) []byte {
	buf := make([]byte, headerSize)
	buf[0] = headerVersion
	binary.LittleEndian.PutUint32(buf[1:], h.TotalRecords)
	binary.LittleEndian.PutUint64(buf[5:], uint64(h.SavedAt))
	return buf
}

// decodeHeader is bounds-checked so a corrupt header yields an error, not a panic.
func decodeHeader(data []byte) (snapshotHeader, error) {
	if len(data) < headerSize {
		return snapshotHeader{}, fmt.Errorf("header too short: %d bytes", len(data))
	}
	if data[0] != headerVersion {
		return snapshotHeader{}, fmt.Errorf("unknown header version %d", data[0])
	}
	return snapshotHeader{
		TotalRecords: binary.LittleEndian.Uint32(data[1:]),
		SavedAt:      int64(binary.LittleEndian.Uint64(data[5:])),
	}, nil
}
