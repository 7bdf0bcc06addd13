// Package capture loads classic PCAP template files and replicates their
// records into large synthetic stress captures.
//
// The 24-byte global header is treated as an opaque blob and copied verbatim.
// Record headers are four little-endian uint32 fields: timestamp seconds,
// timestamp microseconds, included length and original length.
package capture

import (
	"encoding/binary"
	"time"
)

const (
	// GlobalHeaderLen is the size of the capture file header.
	GlobalHeaderLen = 24
	// RecordHeaderLen is the size of each per-record header.
	RecordHeaderLen = 16

	usecPerSecond = 1_000_000
)

// byteOrder is the on-disk order of record header fields. It is the native
// order of every platform the generator is built for.
var byteOrder = binary.LittleEndian

// GlobalHeader is the opaque capture file header.
type GlobalHeader [GlobalHeaderLen]byte

// RecordHeader is the fixed-size header preceding every record payload.
type RecordHeader struct {
	TsSec   uint32 // timestamp seconds
	TsUsec  uint32 // timestamp microseconds
	InclLen uint32 // number of payload bytes saved in the file
	OrigLen uint32 // length of the packet on the wire
}

func parseRecordHeader(b []byte) RecordHeader {
	return RecordHeader{
		TsSec:   byteOrder.Uint32(b[0:4]),
		TsUsec:  byteOrder.Uint32(b[4:8]),
		InclLen: byteOrder.Uint32(b[8:12]),
		OrigLen: byteOrder.Uint32(b[12:16]),
	}
}

// put encodes h into b, which must be at least RecordHeaderLen bytes.
func (h RecordHeader) put(b []byte) {
	byteOrder.PutUint32(b[0:4], h.TsSec)
	byteOrder.PutUint32(b[4:8], h.TsUsec)
	byteOrder.PutUint32(b[8:12], h.InclLen)
	byteOrder.PutUint32(b[12:16], h.OrigLen)
}

// Time returns the header timestamp as a time.Time.
func (h RecordHeader) Time() time.Time {
	return time.Unix(int64(h.TsSec), int64(h.TsUsec)*int64(time.Microsecond))
}

// syntheticHeader stamps the n-th emitted record (0-indexed). The microsecond
// field counts up with every record and the seconds field advances by one
// every million records.
func syntheticHeader(base uint32, n uint64, rec *Record) RecordHeader {
	return RecordHeader{
		TsSec:   base + uint32(n/usecPerSecond),
		TsUsec:  uint32(n % usecPerSecond),
		InclLen: rec.InclLen,
		OrigLen: rec.OrigLen,
	}
}
