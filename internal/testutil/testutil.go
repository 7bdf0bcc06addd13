// Package testutil provides shared test utilities and capture fixtures.
//
// Fixtures are built byte by byte so tests do not depend on the packages
// they exercise to produce their own input.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// GlobalHeaderLen and RecordHeaderLen mirror the classic capture layout.
const (
	GlobalHeaderLen = 24
	RecordHeaderLen = 16
)

// FixtureRecord describes one record of a fixture capture. A zero OrigLen
// means the original length equals len(Payload).
type FixtureRecord struct {
	TsSec   uint32
	TsUsec  uint32
	OrigLen uint32
	Payload []byte
}

// GlobalHeader returns a little-endian, microsecond-resolution global header
// with a 65535-byte snap length and an Ethernet link type.
func GlobalHeader() []byte {
	hdr := make([]byte, GlobalHeaderLen)
	binary.LittleEndian.PutUint32(hdr[0:4], 0xa1b2c3d4)
	binary.LittleEndian.PutUint16(hdr[4:6], 2)
	binary.LittleEndian.PutUint16(hdr[6:8], 4)
	binary.LittleEndian.PutUint32(hdr[16:20], 65535)
	binary.LittleEndian.PutUint32(hdr[20:24], 1)
	return hdr
}

// RecordBytes encodes a single record header followed by its payload.
func RecordBytes(rec FixtureRecord) []byte {
	orig := rec.OrigLen
	if orig == 0 {
		orig = uint32(len(rec.Payload))
	}
	buf := make([]byte, RecordHeaderLen, RecordHeaderLen+len(rec.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], rec.TsSec)
	binary.LittleEndian.PutUint32(buf[4:8], rec.TsUsec)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(rec.Payload)))
	binary.LittleEndian.PutUint32(buf[12:16], orig)
	return append(buf, rec.Payload...)
}

// BuildCapture returns a complete capture: GlobalHeader followed by records.
func BuildCapture(records ...FixtureRecord) []byte {
	out := GlobalHeader()
	for _, rec := range records {
		out = append(out, RecordBytes(rec)...)
	}
	return out
}

// Payload returns n bytes counting up from seed, so payloads of different
// records are distinguishable.
func Payload(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

// WriteTempCapture writes data to a file under t.TempDir and returns its path.
func WriteTempCapture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
