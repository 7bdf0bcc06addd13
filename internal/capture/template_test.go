package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/monitoring"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/testutil"
)

// captureLogs redirects monitoring output for the duration of the test.
func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.Logf = original })

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestReadTemplate_WellFormed(t *testing.T) {
	captureLogs(t)

	data := testutil.BuildCapture(
		testutil.FixtureRecord{TsSec: 100, TsUsec: 5, Payload: testutil.Payload(10, 0x00)},
		testutil.FixtureRecord{TsSec: 101, OrigLen: 60, Payload: testutil.Payload(20, 0x10)},
		testutil.FixtureRecord{TsSec: 102, Payload: testutil.Payload(3, 0x20)},
	)

	tmpl, err := ReadTemplate(bytes.NewReader(data))
	require.NoError(t, err)

	want := []Record{
		{InclLen: 10, OrigLen: 10, Payload: testutil.Payload(10, 0x00)},
		{InclLen: 20, OrigLen: 60, Payload: testutil.Payload(20, 0x10)},
		{InclLen: 3, OrigLen: 3, Payload: testutil.Payload(3, 0x20)},
	}
	if diff := cmp.Diff(want, tmpl.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, testutil.GlobalHeader(), tmpl.Header[:])
	assert.False(t, tmpl.Truncated())
	assert.Equal(t, int64(3*RecordHeaderLen+33), tmpl.SweepBytes())
}

func TestReadTemplate_TruncatedPayloadDropped(t *testing.T) {
	logs := captureLogs(t)

	data := testutil.BuildCapture(
		testutil.FixtureRecord{Payload: testutil.Payload(10, 0)},
		testutil.FixtureRecord{Payload: testutil.Payload(20, 0)},
	)
	// Cut the last record's payload short by five bytes.
	data = data[:len(data)-5]

	tmpl, err := ReadTemplate(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, tmpl.Records, 1)
	assert.Equal(t, uint32(10), tmpl.Records[0].InclLen)
	assert.True(t, tmpl.Truncated())
	assert.Equal(t, int64(RecordHeaderLen+15), tmpl.TrailingBytes)

	require.Len(t, *logs, 1)
	assert.Contains(t, (*logs)[0], "warning:")
}

func TestReadTemplate_PartialRecordHeader(t *testing.T) {
	captureLogs(t)

	data := testutil.BuildCapture(testutil.FixtureRecord{Payload: testutil.Payload(8, 0)})
	data = append(data, 0x01, 0x02, 0x03)

	tmpl, err := ReadTemplate(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Len(t, tmpl.Records, 1)
	assert.Equal(t, int64(3), tmpl.TrailingBytes)
}

func TestReadTemplate_HugeDeclaredLength(t *testing.T) {
	captureLogs(t)

	data := testutil.BuildCapture(testutil.FixtureRecord{Payload: testutil.Payload(4, 0)})
	hdr := testutil.RecordBytes(testutil.FixtureRecord{})
	byteOrder.PutUint32(hdr[8:12], 0xffffffff)
	data = append(data, hdr...)
	data = append(data, 0xaa, 0xbb)

	tmpl, err := ReadTemplate(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Len(t, tmpl.Records, 1)
	assert.Equal(t, int64(RecordHeaderLen+2), tmpl.TrailingBytes)
}

func TestReadTemplate_Empty(t *testing.T) {
	captureLogs(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"header only", testutil.GlobalHeader()},
		{"truncated only record", testutil.BuildCapture(testutil.FixtureRecord{Payload: testutil.Payload(10, 0)})[:testutil.GlobalHeaderLen+20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTemplate(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrEmptyTemplate)
		})
	}
}

func TestReadTemplate_ShortGlobalHeader(t *testing.T) {
	for _, n := range []int{0, 10} {
		_, err := ReadTemplate(bytes.NewReader(testutil.GlobalHeader()[:n]))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, "header of %d bytes", n)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadTemplate_ReadError(t *testing.T) {
	errBoom := errors.New("boom")
	_, err := ReadTemplate(failingReader{err: errBoom})
	assert.ErrorIs(t, err, errBoom)
}

func TestLoadTemplate(t *testing.T) {
	logs := captureLogs(t)

	mfs := fsutil.NewMemoryFileSystem()
	data := testutil.BuildCapture(
		testutil.FixtureRecord{Payload: testutil.Payload(10, 0)},
		testutil.FixtureRecord{Payload: testutil.Payload(20, 0)},
	)
	require.NoError(t, mfs.WriteFile("data/Multiple.Packets.pcap", data, 0644))

	tmpl, err := LoadTemplate(mfs, "data/Multiple.Packets.pcap")
	require.NoError(t, err)
	assert.Len(t, tmpl.Records, 2)
	assert.Contains(t, (*logs)[len(*logs)-1], "Loaded 2 template records")

	_, err = LoadTemplate(mfs, "data/missing.pcap")
	assert.Error(t, err)
}

func TestLoadTemplate_EmptyIsDetectable(t *testing.T) {
	captureLogs(t)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("empty.pcap", testutil.GlobalHeader(), 0644))

	_, err := LoadTemplate(mfs, "empty.pcap")
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}
