package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/monitoring"
)

// ErrEmptyTemplate is returned when a template capture holds no complete record.
var ErrEmptyTemplate = errors.New("template capture contains no complete records")

// Record is one template record. len(Payload) always equals InclLen.
type Record struct {
	InclLen uint32
	OrigLen uint32
	Payload []byte
}

// Template is the loaded template capture. It is read-only once loaded.
type Template struct {
	Header  GlobalHeader
	Records []Record

	// TrailingBytes counts bytes after the last complete record that were
	// discarded because they did not form a whole record.
	TrailingBytes int64
}

// Truncated reports whether the template ended with an incomplete record.
func (t *Template) Truncated() bool {
	return t.TrailingBytes > 0
}

// SweepBytes returns the number of record bytes one pass over the template
// emits, excluding the global header.
func (t *Template) SweepBytes() int64 {
	var n int64
	for i := range t.Records {
		n += RecordHeaderLen + int64(t.Records[i].InclLen)
	}
	return n
}

// LoadTemplate opens path on fsys and reads a template from it.
func LoadTemplate(fsys fsutil.FileSystem, path string) (*Template, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template %s: %w", path, err)
	}
	defer f.Close()

	tmpl, err := ReadTemplate(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", path, err)
	}

	monitoring.Logf("Loaded %d template records from %s", len(tmpl.Records), path)
	return tmpl, nil
}

// ReadTemplate reads a global header followed by records until the input
// ends. A record whose header or payload is cut short marks the end of the
// template; it is dropped and reported as a warning, not an error.
// ErrEmptyTemplate is returned when no complete record was read.
func ReadTemplate(r io.Reader) (*Template, error) {
	br := bufio.NewReader(r)
	tmpl := &Template{}

	if _, err := io.ReadFull(br, tmpl.Header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read global header: %w", err)
	}

	var hdrBuf [RecordHeaderLen]byte
	for {
		n, err := io.ReadFull(br, hdrBuf[:])
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			tmpl.TrailingBytes = int64(n)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record header %d: %w", len(tmpl.Records), err)
		}

		hdr := parseRecordHeader(hdrBuf[:])

		// Read through a limit so a corrupt length does not allocate
		// more than the input actually holds.
		payload, err := io.ReadAll(io.LimitReader(br, int64(hdr.InclLen)))
		if err != nil {
			return nil, fmt.Errorf("failed to read record payload %d: %w", len(tmpl.Records), err)
		}
		if uint32(len(payload)) < hdr.InclLen {
			tmpl.TrailingBytes = RecordHeaderLen + int64(len(payload))
			break
		}

		tmpl.Records = append(tmpl.Records, Record{
			InclLen: hdr.InclLen,
			OrigLen: hdr.OrigLen,
			Payload: payload,
		})
	}

	if tmpl.Truncated() {
		monitoring.Warnf("discarded %d trailing bytes after record %d (incomplete record)",
			tmpl.TrailingBytes, len(tmpl.Records))
	}

	if len(tmpl.Records) == 0 {
		return nil, ErrEmptyTemplate
	}
	return tmpl, nil
}
