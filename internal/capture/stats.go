package capture

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the payload sizes of a template.
type Stats struct {
	Records       int
	TotalPayload  int64
	MinPayload    int
	MaxPayload    int
	MeanPayload   float64
	StdDevPayload float64
}

// ComputeStats returns payload size statistics for tmpl.
func ComputeStats(tmpl *Template) Stats {
	if tmpl == nil || len(tmpl.Records) == 0 {
		return Stats{}
	}

	sizes := make([]float64, len(tmpl.Records))
	for i := range tmpl.Records {
		sizes[i] = float64(tmpl.Records[i].InclLen)
	}

	s := Stats{
		Records:      len(sizes),
		TotalPayload: int64(floats.Sum(sizes)),
		MinPayload:   int(floats.Min(sizes)),
		MaxPayload:   int(floats.Max(sizes)),
	}
	if len(sizes) == 1 {
		s.MeanPayload = sizes[0]
		return s
	}
	s.MeanPayload, s.StdDevPayload = stat.MeanStdDev(sizes, nil)
	return s
}

// MaxRecordBytes is the largest number of bytes a single emitted record
// occupies, and so the most a generated file can overshoot its target by.
func (s Stats) MaxRecordBytes() int64 {
	return RecordHeaderLen + int64(s.MaxPayload)
}
