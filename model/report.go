package model

import (
	"errors"
	"time"
)

// SkippedRecord describes one record the pipeline did not ingest.
type SkippedRecord struct {
	Stream string     `json:"stream,omitempty"`
	Line   int        `json:"line"`
	Type   RecordType `json:"type,omitempty"`
	Kind   ErrorKind  `json:"kind"`
	Reason string     `json:"reason"`
}

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	Processed  int                     `json:"processed"`
	Skipped    int                     `json:"skipped"`
	Objects    int                     `json:"objects"`
	Properties int                     `json:"properties"`
	Reasons    map[ErrorKind]int       `json:"reasons,omitempty"`
	Skips      []SkippedRecord         `json:"skips,omitempty"`
	Streams    map[string]StreamReport `json:"streams,omitempty"`
	Duration   time.Duration           `json:"duration"`
}

// StreamReport counts the records of a single input stream.
type StreamReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

func NewIngestReport() *IngestReport {
	return &IngestReport{
		Reasons: map[ErrorKind]int{},
		Streams: map[string]StreamReport{},
	}
}

// AddProcessed counts an ingested record of stream.
func (r *IngestReport) AddProcessed(stream string) {
	r.Processed++
	if len(stream) > 0 {
		s := r.Streams[stream]
		s.Processed++
		r.Streams[stream] = s
	}
}

// AddSkipped counts a skipped record with its reason.
func (r *IngestReport) AddSkipped(err error) {
	skip := SkippedRecord{
		Kind:   KindOf(err),
		Reason: err.Error(),
	}
	var recordErr *RecordError
	if errors.As(err, &recordErr) {
		skip.Stream = recordErr.Stream
		skip.Line = recordErr.Line
		skip.Type = recordErr.Type
		skip.Reason = recordErr.Err.Error()
	}

	r.Skipped++
	r.Reasons[skip.Kind]++
	r.Skips = append(r.Skips, skip)
	if len(skip.Stream) > 0 {
		s := r.Streams[skip.Stream]
		s.Skipped++
		r.Streams[skip.Stream] = s
	}
}

// Total is the number of records seen.
func (r *IngestReport) Total() int {
	return r.Processed + r.Skipped
}
