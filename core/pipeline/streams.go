package pipeline

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"

	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
	"golang.org/x/sync/errgroup"
)

// Standard stream names.
const (
	StreamObject         = "object"
	StreamSound          = "sound"
	StreamEmotion        = "emotion"
	StreamBehavior       = "behavior"
	StreamPlace          = "place"
	StreamRelationObject = "relation_object"
	StreamTriple         = "triple"
	StreamKBPerson       = "swrc"
	StreamSubtitle       = "subtitle"
	StreamEvent          = "event"
)

// DefaultStreamOrder is the order standard streams are ingested in.
// Tracked objects come first so later streams can refer to them.
var DefaultStreamOrder = []string{
	StreamObject,
	StreamSound,
	StreamEmotion,
	StreamBehavior,
	StreamPlace,
	StreamRelationObject,
	StreamTriple,
	StreamKBPerson,
	StreamSubtitle,
	StreamEvent,
}

// Stream is one annotation input. Domain falls back to the pipeline's domain.
// DefaultType is applied to records without a type, or to all records with ForceType.
type Stream struct {
	Name        string
	Reader      io.Reader
	Domain      model.TimeDomain
	DefaultType model.RecordType
	ForceType   bool
	Enabled     bool
}

// NewStream returns an enabled stream with the defaults of a standard stream name.
func NewStream(name string, reader io.Reader) Stream {
	stream := Stream{Name: name, Reader: reader, Enabled: true}

	switch name {
	case StreamObject:
		stream.DefaultType = model.RecordTypeObject
	case StreamSound:
		stream.DefaultType = model.RecordTypeSound
	case StreamEmotion:
		stream.DefaultType = model.RecordTypeEmotion
		stream.Domain = model.TimeDomainFrames
	case StreamBehavior:
		stream.DefaultType = model.RecordTypeBehavior
		stream.Domain = model.TimeDomainFrames
	case StreamPlace:
		stream.DefaultType = model.RecordTypeLocation
	case StreamRelationObject:
		stream.DefaultType = model.RecordTypeRelationObject
		stream.ForceType = true
	case StreamTriple, StreamKBPerson:
		stream.DefaultType = model.RecordTypeRelation
	case StreamSubtitle:
		stream.DefaultType = model.RecordTypeSubtitle
		stream.ForceType = true
	case StreamEvent:
		stream.DefaultType = model.RecordTypeEvent
		stream.ForceType = true
	}
	return stream
}

// SortStreams orders streams by DefaultStreamOrder. Unknown names keep their
// relative order after the standard ones.
func SortStreams(streams []Stream) []Stream {
	sorted := slices.Clone(streams)
	rank := func(name string) int {
		if i := slices.Index(DefaultStreamOrder, name); i >= 0 {
			return i
		}
		return len(DefaultStreamOrder)
	}
	slices.SortStableFunc(sorted, func(a, b Stream) int {
		return rank(a.Name) - rank(b.Name)
	})
	return sorted
}

// IngestStreams decodes all enabled streams concurrently and ingests their
// records sequentially in declaration order.
func (p *Pipeline) IngestStreams(ctx context.Context, streams []Stream) (*model.IngestReport, error) {
	start := time.Now()
	report := model.NewIngestReport()

	var enabled []Stream
	for _, stream := range streams {
		if stream.Enabled && stream.Reader != nil {
			enabled = append(enabled, stream)
		}
	}

	decoded := make([][]item, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.DecodeWorkers)
	for i, stream := range enabled {
		g.Go(func() error {
			items, err := p.decodeStream(gctx, stream)
			if err != nil {
				return err
			}
			decoded[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p.finish(report, start), helper.NewError("decode streams", err)
	}

	for _, items := range decoded {
		if err := ctx.Err(); err != nil {
			return p.finish(report, start), err
		}
		if err := p.ingestItems(items, report); err != nil {
			return p.finish(report, start), err
		}
	}

	p.finish(report, start)
	p.log.Info("Ingested streams", "streams", len(enabled), "processed", report.Processed, "skipped", report.Skipped, "objects", report.Objects, "properties", report.Properties, "duration", report.Duration)
	return report, nil
}

// IngestReader ingests a single stream.
func (p *Pipeline) IngestReader(ctx context.Context, name string, reader io.Reader) (*model.IngestReport, error) {
	return p.IngestStreams(ctx, []Stream{NewStream(name, reader)})
}

// IngestRecords ingests already decoded records in the configured time domain.
func (p *Pipeline) IngestRecords(records []*model.Record) (*model.IngestReport, error) {
	start := time.Now()
	report := model.NewIngestReport()

	items := make([]item, 0, len(records))
	for n, record := range records {
		items = append(items, item{line: n + 1, domain: p.config.Domain, record: record})
	}
	err := p.ingestItems(items, report)
	return p.finish(report, start), err
}

func (p *Pipeline) ingestItems(items []item, report *model.IngestReport) error {
	for _, i := range items {
		err := i.err
		if err == nil {
			err = p.IngestIn(i.domain, i.record)
			if err != nil {
				err = &model.RecordError{Stream: i.stream, Line: i.line, Type: i.recordType(), Err: err}
			}
		}
		if err == nil {
			report.AddProcessed(i.stream)
			continue
		}

		if p.aborts(err) {
			p.log.Error("Error ingesting record", "error", err)
			return err
		}
		p.log.Warn("Skipping record", "kind", model.KindOf(err), "error", err)
		report.AddSkipped(err)
	}
	return nil
}

// aborts reports whether err ends the batch under the configured policy.
func (p *Pipeline) aborts(err error) bool {
	if errors.Is(err, model.ErrUnresolvedReference) {
		return p.config.UnresolvedPolicy == model.UnresolvedFail
	}
	return model.IsFatal(err)
}

func (p *Pipeline) finish(report *model.IngestReport, start time.Time) *model.IngestReport {
	objects, properties := p.store.Allocated()
	report.Objects = int(objects)
	report.Properties = int(properties)
	report.Duration = time.Since(start)
	return report
}
