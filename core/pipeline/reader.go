package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kaptinlin/jsonrepair"
	"github.com/klauspost/compress/zstd"
	"github.com/siherrmann/scenegraph/helper"
	"github.com/siherrmann/scenegraph/model"
)

const maxLineSize = 16 * 1024 * 1024

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// item is a decoded record or the error of a line that could not be decoded.
type item struct {
	stream string
	line   int
	domain model.TimeDomain
	record *model.Record
	err    error
}

func (i item) recordType() model.RecordType {
	if i.record == nil {
		return ""
	}
	return i.record.Type
}

// decodeStream reads all records of a stream. Lines that can not be decoded or
// validated come back as items carrying a RecordError; only read errors fail.
func (p *Pipeline) decodeStream(ctx context.Context, stream Stream) ([]item, error) {
	domain := stream.Domain
	if !domain.Valid() {
		domain = p.config.Domain
	}

	reader, closeReader, err := openReader(stream.Reader)
	if err != nil {
		return nil, helper.NewError("open stream "+stream.Name, err)
	}
	defer closeReader()

	var items []item
	appendLine := func(line int, data []byte) {
		i := item{stream: stream.Name, line: line, domain: domain}
		i.record, i.err = p.decodeRecord(data, stream, domain)
		if i.err != nil {
			i.err = &model.RecordError{Stream: stream.Name, Line: line, Type: i.recordType(), Err: i.err}
		}
		items = append(items, i)
	}

	if first, ok := firstByte(reader); ok && first == '[' {
		var elements []json.RawMessage
		if err := json.NewDecoder(reader).Decode(&elements); err != nil {
			items = append(items, item{
				stream: stream.Name,
				domain: domain,
				err:    &model.RecordError{Stream: stream.Name, Err: fmt.Errorf("%w: %v", model.ErrMalformedRecord, err)},
			})
			return items, nil
		}
		for n, element := range elements {
			if n%1024 == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			appendLine(n+1, element)
		}
		return items, nil
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		appendLine(line, bytes.Clone(data))
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("scan stream "+stream.Name, err)
	}
	return items, nil
}

// decodeRecord decodes one JSON record, applies the stream's type defaults and validates it.
func (p *Pipeline) decodeRecord(data []byte, stream Stream, domain model.TimeDomain) (*model.Record, error) {
	record := &model.Record{}
	err := json.Unmarshal(data, record)
	if err != nil && p.config.RepairJSON {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr == nil {
			record = &model.Record{}
			err = json.Unmarshal([]byte(repaired), record)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedRecord, err)
	}

	if len(stream.DefaultType) > 0 && (stream.ForceType || len(record.Type) == 0) {
		record.Type = stream.DefaultType
	}
	if record.Type == model.RecordTypeRelationObject && len(record.Caption) > 0 {
		record.ApplyCaption()
	}
	if err := p.validateRecord(record, domain); err != nil {
		return record, err
	}
	return record, nil
}

// openReader transparently decompresses zstd input.
func openReader(r io.Reader) (*bufio.Reader, func(), error) {
	buffered := bufio.NewReader(r)
	magic, _ := buffered.Peek(len(zstdMagic))
	if !bytes.Equal(magic, zstdMagic) {
		return buffered, func() {}, nil
	}

	decoder, err := zstd.NewReader(buffered)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReader(decoder), decoder.Close, nil
}

// firstByte returns the first non-whitespace byte without consuming anything.
func firstByte(r *bufio.Reader) (byte, bool) {
	for n := 1; ; n++ {
		peeked, _ := r.Peek(n)
		if len(peeked) < n {
			return 0, false
		}
		switch b := peeked[n-1]; b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b, true
		}
	}
}
