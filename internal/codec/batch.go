package codec

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/common"
)

const previewLines = 5

// Batch is an encoded submission file.
type Batch struct {
	Jurisdiction string
	Layout       *Layout

	lines     []string
	hasHeader bool
}

// Preview is the first lines of a batch plus its total line count.
type Preview struct {
	Lines      []string `json:"lines"`
	TotalLines int      `json:"total_lines"`
}

// Encode renders a single record for jurisdiction.
func (r *Registry) Encode(rec SubmissionRecord, jurisdiction string) (string, error) {
	enc, err := r.EncoderFor(jurisdiction)
	if err != nil {
		return "", err
	}
	return enc.EncodeRow(rec)
}

// EncodeBatch renders recs into one file. The row cap is checked before any
// row is produced, and an unknown jurisdiction yields no output at all.
func (r *Registry) EncodeBatch(recs []SubmissionRecord, jurisdiction string) (*Batch, error) {
	enc, err := r.EncoderFor(jurisdiction)
	if err != nil {
		return nil, err
	}
	l := enc.Layout()
	if l.MaxRecords > 0 && len(recs) > l.MaxRecords {
		return nil, fmt.Errorf("%s accepts at most %d records per file, got %d: %w",
			l.Jurisdiction, l.MaxRecords, len(recs), common.ErrValidation)
	}

	b := &Batch{Jurisdiction: l.Jurisdiction, Layout: l, lines: make([]string, 0, len(recs)+1)}

	if h, ok := enc.(HeaderEncoder); ok {
		header, err := h.Header()
		if err != nil {
			return nil, err
		}
		b.lines = append(b.lines, header)
		b.hasHeader = true
	}

	for i, rec := range recs {
		line, err := enc.EncodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.ScreeningID, err)
		}
		b.lines = append(b.lines, line)
	}
	return b, nil
}

// Content joins the lines with newline separators.
func (b *Batch) Content() string { return strings.Join(b.lines, "\n") }

// Lines returns a copy of the encoded lines, header included.
func (b *Batch) Lines() []string { return append([]string(nil), b.lines...) }

// RecordCount excludes the header row.
func (b *Batch) RecordCount() int {
	if b.hasHeader {
		return len(b.lines) - 1
	}
	return len(b.lines)
}

// Preview reuses the already encoded lines.
func (b *Batch) Preview() Preview {
	n := min(previewLines, len(b.lines))
	return Preview{Lines: append([]string(nil), b.lines[:n]...), TotalLines: len(b.lines)}
}
