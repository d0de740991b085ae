package codec

import "strings"

// FixedWidthEncoder renders each field left-justified, truncated or
// space-padded to its declared width, with no separators.
type FixedWidthEncoder struct {
	layout *Layout
}

func (e *FixedWidthEncoder) Layout() *Layout { return e.layout }

func (e *FixedWidthEncoder) EncodeRow(rec SubmissionRecord) (string, error) {
	values := e.layout.Values(rec)

	var b strings.Builder
	b.Grow(e.layout.RecordWidth())
	for _, f := range e.layout.Fields {
		b.WriteString(pad(values[f.Name], f.Width))
	}
	return b.String(), nil
}

// pad left-justifies an ASCII value into exactly width bytes.
func pad(v string, width int) string {
	if len(v) >= width {
		return v[:width]
	}
	return v + strings.Repeat(" ", width-len(v))
}
