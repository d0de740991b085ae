package codec

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// CSVEncoder writes rows under an exact, ordered header list fixed by the
// destination system.
type CSVEncoder struct {
	layout *Layout
}

func (e *CSVEncoder) Layout() *Layout { return e.layout }

func (e *CSVEncoder) Header() (string, error) {
	return writeCSVRow(e.layout.Headers())
}

func (e *CSVEncoder) EncodeRow(rec SubmissionRecord) (string, error) {
	values := e.layout.Values(rec)
	row := make([]string, 0, len(e.layout.Fields))
	for _, f := range e.layout.Fields {
		row = append(row, values[f.Name])
	}
	return writeCSVRow(row)
}

func writeCSVRow(row []string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(row); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}
