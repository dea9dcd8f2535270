package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var csvHeader = []string{"package", "error_name", "key", "count"}

const csvSampleColumn = "sample_stack_trace"

// WriteCSV writes one row per record, preceded by a header row. If
// includeSamples is set, the sample stack trace is added as last column.
func (a *Aggregate) WriteCSV(w io.Writer, includeSamples bool) error {
	writer := csv.NewWriter(w)

	header := csvHeader
	if includeSamples {
		header = append(append([]string{}, csvHeader...), csvSampleColumn)
	}
	if err := writer.Write(header); err != nil {
		return errors.WithStack(err)
	}

	for _, r := range a.Records() {
		row := []string{r.Package, r.ErrorName, r.Location, strconv.Itoa(r.Count)}
		if includeSamples {
			row = append(row, r.Sample)
		}
		if err := writer.Write(row); err != nil {
			return errors.WithStack(err)
		}
	}

	writer.Flush()
	return errors.WithStack(writer.Error())
}

// CSV returns the output of WriteCSV as a string.
func (a *Aggregate) CSV(includeSamples bool) (string, error) {
	var buf bytes.Buffer
	if err := a.WriteCSV(&buf, includeSamples); err != nil {
		return "", err
	}
	return buf.String(), nil
}
