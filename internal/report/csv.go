package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Delimiter separates CSV columns in every file this tool writes.
const Delimiter = ';'

var header = []string{"model", "trainer", "enhancer", "loss", "test_value", "test_error", "epoch", "speed", "seconds"}

// Columns holding results, as opposed to axis names.
var ResultColumns = header[4:]

// Row is one CSV record: the four axis names followed by result columns.
type Row struct {
	Model, Trainer, Enhancer, Loss       string
	Value, Error, Epoch, Speed, Duration string
}

func (r Row) fields() []string {
	return []string{r.Model, r.Trainer, r.Enhancer, r.Loss, r.Value, r.Error, r.Epoch, r.Speed, r.Duration}
}

// Result returns the result column at index i of ResultColumns.
func (r Row) Result(i int) string {
	return r.fields()[4+i]
}

func CSVHeader() string {
	return encodeLine(header)
}

func CSVRow(model, trainer, enhancer, loss, value, errValue, epoch, speed, duration string) string {
	return encodeLine(Row{model, trainer, enhancer, loss, value, errValue, epoch, speed, duration}.fields())
}

func encodeLine(fields []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = Delimiter
	// writes to a strings.Builder cannot fail
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// WriteCSV writes the header and rows to path, replacing any previous content.
func WriteCSV(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = Delimiter
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row.fields()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// ReadCSV reads rows written by WriteCSV.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = Delimiter
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, f := range records[1:] {
		rows = append(rows, Row{f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8]})
	}
	return rows, nil
}
