package scraper

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/imishinist/expctl/internal/models"
	timeutils "github.com/imishinist/expctl/internal/time"
)

// Marker identifies the result line of a trainer log.
const Marker = "speed="

var ErrMalformedLog = errors.New("malformed trainer log")

type MalformedLogError struct {
	Path   string
	Reason string
}

func (e *MalformedLogError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed trainer log: %s", e.Reason)
	}
	return fmt.Sprintf("malformed trainer log %s: %s", e.Path, e.Reason)
}

func (e *MalformedLogError) Unwrap() error {
	return ErrMalformedLog
}

// field is extracted between begin and the nearest of ends. With eol set the
// value may also run to the end of the line.
type field struct {
	name  string
	begin string
	after string
	ends  []string
	eol   bool
}

var (
	testValueField = field{name: "test value", begin: "test=", ends: []string{"|"}}
	testErrorField = field{name: "test error", begin: "test=", after: "|", ends: []string{"+/-", ","}, eol: true}
	epochField     = field{name: "epoch", begin: "epoch=", ends: []string{","}, eol: true}
	speedField     = field{name: "speed", begin: "speed=", ends: []string{"/s", ","}, eol: true}
	timeField      = field{name: "time", begin: "time=", ends: []string{",", " "}, eol: true}
)

// indexKey finds key at the start of line or after a comma or whitespace.
func indexKey(line, key string) int {
	for off := 0; off < len(line); {
		i := strings.Index(line[off:], key)
		if i < 0 {
			return -1
		}
		i += off
		if i == 0 || line[i-1] == ',' || unicode.IsSpace(rune(line[i-1])) {
			return i
		}
		off = i + 1
	}
	return -1
}

func (f field) extract(line string) (string, bool) {
	i := indexKey(line, f.begin)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(f.begin):]
	if f.after != "" {
		j := strings.Index(rest, f.after)
		if j < 0 {
			return "", false
		}
		rest = rest[j+len(f.after):]
	}

	end := -1
	for _, delim := range f.ends {
		if k := strings.Index(rest, delim); k >= 0 && (end < 0 || k < end) {
			end = k
		}
	}
	if end < 0 {
		if !f.eol {
			return "", false
		}
		end = len(rest)
	}

	value := strings.TrimSpace(rest[:end])
	return value, value != ""
}

// ParseLine extracts a record from a single result line.
func ParseLine(line string) (*models.LogRecord, error) {
	values := make(map[string]string, 5)
	for _, f := range []field{testValueField, testErrorField, epochField, speedField, timeField} {
		v, ok := f.extract(line)
		if !ok {
			return nil, &MalformedLogError{Reason: fmt.Sprintf("missing %s in %q", f.name, line)}
		}
		values[f.name] = v
	}

	for _, f := range []field{testValueField, testErrorField, speedField} {
		if _, err := strconv.ParseFloat(values[f.name], 64); err != nil {
			return nil, &MalformedLogError{Reason: fmt.Sprintf("%s %q is not a number", f.name, values[f.name])}
		}
	}
	if _, err := strconv.Atoi(values[epochField.name]); err != nil {
		return nil, &MalformedLogError{Reason: fmt.Sprintf("epoch %q is not an integer", values[epochField.name])}
	}

	seconds, err := timeutils.Seconds(values[timeField.name])
	if err != nil {
		return nil, &MalformedLogError{Reason: err.Error()}
	}

	return &models.LogRecord{
		TestValue: values[testValueField.name],
		TestError: values[testErrorField.name],
		Epoch:     values[epochField.name],
		Speed:     values[speedField.name],
		Duration:  seconds,
	}, nil
}

// ParseReader scans for the first line containing the marker.
func ParseReader(r io.Reader) (*models.LogRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, Marker) {
			return ParseLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trainer log: %w", err)
	}
	return nil, &MalformedLogError{Reason: fmt.Sprintf("no line containing %q", Marker)}
}

// Parse reads the trainer log at path.
func Parse(path string) (*models.LogRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trainer log %s: %w", path, err)
	}
	defer file.Close()

	record, err := ParseReader(file)
	if err != nil {
		var malformed *MalformedLogError
		if errors.As(err, &malformed) {
			malformed.Path = path
			return nil, malformed
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}
