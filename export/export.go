package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urizennnn/gh-activity/activity"
)

// Files holds the output paths for one export run.
type Files struct {
	JSON    string
	CSV     string
	XLSX    string
	Summary string
}

// Paths names outputs <prefix>_<from>_<to>.<ext>.
func Paths(prefix string, r activity.Range) Files {
	base := fmt.Sprintf("%s_%s_%s", prefix, r.FromString(), r.ToString())
	return Files{
		JSON:    base + ".json",
		CSV:     base + ".csv",
		XLSX:    base + ".xlsx",
		Summary: base + ".summary.json",
	}
}

func WriteJSON(w io.Writer, records []activity.Record) error {
	if records == nil {
		records = []activity.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func WriteCSV(w io.Writer, records []activity.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(activity.Fields); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadJSON(r io.Reader) ([]activity.Record, error) {
	var records []activity.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	for i, rec := range records {
		if !rec.Kind.Valid() {
			return nil, fmt.Errorf("record %d: unknown kind %q", i, rec.Kind)
		}
	}
	return records, nil
}

func ReadCSV(r io.Reader) ([]activity.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.TrimSpace(h)] = i
	}
	if _, ok := header["kind"]; !ok {
		return nil, fmt.Errorf("read csv header: missing kind column")
	}

	var records []activity.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec, err := activity.ParseRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile loads an export, picking the decoder from the extension.
func ReadFile(path string) ([]activity.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%s: unsupported file type, want .json or .csv", path)
	}
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, records []activity.Record, write func(io.Writer, []activity.Record) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, records); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
