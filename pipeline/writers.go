package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aluiziolira/mp-attendance/config"
	"github.com/aluiziolira/mp-attendance/models"
)

// OutputWriter persists a snapshot.
type OutputWriter interface {
	Write(snapshot *models.Snapshot) error
	Validate() error
}

// NewWriter returns the writer selected by cfg.OutputFormat. No file is
// touched until Write is called.
func NewWriter(cfg *config.Config) (OutputWriter, error) {
	switch cfg.OutputFormat {
	case "", "json":
		return NewJSONWriter(cfg.OutputFile), nil
	case "dual":
		return NewDualWriter(CSVPath(cfg.OutputFile), cfg.OutputFile), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", cfg.OutputFormat)
	}
}

// CSVPath returns the CSV companion path for a JSON snapshot path.
func CSVPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".csv"
}

// JSONWriter writes the snapshot as one indented JSON document.
type JSONWriter struct {
	filename string
}

// NewJSONWriter returns a writer for filename.
func NewJSONWriter(filename string) *JSONWriter {
	return &JSONWriter{filename: filename}
}

// Write replaces the file atomically.
func (jw *JSONWriter) Write(snapshot *models.Snapshot) error {
	return writeAtomic(jw.filename, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return nil
	})
}

// Validate ensures the file decodes as a snapshot.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.filename)
	if err != nil {
		return fmt.Errorf("read json file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("json file is empty")
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decode json file: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"id", "name", "party", "district",
	"total_sittings", "present", "absent", "other",
	"absentee_rate", "attendance_rate", "degraded",
}

// CSVWriter writes one row per member summary.
type CSVWriter struct {
	filename string
}

// NewCSVWriter returns a writer for filename.
func NewCSVWriter(filename string) *CSVWriter {
	return &CSVWriter{filename: filename}
}

// Write replaces the file atomically.
func (cw *CSVWriter) Write(snapshot *models.Snapshot) error {
	return writeAtomic(cw.filename, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, m := range snapshot.Members {
			record := []string{
				m.ID,
				m.Name,
				m.Party,
				m.District,
				strconv.Itoa(m.TotalSittings),
				strconv.Itoa(m.Present),
				strconv.Itoa(m.Absent),
				strconv.Itoa(m.Other),
				strconv.FormatFloat(m.AbsenteeRate, 'f', 1, 64),
				strconv.FormatFloat(m.AttendanceRate, 'f', 1, 64),
				strconv.FormatBool(m.Degraded),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("flush csv records: %w", err)
		}
		return nil
	})
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	f, err := os.Open(cw.filename)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read csv file: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("csv file is empty")
	}
	if len(rows[0]) != len(csvHeader) {
		return fmt.Errorf("csv header has %d columns, want %d", len(rows[0]), len(csvHeader))
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over filename, so readers never observe a half-written file.
func writeAtomic(filename string, write func(io.Writer) error) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("rename %q: %w", filename, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
