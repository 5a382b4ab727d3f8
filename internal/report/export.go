package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/util"
)

// CompressedSuffix is appended to compressed export filenames.
const CompressedSuffix = ".zst"

// Serialize encodes a report as indented JSON. Field order is fixed by the
// struct definitions and map keys are sorted, so equal reports always
// produce identical bytes.
func Serialize(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExport, "Cannot encode report", "")
	}
	return buf.Bytes(), nil
}

// Deserialize decodes bytes produced by Serialize.
func Deserialize(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExport, "Cannot decode report", "Check that the file is a vigil report")
	}
	return &r, nil
}

// FilenameFor names the export file for a report using today's date.
func FilenameFor(r *Report) string {
	return FilenameForDate(r, time.Now())
}

// FilenameForDate names the export file for a report on the given day.
func FilenameForDate(r *Report, day time.Time) string {
	date := day.Format("2006-01-02")
	switch r.Kind {
	case KindFull:
		return fmt.Sprintf("full-scan-report-%s.json", date)
	case KindCryptojacking:
		return fmt.Sprintf("cryptojacking-report-%s.json", date)
	default:
		subject := util.SanitizeFilename(strings.TrimSuffix(r.Subject, filepath.Ext(r.Subject)))
		if subject == "" {
			subject = string(r.Kind)
		}
		return fmt.Sprintf("%s-scan-report-%s.json", subject, date)
	}
}

// Exporter writes serialized reports to a directory. Existing files with
// the same name are overwritten.
type Exporter struct {
	Dir      string
	Compress bool
	now      func() time.Time
}

// NewExporter creates an exporter for dir.
func NewExporter(dir string, compress bool) *Exporter {
	return &Exporter{Dir: dir, Compress: compress, now: time.Now}
}

// Write exports a report and returns the written path.
func (e *Exporter) Write(r *Report) (string, error) {
	data, err := Serialize(r)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Cannot create export directory %s", e.Dir), "Check directory permissions")
	}

	name := FilenameForDate(r, e.now())
	if e.Compress {
		name += CompressedSuffix
	}
	path := filepath.Join(e.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport,
			fmt.Sprintf("Cannot write %s", path), "Check directory permissions")
	}
	defer f.Close()

	var w io.Writer = f
	var zw *zstd.Encoder
	if e.Compress {
		zw, err = zstd.NewWriter(f)
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrExport, "Cannot create zstd writer", "")
		}
		w = zw
	}

	if _, err := w.Write(data); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport, fmt.Sprintf("Cannot write %s", path), "")
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrExport, fmt.Sprintf("Cannot write %s", path), "")
		}
	}
	if err := f.Close(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExport, fmt.Sprintf("Cannot write %s", path), "")
	}
	return path, nil
}

// ReadFile loads an exported report, decompressing .zst files.
func ReadFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrNotFound,
			fmt.Sprintf("Cannot open %s", path), "Check the report path")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedSuffix) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrExport, "Cannot create zstd reader", "")
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExport, fmt.Sprintf("Cannot read %s", path), "")
	}
	return Deserialize(data)
}
