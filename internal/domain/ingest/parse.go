package ingest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/okian/soe/pkg/metrics"
)

// DetectFormat picks a format from the file extension, then the content type.
func DetectFormat(contentType, filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".prom", ".txt", ".metrics":
		return FormatPrometheus, nil
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, contentType)
	}
	switch mt {
	case "application/json":
		return FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return FormatYAML, nil
	case "text/csv":
		return FormatCSV, nil
	case "text/plain", "application/openmetrics-text":
		return FormatPrometheus, nil
	case "application/x-www-form-urlencoded":
		return FormatForm, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, mt)
}

// NameFromFile derives a snapshot name from an uploaded file name: the base
// name up to its first dot, or ImportedName.
func NameFromFile(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ImportedName
	}
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if strings.TrimSpace(base) == "" {
		return ImportedName
	}
	return base
}

// Parse reads an uploaded document. When the document does not name the
// system, the file name does.
func Parse(contentType, filename string, body io.Reader) (Draft, Format, error) {
	format, err := DetectFormat(contentType, filename)
	if err != nil {
		metrics.RecordIngestion("unknown", "unsupported")
		return Draft{}, "", err
	}

	var d Draft
	switch format {
	case FormatJSON:
		d, err = ParseJSON(body)
	case FormatYAML:
		d, err = ParseYAML(body)
	case FormatCSV:
		d, err = ParseCSV(body)
	case FormatPrometheus:
		d, err = ParsePrometheus(body)
	case FormatForm:
		var buf bytes.Buffer
		if _, err = io.Copy(&buf, body); err == nil {
			d, err = parseEncodedForm(buf.String())
		}
	}
	if err != nil {
		metrics.RecordIngestion(string(format), "error")
		return Draft{}, format, err
	}
	if d.Name == "" {
		d.Name = NameFromFile(filename)
	}
	metrics.RecordIngestion(string(format), "ok")
	return d, format, nil
}
