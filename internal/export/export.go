// Package export serialises parsed records for callers outside the process.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/resumex/internal/extract"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name case-insensitively. An empty name means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Ext returns the file extension for the encoding, with the leading dot.
func (f Format) Ext() string {
	if f == "" {
		return ".json"
	}
	return "." + string(f)
}

// JSON writes rec as indented JSON with sorted keys.
func JSON(w io.Writer, rec extract.Record) error {
	b, err := sonic.ConfigStd.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// YAML writes rec as a YAML document.
func YAML(w io.Writer, rec extract.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(rec)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Write encodes a single record in the given format.
func Write(w io.Writer, format Format, rec extract.Record) error {
	switch format {
	case FormatJSON, "":
		return JSON(w, rec)
	case FormatYAML:
		return YAML(w, rec)
	case FormatXLSX:
		return XLSX(w, Named{Record: rec})
	}
	return fmt.Errorf("unsupported export format %q", format)
}
