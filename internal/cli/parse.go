package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumex/internal/export"
	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/parser"
	"github.com/dgallion1/resumex/internal/schema"
)

type resultStatus string

const (
	statusOK      resultStatus = "ok"
	statusInvalid resultStatus = "invalid"
	statusError   resultStatus = "error"
)

// fileResult is the outcome of parsing one file.
type fileResult struct {
	Path       string
	Result     *extract.Result
	Validation error // nil when the record passed validation
	Err        error // the file could not be read or converted
	Elapsed    time.Duration
}

func (r fileResult) status() resultStatus {
	switch {
	case r.Err != nil:
		return statusError
	case r.Validation != nil:
		return statusInvalid
	default:
		return statusOK
	}
}

func (r fileResult) missingFields() []string {
	var rfm *extract.RequiredFieldMissingError
	if errors.As(r.Validation, &rfm) {
		return rfm.Fields
	}
	return nil
}

// parseFile reads, converts, extracts and validates one résumé.
func parseFile(path string, sc *schema.Config, log *slog.Logger) (res fileResult) {
	start := time.Now()
	res.Path = path
	defer func() { res.Elapsed = time.Since(start) }()

	p, err := parser.ForFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	doc, err := p.Parse(bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		res.Err = fmt.Errorf("parse %s: %w", path, err)
		return res
	}

	log = log.With("file", path)
	res.Result = extract.Parse(doc, sc, extract.WithLogger(log))
	res.Validation = extract.Validate(res.Result.Record, sc)
	log.Debug("parsed", "found", len(res.Result.Found), "warnings", len(res.Result.Warnings), "valid", res.Validation == nil)
	return res
}

func newParseCmd(o *options) *cobra.Command {
	var (
		format string
		out    string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse one résumé and print its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == export.FormatXLSX && out == "" {
				return errors.New("xlsx output requires --out")
			}
			sc, err := o.loadSchema()
			if err != nil {
				return err
			}

			r := parseFile(args[0], sc, o.log)
			if r.Err != nil {
				return r.Err
			}
			stderr := cmd.ErrOrStderr()
			printWarnings(stderr, args[0], r.Result.Warnings)
			if r.Validation != nil {
				if strict {
					return r.Validation
				}
				fmt.Fprintf(stderr, "%s %s: %s\n", warnStyle.Render("invalid"), args[0], r.Validation)
			}

			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if f == export.FormatXLSX {
					return export.XLSX(w, export.Named{Source: filepath.Base(args[0]), Record: r.Result.Record})
				}
				return export.Write(w, f, r.Result.Record)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the record to this file instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the record is missing required fields")
	return cmd
}

// writeOutput runs write against path, or against stdout when path is empty.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
