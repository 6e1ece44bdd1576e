package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/resumex/internal/export"
	"github.com/dgallion1/resumex/internal/schema"
)

func newBatchCmd(o *options) *cobra.Command {
	var (
		jobs     int
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "batch FILES...",
		Short: "Parse many résumés in parallel and summarise the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := o.loadSchema()
			if err != nil {
				return err
			}

			results := runBatch(cmd, args, sc, o, jobs)
			formatSummary(cmd.OutOrStdout(), results)

			if xlsxPath != "" {
				var docs []export.Named
				for _, r := range results {
					if r.Result != nil {
						docs = append(docs, export.Named{Source: filepath.Base(r.Path), Record: r.Result.Record})
					}
				}
				err := writeOutput(nil, xlsxPath, func(w io.Writer) error {
					return export.XLSX(w, docs...)
				})
				if err != nil {
					return fmt.Errorf("write workbook: %w", err)
				}
			}

			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", errorStyle.Render("failed"), r.Path, r.Err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be parsed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Number of files parsed concurrently")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write every parsed record into this workbook")
	return cmd
}

// runBatch parses paths with at most jobs files in flight. Results keep the
// order of paths.
func runBatch(cmd *cobra.Command, paths []string, sc *schema.Config, o *options, jobs int) []fileResult {
	if jobs <= 0 {
		jobs = 1
	}
	ctx := cmd.Context()
	results := make([]fileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if ctx != nil && ctx.Err() != nil {
				results[i] = fileResult{Path: path, Err: ctx.Err()}
				return nil
			}
			results[i] = parseFile(path, sc, o.log)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
