// Package cli implements the resumex command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumex/internal/schema"
	"github.com/dgallion1/resumex/internal/version"
)

// options are shared by every subcommand.
type options struct {
	schemaPath string
	verbose    bool
	log        *slog.Logger
}

func (o *options) loadSchema() (*schema.Config, error) {
	sc, err := schema.LoadOrDefault(o.schemaPath)
	if err != nil {
		return nil, err
	}
	o.log.Debug("schema loaded", "path", o.schemaPath, "sections", len(sc.Sections))
	return sc, nil
}

// NewRootCmd builds the resumex command tree.
func NewRootCmd() *cobra.Command {
	o := &options{log: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:   "resumex",
		Short: "Extract structured records from résumé documents",
		Long: `resumex reads résumés written with the conventional heading/list layout
(Markdown, HTML or DOCX) and maps them onto a configurable record template.

The built-in schema covers the common Chinese résumé sections; pass --schema
to use a JSON, YAML or TOML schema file instead.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.verbose {
				o.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("resumex %s\n", version.String()))

	root.PersistentFlags().StringVarP(&o.schemaPath, "schema", "s", "", "Schema configuration file (JSON, YAML or TOML; TOML templates use \"\" for null)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Log extraction details to stderr")

	root.AddCommand(newParseCmd(o), newBatchCmd(o), newSchemaCmd(o))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}
