package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumex/internal/schema"
)

func newSchemaCmd(o *options) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate the schema configuration and describe its sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dump && o.schemaPath == "" {
				_, err := cmd.OutOrStdout().Write(schema.DefaultYAML())
				return err
			}
			sc, err := o.loadSchema()
			if err != nil {
				return err
			}
			formatSchema(cmd.OutOrStdout(), o.schemaPath, sc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump-default", false, "Print the built-in schema as YAML")
	return cmd
}

func formatSchema(w io.Writer, path string, sc *schema.Config) {
	if path == "" {
		path = "(built-in)"
	}
	header := fmt.Sprintf("%s %s\n%s %q  %s %d",
		dimStyle.Render("Schema:"), titleStyle.Render(path),
		dimStyle.Render("Separator:"), sc.Separator,
		dimStyle.Render("Section level:"), sc.SectionLevel,
	)
	fmt.Fprintln(w, boxStyle.Render(header))

	for _, s := range sc.Sections {
		line := fmt.Sprintf("%s %s %s", titleStyle.Render(s.Title), dimStyle.Render("→"), s.Key)
		details := []string{string(s.Kind)}
		if n := len(s.Labels); n > 0 {
			details = append(details, fmt.Sprintf("%d labels", n))
		}
		if s.Boundary != "" {
			details = append(details, "boundary "+s.Boundary)
		}
		if s.HeadingPattern != "" {
			details = append(details, "heading pattern")
		}
		if s.Overflow != "" {
			details = append(details, "overflow "+s.Overflow)
		}
		fmt.Fprintf(w, "  %s  %s\n", line, dimStyle.Render(strings.Join(details, ", ")))
	}

	required := "none"
	if len(sc.Required) > 0 {
		required = strings.Join(sc.Required, ", ")
	}
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Required:"), required)
	if sc.Validator() != nil {
		fmt.Fprintln(w, successStyle.Render("validation schema compiled"))
	}
}
