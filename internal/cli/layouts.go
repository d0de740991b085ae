package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/wotcsync/internal/codec"
	"github.com/spf13/cobra"
)

func (a *app) layoutsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Inspect jurisdiction submission layouts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the loaded layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JURISDICTION\tNAME\tVERSION\tFORMAT\tWIDTH\tMAX\tREMOTE")
			for _, j := range reg.Jurisdictions() {
				l, err := reg.Lookup(j)
				if err != nil {
					return err
				}
				width := "-"
				if l.Format == codec.FormatFixed {
					width = fmt.Sprint(l.RecordWidth())
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
					l.Jurisdiction, l.Name, l.Version, l.Format, width, l.MaxRecords, l.Remote.Dir)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <dir>",
		Short: "Validate every *.yaml layout in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := codec.LoadRegistry(os.DirFS(args[0]))
			if err != nil {
				return err
			}
			js := reg.Jurisdictions()
			if len(js) == 0 {
				return fmt.Errorf("no layouts found in %s", args[0])
			}
			fmt.Fprintf(a.out, "%d layouts OK: %s\n", len(js), strings.Join(js, ", "))
			return nil
		},
	})

	return cmd
}
