package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSourcesCommand(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured paper sources",
		Long: `Sources lists every paper source with whether it can be searched.
A source is unavailable when it is disabled in configuration or is missing a
required credential (CORE needs an API key, PubMed a contact email).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, searcher, err := opts.setup()
			if err != nil {
				return err
			}
			agents := searcher.Agents()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(agents)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tKEY\tAVAILABLE\tYEAR WINDOW\tADAPTIVE CITATIONS")
			for _, a := range agents {
				available := "yes"
				if !a.Enabled {
					available = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", a.Label, a.Source, available, a.Policy.YearWindow, a.Policy.AdaptiveCitations)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print sources as JSON")
	return cmd
}
