package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/show-scraper/internal/venue"
)

func newSourcesCmd(opts *options) *cobra.Command {
	var showDisabled bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the venue registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			s, err := opts.settings()
			if err != nil {
				return err
			}
			venues, err := loadVenues(s.VenuesFile)
			if err != nil {
				return err
			}

			list := venues.Enabled()
			if showDisabled {
				list = venues.All()
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			writeSourcesTable(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDisabled, "all", false, "Include disabled venues")
	return cmd
}

func writeSourcesTable(w io.Writer, venues []venue.Venue) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Name", "Common name", "Region", "Limit", "Website"})
	for _, v := range venues {
		name := v.Name
		if v.Aggregator {
			name += " *"
		}
		if v.Disabled {
			name += " (disabled)"
		}
		t.AppendRow(table.Row{name, v.CommonName, v.Region, v.Settings.Limit(), v.Website})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d venues", len(venues)), "", "", "", "* aggregator"})
	t.Render()
}
