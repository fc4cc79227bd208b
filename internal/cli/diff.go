package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/show-scraper/internal/event"
)

func newDiffCmd(opts *options) *cobra.Command {
	var sortFlag string

	cmd := &cobra.Command{
		Use:   "diff old.json new.json",
		Short: "Show events added and removed between two published listings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			order, err := ParseSortOrder(sortFlag)
			if err != nil {
				return err
			}

			previous, err := readListing(args[0])
			if err != nil {
				return err
			}
			current, err := readListing(args[1])
			if err != nil {
				return err
			}

			out := NewDiffOutput(event.Diff(previous, current), order, time.Now())
			return WriteOutput(cmd.OutOrStdout(), out, format)
		},
	}
	cmd.Flags().StringVar(&sortFlag, "sort", "date", "Sort order: date, venue or title")
	return cmd
}

func readListing(path string) (event.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listing: %w", err)
	}
	var listing event.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return listing, nil
}
