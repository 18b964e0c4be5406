package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/breadcrumb/ancestry"
)

type cacheEntry struct {
	Key    string `json:"key"`
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Parent string `json:"parent,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

func newShowCacheCmd(state *cliState) *cobra.Command {
	var warm, asJSON bool

	cmd := &cobra.Command{
		Use:   "show-cache",
		Short: "List the breadcrumb records in the ancestor store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := state.app
			if warm {
				if _, err := a.renderPages(cmd.Context(), a.wiki.Titles()); err != nil {
					return err
				}
			}

			var entries []cacheEntry
			err := a.ancestors.Scan(cmd.Context(), func(key string, rec ancestry.Record) error {
				entries = append(entries, cacheEntry{
					Key:    key,
					ID:     rec.ID,
					Title:  rec.Title,
					Parent: rec.ParentTitle,
					Alias:  rec.Alias,
				})
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if entries == nil {
					entries = []cacheEntry{}
				}
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TITLE\tPARENT\tID\tKEY")
			for _, e := range entries {
				parent := e.Parent
				if parent == "" {
					parent = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Title, parent, e.ID, e.Key)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", false, "render every fixture page first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
