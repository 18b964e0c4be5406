package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type renderedPage struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func newRenderCmd(state *cliState) *cobra.Command {
	var all, warm, asJSON bool

	cmd := &cobra.Command{
		Use:   "render [title...]",
		Short: "Render fixture pages, expanding their breadcrumb tags",
		Long: `Render expands the breadcrumb tags of the named pages, or of every page
with --all. Each render records the page's declared parent, so trails grow
as more pages are rendered. --warm renders every page once first so that
the printed trails are complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := state.app
			titles := args
			if all {
				titles = a.wiki.Titles()
			}
			if len(titles) == 0 {
				return fmt.Errorf("%w: name at least one page or pass --all", errUsage)
			}

			if warm {
				if _, err := a.renderPages(cmd.Context(), a.wiki.Titles()); err != nil {
					return err
				}
			}
			pages, err := a.renderPages(cmd.Context(), titles)
			if err != nil {
				return err
			}
			return writePages(cmd.OutOrStdout(), pages, asJSON)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "render every fixture page")
	cmd.Flags().BoolVar(&warm, "warm", false, "render every page once before printing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// renderPages renders titles concurrently, bounded by server.jobs, and
// returns the results in input order.
func (a *app) renderPages(ctx context.Context, titles []string) ([]renderedPage, error) {
	out := make([]renderedPage, len(titles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Server.Jobs)

	for i, title := range titles {
		g.Go(func() error {
			content, err := a.wiki.Render(ctx, title)
			if err != nil {
				return fmt.Errorf("%w: render %q: %w", errUsage, title, err)
			}
			out[i] = renderedPage{Title: title, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writePages(w io.Writer, pages []renderedPage, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pages)
	}
	for _, p := range pages {
		if _, err := fmt.Fprintf(w, "# %s\n%s\n", p.Title, p.Content); err != nil {
			return err
		}
	}
	return nil
}
