package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newSaveCmd(state *cliState) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save <title>",
		Short: "Save page content and invalidate its breadcrumb record",
		Long: `Save replaces a page's content, creating the page if needed, and runs the
save hooks. The page's stored breadcrumb record is removed so that its next
render records the parent it now declares. Content is read from --file, or
from standard input when --file is "-" or unset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			p, err := state.app.wiki.Save(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (id %s)\n", p.Title, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `read content from file ("-" for stdin)`)
	return cmd
}

func readContent(stdin io.Reader, file string) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errUsage, err)
	}
	return string(data), nil
}
