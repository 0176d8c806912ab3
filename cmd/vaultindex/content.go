package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vaultindex/internal/service"
)

func newPageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "page <virtual-path>",
		Short: "Print a recorded document with its frontmatter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				page, err := a.retrieval.Page(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), page, func(w io.Writer) {
					printPage(w, page)
				})
			})
		},
	}
}

func printPage(w io.Writer, page *service.Page) {
	fmt.Fprintf(w, "# %s (%s)\n# %s\n", page.VirtualPath, page.Vault, page.PhysicalPath)
	if page.Metadata != "" {
		fmt.Fprintf(w, "# metadata: %s\n", page.Metadata)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, page.Content)
	if !strings.HasSuffix(page.Content, "\n") {
		fmt.Fprintln(w)
	}
}

func newAttachmentCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "attachment <virtual-path>",
		Short: "Write a recorded attachment to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				att, err := a.retrieval.Attachment(ctx, args[0])
				if err != nil {
					return err
				}
				if output == "" {
					_, err := cmd.OutOrStdout().Write(att.Data)
					return err
				}
				if err := os.WriteFile(output, att.Data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes (%s) to %s\n", len(att.Data), att.ContentType, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newPagesCmd(opts *rootOptions) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List selected pagetable columns of every recorded document",
		Long: `List selected pagetable columns of every recorded document.
Columns: id, vault, path, virtualPath, metadata, last_modified, created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				rows, err := a.retrieval.Pages(ctx, fields)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), rows, func(w io.Writer) {
					printPages(w, fields, rows)
				})
			})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", []string{"vault", "virtualPath", "path"}, "columns to print")
	return cmd
}

// printPages writes rows as tab-separated values under a header line.
func printPages(w io.Writer, fields []string, rows []map[string]string) {
	fmt.Fprintln(w, strings.Join(fields, "\t"))
	values := make([]string, len(fields))
	for _, row := range rows {
		for i, f := range fields {
			values[i] = row[f]
		}
		fmt.Fprintln(w, strings.Join(values, "\t"))
	}
}
