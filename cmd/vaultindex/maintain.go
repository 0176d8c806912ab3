package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vaultindex/internal/service"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var images bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Record the markdown documents of every configured vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				start := time.Now()
				summary, err := a.maintenance.Scan(ctx, images)
				if summary != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Scan finished in %s\n", time.Since(start).Round(time.Millisecond))
					fmt.Fprint(cmd.OutOrStdout(), summary.Documents.String())
					if summary.Attachments != nil {
						fmt.Fprint(cmd.OutOrStdout(), summary.Attachments.String())
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&images, "images", false, "also record image attachments")
	return cmd
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var fullText, embeddings bool
	var path string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the full-text index and the embedding table from the metadata store",
		Long: `Build the full-text index and the embedding table from the metadata store.
With neither --fulltext nor --embeddings both are built. --path re-records a
single document and refreshes its full-text entry instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path != "" {
				return opts.run(cmd, false, func(ctx context.Context, a *app) error {
					file, err := a.maintenance.Refresh(ctx, path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", file.Path, file.VirtualPath)
					return nil
				})
			}

			sel := service.IndexOptions{FullText: fullText, Embeddings: embeddings}
			if !sel.FullText && !sel.Embeddings {
				sel = service.IndexOptions{FullText: true, Embeddings: true}
			}
			return opts.run(cmd, sel.Embeddings, func(ctx context.Context, a *app) error {
				summary, err := a.maintenance.Index(ctx, sel)
				if summary != nil {
					printIndexSummary(cmd.OutOrStdout(), sel, summary)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&fullText, "fulltext", false, "build the full-text index")
	cmd.Flags().BoolVar(&embeddings, "embeddings", false, "build the embedding table")
	cmd.Flags().StringVar(&path, "path", "", "refresh a single document (physical or virtual path)")
	return cmd
}

func printIndexSummary(w io.Writer, sel service.IndexOptions, s *service.IndexSummary) {
	if sel.FullText {
		fmt.Fprintf(w, "Full-text: %d documents\n", s.FullTextDocuments)
		if s.FullTextReport != nil && len(s.FullTextReport.Failures) > 0 {
			fmt.Fprint(w, s.FullTextReport.String())
		}
	}
	if p := s.Embeddings; p != nil {
		fmt.Fprintf(w, "Embeddings: %d/%d succeeded, %d failed in %s\n",
			p.Succeeded, p.Total, p.Failed, p.Elapsed.Round(time.Millisecond))
		for _, f := range p.Failures {
			fmt.Fprintf(w, "  %s: %v\n", f.Path, f.Err)
		}
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a document from the full-text index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				removed, err := a.pipeline.RemoveDocument(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not indexed\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove entries for files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				res, err := a.maintenance.Cleanup(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %d documents, %d attachments, %d embeddings\n",
						res.Pages, res.Attachments, res.Embeddings)
				})
			})
		},
	}
}

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Rebuild the ANN index of the embedding table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				return a.maintenance.Optimize(ctx)
			})
		},
	}
}
