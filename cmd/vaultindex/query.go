package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"vaultindex/internal/fulltext"
	"vaultindex/internal/service"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Lexical search over the full-text index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				results, err := a.retrieval.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), results, func(w io.Writer) {
					printSearchResults(w, query, results)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	return cmd
}

func printSearchResults(w io.Writer, query string, results []fulltext.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results found for query: %q\n", query)
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s (%.3f)\n   %s\n", i+1, r.Title, r.Score, r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", r.Snippet)
		}
	}
}

type similarFlags struct {
	limit     int
	threshold float64
	filter    string
}

func (f *similarFlags) register(cmd *cobra.Command, withFilter bool) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum number of hits (default from config)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity, negative disables the cutoff (default from config)")
	if withFilter {
		cmd.Flags().StringVar(&f.filter, "filter", "", "filter expression, e.g. \"metadata_json LIKE '%tag%'\"")
	}
}

func (f *similarFlags) options() service.SimilarOptions {
	return service.SimilarOptions{Max: f.limit, Threshold: f.threshold, Filter: f.filter}
}

func newSimilarCmd(opts *rootOptions) *cobra.Command {
	var flags similarFlags
	cmd := &cobra.Command{
		Use:   "similar <text>",
		Short: "Find documents similar to a piece of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				hits, err := a.retrieval.Similar(ctx, strings.Join(args, " "), flags.options())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), hits, func(w io.Writer) { printHits(w, hits) })
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newRelatedCmd(opts *rootOptions) *cobra.Command {
	var flags similarFlags
	cmd := &cobra.Command{
		Use:   "related <path>",
		Short: "Find documents related to a stored document",
		Long:  "Find documents related to a stored document. path is physical when it exists on disk, otherwise virtual.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				hits, err := a.retrieval.Related(ctx, args[0], flags.options())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), hits, func(w io.Writer) { printHits(w, hits) })
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func printHits(w io.Writer, hits []service.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No similar documents found")
		return
	}
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s (%.3f)\n   %s\n", i+1, h.VirtualPath, h.Similarity, h.PhysicalPath)
	}
}

func newFilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "files <vault>",
		Short: "List the documents stored for a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				files, err := a.retrieval.Files(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), files, func(w io.Writer) {
					for _, f := range files {
						fmt.Fprintln(w, f)
					}
				})
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document counts per vault and index sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(ctx context.Context, a *app) error {
				stats, err := a.retrieval.Stats(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), stats, func(w io.Writer) { printStats(w, stats) })
			})
		},
	}
}

func printStats(w io.Writer, s *service.Stats) {
	names := make([]string, 0, len(s.Vaults))
	for name := range s.Vaults {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Documents:   %d\n", s.Documents)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %d\n", name, s.Vaults[name])
	}
	fmt.Fprintf(w, "Attachments: %d\n", s.Attachments)
	mode := "like"
	if s.FullTextFTS {
		mode = "fts5"
	}
	fmt.Fprintf(w, "Full-text:   %d (%s)\n", s.FullText, mode)
}
