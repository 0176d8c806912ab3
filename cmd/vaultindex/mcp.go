package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"vaultindex/internal/handlers"
	"vaultindex/internal/service"
)

const mcpVersion = "1.0.0"

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the retrieval tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(ctx context.Context, a *app) error {
				a.logger.Info("starting MCP server on stdio")
				return mcpserver.ServeStdio(newMCPServer(a.retrieval))
			})
		},
	}
}

func newMCPServer(r handlers.Retriever) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("vaultindex", mcpVersion, mcpserver.WithToolCapabilities(false))
	s.AddTool(searchNotesTool(), makeSearchNotesHandler(r))
	s.AddTool(similarNotesTool(), makeSimilarNotesHandler(r))
	s.AddTool(relatedNotesTool(), makeRelatedNotesHandler(r))
	s.AddTool(listVaultFilesTool(), makeListVaultFilesHandler(r))
	s.AddTool(readNoteTool(), makeReadNoteHandler(r))
	return s
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchNotesTool() mcp.Tool {
	return mcp.NewTool("search_notes",
		mcp.WithDescription("Keyword search over the indexed notes. Returns titles, paths and a snippet around the best match."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query", mcp.Required(), mcp.Description("Words to look for")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	)
}

func similarNotesTool() mcp.Tool {
	return mcp.NewTool("similar_notes",
		mcp.WithDescription("Find notes whose content is semantically similar to the given text."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to compare against")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes")),
		mcp.WithNumber("threshold", mcp.Description("Minimum similarity between 0 and 1")),
	)
}

func relatedNotesTool() mcp.Tool {
	return mcp.NewTool("related_notes",
		mcp.WithDescription("Find notes related to an indexed note, excluding the note itself."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Physical or virtual path of the note")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes")),
		mcp.WithNumber("threshold", mcp.Description("Minimum similarity between 0 and 1")),
	)
}

func listVaultFilesTool() mcp.Tool {
	return mcp.NewTool("list_vault_files",
		mcp.WithDescription("List the physical paths of every note recorded for a vault."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("vault", mcp.Required(), mcp.Description("Vault name from the configuration")),
	)
}

func readNoteTool() mcp.Tool {
	return mcp.NewTool("read_note",
		mcp.WithDescription("Read the full markdown content and frontmatter of a note by its virtual path."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the note, as returned by the search tools")),
	)
}

func makeSearchNotesHandler(r handlers.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		results, err := r.Search(ctx, query, req.GetInt("limit", 0))
		if err != nil {
			return toolError("search failed", err), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results found for query: %q", query)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Search results for %q (%d)\n\n", query, len(results))
		for i, res := range results {
			fmt.Fprintf(&sb, "### %d. %s\n\n`%s`\n\n", i+1, res.Title, res.Path)
			if res.Snippet != "" {
				fmt.Fprintf(&sb, "%s\n\n", res.Snippet)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeSimilarNotesHandler(r handlers.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := req.GetString("text", "")
		if strings.TrimSpace(text) == "" {
			return mcp.NewToolResultError("text is required"), nil
		}
		hits, err := r.Similar(ctx, text, similarOptions(req))
		if err != nil {
			return toolError("similarity search failed", err), nil
		}
		return mcp.NewToolResultText(formatHits("Similar notes", hits)), nil
	}
}

func makeRelatedNotesHandler(r handlers.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		hits, err := r.Related(ctx, path, similarOptions(req))
		if err != nil {
			return toolError("related search failed", err), nil
		}
		return mcp.NewToolResultText(formatHits(fmt.Sprintf("Notes related to %s", path), hits)), nil
	}
}

func makeListVaultFilesHandler(r handlers.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		vault := req.GetString("vault", "")
		if vault == "" {
			return mcp.NewToolResultError("vault is required"), nil
		}
		files, err := r.Files(ctx, vault)
		if err != nil {
			return toolError("list files failed", err), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Files in %s (%d)\n\n", vault, len(files))
		for _, f := range files {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeReadNoteHandler(r handlers.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		page, err := r.Page(ctx, path)
		if err != nil {
			return toolError("read note failed", err), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n", page.VirtualPath)
		if page.Metadata != "" {
			fmt.Fprintf(&sb, "Metadata: `%s`\n\n", page.Metadata)
		}
		sb.WriteString(page.Content)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func similarOptions(req mcp.CallToolRequest) service.SimilarOptions {
	return service.SimilarOptions{
		Max:       req.GetInt("limit", 0),
		Threshold: req.GetFloat("threshold", 0),
	}
}

// toolError reports err to the client together with its error kind.
func toolError(msg string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s (%s): %v", msg, service.KindOf(err), err))
}

func formatHits(heading string, hits []service.Hit) string {
	if len(hits) == 0 {
		return "No similar notes found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%d)\n\n", heading, len(hits))
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. **%s** (similarity %.3f)  \n   `%s`\n", i+1, h.VirtualPath, h.Similarity, h.PhysicalPath)
	}
	return sb.String()
}
