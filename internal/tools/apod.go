// Package tools exposes the picture service and the cache as MCP tools.
// Handler failures are reported as tool errors; the returned Go error is
// always nil.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/apod-cache/internal/apod"
)

// Pictures is the read side of apod.Service.
type Pictures interface {
	Today(ctx context.Context) (*apod.Picture, error)
	ByDate(ctx context.Context, date string) (*apod.Picture, error)
	Range(ctx context.Context, start, end string) ([]apod.Picture, error)
	Random(ctx context.Context) (*apod.Picture, error)
	Search(ctx context.Context, query string, limit int) ([]apod.ArchiveEntry, error)
}

type handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// TodayHandler returns the MCP tool handler for the "apod-today" tool.
func TodayHandler(p Pictures) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		pic, err := p.Today(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPicture(pic)), nil
	}
}

// DateHandler returns the MCP tool handler for the "apod-date" tool.
func DateHandler(p Pictures) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := req.RequireString("date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pic, err := p.ByDate(ctx, strings.TrimSpace(date))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPicture(pic)), nil
	}
}

// RangeHandler returns the MCP tool handler for the "apod-range" tool.
func RangeHandler(p Pictures) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start, err := req.RequireString("start_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := req.RequireString("end_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pics, err := p.Range(ctx, strings.TrimSpace(start), strings.TrimSpace(end))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(pics) == 0 {
			return mcp.NewToolResultText("No pictures in that range."), nil
		}
		parts := make([]string, 0, len(pics))
		for i := range pics {
			parts = append(parts, formatPicture(&pics[i]))
		}
		return mcp.NewToolResultText(strings.Join(parts, "\n\n---\n\n")), nil
	}
}

// RandomHandler returns the MCP tool handler for the "apod-random" tool.
func RandomHandler(p Pictures) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pic, err := p.Random(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPicture(pic)), nil
	}
}

// SearchHandler returns the MCP tool handler for the "apod-search" tool.
func SearchHandler(p Pictures) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(q) == "" {
			return mcp.NewToolResultError("empty query"), nil
		}
		results, err := p.Search(ctx, q, req.GetInt("limit", apod.DefaultSearchLimit))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatArchive(results)), nil
	}
}

func formatPicture(p *apod.Picture) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(p.Title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Date: %s\n", p.Date)
	if p.MediaType != "" {
		fmt.Fprintf(&sb, "Media: %s\n", p.MediaType)
	}
	if p.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", p.URL)
	}
	if p.HDURL != "" {
		fmt.Fprintf(&sb, "HD URL: %s\n", p.HDURL)
	}
	if p.ThumbnailURL != "" {
		fmt.Fprintf(&sb, "Thumbnail: %s\n", p.ThumbnailURL)
	}
	if p.Copyright != "" {
		fmt.Fprintf(&sb, "Copyright: %s\n", strings.TrimSpace(p.Copyright))
	}
	if p.Explanation != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Explanation)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatArchive renders an ordered list with one URL line per entry.
func formatArchive(results []apod.ArchiveEntry) string {
	if len(results) == 0 {
		return "No results."
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s (%s)\n   %s", i+1, r.Title, r.Date, r.URL)
		if i < len(results)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
