package mcp

import (
	"context"

	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/models"
	"github.com/bobmcallan/advisor-portal/internal/reconcile"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultMessageLimit caps list_messages when no limit is given.
const DefaultMessageLimit = 20

// DataSource reads a client's messages and reports.
type DataSource interface {
	CountUnread(ctx context.Context, ownerID string) (int, error)
	FetchMessages(ctx context.Context, ownerID string) ([]models.Message, error)
	FetchReports(ctx context.Context, ownerID string) ([]models.Report, error)
}

// RegisterTools adds the portal tools to s and returns how many were added.
func RegisterTools(s *server.MCPServer, src DataSource) int {
	s.AddTool(VersionTool(), VersionToolHandler())
	s.AddTool(UnreadCountTool(), UnreadCountHandler(src))
	s.AddTool(ListMessagesTool(), ListMessagesHandler(src))
	s.AddTool(LatestReportTool(), LatestReportHandler(src))
	return 4
}

// VersionTool returns the get_version tool definition.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the advisor portal version. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the build information.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(config.GetBuildInfo()), nil
	}
}

// UnreadCountTool returns the get_unread_count tool definition.
func UnreadCountTool() mcp.Tool {
	return mcp.NewTool("get_unread_count",
		mcp.WithDescription("Count the advisor messages the client has not read yet."),
	)
}

// UnreadCountHandler counts unread advisor messages of the calling client.
func UnreadCountHandler(src DataSource) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cc, ok := GetClientContext(ctx)
		if !ok {
			return errorResult("authentication required"), nil
		}
		unread, err := src.CountUnread(ctx, cc.ClientID)
		if err != nil {
			return errorResult("failed to count messages: " + err.Error()), nil
		}
		return jsonResult(map[string]int{"unread": unread}), nil
	}
}

// ListMessagesTool returns the list_messages tool definition.
func ListMessagesTool() mcp.Tool {
	return mcp.NewTool("list_messages",
		mcp.WithDescription("List the newest messages between the client and their advisor, oldest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (default 20)."),
		),
	)
}

// ListMessagesHandler returns the newest messages of the calling client.
func ListMessagesHandler(src DataSource) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cc, ok := GetClientContext(ctx)
		if !ok {
			return errorResult("authentication required"), nil
		}
		limit := r.GetInt("limit", DefaultMessageLimit)
		if limit <= 0 {
			return errorResult("limit must be positive"), nil
		}
		msgs, err := src.FetchMessages(ctx, cc.ClientID)
		if err != nil {
			return errorResult("failed to load messages: " + err.Error()), nil
		}
		if len(msgs) > limit {
			msgs = msgs[len(msgs)-limit:]
		}
		return jsonResult(map[string]interface{}{"messages": msgs}), nil
	}
}

// LatestReportTool returns the get_latest_report tool definition.
func LatestReportTool() mcp.Tool {
	return mcp.NewTool("get_latest_report",
		mcp.WithDescription("Get the most recent report the advisor shared, with whether it was downloaded."),
	)
}

// LatestReportHandler returns the calling client's newest report.
func LatestReportHandler(src DataSource) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cc, ok := GetClientContext(ctx)
		if !ok {
			return errorResult("authentication required"), nil
		}
		reports, err := src.FetchReports(ctx, cc.ClientID)
		if err != nil {
			return errorResult("failed to load reports: " + err.Error()), nil
		}
		latest := reconcile.LatestReport(reports)
		if latest == nil {
			return jsonResult(map[string]interface{}{"report": nil}), nil
		}
		return jsonResult(map[string]interface{}{"report": latest}), nil
	}
}
