package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the uploaded PDF documents semantically. Returns the most relevant passages with their document and page."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)

var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List uploaded documents, newest first, with title, author, page and chunk counts."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of documents to return (default 20)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Number of documents to skip"),
	),
)
