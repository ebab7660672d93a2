// Package mcp exposes the document index to MCP clients over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docchat/internal/documents"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Searcher finds chunks similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectordb.Result, error)
}

// DocumentLister pages through stored document metadata.
type DocumentLister interface {
	List(ctx context.Context, limit, offset int) ([]documents.Document, error)
}

// Server wraps an MCP server that exposes document search tools.
type Server struct {
	index Searcher
	docs  DocumentLister
	mcp   *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(index Searcher, docs DocumentLister) *Server {
	s := &Server{
		index: index,
		docs:  docs,
	}

	s.mcp = server.NewMCPServer(
		"docchat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
