package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/querylog"
	"github.com/ziadkadry99/docchat/internal/rag"
	"github.com/ziadkadry99/docchat/internal/render"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

type queryRequest struct {
	UserQuery   string  `json:"user_query"`
	ChatHistory [][]any `json:"chat_history"`
}

type queryResponse struct {
	Response     string            `json:"response"`
	ResponseHTML string            `json:"response_html"`
	Source       querylog.Source   `json:"source"`
	Sources      []vectordb.Source `json:"sources"`
}

// turns converts [question, answer] pairs, skipping malformed ones.
func turns(history [][]any) []rag.Turn {
	out := make([]rag.Turn, 0, len(history))
	for _, pair := range history {
		if len(pair) < 2 {
			continue
		}
		out = append(out, rag.Turn{Question: fmt.Sprint(pair[0]), Answer: fmt.Sprint(pair[1])})
	}
	return out
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxQueryBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure{Message: "Invalid request body"})
		return
	}

	claims, _ := auth.CurrentUser(r.Context())
	reply, err := s.deps.Questions.Ask(r.Context(), claims.UserID, req.UserQuery, turns(req.ChatHistory))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Response:     reply.Response,
		ResponseHTML: render.MustHTML(reply.Response),
		Source:       reply.Source,
		Sources:      reply.Sources,
	})
}

type historyItem struct {
	UserQuery string          `json:"user_query"`
	Response  string          `json:"response"`
	Timestamp string          `json:"timestamp"`
	Source    querylog.Source `json:"source"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	claims, _ := auth.CurrentUser(r.Context())
	entries, totalPages, err := s.deps.QueryLog.Page(r.Context(), claims.UserID, page, querylog.DefaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{
			UserQuery: e.Question,
			Response:  e.Answer,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Source:    e.Source,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chat_history": items,
		"total_pages":  totalPages,
		"current_page": page,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	// Non-admins get a refusal body with status 200.
	if !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusOK, failure{Success: false, Message: "Unauthorized"})
		return
	}

	report, err := s.deps.QueryLog.CountsBySource(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"total_queries":  report.Total,
		"pdf_queries":    report.BySource[querylog.SourceDocument],
		"google_queries": report.BySource[querylog.SourceFallback],
	})
}
