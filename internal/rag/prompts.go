package rag

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// InsufficientMarker is the phrase the model is told to use when the
// retrieved context does not contain the answer.
const InsufficientMarker = "I don't have enough information"

const answerSystemPrompt = `You are a helpful assistant answering questions about a collection of uploaded PDF documents.
Use only the context below to answer. Be concise and cite the document name when it helps.
If the context does not contain the answer, reply exactly: "` + InsufficientMarker + ` to answer that question."

Context:
%s`

const condenseSystemPrompt = `Given the conversation so far and a follow-up question, rephrase the follow-up question to be a standalone question.
Reply with the standalone question only.`

const fallbackSystemPrompt = `You are a knowledgeable assistant. Answer the question directly and concisely using general knowledge.`

// IsInsufficient reports whether answer signals that the documents did not
// cover the question.
func IsInsufficient(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return true
	}
	return strings.Contains(normalizeQuotes(strings.ToLower(answer)), strings.ToLower(InsufficientMarker))
}

// normalizeQuotes folds typographic apostrophes so "don’t" still matches.
func normalizeQuotes(s string) string {
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}

func buildContext(results []vectordb.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if r.Source.Filename != "" {
			fmt.Fprintf(&sb, "[%s, page %d]\n", r.Source.Filename, r.Source.Page)
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func buildCondenseInput(history []Turn, question string) string {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, t := range history {
		fmt.Fprintf(&sb, "Human: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	fmt.Fprintf(&sb, "\nFollow-up question: %s", question)
	return sb.String()
}
