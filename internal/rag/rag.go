// Package rag runs the online question-answering pipeline: retrieve top-k
// chunks, assemble a provenance-annotated context block, prompt the chat
// model, and normalize its answer.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"clinical-rag/internal/config"
	"clinical-rag/internal/llm"
	"clinical-rag/internal/models"
	"clinical-rag/internal/store"
)

// ChatClient is the chat-model collaborator.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []models.ChatTurn) (*llm.Response, error)
}

type RAG struct {
	store store.VectorStore
	llm   ChatClient
	cfg   *config.Config
}

func NewRAG(st store.VectorStore, chat ChatClient, cfg *config.Config) *RAG {
	return &RAG{store: st, llm: chat, cfg: cfg}
}

// Retrieve runs a similarity query for the question and returns ranked
// chunks. Zero results is a valid outcome, not an error. Every call
// re-queries the store; nothing is cached.
func (r *RAG) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	log.Info().Str("query", query).Int("top_k", k).Msg("Running retrieval")

	results, err := r.store.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, models.RetrievedChunk{
			Text:       res.Text,
			Source:     res.Source,
			ChunkIndex: res.ChunkIndex,
		})
	}
	log.Info().Int("retrieved", len(chunks)).Msg("Retrieval complete")
	return chunks, nil
}

// BuildContext formats retrieved chunks into one context string, each chunk
// prefixed with its provenance header and separated by a blank line, in the
// order received. An empty input yields an empty string.
func BuildContext(chunks []models.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		header := fmt.Sprintf(models.ContextHeaderTemplate, c.Source, c.ChunkIndex)
		blocks = append(blocks, header+"\n"+c.Text)
	}
	return strings.Join(blocks, "\n\n")
}

const previewSampleRunes = 600

// FormatRanked renders retrieved chunks as a ranked preview with their
// provenance and a sample of each chunk's text, for inspecting retrieval
// quality without involving the chat model.
func FormatRanked(chunks []models.RetrievedChunk) string {
	if len(chunks) == 0 {
		return "No chunks retrieved."
	}
	rule := strings.Repeat("=", 80)
	subRule := strings.Repeat("-", 80)
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\nRank #%d\nSource      : %s\nChunk index : %d\n%s\n", rule, i+1, c.Source, c.ChunkIndex, subRule)
		sample := []rune(c.Text)
		if len(sample) > previewSampleRunes {
			b.WriteString(string(sample[:previewSampleRunes]))
			b.WriteString("\n[...]\n")
		} else {
			b.WriteString(c.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// AnswerQuestion is the caller-facing entry point: retrieve, short-circuit
// on empty context, assemble, prompt, generate, normalize. The model never
// answers from zero grounding; with no retrieved context the fixed fallback
// is returned and the chat model is not called. Store and generation
// failures propagate unchanged.
func (r *RAG) AnswerQuestion(ctx context.Context, question, model string, topK int) (string, error) {
	if model == "" {
		model = r.cfg.ChatLLM.Model
	}
	if topK < 1 {
		topK = r.cfg.RAG.TopK
	}

	chunks, err := r.Retrieve(ctx, question, topK)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		log.Warn().Str("query", question).Msg("No context retrieved")
		return models.FallbackNoContext, nil
	}

	context := BuildContext(chunks)
	log.Info().Str("model", model).Int("context_chars", len(context)).Int("top_k", topK).Msg("Calling chat model with assembled context")

	messages := []models.ChatTurn{
		{Role: models.RoleSystem, Content: models.SystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf(models.UserPromptTemplate, context, question)},
	}

	resp, err := r.llm.Chat(ctx, model, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	answer, err := resp.Text()
	if err != nil {
		return "", err
	}
	log.Info().Int("answer_chars", len(answer)).Msg("Answer generated")
	return answer, nil
}
