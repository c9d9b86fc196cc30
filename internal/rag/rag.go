package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"paper-rag/internal/llmservice"
	"paper-rag/internal/models"
)

type RAG struct {
	retriever *Retriever
	llm       llmservice.Model
}

func NewRAG(retriever *Retriever, llm llmservice.Model) *RAG {
	return &RAG{retriever: retriever, llm: llm}
}

// Answer retrieves context for query and asks the chat model to answer from it.
// The returned context is exactly what was put in the prompt.
func (r *RAG) Answer(ctx context.Context, query string) (*models.Answer, error) {
	docs, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(query, docs)
	log.Debug().Int("context", len(docs)).Int("prompt_length", len(prompt)).Msg("Sending prompt")

	answer, err := llmservice.GenerateContent(ctx, r.llm, prompt, models.AnswerTemperature)
	if err != nil {
		return nil, err
	}

	return &models.Answer{
		Query:   query,
		Answer:  answer,
		Context: docs,
	}, nil
}

// BuildPrompt labels each context chunk with its position, file and page and wraps
// them in the answering instructions.
func BuildPrompt(query string, docs []models.Retrieved) string {
	blocks := make([]string, len(docs))
	for i, c := range docs {
		blocks[i] = fmt.Sprintf(models.SourceLabelTemplate, i+1, c.Metadata.Source, c.Metadata.Page) + c.Document
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(blocks, models.ContextSeparator), query)
}
