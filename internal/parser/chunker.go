package parser

import (
	"fmt"
	"strings"

	"paper-rag/internal/models"
)

// CleanText turns newlines into spaces, collapses whitespace runs and trims the result
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ChunkText slides a window of chunkSize characters over the normalized text,
// stepping chunkSize-chunkOverlap characters at a time. A window shorter than
// models.MinChunkLength ends the page and is dropped, so a short trailing
// fragment never becomes a chunk.
func ChunkText(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if err := checkWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	runes := []rune(CleanText(text))
	step := chunkSize - chunkOverlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+chunkSize, len(runes))
		if end-start < models.MinChunkLength {
			break
		}
		chunks = append(chunks, string(runes[start:end]))

		// the window already reached the end of the page
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ChunkPages chunks every page in order, carrying source and page number over
func ChunkPages(pages []models.Page, chunkSize, chunkOverlap int) ([]models.Chunk, error) {
	if err := checkWindow(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, page := range pages {
		texts, err := ChunkText(page.Text, chunkSize, chunkOverlap)
		if err != nil {
			return nil, err
		}
		for _, text := range texts {
			chunks = append(chunks, models.Chunk{
				Source: page.Source,
				Page:   page.Page,
				Text:   text,
			})
		}
	}
	return chunks, nil
}

func checkWindow(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return models.NewServiceError("chunker", "split", models.ErrInvalidInput,
			fmt.Errorf("chunk_overlap (%d) must be in [0, chunk_size) with chunk_size %d", chunkOverlap, chunkSize))
	}
	return nil
}
