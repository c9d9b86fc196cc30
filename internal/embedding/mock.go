package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and offline runs.
// Texts that share words get similar vectors.
type MockEmbedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	calls int
}

// NewMockEmbedder returns a MockEmbedder producing dim-sized vectors
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim < 2 {
		dim = 16
	}
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.record()
	if m.Err != nil {
		return nil, m.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vector(text)
	}
	return vectors, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.record()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(text), nil
}

// Calls returns how many embed requests were made
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) record() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *MockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.Dim)
	// never all zeros, cosine similarity needs a direction
	v[0] = 0.1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[1+int(h.Sum32()%uint32(m.Dim-1))] += 1
	}
	return v
}
