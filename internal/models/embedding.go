package models

// Page is the raw text extracted from one page of a source document
type Page struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// Chunk represents a retrieval unit cut from a normalized page
type Chunk struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// Metadata is stored next to every vector record
type Metadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Record is one chunk as persisted in a vector collection
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  Metadata
}

// Retrieved is a single nearest-neighbour hit
type Retrieved struct {
	Document   string   `json:"document"`
	Metadata   Metadata `json:"metadata"`
	Similarity float32  `json:"similarity"`
}

// Answer is the grounded completion together with the context it was built from
type Answer struct {
	Query   string      `json:"query"`
	Answer  string      `json:"answer"`
	Context []Retrieved `json:"context"`
}
