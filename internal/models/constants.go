package models

const (
	DefaultChunkSize    = 800 // characters
	DefaultChunkOverlap = 200 // characters
	MinChunkLength      = 100 // characters
	DefaultTopK         = 5
	DefaultPDFDir       = "data/pdfs"
	DefaultStoreDir     = "data/chroma_db"
	DefaultCollection   = "research_papers"

	// sampling temperature for every answer
	AnswerTemperature = 0.2

	MetaSource = "source"
	MetaPage   = "page"

	ThinkTag         = `(?s)<think>.*?</think>`
	ContextSeparator = "\n\n"
	SourceSeparator  = "------------------------------------------------------------"
)

var (
	// SourceLabelTemplate labels one context block: index, source file, page
	SourceLabelTemplate = "[SOURCE %d | %s | page %d]\n"

	// AnswerPromptTemplate takes the rendered context blocks and the question
	AnswerPromptTemplate = `
You are an AI Research Assistant.
Answer the question using ONLY the provided context.
If the answer is not present, say that it doesn't exist in the documents provided.
-----CONTEXT-----
%s
-----END CONTEXT-----
Question: %s
Rules:
    - Be concise and accurate
    - Cite sources like [SOURCE 1], [SOURCE 2]
`
)
