package models

// Chunk is one overlapping window of a document's extracted text, the
// atomic unit persisted in the vector store.
type Chunk struct {
	ID         string
	Text       string
	Source     string
	ChunkIndex int
}

// RetrievedChunk is a chunk returned by similarity search, ranked
// most-to-least relevant. It lives only for the duration of one query.
type RetrievedChunk struct {
	Text       string
	Source     string
	ChunkIndex int
}

// ChatTurn is a single message exchanged with the chat model.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
