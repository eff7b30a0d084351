// Package pgvector backs the vector store contract with Postgres + pgvector.
// Embeddings are computed client-side through a langchaingo Ollama embedder
// and stored alongside the chunk text.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"clinical-rag/internal/config"
	"clinical-rag/internal/store"
)

type ChunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string    `bun:"id,pk"`
	Content       string    `bun:"content,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Source        string    `bun:"source,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
}

type Store struct {
	db       *bun.DB
	embedder *embeddings.EmbedderImpl
}

func New(dbCfg *config.DatabaseConfig, embedCfg *config.LLMConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dbCfg.URL+"?sslmode=disable"),
		pgdriver.WithPassword(dbCfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if dbCfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	llm, err := ollama.New(
		ollama.WithServerURL(embedCfg.BaseURL),
		ollama.WithModel(embedCfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &Store{db: db, embedder: embedder}, nil
}

// Init creates the chunks table if it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*ChunkRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(ctx context.Context, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]ChunkRow, len(docs))
	for i, d := range docs {
		embedding, err := s.embedder.EmbedQuery(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", d.ID, err)
		}
		rows[i] = ChunkRow{
			ID:         d.ID,
			Content:    d.Text,
			Embedding:  embedding,
			Source:     d.Source,
			ChunkIndex: d.ChunkIndex,
		}
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("source = EXCLUDED.source").
		Set("chunk_index = EXCLUDED.chunk_index").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) ([]store.Result, error) {
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var rows []ChunkRow
	err = s.db.NewSelect().
		Model(&rows).
		Column("id", "content", "source", "chunk_index").
		OrderExpr("embedding <-> ?", queryEmbedding).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	out := make([]store.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Result{
			Text:       r.Content,
			Source:     r.Source,
			ChunkIndex: r.ChunkIndex,
		})
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*ChunkRow)(nil)).Count(ctx)
}
