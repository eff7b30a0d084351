// Package chromemdb backs the vector store contract with an embedded,
// persistent chromem-go collection. Embeddings are computed by the local
// Ollama server through the collection's embedding function.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"clinical-rag/internal/config"
	"clinical-rag/internal/store"
)

const compress = false

type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func New(storeCfg *config.StoreConfig, embedCfg *config.LLMConfig) (*Store, error) {
	db, err := chromem.NewPersistentDB(storeCfg.Path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	ef := chromem.NewEmbeddingFuncOllama(embedCfg.Model, ollamaAPIURL(embedCfg.BaseURL))
	collection, err := db.GetOrCreateCollection(storeCfg.Collection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	log.Info().Str("collection", storeCfg.Collection).Int("count", collection.Count()).Msg("Chromem collection ready")

	return &Store{db: db, collection: collection}, nil
}

// ollamaAPIURL normalizes the configured server URL to the /api base that
// chromem's Ollama embedding function expects.
func ollamaAPIURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(u, "/api") {
		return u
	}
	return u + "/api"
}

func (s *Store) Add(ctx context.Context, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:      d.ID,
			Content: d.Text,
			Metadata: map[string]string{
				"source":      d.Source,
				"chunk_index": strconv.Itoa(d.ChunkIndex),
			},
		}
	}
	if err := s.collection.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) ([]store.Result, error) {
	// chromem rejects nResults above the collection size, so clamp rather
	// than treat a small or empty collection as a failure.
	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := s.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]store.Result, 0, len(results))
	for _, r := range results {
		idx, err := strconv.Atoi(r.Metadata["chunk_index"])
		if err != nil {
			return nil, fmt.Errorf("malformed chunk_index metadata on %s: %w", r.ID, err)
		}
		out = append(out, store.Result{
			Text:       r.Content,
			Source:     r.Metadata["source"],
			ChunkIndex: idx,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}
