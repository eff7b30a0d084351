// Package ingest turns document files into persisted, embedded chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"clinical-rag/internal/chunker"
	"clinical-rag/internal/extractor"
	"clinical-rag/internal/store"
)

// ExtractFunc extracts the raw text of one document file.
type ExtractFunc func(path string) (string, error)

// Document is one named unit of extracted text ready for chunking.
type Document struct {
	Name string
	Text string
}

// Report summarizes one ingestion batch.
type Report struct {
	DocumentsSeen int
	ChunksAdded   int
	// Skipped lists documents that produced zero chunks (empty or
	// whitespace-only text) and contributed nothing to the store.
	Skipped []string
}

// Empty reports whether the batch produced no chunks at all, in which case
// the store was left untouched.
func (r *Report) Empty() bool { return r.ChunksAdded == 0 }

type Ingestor struct {
	store   store.VectorStore
	chunker *chunker.Chunker
	extract ExtractFunc
}

func New(st store.VectorStore, ch *chunker.Chunker, extract ExtractFunc) *Ingestor {
	if extract == nil {
		extract = extractor.Extract
	}
	return &Ingestor{store: st, chunker: ch, extract: extract}
}

// IngestDir extracts every supported file in dir (sorted for deterministic
// ordering) and ingests the resulting documents as one batch. Files in
// unsupported formats are recorded as skipped; extraction failures inside a
// document degrade to empty text in the extractor and surface here only as
// zero-chunk documents.
func (i *Ingestor) IngestDir(ctx context.Context, dir string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []Document
	var unsupported []string
	for _, name := range names {
		text, err := i.extract(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, extractor.ErrUnsupportedFormat) {
				unsupported = append(unsupported, name)
				continue
			}
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		log.Info().Str("file", name).Int("chars", len(text)).Msg("Extracted document text")
		docs = append(docs, Document{Name: name, Text: text})
	}

	report, err := i.Ingest(ctx, docs)
	if err != nil {
		return nil, err
	}
	report.Skipped = append(unsupported, report.Skipped...)
	return report, nil
}

// Ingest chunks each document, derives deterministic chunk ids from the
// document stem and the 0-based index over emitted chunks, and bulk-adds
// the whole batch to the store. A batch that yields zero chunks leaves the
// store untouched. Store failures propagate unchanged; deterministic ids
// make a full re-run safe because re-adding is a store-level upsert.
func (i *Ingestor) Ingest(ctx context.Context, docs []Document) (*Report, error) {
	report := &Report{DocumentsSeen: len(docs)}
	var batch []store.Document

	for _, doc := range docs {
		chunks := i.chunker.Chunk(doc.Text)
		if len(chunks) == 0 {
			log.Warn().Str("document", doc.Name).Msg("Document produced no chunks, skipping")
			report.Skipped = append(report.Skipped, doc.Name)
			continue
		}
		stem := strings.TrimSuffix(doc.Name, filepath.Ext(doc.Name))
		for idx, chunk := range chunks {
			batch = append(batch, store.Document{
				ID:         fmt.Sprintf("%s_%d", stem, idx),
				Text:       chunk,
				Source:     doc.Name,
				ChunkIndex: idx,
			})
		}
		log.Info().Str("document", doc.Name).Int("chunks", len(chunks)).Msg("Chunked document")
	}

	if len(batch) == 0 {
		log.Warn().Msg("No chunks to add; leaving the store untouched")
		return report, nil
	}

	log.Info().Int("chunks", len(batch)).Msg("Adding chunks to the vector store (this computes embeddings)")
	if err := i.store.Add(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to add chunks to store: %w", err)
	}
	report.ChunksAdded = len(batch)
	return report, nil
}
