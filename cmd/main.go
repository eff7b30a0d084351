package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clinical-rag/internal/chunker"
	"clinical-rag/internal/config"
	"clinical-rag/internal/extractor"
	"clinical-rag/internal/ingest"
	"clinical-rag/internal/llm"
	"clinical-rag/internal/rag"
	"clinical-rag/internal/store"
	"clinical-rag/internal/store/chromemdb"
	"clinical-rag/internal/store/pgvector"
	"clinical-rag/internal/tui"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	ingestDir := flag.String("ingest", "", "Ingest all documents from this directory")
	query := flag.String("query", "", "Question to answer in one shot")
	retrieve := flag.String("retrieve", "", "Preview ranked retrieval results for a question (no chat model call)")
	chat := flag.Bool("chat", false, "Start the interactive chat UI")
	count := flag.Bool("count", false, "Print the number of chunks in the store")
	inspect := flag.String("inspect", "", "Show chunking stats for a document across a few configurations")
	model := flag.String("model", "", "Chat model (defaults to the configured one)")
	topK := flag.Int("topk", 0, "Number of retrieved chunks (defaults to the configured one)")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk without touching the store")
	flag.Parse()

	cfg := loadConfig(*configPath)
	ctx := context.Background()

	switch {
	case *inspect != "":
		inspectChunks(*inspect)
	case *ingestDir != "" || *dryRun:
		runIngest(ctx, cfg, *ingestDir, *dryRun)
	case *query != "":
		runQuery(ctx, cfg, *query, *model, *topK)
	case *retrieve != "":
		runRetrieve(ctx, cfg, *retrieve, *topK)
	case *count:
		printCount(ctx, cfg)
	case *chat:
		runChat(cfg, *model, *topK)
	default:
		fmt.Fprintln(os.Stderr, "Usage: clinical-rag [-ingest dir | -query question | -retrieve question | -chat | -count | -inspect file]")
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("Config file not found, using defaults")
			return config.Default()
		}
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")
	return cfg
}

func newStore(ctx context.Context, cfg *config.Config) store.VectorStore {
	switch cfg.Store.Backend {
	case "postgres":
		st, err := pgvector.New(&cfg.Database, &cfg.EmbedLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to Postgres store")
		}
		if err := st.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing Postgres store")
		}
		return st
	default:
		st, err := chromemdb.New(&cfg.Store, &cfg.EmbedLLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening chromem store")
		}
		return st
	}
}

func runIngest(ctx context.Context, cfg *config.Config, dir string, dryRun bool) {
	if dir == "" {
		dir = cfg.DocsDir
	}

	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.Overlap())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid chunking configuration")
	}

	var st store.VectorStore
	if dryRun {
		st = discardStore{}
	} else {
		st = newStore(ctx, cfg)
	}

	ingestor := ingest.New(st, ch, nil)
	report, err := ingestor.IngestDir(ctx, dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}

	if report.Empty() {
		log.Warn().Int("documents", report.DocumentsSeen).Strs("skipped", report.Skipped).Msg("Batch produced no chunks; store not modified")
		return
	}
	log.Info().
		Int("documents", report.DocumentsSeen).
		Int("chunks_added", report.ChunksAdded).
		Strs("skipped", report.Skipped).
		Msg("Ingestion complete")
}

// discardStore satisfies the store contract for dry runs.
type discardStore struct{}

func (discardStore) Add(ctx context.Context, docs []store.Document) error { return nil }
func (discardStore) Query(ctx context.Context, text string, k int) ([]store.Result, error) {
	return nil, nil
}
func (discardStore) Count(ctx context.Context) (int, error) { return 0, nil }

func runQuery(ctx context.Context, cfg *config.Config, query, model string, topK int) {
	st := newStore(ctx, cfg)
	pipeline := rag.NewRAG(st, llm.NewClient(&cfg.ChatLLM), cfg)

	answer, err := pipeline.AnswerQuestion(ctx, query, model, topK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	fmt.Printf("Question: %s\n\n%s\n", query, answer)
}

// runRetrieve prints the ranked chunks a question would be grounded in,
// with their provenance, without calling the chat model.
func runRetrieve(ctx context.Context, cfg *config.Config, query string, topK int) {
	if topK < 1 {
		topK = cfg.RAG.TopK
	}
	st := newStore(ctx, cfg)
	pipeline := rag.NewRAG(st, nil, cfg)

	chunks, err := pipeline.Retrieve(ctx, query, topK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error retrieving context")
	}

	fmt.Printf("Question: %s\n\n%s", query, rag.FormatRanked(chunks))
}

func printCount(ctx context.Context, cfg *config.Config) {
	st := newStore(ctx, cfg)
	n, err := st.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error counting chunks")
	}
	fmt.Printf("Store contains %d chunks\n", n)
}

func runChat(cfg *config.Config, model string, topK int) {
	st := newStore(context.Background(), cfg)
	pipeline := rag.NewRAG(st, llm.NewClient(&cfg.ChatLLM), cfg)

	if model == "" {
		model = cfg.ChatLLM.Model
	}
	if topK < 1 {
		topK = cfg.RAG.TopK
	}

	program := tea.NewProgram(tui.New(pipeline, model, topK), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal().Err(err).Msg("Chat UI failed")
	}
}

// inspectChunks mirrors the chunking playground: extract one document and
// print stats plus a sample for a few (size, overlap) configurations.
func inspectChunks(path string) {
	text, err := extractor.Extract(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting document")
	}

	type chunkStats struct {
		ChunkSize  int    `json:"chunk_size"`
		Overlap    int    `json:"overlap"`
		TotalChars int    `json:"total_chars"`
		NumChunks  int    `json:"num_chunks"`
		Sample     string `json:"sample,omitempty"`
	}

	configs := [][2]int{{800, 200}, {1200, 200}, {1600, 300}}
	var stats []chunkStats
	for _, c := range configs {
		chunks, err := chunker.ChunkText(text, c[0], c[1])
		if err != nil {
			log.Fatal().Err(err).Msg("Error chunking document")
		}
		s := chunkStats{ChunkSize: c[0], Overlap: c[1], TotalChars: len(text), NumChunks: len(chunks)}
		if len(chunks) > 0 {
			sample := chunks[0]
			if len(sample) > 600 {
				sample = sample[:600]
			}
			s.Sample = sample
		}
		stats = append(stats, s)
	}

	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Error printing stats")
	}
	fmt.Println(string(out))
}
