package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinical-rag/internal/config"
	"clinical-rag/internal/llm"
	"clinical-rag/internal/models"
	"clinical-rag/internal/store"
)

type fakeStore struct {
	results  []store.Result
	queryErr error
	lastK    int
}

func (f *fakeStore) Add(ctx context.Context, docs []store.Document) error { return nil }

func (f *fakeStore) Query(ctx context.Context, text string, k int) ([]store.Result, error) {
	f.lastK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) { return len(f.results), nil }

type fakeChat struct {
	resp     *llm.Response
	err      error
	calls    int
	lastMsgs []models.ChatTurn
}

func (f *fakeChat) Chat(ctx context.Context, model string, messages []models.ChatTurn) (*llm.Response, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestRAG(st store.VectorStore, chat ChatClient) *RAG {
	return NewRAG(st, chat, config.Default())
}

func ollamaShape(text string) *llm.Response {
	return &llm.Response{Message: &llm.Message{Role: models.RoleAssistant, Content: text}}
}

func openaiShape(text string) *llm.Response {
	return &llm.Response{Choices: []llm.Choice{{Message: llm.Message{Role: models.RoleAssistant, Content: text}}}}
}

func TestBuildContext_Format(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Text: "Estimands define the treatment effect.", Source: "ich_e9.pdf", ChunkIndex: 3},
		{Text: "Sensitivity analyses are required.", Source: "ich_e9.pdf", ChunkIndex: 7},
	}

	got := BuildContext(chunks)
	want := "[Source: ich_e9.pdf | chunk 3]\nEstimands define the treatment effect.\n\n" +
		"[Source: ich_e9.pdf | chunk 7]\nSensitivity analyses are required."
	assert.Equal(t, want, got)
}

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
}

func TestBuildContext_PreservesOrder(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Text: "c", Source: "x.pdf", ChunkIndex: 9},
		{Text: "a", Source: "x.pdf", ChunkIndex: 1},
		{Text: "b", Source: "x.pdf", ChunkIndex: 4},
	}
	got := BuildContext(chunks)
	i9 := strings.Index(got, "chunk 9")
	i1 := strings.Index(got, "chunk 1")
	i4 := strings.Index(got, "chunk 4")
	assert.Less(t, i9, i1)
	assert.Less(t, i1, i4)
}

func TestFormatRanked(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Text: "Estimands define the treatment effect.", Source: "ich_e9.pdf", ChunkIndex: 3},
		{Text: strings.Repeat("x", 700), Source: "ich_e6.pdf", ChunkIndex: 12},
	}

	got := FormatRanked(chunks)
	assert.Contains(t, got, "Rank #1")
	assert.Contains(t, got, "Source      : ich_e9.pdf")
	assert.Contains(t, got, "Chunk index : 3")
	assert.Contains(t, got, "Estimands define the treatment effect.")
	assert.Contains(t, got, "Rank #2")
	assert.Contains(t, got, "Chunk index : 12")
	// Long chunk text is sampled, not dumped whole.
	assert.Contains(t, got, strings.Repeat("x", 600)+"\n[...]")
	assert.NotContains(t, got, strings.Repeat("x", 601))
	assert.Less(t, strings.Index(got, "Rank #1"), strings.Index(got, "Rank #2"))
}

func TestFormatRanked_Empty(t *testing.T) {
	assert.Equal(t, "No chunks retrieved.", FormatRanked(nil))
}

func TestRetrieve_EmptyIsNotAnError(t *testing.T) {
	r := newTestRAG(&fakeStore{}, &fakeChat{})

	chunks, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestAnswerQuestion_EmptyContextShortCircuit(t *testing.T) {
	chat := &fakeChat{resp: ollamaShape("should never be used")}
	r := newTestRAG(&fakeStore{}, chat)

	answer, err := r.AnswerQuestion(context.Background(), "what is GCP?", "", 0)
	require.NoError(t, err)
	assert.Equal(t, models.FallbackNoContext, answer)
	assert.Zero(t, chat.calls, "chat model must not be called without context")
}

func TestAnswerQuestion_Success(t *testing.T) {
	st := &fakeStore{results: []store.Result{
		{Text: "An estimand is a precise description of the treatment effect.", Source: "ich_e9.pdf", ChunkIndex: 3},
	}}
	chat := &fakeChat{resp: ollamaShape("An estimand describes the treatment effect of interest.")}
	r := newTestRAG(st, chat)

	answer, err := r.AnswerQuestion(context.Background(), "What is an estimand?", "deepseek-r1", 5)
	require.NoError(t, err)
	assert.Equal(t, "An estimand describes the treatment effect of interest.", answer)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 5, st.lastK)

	require.Len(t, chat.lastMsgs, 2)
	assert.Equal(t, models.RoleSystem, chat.lastMsgs[0].Role)
	assert.Equal(t, models.SystemPrompt, chat.lastMsgs[0].Content)
	assert.Equal(t, models.RoleUser, chat.lastMsgs[1].Role)
	assert.Contains(t, chat.lastMsgs[1].Content, "[Source: ich_e9.pdf | chunk 3]")
	assert.Contains(t, chat.lastMsgs[1].Content, "Question: What is an estimand?")
}

func TestAnswerQuestion_NormalizesBothResponseShapes(t *testing.T) {
	st := &fakeStore{results: []store.Result{{Text: "context", Source: "a.pdf", ChunkIndex: 0}}}

	for name, resp := range map[string]*llm.Response{
		"ollama shape": ollamaShape("the answer"),
		"openai shape": openaiShape("the answer"),
	} {
		t.Run(name, func(t *testing.T) {
			r := newTestRAG(st, &fakeChat{resp: resp})
			answer, err := r.AnswerQuestion(context.Background(), "q", "", 0)
			require.NoError(t, err)
			assert.Equal(t, "the answer", answer)
		})
	}
}

func TestAnswerQuestion_UnrecognizedShape(t *testing.T) {
	st := &fakeStore{results: []store.Result{{Text: "context", Source: "a.pdf", ChunkIndex: 0}}}
	r := newTestRAG(st, &fakeChat{resp: &llm.Response{}})

	_, err := r.AnswerQuestion(context.Background(), "q", "", 0)
	assert.ErrorIs(t, err, llm.ErrUnrecognizedResponseShape)
}

func TestAnswerQuestion_StoreFailurePropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	chat := &fakeChat{resp: ollamaShape("unused")}
	r := newTestRAG(&fakeStore{queryErr: storeErr}, chat)

	_, err := r.AnswerQuestion(context.Background(), "q", "", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Zero(t, chat.calls)
}

func TestAnswerQuestion_GenerationFailurePropagates(t *testing.T) {
	st := &fakeStore{results: []store.Result{{Text: "context", Source: "a.pdf", ChunkIndex: 0}}}
	genErr := fmt.Errorf("model not found")
	r := newTestRAG(st, &fakeChat{err: genErr})

	_, err := r.AnswerQuestion(context.Background(), "q", "", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
}

func TestAnswerQuestion_Defaults(t *testing.T) {
	st := &fakeStore{results: []store.Result{{Text: "context", Source: "a.pdf", ChunkIndex: 0}}}
	chat := &fakeChat{resp: ollamaShape("ok")}
	r := newTestRAG(st, chat)

	_, err := r.AnswerQuestion(context.Background(), "q", "", 0)
	require.NoError(t, err)
	assert.Equal(t, config.Default().RAG.TopK, st.lastK)
}
