package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackNoContext is returned verbatim when retrieval yields nothing;
// the chat model is never called in that case.
const FallbackNoContext = "I couldn't retrieve any relevant context for this question."

const SystemPrompt = "You are a clinical-trials assistant. " +
	"Answer the user's question using ONLY the context given. " +
	"If the answer is not in the context, say explicitly: " +
	"'The answer is not available in the provided guidelines.' " +
	"Cite guideline names or sections when possible, but do not invent facts."

var (
	ContextHeaderTemplate = "[Source: %s | chunk %d]"

	UserPromptTemplate = `Context from clinical guidelines:

%s

Question: %s

Answer concisely in a few paragraphs.`
)
