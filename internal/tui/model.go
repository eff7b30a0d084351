// Package tui is the interactive chat surface. It owns the conversation
// history; the answering core stays a pure per-question function and never
// reads prior turns.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"clinical-rag/internal/models"
)

// Answerer is the TUI-facing subset of the RAG pipeline.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question, model string, topK int) (string, error)
}

type turn struct {
	id      string
	role    string
	content string
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	answerer Answerer
	llmModel string
	topK     int

	input    textinput.Model
	viewport viewport.Model
	history  []turn
	status   string
	ready    bool
	thinking bool
}

func New(answerer Answerer, llmModel string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your clinical question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		answerer: answerer,
		llmModel: llmModel,
		topK:     topK,
		input:    ti,
		viewport: vp,
		status:   "Ready. Ask about the indexed guidelines.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// answerMsg carries the result of one question back into the update loop.
type answerMsg struct {
	answer string
	err    error
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := inputBoxStyle.GetFrameSize()
		_, hh := historyBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - hh
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case answerMsg:
		m.thinking = false
		if msg.err != nil {
			// Propagated pipeline failures render inline instead of
			// crashing the interaction loop.
			m.appendTurn(models.RoleAssistant, "Error while generating answer: "+msg.err.Error())
			m.status = "Error. Ask another question."
		} else {
			m.appendTurn(models.RoleAssistant, msg.answer)
			m.status = "Ready. Ask a follow-up question."
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.thinking {
				return m, nil
			}
			m.appendTurn(models.RoleUser, q)
			m.input.Reset()
			m.thinking = true
			m.status = "Reasoning over guidelines..."
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			answerer, llmModel, topK := m.answerer, m.llmModel, m.topK
			return m, func() tea.Msg {
				answer, err := answerer.AnswerQuestion(context.Background(), q, llmModel, topK)
				return answerMsg{answer: answer, err: err}
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) appendTurn(role, content string) {
	m.history = append(m.history, turn{id: uuid.New().String(), role: role, content: content})
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Clinical RAG Copilot")
	sub := subtitleStyle.Render("Grounded in your local guideline corpus")
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + sub + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return hintStyle.Render("Tip: start with something like \"What is an estimand according to ICH E9(R1)?\"")
	}
	var b strings.Builder
	for i, t := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := userLabelStyle.Render("You")
		if t.role == models.RoleAssistant {
			label = assistantLabelStyle.Render("Assistant")
		}
		b.WriteString(label + "\n" + t.content)
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
