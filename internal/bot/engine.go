// Package bot routes chat updates to portfolio operations and renders the
// replies.
package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"iniciativas/internal/cache"
	"iniciativas/internal/domain"
	"iniciativas/internal/session"
	"iniciativas/internal/telegram"
)

// Sender delivers messages back to the chat platform.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Analyzer is the optional language-model collaborator.
type Analyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, system, user string) (string, error)
}

// Engine wires the cache, the creation sessions, and the chat transport.
type Engine struct {
	Store    *cache.Store
	Sessions *session.Manager
	Chat     Sender
	LLM      Analyzer
}

// New builds an engine. llm may be nil.
func New(store *cache.Store, sessions *session.Manager, chat Sender, llm Analyzer) *Engine {
	return &Engine{Store: store, Sessions: sessions, Chat: chat, LLM: llm}
}

// HandleUpdate processes one inbound update. It never returns an error: any
// failure is logged and turned into a user-facing message so the webhook can
// acknowledge regardless.
func (e *Engine) HandleUpdate(ctx context.Context, upd telegram.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	corr := uuid.New().String()[:8]
	chatID := msg.Chat.ID
	userID := msg.From.ID

	defer func() {
		if r := recover(); r != nil {
			log.Printf("bot[%s]: panic handling update from user %d: %v", corr, userID, r)
			e.say(ctx, chatID, "⚠️ Algo salió mal procesando tu mensaje. Intenta de nuevo.")
		}
	}()

	// An open creation session takes precedence over every keyword, with the
	// original casing preserved for the dialogue.
	if e.Sessions.Active(userID) {
		cmd := parseCommand(msg.Text)
		if cmd.kind == cmdCreate {
			// Re-entering "crear" silently restarts the flow.
			e.say(ctx, chatID, e.Sessions.Start(userID, chatID))
			return
		}
		e.handleSessionInput(ctx, userID, chatID, msg.Text, corr)
		return
	}

	cmd := parseCommand(msg.Text)
	log.Printf("bot[%s]: user=%d cmd=%s", corr, userID, cmd.kind)

	switch cmd.kind {
	case cmdWelcome:
		e.say(ctx, chatID, welcomeText)
	case cmdHelp:
		e.say(ctx, chatID, helpText)
	case cmdList:
		e.handleList(ctx, chatID, corr)
	case cmdCreate:
		e.say(ctx, chatID, e.Sessions.Start(userID, chatID))
	case cmdAnalyze:
		e.handleAnalyze(ctx, chatID, corr)
	case cmdSearch:
		e.handleSearch(ctx, chatID, cmd.arg, corr)
	case cmdSprint:
		e.handleFiltered(ctx, chatID, "🏃 Iniciativas en sprint", domain.SprintStatuses, corr)
	case cmdProduction:
		e.handleFiltered(ctx, chatID, "🚀 Iniciativas en producción", domain.ProductionStatuses, corr)
	case cmdStatusHelp:
		e.say(ctx, chatID, statusHelpText())
	case cmdStatusFilter:
		e.handleStatusFilter(ctx, chatID, cmd.arg, corr)
	default:
		e.say(ctx, chatID, unknownReply(cmd.raw))
	}
}

func (e *Engine) handleSessionInput(ctx context.Context, userID, chatID int64, text, corr string) {
	res, ok := e.Sessions.Handle(userID, text)
	if !ok {
		// Session vanished between Active and Handle (idle sweep); treat the
		// message as a fresh command instead of dropping it.
		e.say(ctx, chatID, "⚠️ Tu sesión de creación expiró. Escribe \"crear\" para empezar de nuevo.")
		return
	}
	if !res.Done {
		e.say(ctx, chatID, res.Reply)
		return
	}

	check := domain.Validate(res.Payload)
	if !check.Valid {
		e.say(ctx, chatID, "❌ La iniciativa no pasó la validación:\n• "+strings.Join(check.Errors, "\n• ")+
			"\n\nEscribe \"crear\" para intentarlo de nuevo.")
		return
	}
	created, err := e.Store.Insert(ctx, check.Data)
	if err != nil {
		log.Printf("bot[%s]: insert failed: %v", corr, err)
		e.say(ctx, chatID, "⚠️ No pude guardar la iniciativa en el tablero. Intenta más tarde con \"crear\".")
		return
	}
	e.say(ctx, chatID, formatCreated(created))
}

func (e *Engine) handleList(ctx context.Context, chatID int64, corr string) {
	res, err := e.Store.List(ctx, cache.Query{})
	if err != nil {
		log.Printf("bot[%s]: list failed: %v", corr, err)
		e.say(ctx, chatID, remoteErrorText)
		return
	}
	summary := domain.Summarize(res.Items)
	e.say(ctx, chatID, formatPortfolio(summary, res.Cached))
}

func (e *Engine) handleAnalyze(ctx context.Context, chatID int64, corr string) {
	res, err := e.Store.List(ctx, cache.Query{})
	if err != nil {
		log.Printf("bot[%s]: analyze list failed: %v", corr, err)
		e.say(ctx, chatID, remoteErrorText)
		return
	}
	summary := domain.Summarize(res.Items)
	if e.LLM == nil || !e.LLM.Enabled() {
		e.say(ctx, chatID, "🧠 Análisis LLM no disponible (sin API key).\n\n"+formatAnalysisFallback(summary))
		return
	}
	answer, err := e.LLM.Analyze(ctx, analysisSystemPrompt, analysisContext(summary))
	if err != nil {
		log.Printf("bot[%s]: llm failed: %v", corr, err)
		e.say(ctx, chatID, "🧠 El análisis LLM falló; resumen local:\n\n"+formatAnalysisFallback(summary))
		return
	}
	e.say(ctx, chatID, "🧠 *Análisis del portafolio*\n\n"+answer)
}

func (e *Engine) handleSearch(ctx context.Context, chatID int64, query, corr string) {
	if strings.TrimSpace(query) == "" {
		e.say(ctx, chatID, "🔍 Uso: buscar <texto>. Ejemplo: buscar API")
		return
	}
	res, err := e.Store.List(ctx, cache.Query{})
	if err != nil {
		log.Printf("bot[%s]: search list failed: %v", corr, err)
		e.say(ctx, chatID, remoteErrorText)
		return
	}
	hits := domain.Search(res.Items, query, domain.FieldAll)
	e.say(ctx, chatID, formatSearch(query, hits))
}

func (e *Engine) handleFiltered(ctx context.Context, chatID int64, title string, statuses []string, corr string) {
	res, err := e.Store.List(ctx, cache.Query{Statuses: statuses})
	if err != nil {
		log.Printf("bot[%s]: filtered list failed: %v", corr, err)
		e.say(ctx, chatID, remoteErrorText)
		return
	}
	e.say(ctx, chatID, formatFiltered(title, domain.Rank(res.Items)))
}

func (e *Engine) handleStatusFilter(ctx context.Context, chatID int64, arg, corr string) {
	canon, err := domain.CanonicalStatus(arg)
	if err != nil {
		e.say(ctx, chatID, "❌ "+err.Error()+"\n\n"+statusHelpText())
		return
	}
	e.handleFiltered(ctx, chatID, fmt.Sprintf("📌 Iniciativas en estado %s", canon), []string{canon}, corr)
}

// say splits the text at the platform limit and delivers each chunk.
// Delivery is best effort; failures are logged, never surfaced.
func (e *Engine) say(ctx context.Context, chatID int64, text string) {
	for _, chunk := range SplitMessage(text, telegram.MaxMessageLen) {
		if err := e.Chat.SendMessage(ctx, chatID, chunk, "Markdown"); err != nil {
			log.Printf("bot: send to chat %d failed: %v", chatID, err)
			return
		}
	}
}
