// Package session implements the per-user guided creation dialogue.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"iniciativas/internal/domain"
)

// DefaultIdleTTL caps how long an abandoned dialogue is kept.
const DefaultIdleTTL = 30 * time.Minute

// Step is a position in the linear creation flow.
type Step int

const (
	StepName Step = iota
	StepDescription
	StepOwner
	StepTeam
	StepPortal
	StepKPI
	StepReach
	StepImpact
	StepConfidence
	StepEffort
	StepDone
)

// Session is one user's in-progress creation dialogue.
type Session struct {
	ChatID    int64
	Step      Step
	Payload   domain.Payload
	UpdatedAt time.Time
}

// Manager owns all open sessions, keyed by chat user id. All access to a
// session happens under the manager lock, so two racing updates for the
// same user advance the flow at most once.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewManager creates an empty manager with the default idle cap.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
	}
}

// Start opens (or silently restarts) a session for the user and returns the
// first prompt.
func (m *Manager) Start(userID, chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.sessions[userID] = &Session{ChatID: chatID, Step: StepName, UpdatedAt: m.now()}
	return promptFor(StepName)
}

// Active reports whether the user has an open session.
func (m *Manager) Active(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	_, ok := m.sessions[userID]
	return ok
}

// Abandon drops the user's session if any.
func (m *Manager) Abandon(userID int64) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}

// StepResult is the outcome of feeding one message into the flow. When Done
// is true the session has been closed and Payload holds the completed
// (not yet validated) creation data.
type StepResult struct {
	Reply   string
	Done    bool
	Payload domain.Payload
	ChatID  int64
}

// Handle feeds the user's raw message into their session. A rejecting input
// leaves both step and payload untouched and re-prompts; an accepted input
// advances to the next step. Returns ok=false when no session exists.
func (m *Manager) Handle(userID int64, text string) (StepResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	sess, ok := m.sessions[userID]
	if !ok {
		return StepResult{}, false
	}
	if sess.Step < StepName || sess.Step >= StepDone {
		delete(m.sessions, userID)
		return StepResult{
			Reply:  "❌ Tu sesión quedó en un estado inesperado y fue descartada. Escribe \"crear\" para empezar de nuevo.",
			ChatID: sess.ChatID,
		}, true
	}

	reply, accepted := applyStep(sess, text)
	if !accepted {
		return StepResult{Reply: reply, ChatID: sess.ChatID}, true
	}
	sess.Step++
	sess.UpdatedAt = m.now()
	if sess.Step == StepDone {
		delete(m.sessions, userID)
		return StepResult{Done: true, Payload: sess.Payload, ChatID: sess.ChatID}, true
	}
	return StepResult{Reply: promptFor(sess.Step), ChatID: sess.ChatID}, true
}

// applyStep validates text for the session's current step and, when valid,
// writes it into the partial payload. It never advances the step itself.
func applyStep(sess *Session, text string) (string, bool) {
	input := strings.TrimSpace(text)
	switch sess.Step {
	case StepName:
		if input == "" || utf8.RuneCountInString(input) > domain.MaxNameLen {
			return fmt.Sprintf("❌ El nombre debe tener entre 1 y %d caracteres. Intenta de nuevo:", domain.MaxNameLen), false
		}
		sess.Payload.Name = input
	case StepDescription:
		if input == "" || utf8.RuneCountInString(input) > domain.MaxDescriptionLen {
			return fmt.Sprintf("❌ La descripción debe tener entre 1 y %d caracteres. Intenta de nuevo:", domain.MaxDescriptionLen), false
		}
		sess.Payload.Description = input
	case StepOwner:
		if input == "" || utf8.RuneCountInString(input) > domain.MaxOwnerLen {
			return fmt.Sprintf("❌ El responsable debe tener entre 1 y %d caracteres. Intenta de nuevo:", domain.MaxOwnerLen), false
		}
		sess.Payload.Owner = input
	case StepTeam:
		canon, ok := domain.CanonicalTeam(input)
		if !ok {
			return fmt.Sprintf("❌ Equipo no válido. Opciones: %s", strings.Join(domain.Teams, ", ")), false
		}
		sess.Payload.Team = canon
	case StepPortal:
		canon, ok := domain.CanonicalPortal(input)
		if !ok {
			return fmt.Sprintf("❌ Portal no válido. Opciones: %s", strings.Join(domain.Portals, ", ")), false
		}
		sess.Payload.Portal = canon
	case StepKPI:
		if isSkipToken(input) {
			sess.Payload.MainKPI = ""
			break
		}
		if utf8.RuneCountInString(input) > domain.MaxKPILen {
			return fmt.Sprintf("❌ El KPI debe tener máximo %d caracteres (o \"ninguno\" para omitir):", domain.MaxKPILen), false
		}
		sess.Payload.MainKPI = input
	case StepReach:
		pct, err := parsePercent(input)
		if err != nil {
			return "❌ Reach debe ser un número entre 0 y 100 (% de usuarios impactados):", false
		}
		sess.Payload.Reach = pct / 100
	case StepImpact:
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > 3 {
			return "❌ Impact debe ser 1 (bajo), 2 (medio) o 3 (alto):", false
		}
		sess.Payload.Impact = n
	case StepConfidence:
		pct, err := parsePercent(input)
		if err != nil {
			return "❌ Confidence debe ser un número entre 0 y 100 (% de certeza):", false
		}
		sess.Payload.Confidence = pct / 100
	case StepEffort:
		if input == "" || strings.EqualFold(input, "default") {
			sess.Payload.Effort = 1
			break
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(input, ",", "."), 64)
		if err != nil || f <= 0 {
			return "❌ Effort debe ser un número positivo de sprints (o \"default\" para 1):", false
		}
		sess.Payload.Effort = f
	}
	return "", true
}

func parsePercent(input string) (float64, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(input), "%")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("fuera de rango: %v", f)
	}
	return f, nil
}

func isSkipToken(input string) bool {
	switch strings.ToLower(input) {
	case "", "ninguno", "no", "n/a":
		return true
	}
	return false
}

func promptFor(step Step) string {
	switch step {
	case StepName:
		return "📝 *Nueva iniciativa*\n\n¿Cómo se llama la iniciativa?"
	case StepDescription:
		return "📄 ¿Qué problema resuelve? Describe la iniciativa:"
	case StepOwner:
		return "👤 ¿Quién es el responsable (owner)?"
	case StepTeam:
		return fmt.Sprintf("👥 ¿Qué equipo la lidera? Opciones: %s", strings.Join(domain.Teams, ", "))
	case StepPortal:
		return fmt.Sprintf("🖥 ¿En qué portal aplica? Opciones: %s", strings.Join(domain.Portals, ", "))
	case StepKPI:
		return "📊 ¿Cuál es el KPI principal? (escribe \"ninguno\" para omitir)"
	case StepReach:
		return "📈 *Reach*: ¿qué porcentaje de usuarios impacta? (0-100)"
	case StepImpact:
		return "💥 *Impact*: 1 (bajo), 2 (medio) o 3 (alto)"
	case StepConfidence:
		return "🎯 *Confidence*: ¿qué tan seguro estás? (0-100)"
	case StepEffort:
		return "⏱ *Effort*: ¿cuántos sprints tomará? (número positivo o \"default\")"
	default:
		return ""
	}
}

// sweepLocked drops sessions idle for longer than the TTL. Caller holds the
// lock.
func (m *Manager) sweepLocked() {
	if m.idleTTL <= 0 {
		return
	}
	cutoff := m.now().Add(-m.idleTTL)
	for id, sess := range m.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
