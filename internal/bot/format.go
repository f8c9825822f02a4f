package bot

import (
	"fmt"
	"strings"
	"unicode"

	"iniciativas/internal/domain"
)

const welcomeText = `👋 *Hola! Soy el asistente de iniciativas.*

Manejo el portafolio de producto con priorización RICE.

Comandos principales:
• *iniciativas* — portafolio y top 5 por score
• *crear* — registrar una nueva iniciativa
• *buscar* <texto> — buscar en el portafolio
• *analizar* — análisis del portafolio
• *ayuda* — todos los comandos`

const helpText = `📖 *Comandos disponibles*

• *iniciativas* / *lista* — resumen del portafolio
• *crear* / *nueva* — crear iniciativa paso a paso
• *buscar <texto>* — búsqueda por nombre, equipo, owner, KPI o descripción
• *analizar* — análisis de prioridades (LLM si está configurado)
• *sprint* / *en desarrollo* — iniciativas en sprint
• *produccion* / *implementadas* — iniciativas en producción
• *estados* — estados válidos
• *estado <s>* — filtrar por estado (ej: estado pendiente)

Prioridad por score RICE: 🔥 Alta (≥2.0) · ⚡ Media (≥1.0) · 💡 Baja`

const remoteErrorText = "⚠️ No pude consultar el tablero de iniciativas. Intenta de nuevo en unos minutos."

const analysisSystemPrompt = "Eres un analista de producto. Con base en el resumen del portafolio de " +
	"iniciativas (priorización RICE), entrega un análisis corto en español: qué priorizar, riesgos y " +
	"desequilibrios entre equipos. Máximo 8 líneas."

func statusHelpText() string {
	var b strings.Builder
	b.WriteString("📌 *Estados del ciclo de vida*\n\n")
	for _, s := range domain.Statuses {
		b.WriteString("• " + s + "\n")
	}
	b.WriteString("\nFiltra con: estado <nombre>. Acepto alias como \"sprint\", \"pausa\" o \"produccion\".")
	return b.String()
}

func unknownReply(raw string) string {
	if s := suggestKeyword(raw); s != "" {
		return fmt.Sprintf("🤔 No entendí %q. ¿Quisiste decir *%s*? Escribe *ayuda* para ver los comandos.", raw, s)
	}
	return "🤔 No entendí el comando. Escribe *ayuda* para ver lo que puedo hacer."
}

func initiativeLine(ini domain.Initiative) string {
	p := domain.PriorityFor(ini.Score)
	return fmt.Sprintf("%s *%s* — score %.2f · %s · %s", p.Emoji(), ini.Name, ini.Score, ini.Team, ini.Status)
}

func formatPortfolio(s domain.Summary, cached bool) string {
	if s.Total == 0 {
		return "📋 El portafolio está vacío. Escribe *crear* para registrar la primera iniciativa."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Portafolio de iniciativas* (%d en total", s.Total)
	if cached {
		b.WriteString(", cache")
	}
	b.WriteString(")\n\n🏆 *Top por score RICE:*\n")
	for i, top := range s.Top {
		p := domain.PriorityFor(top.Score)
		fmt.Fprintf(&b, "%d. %s *%s* — %.2f · %s · %s\n", i+1, p.Emoji(), top.Name, top.Score, top.Team, top.Status)
	}
	b.WriteString("\n📊 *Estados:*\n")
	for _, sc := range s.TopStatuses {
		fmt.Fprintf(&b, "• %s: %d (%.1f%%)\n", sc.Status, sc.Count, s.StatusPct[sc.Status])
	}
	fmt.Fprintf(&b, "\n📈 Score promedio: %.2f · Reach promedio: %.1f%%", s.AvgScore, s.AvgReachPct)
	return b.String()
}

func formatFiltered(title string, items []domain.Initiative) string {
	if len(items) == 0 {
		return title + "\n\nNo hay iniciativas con ese estado."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n\n", title, len(items))
	for _, ini := range items {
		b.WriteString(initiativeLine(ini) + "\n")
	}
	return b.String()
}

func formatSearch(query string, hits []domain.Initiative) string {
	if len(hits) == 0 {
		return fmt.Sprintf("🔍 Sin resultados para %q.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Resultados para %q* (%d)\n\n", query, len(hits))
	for _, ini := range hits {
		b.WriteString(initiativeLine(ini) + "\n")
	}
	return b.String()
}

func formatCreated(ini domain.Initiative) string {
	p := domain.PriorityFor(ini.Score)
	var b strings.Builder
	b.WriteString("✅ *Iniciativa creada*\n\n")
	fmt.Fprintf(&b, "📝 %s\n", ini.Name)
	fmt.Fprintf(&b, "👥 %s · 🖥 %s · 👤 %s\n", ini.Team, ini.Portal, ini.Owner)
	if ini.MainKPI != "" {
		fmt.Fprintf(&b, "📊 KPI: %s\n", ini.MainKPI)
	}
	fmt.Fprintf(&b, "\n%s Score RICE: *%.2f* (prioridad %s)\n", p.Emoji(), ini.Score, p)
	fmt.Fprintf(&b, "Estado inicial: %s", ini.Status)
	return b.String()
}

// formatAnalysisFallback is the deterministic analysis used when no LLM is
// configured or the call fails.
func formatAnalysisFallback(s domain.Summary) string {
	if s.Total == 0 {
		return "El portafolio está vacío; nada que analizar."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%d iniciativas* · score promedio %.2f · reach promedio %.1f%%\n\n", s.Total, s.AvgScore, s.AvgReachPct)
	if len(s.Top) > 0 {
		fmt.Fprintf(&b, "Mayor prioridad: *%s* (%.2f, %s).\n", s.Top[0].Name, s.Top[0].Score, s.Top[0].Team)
	}
	if len(s.TopStatuses) > 0 {
		lead := s.TopStatuses[0]
		fmt.Fprintf(&b, "Estado dominante: %s con %d (%.1f%%).\n", lead.Status, lead.Count, s.StatusPct[lead.Status])
	}
	teams := s.TopTeams
	if len(teams) > 3 {
		teams = teams[:3]
	}
	if len(teams) > 0 {
		parts := make([]string, len(teams))
		for i, t := range teams {
			parts[i] = fmt.Sprintf("%s (%d)", t.Team, t.Count)
		}
		b.WriteString("Equipos con más carga: " + strings.Join(parts, ", ") + ".")
	}
	return b.String()
}

// analysisContext renders the summary as plain text context for the LLM.
func analysisContext(s domain.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total de iniciativas: %d\n", s.Total)
	fmt.Fprintf(&b, "Score promedio: %.2f; Reach promedio: %.1f%%\n", s.AvgScore, s.AvgReachPct)
	b.WriteString("Top por score:\n")
	for _, t := range s.Top {
		fmt.Fprintf(&b, "- %s | score %.2f | equipo %s | estado %s\n", t.Name, t.Score, t.Team, t.Status)
	}
	b.WriteString("Distribución por estado:\n")
	for _, sc := range s.TopStatuses {
		fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", sc.Status, sc.Count, s.StatusPct[sc.Status])
	}
	b.WriteString("Iniciativas por equipo:\n")
	for _, t := range s.TopTeams {
		fmt.Fprintf(&b, "- %s: %d\n", t.Team, t.Count)
	}
	return b.String()
}

// SplitMessage breaks text into chunks of at most max bytes, preferring
// whitespace boundaries so words are never cut mid-way.
func SplitMessage(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}
	var chunks []string
	rest := text
	for len(rest) > max {
		cut := lastSpaceBefore(rest, max)
		if cut <= 0 {
			cut = max
			// Back off to a rune boundary on a forced cut.
			for cut > 0 && !utf8StartByte(rest[cut]) {
				cut--
			}
			if cut == 0 {
				cut = max
			}
		}
		chunks = append(chunks, strings.TrimRightFunc(rest[:cut], unicode.IsSpace))
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func lastSpaceBefore(s string, limit int) int {
	cut := -1
	for i, r := range s {
		if i > limit {
			break
		}
		if unicode.IsSpace(r) {
			cut = i
		}
	}
	return cut
}

func utf8StartByte(b byte) bool {
	return b&0xC0 != 0x80
}
