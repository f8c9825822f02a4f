package bot

import "strings"

// commandKind is the closed set of chat operations.
type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdWelcome
	cmdHelp
	cmdList
	cmdCreate
	cmdAnalyze
	cmdSearch
	cmdSprint
	cmdProduction
	cmdStatusHelp
	cmdStatusFilter
)

func (k commandKind) String() string {
	switch k {
	case cmdWelcome:
		return "welcome"
	case cmdHelp:
		return "help"
	case cmdList:
		return "list"
	case cmdCreate:
		return "create"
	case cmdAnalyze:
		return "analyze"
	case cmdSearch:
		return "search"
	case cmdSprint:
		return "sprint"
	case cmdProduction:
		return "production"
	case cmdStatusHelp:
		return "status-help"
	case cmdStatusFilter:
		return "status-filter"
	default:
		return "unknown"
	}
}

type command struct {
	kind commandKind
	arg  string
	raw  string
}

// keywords maps the first token (Spanish and English aliases) to a command.
var keywords = map[string]commandKind{
	"start":         cmdWelcome,
	"inicio":        cmdWelcome,
	"hola":          cmdWelcome,
	"help":          cmdHelp,
	"ayuda":         cmdHelp,
	"iniciativas":   cmdList,
	"lista":         cmdList,
	"crear":         cmdCreate,
	"nueva":         cmdCreate,
	"analizar":      cmdAnalyze,
	"análisis":      cmdAnalyze,
	"analisis":      cmdAnalyze,
	"buscar":        cmdSearch,
	"sprint":        cmdSprint,
	"produccion":    cmdProduction,
	"producción":    cmdProduction,
	"production":    cmdProduction,
	"implementadas": cmdProduction,
	"estados":       cmdStatusHelp,
	"status":        cmdStatusHelp,
	"estado":        cmdStatusFilter,
}

// multiword phrases checked before single-token matching.
var phrases = map[string]commandKind{
	"en desarrollo": cmdSprint,
}

// parseCommand lowercases and tokenizes the text for matching; the original
// casing never reaches this function's callers (session input bypasses it).
func parseCommand(text string) command {
	lowered := strings.ToLower(strings.TrimSpace(text))
	lowered = strings.TrimPrefix(lowered, "/")
	if kind, ok := phrases[lowered]; ok {
		return command{kind: kind, raw: lowered}
	}
	fields := strings.Fields(lowered)
	if len(fields) == 0 {
		return command{kind: cmdUnknown, raw: lowered}
	}
	head := fields[0]
	kind, ok := keywords[head]
	if !ok {
		return command{kind: cmdUnknown, raw: lowered}
	}
	c := command{kind: kind, raw: lowered}
	switch kind {
	case cmdSearch, cmdStatusFilter:
		c.arg = strings.TrimSpace(strings.TrimPrefix(lowered, head))
	}
	return c
}

// suggestKeyword offers the closest known keyword for a typo, or "" when
// nothing is close enough.
func suggestKeyword(input string) string {
	head := input
	if fields := strings.Fields(input); len(fields) > 0 {
		head = fields[0]
	}
	if head == "" {
		return ""
	}
	best := ""
	bestDist := 3 // only suggest within edit distance 2
	for kw := range keywords {
		if d := editDistance(head, kw); d < bestDist {
			best, bestDist = kw, d
		}
	}
	return best
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
