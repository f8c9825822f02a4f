package bot

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessageShort(t *testing.T) {
	chunks := SplitMessage("hola mundo", 4096)
	if len(chunks) != 1 || chunks[0] != "hola mundo" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitMessageOnWhitespace(t *testing.T) {
	text := strings.Repeat("palabra ", 100) // 800 bytes
	chunks := SplitMessage(text, 100)
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
		if strings.Contains(c, "palabr ") || strings.HasPrefix(c, "alabra") {
			t.Fatalf("word cut mid-way in chunk %q", c)
		}
	}
	joined := strings.Join(chunks, " ")
	if strings.ReplaceAll(joined, " ", "") != strings.ReplaceAll(text, " ", "") {
		t.Fatal("content lost while splitting")
	}
}

func TestSplitMessageForcedCutKeepsRunes(t *testing.T) {
	text := strings.Repeat("ñ", 300) // no whitespace at all
	chunks := SplitMessage(text, 101)
	for _, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("invalid utf8 chunk %q", c)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		kind commandKind
		arg  string
	}{
		{"hola", cmdWelcome, ""},
		{"/start", cmdWelcome, ""},
		{"AYUDA", cmdHelp, ""},
		{"iniciativas", cmdList, ""},
		{"lista", cmdList, ""},
		{"crear", cmdCreate, ""},
		{"nueva", cmdCreate, ""},
		{"analizar", cmdAnalyze, ""},
		{"análisis", cmdAnalyze, ""},
		{"buscar API checkout", cmdSearch, "api checkout"},
		{"sprint", cmdSprint, ""},
		{"en desarrollo", cmdSprint, ""},
		{"produccion", cmdProduction, ""},
		{"implementadas", cmdProduction, ""},
		{"estados", cmdStatusHelp, ""},
		{"estado pausa", cmdStatusFilter, "pausa"},
		{"qué tal", cmdUnknown, ""},
	}
	for _, tc := range cases {
		got := parseCommand(tc.in)
		if got.kind != tc.kind {
			t.Fatalf("parseCommand(%q).kind = %s, want %s", tc.in, got.kind, tc.kind)
		}
		if got.arg != tc.arg {
			t.Fatalf("parseCommand(%q).arg = %q, want %q", tc.in, got.arg, tc.arg)
		}
	}
}

func TestSuggestKeyword(t *testing.T) {
	if s := suggestKeyword("crea"); s != "crear" {
		t.Fatalf("suggestion = %q, want crear", s)
	}
	if s := suggestKeyword("xyzzy"); s != "" {
		t.Fatalf("far-off input suggested %q", s)
	}
}
