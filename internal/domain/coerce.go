package domain

import (
	"strconv"
	"strings"
)

// FromRecord converts an untyped remote row into an Initiative. Missing or
// malformed fields fall back to per-field defaults; this function never
// fails. The score is always recomputed from the coerced RICE fields.
func FromRecord(rec map[string]any) Initiative {
	ini := Initiative{
		ID:          coerceInt64(firstValue(rec, "Id", "id", "ID"), 0),
		Name:        coerceString(rec["initiative_name"], "Sin nombre"),
		Description: coerceString(rec["description"], ""),
		Owner:       coerceString(rec["owner"], "Sin asignar"),
		Team:        coerceString(rec["team"], "Sin equipo"),
		Portal:      coerceString(rec["portal"], ""),
		MainKPI:     coerceString(rec["main_kpi"], ""),
		Reach:       coerceFloat(rec["reach"], 0),
		Impact:      int(coerceInt64(rec["impact"], 0)),
		Confidence:  coerceFloat(rec["confidence"], 0),
		Effort:      coerceFloat(rec["effort"], 1),
		Status:      coerceString(rec["status"], StatusPending),
		MustHave:    coerceBool(rec["must_have"], false),
	}
	ini.Score = Score(ini.Reach, ini.Impact, ini.Confidence, ini.Effort)
	return ini
}

func firstValue(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceString(v any, def string) string {
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return def
		}
		return trimmed
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return def
	}
}

func coerceFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return def
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func coerceInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return def
		}
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			// Remote numeric columns sometimes arrive as "2.0".
			f, ferr := strconv.ParseFloat(trimmed, 64)
			if ferr != nil {
				return def
			}
			return int64(f)
		}
		return i
	default:
		return def
	}
}

func coerceBool(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "":
			return def
		default:
			return false
		}
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return def
	}
}
