package domain

import "strings"

// SearchField selects which fields a query is matched against.
type SearchField string

const (
	FieldAll         SearchField = "all"
	FieldName        SearchField = "name"
	FieldOwner       SearchField = "owner"
	FieldTeam        SearchField = "team"
	FieldKPI         SearchField = "kpi"
	FieldPortal      SearchField = "portal"
	FieldDescription SearchField = "description"
)

// SearchFields lists the accepted selector values.
var SearchFields = []SearchField{FieldAll, FieldName, FieldOwner, FieldTeam, FieldKPI, FieldPortal, FieldDescription}

// ParseSearchField resolves a selector string, defaulting to FieldAll.
func ParseSearchField(s string) (SearchField, bool) {
	key := SearchField(strings.ToLower(strings.TrimSpace(s)))
	if key == "" {
		return FieldAll, true
	}
	for _, f := range SearchFields {
		if f == key {
			return f, true
		}
	}
	return FieldAll, false
}

// Search returns the initiatives whose selected field(s) contain query,
// case-insensitively, ranked by descending score. An empty query matches
// nothing.
func Search(items []Initiative, query string, field SearchField) []Initiative {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var hits []Initiative
	for _, ini := range items {
		if matchesField(ini, q, field) {
			hits = append(hits, ini)
		}
	}
	return Rank(hits)
}

func matchesField(ini Initiative, q string, field SearchField) bool {
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q)
	}
	switch field {
	case FieldName:
		return contains(ini.Name)
	case FieldOwner:
		return contains(ini.Owner)
	case FieldTeam:
		return contains(ini.Team)
	case FieldKPI:
		return contains(ini.MainKPI)
	case FieldPortal:
		return contains(ini.Portal)
	case FieldDescription:
		return contains(ini.Description)
	default:
		return contains(ini.Name) || contains(ini.Owner) || contains(ini.Team) ||
			contains(ini.MainKPI) || contains(ini.Portal) || contains(ini.Description)
	}
}
