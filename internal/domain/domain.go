package domain

import (
	"fmt"
	"strings"
)

// Initiative is a fully typed portfolio record. Score is derived from the
// RICE fields and never read back from the remote store.
type Initiative struct {
	ID          int64   `json:"id"`
	Name        string  `json:"initiative_name"`
	Description string  `json:"description"`
	Owner       string  `json:"owner"`
	Team        string  `json:"team"`
	Portal      string  `json:"portal"`
	MainKPI     string  `json:"main_kpi,omitempty"`
	Reach       float64 `json:"reach"`
	Impact      int     `json:"impact"`
	Confidence  float64 `json:"confidence"`
	Effort      float64 `json:"effort"`
	Status      string  `json:"status"`
	MustHave    bool    `json:"must_have"`
	Score       float64 `json:"score"`
}

// Length caps for free-text fields.
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 500
	MaxOwnerLen       = 50
	MaxKPILen         = 100
)

// Initiative statuses.
const (
	StatusPending    = "Pending"
	StatusInSprint   = "In Sprint"
	StatusProduction = "Production"
	StatusMonitoring = "Monitoring"
	StatusCancelled  = "Cancelled"
	StatusOnHold     = "On Hold"
)

// Statuses lists every valid lifecycle status.
var Statuses = []string{
	StatusPending,
	StatusInSprint,
	StatusProduction,
	StatusMonitoring,
	StatusCancelled,
	StatusOnHold,
}

// SprintStatuses covers work currently in development.
var SprintStatuses = []string{StatusInSprint}

// ProductionStatuses covers shipped work.
var ProductionStatuses = []string{StatusProduction, StatusMonitoring}

// ActiveStatuses covers everything not cancelled or paused.
var ActiveStatuses = []string{StatusPending, StatusInSprint, StatusProduction, StatusMonitoring}

// Teams is the closed set of owning teams.
var Teams = []string{"Product", "Sales", "Ops", "CS", "Controlling", "Growth"}

// Portals is the closed set of product surfaces.
var Portals = []string{"Seller", "Droguista", "Admin"}

// statusAliases maps lowercased user input to canonical statuses, including
// the Spanish command vocabulary.
var statusAliases = map[string]string{
	"pending":       StatusPending,
	"pendiente":     StatusPending,
	"pendientes":    StatusPending,
	"in sprint":     StatusInSprint,
	"sprint":        StatusInSprint,
	"en desarrollo": StatusInSprint,
	"desarrollo":    StatusInSprint,
	"production":    StatusProduction,
	"produccion":    StatusProduction,
	"producción":    StatusProduction,
	"monitoring":    StatusMonitoring,
	"monitoreo":     StatusMonitoring,
	"cancelled":     StatusCancelled,
	"cancelada":     StatusCancelled,
	"canceladas":    StatusCancelled,
	"on hold":       StatusOnHold,
	"pausa":         StatusOnHold,
	"pausada":       StatusOnHold,
	"hold":          StatusOnHold,
}

// CanonicalStatus resolves a user-supplied status or alias to its canonical
// form. Unknown values return an error listing the valid set.
func CanonicalStatus(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", fmt.Errorf("estado vacío; válidos: %s", strings.Join(Statuses, ", "))
	}
	if canon, ok := statusAliases[key]; ok {
		return canon, nil
	}
	return "", fmt.Errorf("estado %q no reconocido; válidos: %s", s, strings.Join(Statuses, ", "))
}

// CanonicalTeam matches a value against Teams case-insensitively and returns
// the stored casing.
func CanonicalTeam(s string) (string, bool) {
	return canonicalIn(Teams, s)
}

// CanonicalPortal matches a value against Portals case-insensitively.
func CanonicalPortal(s string) (string, bool) {
	return canonicalIn(Portals, s)
}

func canonicalIn(set []string, s string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, member := range set {
		if strings.ToLower(member) == key {
			return member, true
		}
	}
	return "", false
}

// ValidStatus reports whether s is already canonical.
func ValidStatus(s string) bool {
	for _, member := range Statuses {
		if member == s {
			return true
		}
	}
	return false
}
