package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Payload is a proposed initiative before it reaches the remote store.
type Payload struct {
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
}

// Result carries the outcome of validating a Payload. Errors collects every
// violation so the user can fix them in one pass. Data is the canonicalized
// payload and is only meaningful when Valid is true.
type Result struct {
	Valid  bool
	Errors []string
	Data   Payload
}

// Validate checks a creation payload against the domain rules. Team and
// portal are canonicalized to their stored casing; status defaults to
// Pending. Effort must be positive here: the creation dialogue substitutes
// 1 for "default" before the payload reaches validation.
func Validate(p Payload) Result {
	var errs []string

	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Owner = strings.TrimSpace(p.Owner)
	p.MainKPI = strings.TrimSpace(p.MainKPI)

	// Caps are characters, not bytes; accented text must not lose budget.
	if p.Name == "" {
		errs = append(errs, "initiative_name es obligatorio")
	} else if utf8.RuneCountInString(p.Name) > MaxNameLen {
		errs = append(errs, fmt.Sprintf("initiative_name supera %d caracteres", MaxNameLen))
	}
	if p.Description == "" {
		errs = append(errs, "description es obligatorio")
	} else if utf8.RuneCountInString(p.Description) > MaxDescriptionLen {
		errs = append(errs, fmt.Sprintf("description supera %d caracteres", MaxDescriptionLen))
	}
	if p.Owner == "" {
		errs = append(errs, "owner es obligatorio")
	} else if utf8.RuneCountInString(p.Owner) > MaxOwnerLen {
		errs = append(errs, fmt.Sprintf("owner supera %d caracteres", MaxOwnerLen))
	}
	if utf8.RuneCountInString(p.MainKPI) > MaxKPILen {
		errs = append(errs, fmt.Sprintf("main_kpi supera %d caracteres", MaxKPILen))
	}

	if strings.TrimSpace(p.Team) == "" {
		errs = append(errs, "team es obligatorio")
	} else if canon, ok := CanonicalTeam(p.Team); ok {
		p.Team = canon
	} else {
		errs = append(errs, fmt.Sprintf("team %q no válido; opciones: %s", p.Team, strings.Join(Teams, ", ")))
	}
	if strings.TrimSpace(p.Portal) == "" {
		errs = append(errs, "portal es obligatorio")
	} else if canon, ok := CanonicalPortal(p.Portal); ok {
		p.Portal = canon
	} else {
		errs = append(errs, fmt.Sprintf("portal %q no válido; opciones: %s", p.Portal, strings.Join(Portals, ", ")))
	}

	if p.Reach < 0 || p.Reach > 1 {
		errs = append(errs, "reach debe estar entre 0 y 1")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		errs = append(errs, "confidence debe estar entre 0 y 1")
	}
	if p.Impact < 1 || p.Impact > 3 {
		errs = append(errs, "impact debe ser 1, 2 o 3")
	}
	if p.Effort <= 0 {
		errs = append(errs, "effort debe ser positivo")
	}

	if p.Status == "" {
		p.Status = StatusPending
	} else if !ValidStatus(p.Status) {
		if canon, err := CanonicalStatus(p.Status); err == nil {
			p.Status = canon
		} else {
			errs = append(errs, err.Error())
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Data: p}
}

// Record converts a canonicalized payload into the remote row shape. The
// score is never sent; the store recomputes it on read.
func (p Payload) Record() map[string]any {
	rec := map[string]any{
		"initiative_name": p.Name,
		"description":     p.Description,
		"owner":           p.Owner,
		"team":            p.Team,
		"portal":          p.Portal,
		"reach":           p.Reach,
		"impact":          p.Impact,
		"confidence":      p.Confidence,
		"effort":          p.Effort,
		"status":          p.Status,
		"must_have":       p.MustHave,
	}
	if p.MainKPI != "" {
		rec["main_kpi"] = p.MainKPI
	}
	return rec
}
