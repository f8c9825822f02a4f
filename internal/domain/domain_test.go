package domain

import "testing"

func TestCanonicalStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sprint", StatusInSprint},
		{"SPRINT", StatusInSprint},
		{"en desarrollo", StatusInSprint},
		{"pausa", StatusOnHold},
		{"produccion", StatusProduction},
		{"Producción", StatusProduction},
		{"pending", StatusPending},
		{"  pendiente ", StatusPending},
		{"monitoring", StatusMonitoring},
		{"cancelada", StatusCancelled},
	}
	for _, tc := range cases {
		got, err := CanonicalStatus(tc.in)
		if err != nil {
			t.Fatalf("CanonicalStatus(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("CanonicalStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalStatusUnknown(t *testing.T) {
	for _, in := range []string{"", "archived", "done"} {
		if _, err := CanonicalStatus(in); err == nil {
			t.Fatalf("CanonicalStatus(%q) should fail", in)
		}
	}
}

func TestCanonicalTeamAndPortal(t *testing.T) {
	if team, ok := CanonicalTeam("  growth "); !ok || team != "Growth" {
		t.Fatalf("team = %q ok=%v", team, ok)
	}
	if _, ok := CanonicalTeam("Marketing"); ok {
		t.Fatal("unknown team accepted")
	}
	if portal, ok := CanonicalPortal("DROGUISTA"); !ok || portal != "Droguista" {
		t.Fatalf("portal = %q ok=%v", portal, ok)
	}
}

func TestStatusSubsets(t *testing.T) {
	for _, s := range SprintStatuses {
		if !ValidStatus(s) {
			t.Fatalf("sprint subset member %q not a valid status", s)
		}
	}
	for _, s := range ProductionStatuses {
		if !ValidStatus(s) {
			t.Fatalf("production subset member %q not a valid status", s)
		}
	}
	if len(ActiveStatuses) != 4 {
		t.Fatalf("active statuses = %v", ActiveStatuses)
	}
}
