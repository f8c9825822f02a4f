package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"iniciativas/internal/domain"
)

const (
	userA  = int64(11)
	userB  = int64(22)
	chatID = int64(500)
)

// happyInputs walks every step of the flow in order.
var happyInputs = []string{
	"X", "Y", "Z", "Product", "Seller", "ninguno", "50", "2", "80", "default",
}

func drive(t *testing.T, m *Manager, userID int64, inputs []string) StepResult {
	t.Helper()
	var last StepResult
	for _, in := range inputs {
		res, ok := m.Handle(userID, in)
		if !ok {
			t.Fatalf("session lost at input %q", in)
		}
		last = res
	}
	return last
}

func TestHappyPath(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	res := drive(t, m, userA, happyInputs)
	if !res.Done {
		t.Fatalf("flow did not finish: %+v", res)
	}
	p := res.Payload
	if p.Name != "X" || p.Description != "Y" || p.Owner != "Z" {
		t.Fatalf("text fields = %+v", p)
	}
	if p.Team != "Product" || p.Portal != "Seller" {
		t.Fatalf("canonical fields = %+v", p)
	}
	if p.MainKPI != "" {
		t.Fatalf("kpi should be skipped, got %q", p.MainKPI)
	}
	if p.Reach != 0.5 || p.Impact != 2 || p.Confidence != 0.8 || p.Effort != 1 {
		t.Fatalf("rice fields = %+v", p)
	}
	if domain.Score(p.Reach, p.Impact, p.Confidence, p.Effort) != 0.8 {
		t.Fatalf("expected score 0.80 for the happy path payload")
	}
	if m.Active(userA) {
		t.Fatal("session must be closed after completion")
	}
}

func TestRejectKeepsStateAndPayload(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	// Advance to the impact step.
	drive(t, m, userA, happyInputs[:7])

	res, ok := m.Handle(userA, "4")
	if !ok || res.Done {
		t.Fatalf("unexpected result: %+v ok=%v", res, ok)
	}
	if !strings.Contains(res.Reply, "1") || !strings.Contains(res.Reply, "3") {
		t.Fatalf("reject reply must name the valid set: %q", res.Reply)
	}

	// The same step must still be pending: a valid impact now completes it.
	res, _ = m.Handle(userA, "2")
	if res.Done || strings.Contains(res.Reply, "Impact") {
		t.Fatalf("state did not stay on impact: %+v", res)
	}
	// Finish and confirm nothing from the rejected input leaked.
	final := drive(t, m, userA, []string{"80", "default"})
	if !final.Done || final.Payload.Impact != 2 {
		t.Fatalf("final payload = %+v", final.Payload)
	}
}

func TestRejectionsPerStep(t *testing.T) {
	cases := []struct {
		name   string
		prefix int // accepted inputs before the bad one
		bad    string
	}{
		{"empty name", 0, "   "},
		{"long name", 0, strings.Repeat("a", domain.MaxNameLen+1)},
		{"unknown team", 3, "Marketing"},
		{"unknown portal", 4, "WebApp"},
		{"long kpi", 5, strings.Repeat("k", domain.MaxKPILen+1)},
		{"reach out of range", 6, "101"},
		{"reach not numeric", 6, "mucho"},
		{"impact out of set", 7, "0"},
		{"confidence negative", 8, "-5"},
		{"effort zero", 9, "0"},
		{"effort negative", 9, "-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			m.Start(userA, chatID)
			drive(t, m, userA, happyInputs[:tc.prefix])
			res, ok := m.Handle(userA, tc.bad)
			if !ok {
				t.Fatal("session lost")
			}
			if res.Done {
				t.Fatal("rejecting input completed the flow")
			}
			if !strings.HasPrefix(res.Reply, "❌") {
				t.Fatalf("expected corrective prompt, got %q", res.Reply)
			}
		})
	}
}

func TestLengthCapsCountRunes(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	name := strings.Repeat("á", domain.MaxNameLen) // at the cap in characters, over it in bytes
	res, ok := m.Handle(userA, name)
	if !ok {
		t.Fatal("session lost")
	}
	if strings.HasPrefix(res.Reply, "❌") {
		t.Fatalf("accented name at the cap rejected: %q", res.Reply)
	}
	res, _ = m.Handle(userA, strings.Repeat("á", domain.MaxDescriptionLen))
	if strings.HasPrefix(res.Reply, "❌") {
		t.Fatalf("accented description at the cap rejected: %q", res.Reply)
	}
}

func TestKPISkipTokens(t *testing.T) {
	for _, token := range []string{"ninguno", "NO", "n/a"} {
		m := NewManager()
		m.Start(userA, chatID)
		inputs := append([]string{}, happyInputs...)
		inputs[5] = token
		res := drive(t, m, userA, inputs)
		if !res.Done || res.Payload.MainKPI != "" {
			t.Fatalf("token %q: payload = %+v", token, res.Payload)
		}
	}
}

func TestEffortExplicitValue(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	inputs := append([]string{}, happyInputs...)
	inputs[9] = "2,5"
	res := drive(t, m, userA, inputs)
	if !res.Done || res.Payload.Effort != 2.5 {
		t.Fatalf("effort = %v", res.Payload.Effort)
	}
}

func TestConcurrentUsersIsolated(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	m.Start(userB, chatID+1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Handle(userA, "iniciativa A")
	}()
	go func() {
		defer wg.Done()
		m.Handle(userB, "iniciativa B")
	}()
	wg.Wait()

	resA := drive(t, m, userA, happyInputs[1:])
	resB := drive(t, m, userB, happyInputs[1:])
	if resA.Payload.Name != "iniciativa A" || resB.Payload.Name != "iniciativa B" {
		t.Fatalf("payloads crossed: %q / %q", resA.Payload.Name, resB.Payload.Name)
	}
	if resA.ChatID != chatID || resB.ChatID != chatID+1 {
		t.Fatalf("chat ids crossed: %d / %d", resA.ChatID, resB.ChatID)
	}
}

func TestRestartResetsFlow(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	drive(t, m, userA, happyInputs[:4])
	prompt := m.Start(userA, chatID)
	if !strings.Contains(prompt, "llama") {
		t.Fatalf("restart prompt = %q", prompt)
	}
	res, _ := m.Handle(userA, "otro nombre")
	if res.Done {
		t.Fatal("restarted flow cannot be done after one input")
	}
	final := drive(t, m, userA, happyInputs[1:])
	if final.Payload.Name != "otro nombre" {
		t.Fatalf("restart kept the old name: %+v", final.Payload)
	}
}

func TestIdleSweep(t *testing.T) {
	m := NewManager()
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	m.Start(userA, chatID)
	now = now.Add(DefaultIdleTTL + time.Minute)
	if m.Active(userA) {
		t.Fatal("idle session survived the sweep")
	}
	if _, ok := m.Handle(userA, "hola"); ok {
		t.Fatal("handle on swept session must report no session")
	}
}

func TestCorruptSessionDropped(t *testing.T) {
	m := NewManager()
	m.Start(userA, chatID)
	m.sessions[userA].Step = StepDone + 1

	res, ok := m.Handle(userA, "texto")
	if !ok || res.Done {
		t.Fatalf("unexpected result: %+v ok=%v", res, ok)
	}
	if !strings.HasPrefix(res.Reply, "❌") {
		t.Fatalf("expected corrective reply, got %q", res.Reply)
	}
	if m.Active(userA) {
		t.Fatal("corrupt session must be dropped")
	}
}

func TestHandleWithoutSession(t *testing.T) {
	m := NewManager()
	if _, ok := m.Handle(userA, "texto"); ok {
		t.Fatal("no session should mean ok=false")
	}
}
