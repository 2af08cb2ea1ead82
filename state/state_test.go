package state

import "testing"

func TestMachine_StartsInLobby(t *testing.T) {
	m := NewMachine()
	if m.Current() != PhaseLobby {
		t.Fatalf("Expected initial phase %q, got %q", PhaseLobby, m.Current())
	}
}

func TestMachine_LegalTransitions(t *testing.T) {
	m := NewMachine()

	if err := m.Transition(PhaseActive); err != nil {
		t.Fatalf("lobby -> active should be allowed, got %v", err)
	}
	if err := m.Transition(PhaseWon); err != nil {
		t.Fatalf("active -> won should be allowed, got %v", err)
	}
}

func TestMachine_IllegalTransitions(t *testing.T) {
	m := NewMachine()

	// 不能从大厅直接进入终态
	if err := m.Transition(PhaseWon); err != ErrTransitionNotAllowed {
		t.Errorf("lobby -> won should be rejected, got %v", err)
	}
	if err := m.Transition(PhaseLost); err != ErrTransitionNotAllowed {
		t.Errorf("lobby -> lost should be rejected, got %v", err)
	}
}

func TestMachine_TerminalIsAbsorbing(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(PhaseActive); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(PhaseLost); err != nil {
		t.Fatal(err)
	}

	if !m.Current().Terminal() {
		t.Fatal("lost phase should be terminal")
	}

	for _, to := range []Phase{PhaseLobby, PhaseActive, PhaseWon, PhaseLost} {
		if err := m.Transition(to); err != ErrTransitionNotAllowed {
			t.Errorf("lost -> %s should be rejected, got %v", to, err)
		}
	}
}
