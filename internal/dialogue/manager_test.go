package dialogue

import (
	"context"
	"testing"

	"github.com/dohr-michael/askbetter/internal/modes"
)

func TestManager_OneEnginePerUser(t *testing.T) {
	m := NewManager(&fakeModel{reply: "BETTER_OUTPUT:\nB"}, nil, nil)

	a := m.Get("alice")
	if m.Get("alice") != a {
		t.Fatal("Get should return the same engine for a user")
	}
	b := m.Get("bob")
	if a == b {
		t.Fatal("users must not share an engine")
	}

	_ = a.Submit(context.Background(), "hi", modes.Coding, modes.ToneNeutral)
	if len(b.State().Messages) != 0 {
		t.Error("conversations leaked across users")
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestManager_Drop(t *testing.T) {
	m := NewManager(&fakeModel{reply: "BETTER_OUTPUT:\nB"}, nil, nil)

	e := m.Get("alice")
	_ = e.Submit(context.Background(), "hi", modes.Coding, modes.ToneNeutral)

	m.Drop("alice")
	if len(e.State().Messages) != 0 {
		t.Error("dropped engine should be reset")
	}
	if m.Get("alice") == e {
		t.Error("Get after Drop should create a fresh engine")
	}
	m.Drop("nobody")
}

func TestManager_LookupDoesNotCreate(t *testing.T) {
	m := NewManager(&fakeModel{}, nil, nil)

	if _, ok := m.Lookup("carol"); ok {
		t.Fatal("Lookup should not find an unknown user")
	}
	if m.Len() != 0 {
		t.Fatalf("Lookup created an engine, Len = %d", m.Len())
	}

	e := m.Get("carol")
	got, ok := m.Lookup("carol")
	if !ok || got != e {
		t.Fatal("Lookup should return the engine created by Get")
	}

	m.Drop("carol")
	if _, ok := m.Lookup("carol"); ok {
		t.Fatal("Lookup found a dropped engine")
	}
}
