// Package testutil provides shared test helpers for setting up stores and sessions.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/starford/wordmaster/internal/kv"
	"github.com/starford/wordmaster/internal/session"
	"github.com/starford/wordmaster/internal/store"
)

// Words is a small deck used across package tests.
const Words = "apple;苹果\ncat;猫\ndog;狗\n"

// TestStore creates a loaded store over an in-memory port with a fixed shuffle seed.
func TestStore(t *testing.T) (*store.Store, *kv.Memory) {
	t.Helper()
	port := kv.NewMemory()
	s := store.New(port, store.WithRand(rand.New(rand.NewSource(1))))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	return s, port
}

// TestController creates a session controller and imports text when non-empty.
func TestController(t *testing.T, text string, opts ...session.Option) *session.Controller {
	t.Helper()
	s, _ := TestStore(t)
	c := session.New(s, opts...)
	if text != "" {
		if _, _, err := c.Import(text); err != nil {
			t.Fatalf("import: %v", err)
		}
	}
	return c
}
