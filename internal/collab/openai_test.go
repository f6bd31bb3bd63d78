package collab

import (
	"errors"
	"testing"
)

func TestNewOpenAICollaborator_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewOpenAICollaborator(Config{Model: "gpt-4o"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without a key, got %v", err)
	}
}

func TestNewOpenAICollaborator_RequiresModel(t *testing.T) {
	if _, err := NewOpenAICollaborator(Config{APIKey: "test-key"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without a model, got %v", err)
	}
}

func TestNewOpenAICollaborator_EnvKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	c, err := NewOpenAICollaborator(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected a collaborator")
	}
}
