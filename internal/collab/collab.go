// Package collab provides the boundary to the generation collaborator: a
// provider-agnostic interface for structured completion requests, a concrete
// OpenAI implementation, a deterministic mock for testing, and the
// single-flight gate that serializes access to the shared collaborator.
package collab

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrCollabFailed indicates the collaborator call errored, timed out,
	// or was cancelled (a generation failure).
	ErrCollabFailed = errors.New("collaborator request failed")

	// ErrBadReply indicates the collaborator returned a string that is not
	// valid JSON or lacks the expected shape (a parse failure).
	ErrBadReply = errors.New("collaborator returned malformed reply")

	// ErrInvalidConfig indicates missing or invalid client configuration.
	ErrInvalidConfig = errors.New("invalid collaborator configuration")

	// ErrBusy indicates a second call was attempted while one was in flight.
	ErrBusy = errors.New("collaborator call already in flight")
)

// Actions understood by the story-memory target.
const (
	TargetStoryMemory = "storyMemory"

	ActionSummarizeChapter = "summarize-chapter"
	ActionUpdateKnowledge  = "update-character-knowledge"
	ActionRetrieveContext  = "retrieve-context"
)

// Request is a structured completion request. Context carries the
// action-specific payload and is rendered into the prompt by the
// implementation.
type Request struct {
	Target  string
	Action  string
	Context map[string]any
}

// Collaborator is the interface to the generation collaborator.
// Implementations must be stateless and safe for reuse; callers are
// responsible for serializing access via a Gate.
type Collaborator interface {
	// Complete sends the request and returns the raw completion string.
	// A failed, cancelled, or empty completion returns an error wrapping
	// ErrCollabFailed.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds common configuration for collaborator providers.
type Config struct {
	// Model specifies the model identifier (e.g., "gpt-4o")
	Model string

	// Temperature controls randomness (0 = use provider default)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}

// DefaultConfig returns sensible defaults for continuity work.
func DefaultConfig() Config {
	return Config{
		Model:     "gpt-4o",
		MaxTokens: 2000,
	}
}

// GateState is the explicit in-flight state of the shared collaborator.
type GateState int

const (
	Idle GateState = iota
	InFlight
)

// Gate enforces the single-flight constraint: at most one outstanding
// collaborator call process-wide. It is owned by the orchestration layer
// and passed to callees rather than read from ambient scope. Callers can
// reach the gate from concurrent request paths (the HTTP facade handles
// each save on its own goroutine), so the state transition is an atomic
// compare-and-swap: exactly one caller wins the Idle->InFlight move and
// every other caller gets ErrBusy, never a wait.
type Gate struct {
	state atomic.Int32
}

// NewGate returns an idle gate.
func NewGate() *Gate {
	return &Gate{}
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	return GateState(g.state.Load())
}

// Acquire marks a call in flight. It fails if one already is.
func (g *Gate) Acquire() error {
	if !g.state.CompareAndSwap(int32(Idle), int32(InFlight)) {
		return fmt.Errorf("%w: concurrent collaborator calls are not supported", ErrBusy)
	}
	return nil
}

// Release marks the call finished. Safe to call from a defer.
func (g *Gate) Release() {
	g.state.Store(int32(Idle))
}

// Do runs fn under the gate, releasing it on return.
func (g *Gate) Do(fn func() error) error {
	if err := g.Acquire(); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}
