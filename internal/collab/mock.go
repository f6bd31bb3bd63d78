package collab

import (
	"context"
)

// Mock is a deterministic Collaborator implementation for testing.
// It returns canned responses keyed by action, records every request it
// receives, and can be made to fail on demand.
type Mock struct {
	// Response is the fixed reply returned for any action when Responses
	// has no entry for it.
	Response string

	// Responses maps an action to its canned reply.
	Responses map[string]string

	// Error, if set, is returned instead of a reply.
	Error error

	// Requests stores every request passed to Complete, in order.
	Requests []Request
}

// NewMock creates a mock collaborator with a fixed reply for all actions.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

// NewMockWithError creates a mock collaborator that always fails.
func NewMockWithError(err error) *Mock {
	return &Mock{Error: err}
}

// Respond sets the canned reply for one action.
func (m *Mock) Respond(action, response string) *Mock {
	if m.Responses == nil {
		m.Responses = map[string]string{}
	}
	m.Responses[action] = response
	return m
}

// Calls returns how many requests the mock has served for the given action.
func (m *Mock) Calls(action string) int {
	n := 0
	for _, req := range m.Requests {
		if req.Action == action {
			n++
		}
	}
	return n
}

// Complete records the request and returns the configured reply or error.
func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	m.Requests = append(m.Requests, req)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Error != nil {
		return "", m.Error
	}
	if m.Responses != nil {
		if resp, ok := m.Responses[req.Action]; ok {
			return resp, nil
		}
	}
	return m.Response, nil
}
