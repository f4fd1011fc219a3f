// Package testutils provides deterministic test doubles shared across
// package tests.
package testutils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// MockLLMClient implements ports.LLMClient with deterministic responses.
// Responses are chosen by substring match against the prompt; failures,
// latency and panics can be injected to exercise the evaluator's failure
// paths. It is safe for concurrent use.
type MockLLMClient struct {
	model string

	mu        sync.Mutex
	responses []MockResponse
	fallback  string
	err       error
	panicVal  any
	delay     time.Duration
	// ignoreCtx makes delayed calls sleep through cancellation, simulating
	// a client that does not honor its context.
	ignoreCtx bool

	calls    []MockCall
	inFlight int
	maxIn    int
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// MockResponse maps a prompt substring to a reply.
type MockResponse struct {
	// Pattern is matched case-insensitively against the prompt.
	Pattern  string
	Response string
	// Usage is attached to the reply when non-nil.
	Usage *domain.TokenUsage
}

// MockCall records one Invoke.
type MockCall struct {
	Prompt   string
	Started  time.Time
	Finished time.Time
}

// NewMockLLMClient creates a client that answers every prompt with a fixed
// default response until configured otherwise.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{
		model:    model,
		fallback: "This is a standard response for testing purposes.",
	}
}

// AddResponse registers a pattern. Earlier patterns take precedence.
func (m *MockLLMClient) AddResponse(r MockResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
	return m
}

// WithDefault sets the reply used when no pattern matches.
func (m *MockLLMClient) WithDefault(response string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// WithError makes every call fail with err.
func (m *MockLLMClient) WithError(err error) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithPanic makes every call panic with v.
func (m *MockLLMClient) WithPanic(v any) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicVal = v
	return m
}

// WithDelay makes every call take d. When ignoreCtx is true the delay is not
// cut short by cancellation.
func (m *MockLLMClient) WithDelay(d time.Duration, ignoreCtx bool) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	m.ignoreCtx = ignoreCtx
	return m
}

// Invoke returns the configured reply or failure.
func (m *MockLLMClient) Invoke(ctx context.Context, msg domain.Message) (domain.Reply, error) {
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, MockCall{Prompt: msg.Content, Started: time.Now()})
	m.inFlight++
	m.maxIn = max(m.maxIn, m.inFlight)
	delay, ignoreCtx, err, panicVal := m.delay, m.ignoreCtx, m.err, m.panicVal
	reply := m.match(msg.Content)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.calls[call].Finished = time.Now()
		m.mu.Unlock()
	}()

	if delay > 0 {
		if ignoreCtx {
			time.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return domain.Reply{}, ctx.Err()
			}
		}
	}
	if panicVal != nil {
		panic(panicVal)
	}
	if err != nil {
		return domain.Reply{}, err
	}
	return reply, nil
}

func (m *MockLLMClient) match(prompt string) domain.Reply {
	lower := strings.ToLower(prompt)
	for _, r := range m.responses {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return domain.Reply{Content: r.Response, TokenUsage: r.Usage}
		}
	}
	return domain.Reply{Content: m.fallback}
}

// GetModel returns the mock model identifier.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls returns a copy of the recorded calls in start order.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns how many times Invoke was called.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MaxConcurrent returns the highest number of overlapping calls observed.
func (m *MockLLMClient) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxIn
}
