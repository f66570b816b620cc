package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MockClient is a deterministic in-process client used by tests and the
// mock provider. Responses are matched by substring against the rendered
// prompt; unmatched prompts fall through to a fixed default.
type MockClient struct {
	mu       sync.Mutex
	rules    []mockRule
	queue    []string
	errs     []error
	calls    int
	defaults string
}

type mockRule struct {
	contains string
	reply    string
}

func NewMockClient() *MockClient {
	return &MockClient{
		defaults: "Based on the available evidence I recommend to hold the position for now.",
	}
}

// Respond registers a canned reply for prompts containing the substring.
// Rules are checked in registration order.
func (m *MockClient) Respond(contains, reply string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: contains, reply: reply})
	return m
}

// Enqueue pushes replies returned in order before any rule matching.
func (m *MockClient) Enqueue(replies ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, replies...)
	return m
}

// FailWith makes the next completions return the given errors in order.
func (m *MockClient) FailWith(errs ...error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return m
}

// SetDefault overrides the fallback reply.
func (m *MockClient) SetDefault(reply string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = reply
	return m
}

// Calls reports how many completions were attempted.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockClient) Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	if len(m.queue) > 0 {
		reply := m.queue[0]
		m.queue = m.queue[1:]
		return schema.AssistantMessage(reply, nil), nil
	}

	var prompt strings.Builder
	for _, msg := range messages {
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n")
	}
	rendered := prompt.String()
	for _, r := range m.rules {
		if strings.Contains(rendered, r.contains) {
			return schema.AssistantMessage(r.reply, nil), nil
		}
	}
	return schema.AssistantMessage(m.defaults, nil), nil
}
