package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Handler executes one capability. Arguments arrive as the raw JSON string
// from the model's tool call; the result is plain text fed back as a tool
// message.
type Handler func(ctx context.Context, argsJSON string) (string, error)

// Capability is one statically declared tool: its schema as shown to the
// model plus the handler resolved by name. Nothing is discovered at
// runtime; the table is assembled at construction.
type Capability struct {
	Info    *schema.ToolInfo
	Handler Handler
}

// Registry is the name-indexed capability table.
type Registry struct {
	mu    sync.RWMutex
	caps  map[string]Capability
	order []string
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

func (r *Registry) Register(cap Capability) error {
	if cap.Info == nil || cap.Info.Name == "" {
		return fmt.Errorf("tools: capability requires a named ToolInfo")
	}
	if cap.Handler == nil {
		return fmt.Errorf("tools: capability %q requires a handler", cap.Info.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[cap.Info.Name]; exists {
		return fmt.Errorf("tools: capability %q already registered", cap.Info.Name)
	}
	r.caps[cap.Info.Name] = cap
	r.order = append(r.order, cap.Info.Name)
	return nil
}

// Infos lists tool schemas in registration order, for llm.Client.Complete.
func (r *Registry) Infos() []*schema.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.caps[name].Info)
	}
	return infos
}

// Execute resolves a tool call by name lookup and runs its handler.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	r.mu.RLock()
	cap, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tools: unknown capability %q", name)
	}
	return cap.Handler(ctx, argsJSON)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caps)
}
