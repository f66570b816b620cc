package agents

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed prompts
var promptFS embed.FS

// loadPrompt reads an embedded prompt by its path under prompts/, without
// the .md extension.
func loadPrompt(path string) (string, error) {
	content, err := promptFS.ReadFile(fmt.Sprintf("prompts/%s.md", path))
	if err != nil {
		return "", fmt.Errorf("agents: load prompt %s: %w", path, err)
	}
	return string(content), nil
}

// buildMessages renders an embedded prompt as the system message and
// appends a short user instruction.
func buildMessages(ctx context.Context, promptPath, userMsg string, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := loadPrompt(promptPath)
	if err != nil {
		return nil, err
	}
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(tpl),
		schema.UserMessage(userMsg),
	)
	msgs, err := template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("agents: format prompt %s: %w", promptPath, err)
	}
	return msgs, nil
}
