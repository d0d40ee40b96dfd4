package agent

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSystemPrompt is used when no prompt is configured.
const DefaultSystemPrompt = "You are a helpful, concise assistant. " +
	"Answer the user's question directly and say so when you do not know something."

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	AgentName string
	Base      string
	ToolNames []string
	Now       time.Time
}

// BuildSystemPrompt constructs the system prompt for the LLM.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	base := strings.TrimSpace(cfg.Base)
	if base == "" {
		base = DefaultSystemPrompt
	}
	b.WriteString(base)
	b.WriteString("\n\n")

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("2006-01-02"))
	if cfg.AgentName != "" {
		fmt.Fprintf(&b, "Agent: %s\n", cfg.AgentName)
	}

	if len(cfg.ToolNames) > 0 {
		b.WriteString("\nGuidelines:\n")
		for _, name := range cfg.ToolNames {
			switch name {
			case "calculator":
				b.WriteString("- Use the calculator tool for any arithmetic instead of computing in your head.\n")
			case "memory":
				b.WriteString("- When the user shares personal details or preferences, store them with the memory tool.\n")
				b.WriteString("- Before answering personal questions, retrieve relevant memories for the user.\n")
			}
		}
	}

	return b.String()
}
