package chat

import (
	"fmt"
	"strings"

	"outpost/internal/domain"
	"outpost/internal/domain/models"
	domainllm "outpost/internal/domain/services/llm"
)

// directives is appended to every system prompt, after the agent profile.
// Constant across all agents; not configurable.
const directives = `Your responsibilities:
- Proactively monitor and analyze data sources assigned to you
- Identify anomalies, trends, and important insights
- Provide clear explanations and actionable recommendations
- Help users understand complex information
- Execute tasks delegated by users

Communication style:
- Be concise and direct
- Focus on actionable insights
- Use data to support your analysis
- Ask clarifying questions when needed`

// BuildSystemPrompt builds the deterministic system instruction from the
// agent's profile.
func BuildSystemPrompt(agent *models.Agent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an AI agent with the role of %s.\n\n", agent.Name, agent.Role)
	if agent.Description != "" {
		sb.WriteString(agent.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString(directives)
	return sb.String()
}

// BuildMessages folds the loaded turns plus the new user turn into the
// ordered message list for the upstream provider: prior turns first, roles
// preserved, then the new user turn last.
//
// A stored role other than user/assistant is a data-corruption condition;
// it fails loudly rather than being mis-tagged upstream.
func BuildMessages(history []models.Message, newUserText string) ([]domainllm.Message, error) {
	messages := make([]domainllm.Message, 0, len(history)+1)

	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser, models.RoleAssistant:
			// allowed
		default:
			return nil, fmt.Errorf("message %s has role %q: %w", msg.ID, msg.Role, domain.ErrCorruptTurn)
		}

		messages = append(messages, domainllm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, domainllm.Message{
		Role:    models.RoleUser,
		Content: newUserText,
	})

	return messages, nil
}
