// File: internal/services/chat/title.go
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/vyomb/go-chatrelay/internal/domain"
	"github.com/vyomb/go-chatrelay/internal/services/llm"
)

const titleSystemPrompt = `You are a chat title generator. For each input, output a concise title of maximum 5 words. ONLY output the title. No explanations.

Rules:
- Title Case.
- No punctuation/emojis/numbers unless meaningful (e.g., "GPT-4", "HTTP").
- Avoid generic words like "Chat", "Help", "Question" unless necessary.
- Prefer specific nouns/keywords.
- Fallback: "New Chat" for empty/ambiguous inputs.

Examples:
Input: "Summarize the paper on attention is all you need"
Output: "Transformer Paper Summary"

Input: "Compare Postgres and MySQL indexing strategies"
Output: "Postgres vs MySQL Indexing"

Input: "How to deploy on Vercel with Next.js?"
Output: "Deploy Next.js on Vercel"

Input: "I want a meal plan for cutting weight"
Output: "Cutting Meal Plan"

Input: "     "
Output: "New Chat"`

// GenerateTitle asks the generator for a short display title derived from
// the chat's first user message. Falls back to the default title when the
// model returns nothing usable.
func GenerateTitle(ctx context.Context, generator llm.Generator, config *Config, firstMessage string) (string, error) {
	if strings.TrimSpace(firstMessage) == "" {
		return domain.DefaultChatTitle, nil
	}

	messages := []llm.Message{
		{Role: domain.RoleSystem, Content: titleSystemPrompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf("Ok, send the title for this %q", firstMessage)},
	}

	title, err := generator.Complete(ctx, messages)
	if err != nil {
		return "", NewUpstreamError(upstreamErrType(err), "generate_title", err)
	}

	title = sanitizeTitle(title, config.TitleMaxLength)
	if title == "" {
		return domain.DefaultChatTitle, nil
	}
	return title, nil
}

func sanitizeTitle(title string, maxLength int) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"`)
	// Models sometimes echo the few-shot framing.
	title = strings.TrimPrefix(title, "Output:")
	title = strings.TrimSpace(title)
	if runes := []rune(title); maxLength > 0 && len(runes) > maxLength {
		title = strings.TrimSpace(string(runes[:maxLength]))
	}
	return title
}
