// File: internal/services/chat/markdown.go
package chat

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer converts assistant reply markdown into HTML for the chat
// view. Raw HTML in message content is not passed through.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (r *MarkdownRenderer) Render(content string) (string, error) {
	var out bytes.Buffer
	if err := r.md.Convert([]byte(content), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}
