package curriculum

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML inside lesson markdown is escaped (WithUnsafe is not set).
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// RenderContent converts lesson markdown into HTML for the lesson page.
func RenderContent(content string) (string, error) {
	if content == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render lesson content: %w", err)
	}
	return buf.String(), nil
}
