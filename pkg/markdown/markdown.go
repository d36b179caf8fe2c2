// Package markdown converts campaign copy to HTML. Preview and send share Render so the
// previewed HTML is byte-for-byte what recipients receive.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Render converts markdown to HTML. Raw HTML in the source is omitted.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
