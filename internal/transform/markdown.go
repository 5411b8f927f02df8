package transform

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	commentMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	commentPolicy = bluemonday.UGCPolicy()
)

// RenderCommentHTML converts a markdown comment body to sanitized HTML for
// Halo's details_html field.
func RenderCommentHTML(body string) (string, error) {
	var buf strings.Builder
	if err := commentMarkdown.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(commentPolicy.Sanitize(buf.String())), nil
}
