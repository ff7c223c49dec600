package handler

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = buildNotesSanitizer()
)

// buildNotesSanitizer 允许常见排版标签，链接统一加 nofollow 并在新窗口打开
func buildNotesSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// renderNotes 将打卡备注按 Markdown 渲染为安全的 HTML，渲染失败时返回空串
func renderNotes(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(notes), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(string(sanitizer.SanitizeBytes(buf.Bytes())))
}
