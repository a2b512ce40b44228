// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmutil "github.com/yuin/goldmark/util"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page. Message
// text is rendered as Markdown; raw HTML in messages is not passed
// through.
type HTMLExporter struct {
	options  *Options
	markdown goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	style := "github"
	if opts.Theme == "dark" {
		style = "monokai"
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(gmutil.Prioritized(&codeRenderer{style: style}, 100)),
		),
	)
	return &HTMLExporter{options: opts, markdown: md}
}

// Export converts a conversation to HTML.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "dark" {
		theme = "light"
	}
	title := html.EscapeString(conv.DisplayTitle())

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", title)
	sb.WriteString("<meta name=\"generator\" content=\"rigchat\">\n")
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString("<header class=\"header\">\n")
		fmt.Fprintf(&sb, "<h1>%s</h1>\n", title)
		fmt.Fprintf(&sb, "<div class=\"metadata\">Created %s &middot; Updated %s &middot; %d messages</div>\n",
			formatTimestamp(conv.CreatedAt), formatTimestamp(conv.UpdatedAt), len(conv.Messages))
		sb.WriteString("</header>\n")
	}

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		block, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(block)
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from rigchat on %s</footer>\n", now().Format(time.RFC1123))
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	var body bytes.Buffer
	if err := e.markdown.Convert([]byte(msg.Content), &body); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<section class=\"message %s\">\n<div class=\"role\">%s", msg.Role, roleLabel(msg.Role))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(&sb, " <span class=\"time\">%s</span>", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("</div>\n<div class=\"content\">\n")
	sb.Write(body.Bytes())
	sb.WriteString("</div>\n</section>\n")
	return sb.String(), nil
}

// =============================================================================
// CODE HIGHLIGHTING
// =============================================================================

// codeRenderer renders fenced code blocks through chroma with inline
// styles.
type codeRenderer struct {
	style string
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeRenderer) renderFencedCode(w gmutil.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node := n.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	if err := highlight(w, code.String(), string(node.Language(source)), r.style); err != nil {
		// Fall back to an escaped block.
		fmt.Fprintf(w, "<pre><code>%s</code></pre>\n", html.EscapeString(code.String()))
	}
	return ast.WalkSkipChildren, nil
}

// highlight writes code as highlighted HTML.
func highlight(w gmutil.BufWriter, code, language, styleName string) error {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	return chromahtml.New(chromahtml.TabWidth(4)).Format(w, style, iterator)
}

const pageCSS = `<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
.light-theme { --bg: #ffffff; --panel: #f7f8fa; --text: #24292e; --muted: #6a737d; --border: #e1e4e8; --user: #f1f8ff; }
.dark-theme { --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89; --border: #414868; --user: #1f2335; }
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; color: var(--text); background: var(--bg); padding: 20px; }
.container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
.header { padding: 24px 32px; border-bottom: 1px solid var(--border); }
.header h1 { font-size: 24px; margin-bottom: 8px; }
.metadata, .time, .footer { color: var(--muted); font-size: 13px; }
.conversation { padding: 16px 32px; }
.message { padding: 16px; margin: 12px 0; border: 1px solid var(--border); border-radius: 8px; }
.message.user { background: var(--user); }
.role { font-weight: 600; margin-bottom: 8px; }
.content p { margin: 8px 0; }
.content pre { padding: 12px; border-radius: 6px; overflow-x: auto; font-size: 14px; }
.content code { font-family: "SF Mono", Menlo, Consolas, monospace; }
.footer { padding: 16px 32px; border-top: 1px solid var(--border); }
</style>
`
