package content

import (
	"fmt"
	"log/slog"
	nurl "net/url"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/fieldlead/renderbatch/models"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid. Below this threshold we assume
// the algorithm failed to locate the main content and fall back to raw HTML.
const minContentLength = 50

// Processor converts rendered HTML into the requested output format. It holds
// a single html-to-markdown Converter, which is goroutine-safe and reused
// across requests.
type Processor struct {
	conv *converter.Converter
}

// NewProcessor builds a Processor with the Markdown converter configured:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func NewProcessor() *Processor {
	return &Processor{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Process turns raw rendered HTML into the output the caller asked for.
//
// When mode is readability the Mozilla Readability algorithm is run first and
// the conversion operates on the extracted article HTML; otherwise the raw
// HTML is used as-is. format selects the final representation: html, markdown
// or text.
func (p *Processor) Process(rawHTML, sourceURL, format, mode string) (string, error) {
	source := rawHTML
	if mode == models.ExtractModeReadability {
		article, ok := extract(rawHTML, sourceURL)
		if ok {
			source = article.Content
		}
	}

	switch format {
	case models.OutputFormatHTML, "":
		return source, nil
	case models.OutputFormatMarkdown:
		domain := hostOf(sourceURL)
		md, err := p.conv.ConvertString(source, converter.WithDomain(domain))
		if err != nil {
			return "", fmt.Errorf("markdown conversion: %w", err)
		}
		return md, nil
	case models.OutputFormatText:
		return toText(source), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// extract runs readability on rawHTML. The second return reports whether the
// extraction produced usable content; on any failure the caller keeps the raw
// HTML, the pipeline must never fail just because readability choked.
func extract(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, falling back to raw HTML",
			"url", sourceURL, "error", err,
		)
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, falling back to raw HTML",
			"url", sourceURL, "error", err,
		)
		return readability.Article{}, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Warn("readability: extracted content too short, falling back to raw HTML",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return readability.Article{}, false
	}

	return article, true
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// toText strips markup and returns readable plain text with collapsed
// whitespace. Script and style bodies are removed before text extraction so
// inline JavaScript never leaks into the output.
func toText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	doc.Find("script, style, noscript, template").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
	})
	text := b.String()
	if text == "" {
		text = doc.Text()
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func hostOf(sourceURL string) string {
	u, err := nurl.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
