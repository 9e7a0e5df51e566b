package richtext

import (
	"html/template"
	"net/url"
	"slices"
	"strings"

	"github.com/alfredjeanlab/kalender/internal/model"
)

var styleTags = map[string]string{
	model.StyleNormal: "p",
	"h2":              "h2",
	"h3":              "h3",
	"h4":              "h4",
	"h5":              "h5",
}

// decoratorTags lists decorators in nesting order, outermost first.
var decoratorTags = []struct{ mark, tag string }{
	{"strong", "strong"},
	{"em", "em"},
	{"underline", "u"},
}

type openList struct {
	kind   string
	liOpen bool
}

// RenderHTML renders blocks as HTML. Consecutive list items are grouped
// into nested ul/ol elements by level. All text is escaped and only http,
// https, mailto and tel links are kept.
func RenderHTML(blocks model.Blocks) template.HTML {
	var sb strings.Builder
	var stack []openList

	closeTop := func() {
		top := stack[len(stack)-1]
		if top.liOpen {
			sb.WriteString("</li>")
		}
		sb.WriteString("</" + listTag(top.kind) + ">")
		stack = stack[:len(stack)-1]
	}

	for _, b := range blocks {
		if b.Type != "" && b.Type != model.TypeBlock {
			continue
		}
		if b.ListItem == "" {
			for len(stack) > 0 {
				closeTop()
			}
			tag := styleTags[b.Style]
			if tag == "" {
				tag = "p"
			}
			sb.WriteString("<" + tag + ">")
			writeInline(&sb, b)
			sb.WriteString("</" + tag + ">")
			continue
		}

		level := max(b.Level, 1)
		for len(stack) > level {
			closeTop()
		}
		if len(stack) == level && stack[level-1].kind != b.ListItem {
			closeTop()
		}
		if len(stack) == level && stack[level-1].liOpen {
			sb.WriteString("</li>")
			stack[level-1].liOpen = false
		}
		for len(stack) < level {
			stack = append(stack, openList{kind: b.ListItem})
			sb.WriteString("<" + listTag(b.ListItem) + ">")
		}
		sb.WriteString("<li>")
		writeInline(&sb, b)
		stack[level-1].liOpen = true
	}
	for len(stack) > 0 {
		closeTop()
	}
	return template.HTML(sb.String())
}

func listTag(kind string) string {
	if kind == "number" {
		return "ol"
	}
	return "ul"
}

func writeInline(sb *strings.Builder, b model.Block) {
	for _, ch := range b.Children {
		text := template.HTMLEscapeString(ch.Text)
		text = strings.ReplaceAll(text, "\n", "<br>")

		for i := len(decoratorTags) - 1; i >= 0; i-- {
			d := decoratorTags[i]
			if slices.Contains(ch.Marks, d.mark) {
				text = "<" + d.tag + ">" + text + "</" + d.tag + ">"
			}
		}
		for _, d := range b.MarkDefs {
			if d.Type != model.TypeLink || !slices.Contains(ch.Marks, d.Key) {
				continue
			}
			if href, ok := safeHref(d.Href); ok {
				text = `<a href="` + template.HTMLEscapeString(href) + `" rel="noopener">` + text + "</a>"
			}
		}
		sb.WriteString(text)
	}
}

func safeHref(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return u.String(), true
	}
	return "", false
}

// PlainText returns the text of blocks, one paragraph per block.
func PlainText(blocks model.Blocks) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var sb strings.Builder
		for _, ch := range b.Children {
			sb.WriteString(ch.Text)
		}
		if t := strings.TrimSpace(sb.String()); t != "" {
			if b.ListItem != "" {
				t = "- " + t
			}
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ContentBlocks returns the blocks of c, converting legacy HTML with
// DefaultSchema. It returns nil for an empty body.
func ContentBlocks(c model.Content) (model.Blocks, error) {
	switch v := c.(type) {
	case model.Blocks:
		return v, nil
	case model.RawHTML:
		return Convert(string(v), DefaultSchema)
	}
	return nil, nil
}
