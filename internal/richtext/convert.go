// Package richtext converts between HTML and rich-text blocks.
package richtext

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alfredjeanlab/kalender/internal/idgen"
	"github.com/alfredjeanlab/kalender/internal/model"
)

// Schema lists what a block may contain. Anything else found in the HTML is
// dropped (styles fall back to normal, marks and lists are ignored).
type Schema struct {
	Styles      []string
	Decorators  []string
	Annotations []string
	Lists       []string
}

// DefaultSchema matches the event body field in the content store.
var DefaultSchema = Schema{
	Styles:      []string{model.StyleNormal, "h2", "h3", "h4", "h5"},
	Decorators:  []string{"strong", "em", "underline"},
	Annotations: []string{model.TypeLink},
	Lists:       []string{"bullet", "number"},
}

// Convert parses an HTML fragment and returns the blocks it describes.
// Blocks are returned without keys; markDefs are keyed so spans can refer to
// them. Use AssignKeys before persisting.
func Convert(src string, schema Schema) (model.Blocks, error) {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	c := &converter{schema: schema, hrefs: make(map[string]string)}
	for _, n := range nodes {
		if err := c.walk(n); err != nil {
			return nil, err
		}
	}
	c.flush()
	if c.blocks == nil {
		c.blocks = model.Blocks{}
	}
	return c.blocks, nil
}

// blockContext describes the block that text opens at the current position.
type blockContext struct {
	style    string
	listItem string
	level    int
}

type converter struct {
	schema Schema
	blocks model.Blocks
	cur    *model.Block

	contexts []blockContext
	marks    []string
	lists    []string
	hrefs    map[string]string // markDef key -> href
	pre      int
}

var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Title: true,
	atom.Noscript: true, atom.Iframe: true, atom.Template: true, atom.Img: true,
	atom.Svg: true, atom.Object: true, atom.Video: true, atom.Audio: true,
}

var containers = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Blockquote: true, atom.Pre: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Figure: true, atom.Figcaption: true, atom.Address: true, atom.Main: true,
	atom.Aside: true, atom.Nav: true, atom.Table: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
}

var headingStyles = map[atom.Atom]string{
	atom.H1: "h2", atom.H2: "h2", atom.H3: "h3",
	atom.H4: "h4", atom.H5: "h5", atom.H6: "h5",
}

var decorators = map[atom.Atom]string{
	atom.B: "strong", atom.Strong: "strong",
	atom.I: "em", atom.Em: "em",
	atom.U: "underline", atom.Ins: "underline",
}

func (c *converter) walk(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data)
		return nil
	case html.ElementNode:
	default:
		return c.walkChildren(n)
	}

	if skipped[n.DataAtom] {
		return nil
	}

	switch {
	case n.DataAtom == atom.Br:
		c.lineBreak()
		return nil
	case n.DataAtom == atom.Hr:
		c.flush()
		return nil
	case n.DataAtom == atom.Ul || n.DataAtom == atom.Ol:
		kind := "bullet"
		if n.DataAtom == atom.Ol {
			kind = "number"
		}
		c.flush()
		c.lists = append(c.lists, kind)
		err := c.walkChildren(n)
		c.flush()
		c.lists = c.lists[:len(c.lists)-1]
		return err
	case n.DataAtom == atom.Li:
		ctx := blockContext{style: model.StyleNormal}
		if len(c.lists) > 0 {
			if kind := c.lists[len(c.lists)-1]; slices.Contains(c.schema.Lists, kind) {
				ctx.listItem = kind
				ctx.level = len(c.lists)
			}
		}
		return c.inBlock(n, ctx)
	case headingStyles[n.DataAtom] != "":
		return c.inBlock(n, blockContext{style: c.style(headingStyles[n.DataAtom])})
	case containers[n.DataAtom]:
		ctx := c.context()
		if ctx.listItem == "" {
			ctx.style = model.StyleNormal
		}
		if n.DataAtom == atom.Pre {
			c.pre++
			defer func() { c.pre-- }()
		}
		return c.inBlock(n, ctx)
	case decorators[n.DataAtom] != "":
		mark := decorators[n.DataAtom]
		if !slices.Contains(c.schema.Decorators, mark) {
			return c.walkChildren(n)
		}
		return c.withMark(n, mark)
	case n.DataAtom == atom.A:
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" || !slices.Contains(c.schema.Annotations, model.TypeLink) {
			return c.walkChildren(n)
		}
		key, err := idgen.Key()
		if err != nil {
			return err
		}
		c.hrefs[key] = href
		return c.withMark(n, key)
	}
	return c.walkChildren(n)
}

func (c *converter) walkChildren(n *html.Node) error {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if err := c.walk(ch); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) inBlock(n *html.Node, ctx blockContext) error {
	c.flush()
	c.contexts = append(c.contexts, ctx)
	err := c.walkChildren(n)
	c.flush()
	c.contexts = c.contexts[:len(c.contexts)-1]
	return err
}

func (c *converter) withMark(n *html.Node, mark string) error {
	c.marks = append(c.marks, mark)
	err := c.walkChildren(n)
	c.marks = c.marks[:len(c.marks)-1]
	return err
}

func (c *converter) context() blockContext {
	if len(c.contexts) == 0 {
		return blockContext{style: model.StyleNormal}
	}
	return c.contexts[len(c.contexts)-1]
}

func (c *converter) style(s string) string {
	if slices.Contains(c.schema.Styles, s) {
		return s
	}
	return model.StyleNormal
}

// open returns the current block, starting one from the context if needed.
func (c *converter) open() *model.Block {
	if c.cur == nil {
		ctx := c.context()
		c.cur = &model.Block{
			Type:     model.TypeBlock,
			Style:    c.style(ctx.style),
			ListItem: ctx.listItem,
			Level:    ctx.level,
		}
	}
	return c.cur
}

func (c *converter) text(s string) {
	if c.pre == 0 {
		s = collapseSpace(s)
		if s == "" || (s == " " && c.cur == nil) {
			return
		}
	}
	b := c.open()
	if c.pre == 0 && strings.HasPrefix(s, " ") && endsWithSpace(b) {
		s = s[1:]
	}
	if s == "" {
		return
	}
	c.appendSpan(b, s)
}

func (c *converter) lineBreak() {
	c.appendSpan(c.open(), "\n")
}

func (c *converter) appendSpan(b *model.Block, text string) {
	marks := make([]string, 0, len(c.marks))
	for _, m := range c.marks {
		if slices.Contains(marks, m) {
			continue
		}
		marks = append(marks, m)
		if href, ok := c.hrefs[m]; ok && !hasMarkDef(b, m) {
			b.MarkDefs = append(b.MarkDefs, model.MarkDef{Key: m, Type: model.TypeLink, Href: href})
		}
	}
	if n := len(b.Children); n > 0 && slices.Equal(b.Children[n-1].Marks, marks) {
		b.Children[n-1].Text += text
		return
	}
	b.Children = append(b.Children, model.Span{Type: model.TypeSpan, Text: text, Marks: marks})
}

// flush closes the current block, trimming trailing whitespace and dropping
// it when no text remains.
func (c *converter) flush() {
	b := c.cur
	c.cur = nil
	if b == nil {
		return
	}
	for n := len(b.Children); n > 0; n = len(b.Children) {
		last := &b.Children[n-1]
		last.Text = strings.TrimRight(last.Text, " \n")
		if last.Text != "" {
			break
		}
		b.Children = b.Children[:n-1]
	}
	if len(b.Children) == 0 || strings.TrimSpace(spanText(b.Children)) == "" {
		return
	}
	b.MarkDefs = usedMarkDefs(b)
	c.blocks = append(c.blocks, *b)
}

func hasMarkDef(b *model.Block, key string) bool {
	for _, d := range b.MarkDefs {
		if d.Key == key {
			return true
		}
	}
	return false
}

func usedMarkDefs(b *model.Block) []model.MarkDef {
	defs := []model.MarkDef{}
	for _, d := range b.MarkDefs {
		for _, ch := range b.Children {
			if slices.Contains(ch.Marks, d.Key) {
				defs = append(defs, d)
				break
			}
		}
	}
	return defs
}

func endsWithSpace(b *model.Block) bool {
	if len(b.Children) == 0 {
		return true
	}
	t := b.Children[len(b.Children)-1].Text
	return t == "" || strings.HasSuffix(t, " ") || strings.HasSuffix(t, "\n")
}

func spanText(spans []model.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// collapseSpace replaces every run of HTML whitespace with one space.
func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !inSpace {
				sb.WriteByte(' ')
			}
			inSpace = true
		default:
			sb.WriteRune(r)
			inSpace = false
		}
	}
	return sb.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
