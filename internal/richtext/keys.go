package richtext

import (
	"github.com/alfredjeanlab/kalender/internal/idgen"
	"github.com/alfredjeanlab/kalender/internal/model"
)

// AssignKeys returns a copy of blocks in which every block, child and markDef
// has a key. Existing keys are kept; missing ones get a fresh random key that
// does not collide with any key already in the document. The input is not
// modified, and a fully keyed input comes back unchanged.
func AssignKeys(blocks model.Blocks) model.Blocks {
	if blocks == nil {
		return nil
	}

	used := make(map[string]bool)
	for _, b := range blocks {
		used[b.Key] = true
		for _, ch := range b.Children {
			used[ch.Key] = true
		}
		for _, d := range b.MarkDefs {
			used[d.Key] = true
		}
	}
	fill := func(k string) string {
		if k != "" {
			return k
		}
		for {
			k = idgen.MustKey()
			if !used[k] {
				used[k] = true
				return k
			}
		}
	}

	out := make(model.Blocks, len(blocks))
	for i, b := range blocks {
		nb := b
		nb.Key = fill(b.Key)
		if b.Children != nil {
			nb.Children = make([]model.Span, len(b.Children))
			for j, ch := range b.Children {
				ch.Marks = cloneStrings(ch.Marks)
				ch.Key = fill(ch.Key)
				nb.Children[j] = ch
			}
		}
		if b.MarkDefs != nil {
			nb.MarkDefs = make([]model.MarkDef, len(b.MarkDefs))
			for j, d := range b.MarkDefs {
				d.Key = fill(d.Key)
				nb.MarkDefs[j] = d
			}
		}
		out[i] = nb
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
