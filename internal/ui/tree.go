package ui

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/fixreg/internal/fixture"
)

// Tree-drawing connectors.
const (
	treeBranch = "├── "
	treeLast   = "└── "
	treePipe   = "│   "
	treeBlank  = "    "
)

// DerivationTree prints records as a forest: every source fixture is a root
// and the fixtures derived from it are nested beneath it. Records whose
// source is not registered are printed as roots. Records that sit on a
// derivation cycle are unreachable from any root and listed last.
func (p *Printer) DerivationTree(recs []fixture.Record) {
	if len(recs) == 0 {
		p.Info("(no fixtures)")
		return
	}

	byName := make(map[string]fixture.Record, len(recs))
	for _, r := range recs {
		byName[r.Name] = r
	}
	children := make(map[string][]string)
	var roots []string
	for _, r := range recs {
		if _, ok := byName[r.DerivedFrom]; r.IsDerived() && ok {
			children[r.DerivedFrom] = append(children[r.DerivedFrom], r.Name)
			continue
		}
		roots = append(roots, r.Name)
	}

	seen := make(map[string]bool, len(recs))
	var walk func(name, prefix string)
	walk = func(name, prefix string) {
		kids := children[name]
		for i, kid := range kids {
			if seen[kid] {
				continue
			}
			seen[kid] = true
			connector, next := treeBranch, treePipe
			if i == len(kids)-1 {
				connector, next = treeLast, treeBlank
			}
			fmt.Fprintf(p.w, "%s%s%s\n", p.muted.Render(prefix+connector), p.accent.Render(kid), p.transformNote(byName[kid]))
			walk(kid, prefix+next)
		}
	}

	for _, root := range roots {
		seen[root] = true
		r := byName[root]
		note := p.muted.Render(" (" + string(r.Origin) + ")")
		if r.IsDerived() {
			note = p.danger.Render(" (derived from unregistered " + r.DerivedFrom + ")")
		}
		fmt.Fprintf(p.w, "%s%s\n", p.name.Render(root), note)
		walk(root, "")
	}

	var cyclic []string
	for _, r := range recs {
		if !seen[r.Name] {
			cyclic = append(cyclic, r.Name)
		}
	}
	if len(cyclic) > 0 {
		fmt.Fprintf(p.w, "%s %s\n", p.danger.Render("cyclic:"), strings.Join(cyclic, ", "))
	}
}

func (p *Printer) transformNote(r fixture.Record) string {
	if r.Transform == "" {
		return ""
	}
	return p.muted.Render(" [" + r.Transform + "]")
}
