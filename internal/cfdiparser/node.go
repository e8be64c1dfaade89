package cfdiparser

import (
	"strings"

	"github.com/beevik/etree"
)

// attr returns the first attribute matching one of names, compared
// case-insensitively and ignoring any prefix. CFDI 3.2 uses lower camel case
// where later versions use Pascal case.
func attr(e *etree.Element, names ...string) string {
	if e == nil {
		return ""
	}
	for _, name := range names {
		for _, a := range e.Attr {
			if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
				continue
			}
			if strings.EqualFold(a.Key, name) {
				return strings.TrimSpace(a.Value)
			}
		}
	}
	return ""
}

// hasAttr reports whether e carries a non-empty attribute called name.
func hasAttr(e *etree.Element, name string) bool {
	return attr(e, name) != ""
}

// child returns the first direct child with the given local name.
func child(e *etree.Element, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

// children returns the direct children with the given local name.
func children(e *etree.Element, local string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns every element below e with the given local name, in
// document order.
func descendants(e *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	walk(e, func(n *etree.Element) {
		if n.Tag == local {
			out = append(out, n)
		}
	})
	return out
}

// firstDescendant returns the first element below e with the given local name.
func firstDescendant(e *etree.Element, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == local {
			return c
		}
		if found := firstDescendant(c, local); found != nil {
			return found
		}
	}
	return nil
}

func walk(e *etree.Element, fn func(*etree.Element)) {
	if e == nil {
		return
	}
	for _, c := range e.ChildElements() {
		fn(c)
		walk(c, fn)
	}
}
