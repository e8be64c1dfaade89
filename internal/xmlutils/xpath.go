package xmlutils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/xmlpath.v2"
)

// Parse reads an XML document into an xmlpath root node.
func Parse(r io.Reader) (*xmlpath.Node, error) {
	root, err := xmlpath.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return root, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*xmlpath.Node, error) {
	return Parse(bytes.NewReader(data))
}

// ExtractFromXML returns every value matched by xpath under root.
func ExtractFromXML(root *xmlpath.Node, xpath string) ([]string, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath: %w", err)
	}

	var values []string
	iter := path.Iter(root)
	for iter.Next() {
		values = append(values, iter.Node().String())
	}
	return values, nil
}

// First returns the cleaned first match of xpath, or "" when nothing matches
// or the expression is invalid.
func First(root *xmlpath.Node, xpath string) string {
	values, err := ExtractFromXML(root, xpath)
	if err != nil {
		return ""
	}
	return CleanText(GetOrEmpty(values, 0))
}

// GetOrEmpty returns slice[index], or "" when index is out of bounds.
func GetOrEmpty(slice []string, index int) string {
	if index >= 0 && index < len(slice) {
		return slice[index]
	}
	return ""
}

// CleanText collapses whitespace runs into single spaces.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
