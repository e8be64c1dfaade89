package cfdiparser

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
)

// Canonical names of the accepted encodings.
const (
	EncodingUTF8        = "UTF-8"
	EncodingISO88591    = "ISO-8859-1"
	EncodingWindows1252 = "WINDOWS-1252"
)

var declaredEncoding = regexp.MustCompile(`(?i)<\?xml[^>]*encoding=["']([^"']+)["']`)

var encodingAliases = map[string]string{
	"UTF8":        EncodingUTF8,
	"LATIN1":      EncodingISO88591,
	"ISO-88591":   EncodingISO88591,
	"ISO8859-1":   EncodingISO88591,
	"ISO_8859-1":  EncodingISO88591,
	"CP1252":      EncodingWindows1252,
	"WINDOWS1252": EncodingWindows1252,
}

var supportedEncodings = map[string]bool{
	EncodingUTF8:        true,
	EncodingISO88591:    true,
	EncodingWindows1252: true,
}

// EncodingInfo describes the encoding declared by a document.
type EncodingInfo struct {
	// Declared is the upper-cased label as written in the XML declaration.
	Declared string
	// Name is the canonical label, equal to Declared when no alias applies.
	Name      string
	Supported bool
}

// DetectEncoding reads the encoding pseudo-attribute of the XML declaration.
// A document without one is UTF-8.
func DetectEncoding(raw []byte) EncodingInfo {
	head := raw
	if len(head) > 512 {
		head = head[:512]
	}
	m := declaredEncoding.FindSubmatch(head)
	if m == nil {
		return EncodingInfo{Declared: EncodingUTF8, Name: EncodingUTF8, Supported: true}
	}
	declared := strings.ToUpper(strings.TrimSpace(string(m[1])))
	name := NormalizeEncoding(declared)
	return EncodingInfo{Declared: declared, Name: name, Supported: supportedEncodings[name]}
}

// NormalizeEncoding maps common spellings to the canonical label.
func NormalizeEncoding(label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if alias, ok := encodingAliases[label]; ok {
		return alias
	}
	return label
}

// charsetReader decodes the legacy 8-bit encodings for encoding/xml.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	return charset.NewReaderLabel(NormalizeEncoding(label), input)
}
