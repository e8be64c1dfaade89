package cfdiparser

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		declared  string
		canonical string
		supported bool
	}{
		{"no declaration", `<Comprobante/>`, "UTF-8", "UTF-8", true},
		{"utf-8", `<?xml version="1.0" encoding="utf-8"?><a/>`, "UTF-8", "UTF-8", true},
		{"utf8 alias", `<?xml version="1.0" encoding="UTF8"?><a/>`, "UTF8", "UTF-8", true},
		{"latin1 alias", `<?xml version='1.0' encoding='latin1'?><a/>`, "LATIN1", "ISO-8859-1", true},
		{"iso8859-1 alias", `<?xml version="1.0" encoding="ISO8859-1"?><a/>`, "ISO8859-1", "ISO-8859-1", true},
		{"cp1252 alias", `<?xml version="1.0" encoding="cp1252"?><a/>`, "CP1252", "WINDOWS-1252", true},
		{"windows-1252", `<?xml version="1.0" encoding="Windows-1252"?><a/>`, "WINDOWS-1252", "WINDOWS-1252", true},
		{"utf-16 rejected", `<?xml version="1.0" encoding="UTF-16"?><a/>`, "UTF-16", "UTF-16", false},
		{"shift_jis rejected", `<?xml version="1.0" encoding="Shift_JIS"?><a/>`, "SHIFT_JIS", "SHIFT_JIS", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DetectEncoding([]byte(tt.raw))
			assert.Equal(t, tt.declared, info.Declared)
			assert.Equal(t, tt.canonical, info.Name)
			assert.Equal(t, tt.supported, info.Supported)
		})
	}
}

func TestDetectEncoding_OnlyReadsHead(t *testing.T) {
	raw := "<a>" + strings.Repeat(" ", 600) + `<?xml version="1.0" encoding="UTF-16"?></a>`
	info := DetectEncoding([]byte(raw))
	assert.True(t, info.Supported)
}

func TestCharsetReader(t *testing.T) {
	r, err := charsetReader("latin1", strings.NewReader("Jos\xe9"))
	require.NoError(t, err)
	buf := new(strings.Builder)
	_, err = io.Copy(buf, r)
	require.NoError(t, err)
	assert.Equal(t, "José", buf.String())
}
