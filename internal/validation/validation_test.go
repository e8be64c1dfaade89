package validation_test

import (
	"os"
	"path/filepath"
	"testing"

	"fjacquet/cfdi-sentinel/internal/validation"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPath(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "factura.xml")
	assert.NoError(t, os.WriteFile(testFile, []byte("<x/>"), 0600))

	tests := []struct {
		name        string
		path        string
		errContains string
	}{
		{name: "file", path: testFile},
		{name: "directory", path: tmpDir},
		{name: "missing", path: filepath.Join(tmpDir, "missing.xml"), errContains: "path does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.IsValidPath(tt.path)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		name    string
		check   func(string) error
		format  string
		wantErr bool
	}{
		{name: "report json", check: validation.IsValidOutputFormat, format: "json"},
		{name: "report XML upper", check: validation.IsValidOutputFormat, format: "XML"},
		{name: "report csv rejected", check: validation.IsValidOutputFormat, format: "csv", wantErr: true},
		{name: "display text", check: validation.IsValidDisplayFormat, format: "text"},
		{name: "display json", check: validation.IsValidDisplayFormat, format: "json"},
		{name: "display yaml rejected", check: validation.IsValidDisplayFormat, format: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsValidFilePermissions(t *testing.T) {
	assert.NoError(t, validation.IsValidFilePermissions(0600))
	assert.NoError(t, validation.IsValidFilePermissions(0640))
	assert.Error(t, validation.IsValidFilePermissions(0644))
	assert.Error(t, validation.IsValidFilePermissions(0777))
}
