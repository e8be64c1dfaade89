// Package validation checks CLI and configuration inputs before a run starts.
package validation

import (
	"fmt"
	"os"
	"strings"
)

// IsValidPath checks if a given path exists and is a file or directory.
func IsValidPath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is neither a file nor a directory", path)
	}
	return nil
}

// IsValidOutputFormat checks if the given report format is supported.
func IsValidOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "xml":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s. Supported formats are 'json', 'xml'", format)
	}
}

// IsValidDisplayFormat checks the single-document output format.
func IsValidDisplayFormat(format string) error {
	switch strings.ToLower(format) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unsupported display format: %s. Supported formats are 'text', 'json'", format)
	}
}

// IsValidFilePermissions rejects modes that grant any access to others.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. recommended 0600 or 0640", mode.String())
	}
	return nil
}
