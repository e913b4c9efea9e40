// Package filex writes decrypted link files to disk.
package filex

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSubdDir creates dirName under the working directory if needed and
// returns its absolute path. An absolute dirName is used as is.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

var extensions = map[string]string{
	"application/fhir+json":         ".fhir.json",
	"application/smart-health-card": ".smart-health-card",
	"application/smart-api-access":  ".smart-api-access.json",
	"application/json":              ".json",
	"application/pdf":               ".pdf",
	"text/plain":                    ".txt",
}

// ExtensionFor picks a file extension for a content type. Parameters such as
// fhirVersion are ignored; unknown types get ".bin".
func ExtensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	if ext, ok := extensions[mt]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// WriteFile stores data as dir/base+ext, where ext follows contentType, and
// returns the full path. Existing files are not overwritten.
func WriteFile(dir, base, contentType string, data []byte) (string, error) {
	path := filepath.Join(dir, base+ExtensionFor(contentType))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
