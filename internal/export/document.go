package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

const (
	// MaxDocumentBytes bounds an uploaded document.
	MaxDocumentBytes = 8 << 20

	FileExtension   = ".veo3.json"
	defaultFileName = "veo3_workspace"
	maxNameLen      = 120
)

// FileName turns a workspace name into a safe export file name.
func FileName(name string) string {
	base := SanitizeName(strings.TrimSuffix(name, FileExtension), maxNameLen)
	if base == "" {
		base = defaultFileName
	}
	return base + FileExtension
}

// Encode writes doc as indented JSON, stamping the current version.
func Encode(w io.Writer, doc workspace.Document) error {
	doc.Version = workspace.DocumentVersion
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads a document. Unversioned documents are accepted as version 1;
// newer versions are rejected.
func Decode(r io.Reader) (workspace.Document, error) {
	var doc workspace.Document
	dec := json.NewDecoder(io.LimitReader(r, MaxDocumentBytes))
	if err := dec.Decode(&doc); err != nil {
		return workspace.Document{}, fmt.Errorf("%w: %v", workspace.ErrInvalidDocument, err)
	}
	if doc.Version == 0 {
		doc.Version = workspace.DocumentVersion
	}
	if doc.Version != workspace.DocumentVersion {
		return workspace.Document{}, fmt.Errorf("%w: unsupported version %d", workspace.ErrInvalidDocument, doc.Version)
	}
	return doc, nil
}

// WriteFile writes doc into dir and returns the path written.
func WriteFile(dir, name string, doc workspace.Document) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Encode(f, doc); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
