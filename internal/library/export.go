package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ytai/internal/domain"
)

// Kind selects the file format used by SaveFile.
type Kind string

const (
	KindText     Kind = "text"
	KindJSON     Kind = "json"
	KindMarkdown Kind = "markdown"
)

var extensions = map[Kind]string{
	KindText:     ".txt",
	KindJSON:     ".json",
	KindMarkdown: ".md",
}

// ExportAnswers renders saved answers as one markdown document, one section per question.
func ExportAnswers(entries []domain.LibraryEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("# %s\n\n%s\n\n---", e.Question, e.Text)
	}
	return strings.Join(parts, "\n\n")
}

// FileName turns a video title or question into a file name without directory separators.
func FileName(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(name)
}

// SaveFile writes content to dir/name plus the extension of kind and returns the path.
// dir is created when missing. JSON content is indented with four spaces; other
// kinds require content to be a string. Unknown kinds are saved as text.
func SaveFile(dir, name string, content any, kind Kind) (string, error) {
	ext, ok := extensions[kind]
	if !ok {
		kind, ext = KindText, extensions[KindText]
	}
	var data []byte
	if kind == KindJSON {
		b, err := json.MarshalIndent(content, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", name, err)
		}
		data = b
	} else {
		s, ok := content.(string)
		if !ok {
			return "", fmt.Errorf("%w: %s content must be a string, got %T", domain.ErrInvalidInput, kind, content)
		}
		data = []byte(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(name)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
