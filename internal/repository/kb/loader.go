// Package kb loads the static knowledge base file.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/voicegate/internal/domain"
	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
)

// DefaultPath is the knowledge base location relative to the working directory.
const DefaultPath = "kb/sample_kb.json"

// Load reads a JSON document array from path.
// Any failure wraps domain.ErrKnowledgeBase; callers decide whether to degrade.
func Load(path string) (*domkb.Collection, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrKnowledgeBase, path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON document array, preserving order.
func Parse(data []byte) (*domkb.Collection, error) {
	var dtos []documentDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", domain.ErrKnowledgeBase, err)
	}

	docs := make([]domkb.Document, len(dtos))
	for i, d := range dtos {
		docs[i] = d.toDomain()
	}
	return domkb.NewCollection(docs), nil
}

// LoadOrEmpty loads path and falls back to an empty collection on failure.
// The returned error is the load failure, if any, for logging.
func LoadOrEmpty(path string) (*domkb.Collection, error) {
	c, err := Load(path)
	if err != nil {
		return domkb.Empty(), err
	}
	return c, nil
}
