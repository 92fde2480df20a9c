package kb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
)

// documentDTO is the on-disk shape of a knowledge base entry.
type documentDTO struct {
	ID      flexString `json:"id"`
	Title   string     `json:"title"`
	URL     string     `json:"url"`
	Tags    tagList    `json:"tags"`
	Content string     `json:"content"`
}

func (d documentDTO) toDomain() domkb.Document {
	return domkb.NewDocument(string(d.ID), d.Title, d.URL, d.Tags, d.Content)
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// tagList accepts a JSON array of strings or a single string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		if s == "" {
			*t = nil
			return nil
		}
		*t = tagList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags must be a string or array of strings: %w", err)
	}
	*t = list
	return nil
}
