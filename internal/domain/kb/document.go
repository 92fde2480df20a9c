// Package kb holds knowledge base documents and scored search hits.
package kb

import "strings"

// Document is an immutable knowledge base entry.
type Document struct {
	id      string
	title   string
	url     string
	tags    []string
	content string
}

// NewDocument creates a document. Tags are copied.
func NewDocument(id, title, url string, tags []string, content string) Document {
	t := make([]string, len(tags))
	copy(t, tags)
	return Document{id: id, title: title, url: url, tags: t, content: content}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// URL returns the source URL.
func (d *Document) URL() string { return d.url }

// Tags returns the ordered tag list.
func (d *Document) Tags() []string { return d.tags }

// Content returns the document body.
func (d *Document) Content() string { return d.content }

// TagText returns the tags joined by a single space.
func (d *Document) TagText() string { return strings.Join(d.tags, " ") }

// Collection is the loaded document set, in file order.
type Collection struct {
	docs []Document
}

// NewCollection creates a collection preserving document order.
func NewCollection(docs []Document) *Collection {
	return &Collection{docs: docs}
}

// Empty returns a collection with no documents.
func Empty() *Collection { return &Collection{} }

// Documents returns the documents in file order.
func (c *Collection) Documents() []Document {
	if c == nil {
		return nil
	}
	return c.docs
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}
