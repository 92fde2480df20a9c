package kb

// Result is a single scored search hit.
type Result struct {
	id      string
	title   string
	url     string
	score   int
	snippet string
	tags    []string
}

// NewResult creates a search result for a document.
func NewResult(doc *Document, score int, snippet string) Result {
	return Result{
		id: doc.id, title: doc.title, url: doc.url,
		score: score, snippet: snippet, tags: doc.tags,
	}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Title returns the document title.
func (r *Result) Title() string { return r.title }

// URL returns the document URL.
func (r *Result) URL() string { return r.url }

// Score returns the weighted term count.
func (r *Result) Score() int { return r.score }

// Snippet returns the context excerpt around the first match.
func (r *Result) Snippet() string { return r.snippet }

// Tags returns the document tags.
func (r *Result) Tags() []string { return r.tags }
