package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	domkb "github.com/kailas-cloud/voicegate/internal/domain/kb"
)

// Field weights for term counting.
const (
	titleWeight   = 3
	tagsWeight    = 2
	contentWeight = 1
)

const (
	minTokenLen   = 2
	snippetRadius = 80
	ellipsis      = "…"
)

// Tokenize lower-cases q and returns its runs of letters and digits
// that are at least two characters long.
func Tokenize(q string) []string {
	fields := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// indexedDoc caches the lower-cased searchable fields of a document.
type indexedDoc struct {
	doc     domkb.Document
	title   string
	tags    string
	content string
}

func indexDocuments(docs []domkb.Document) []indexedDoc {
	out := make([]indexedDoc, len(docs))
	for i := range docs {
		out[i] = indexedDoc{
			doc:     docs[i],
			title:   strings.ToLower(docs[i].Title()),
			tags:    strings.ToLower(docs[i].TagText()),
			content: strings.ToLower(docs[i].Content()),
		}
	}
	return out
}

// score sums weighted substring counts of every token. Tokens must be lower-case.
// Matching is literal: a token inside a longer word still counts.
func (d *indexedDoc) score(tokens []string) int {
	total := 0
	for _, t := range tokens {
		total += titleWeight * strings.Count(d.title, t)
		total += tagsWeight * strings.Count(d.tags, t)
		total += contentWeight * strings.Count(d.content, t)
	}
	return total
}

// rank scores every document and returns up to limit positive hits,
// highest score first, ties in collection order.
func rank(docs []indexedDoc, tokens []string, limit int) []domkb.Result {
	if len(tokens) == 0 {
		return nil
	}

	type hit struct {
		doc   *indexedDoc
		score int
	}
	hits := make([]hit, 0, len(docs))
	for i := range docs {
		if s := docs[i].score(tokens); s > 0 {
			hits = append(hits, hit{doc: &docs[i], score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]domkb.Result, len(hits))
	for i, h := range hits {
		results[i] = domkb.NewResult(&h.doc.doc, h.score, Snippet(h.doc.doc.Content(), tokens))
	}
	return results
}

// Snippet returns up to snippetRadius characters on each side of the earliest
// token occurrence in content, with ellipsis markers where the excerpt is cut.
// Without any occurrence it returns the head of content.
func Snippet(content string, tokens []string) string {
	if content == "" {
		return ""
	}

	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	idx := -1
	for _, t := range tokens {
		if i := indexRunes(lower, []rune(strings.ToLower(t))); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}

	if idx < 0 {
		if len(runes) > 2*snippetRadius {
			return string(runes[:2*snippetRadius]) + ellipsis
		}
		return content
	}

	start := max(0, idx-snippetRadius)
	end := min(len(runes), idx+snippetRadius)

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
