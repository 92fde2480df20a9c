package emotion

import "strings"

// Default Japanese lexicons.
var (
	positiveTerms = []string{
		"嬉しい", "うれしい", "楽しい", "たのしい", "最高", "ありがとう", "良い", "いいね",
		"好き", "素晴らしい", "助かる", "幸せ", "よかった", "大丈夫",
	}
	negativeTerms = []string{
		"悲しい", "かなしい", "つらい", "辛い", "最悪", "嫌い", "疲れた", "怒",
		"むかつく", "困った", "不安", "だめ", "ダメ", "イライラ",
	}
)

// LexiconScorer counts non-overlapping occurrences of fixed terms.
type LexiconScorer struct {
	positive []string
	negative []string
}

// NewLexiconScorer creates a scorer with the given term lists.
func NewLexiconScorer(positive, negative []string) *LexiconScorer {
	return &LexiconScorer{positive: positive, negative: negative}
}

// DefaultLexicon returns the built-in Japanese lexicon scorer.
func DefaultLexicon() *LexiconScorer {
	return NewLexiconScorer(positiveTerms, negativeTerms)
}

// Score implements SentimentScorer.
func (l *LexiconScorer) Score(text string) (positive, negative int) {
	if text == "" {
		return 0, 0
	}
	return countTerms(text, l.positive), countTerms(text, l.negative)
}

func countTerms(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if t != "" {
			n += strings.Count(text, t)
		}
	}
	return n
}
