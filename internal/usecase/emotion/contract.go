package emotion

// SentimentScorer counts positive and negative cues in a transcript.
type SentimentScorer interface {
	Score(text string) (positive, negative int)
}
