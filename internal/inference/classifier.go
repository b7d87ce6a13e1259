package inference

import (
	"context"
	"strings"
	"unicode"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// Classifier scores a text for sentiment. The real model runtime lives
// behind this interface; the service only depends on the contract.
type Classifier interface {
	Classify(ctx context.Context, text string) (label string, score float64, err error)
}

// LexiconClassifier is a deterministic wordlist scorer used as the built-in
// model. It keeps the service self-contained; a model-server client can be
// dropped in behind the same interface.
type LexiconClassifier struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

var positiveWords = []string{
	"amazing", "awesome", "beautiful", "best", "brilliant", "enjoy",
	"excellent", "fantastic", "glad", "good", "great", "happy", "like",
	"love", "loved", "nice", "perfect", "pleasant", "recommend", "wonderful",
}

var negativeWords = []string{
	"awful", "bad", "broken", "disappointing", "dislike", "hate", "hated",
	"horrible", "poor", "sad", "slow", "terrible", "ugly", "unusable",
	"useless", "waste", "worse", "worst", "wrong", "angry",
}

// NewLexiconClassifier builds the built-in classifier.
func NewLexiconClassifier() *LexiconClassifier {
	c := &LexiconClassifier{
		positive: make(map[string]struct{}, len(positiveWords)),
		negative: make(map[string]struct{}, len(negativeWords)),
	}
	for _, w := range positiveWords {
		c.positive[w] = struct{}{}
	}
	for _, w := range negativeWords {
		c.negative[w] = struct{}{}
	}
	return c
}

// Classify counts lexicon hits and maps the balance to a label. Texts with
// no hits, or an even balance, are neutral with score 0.5.
func (c *LexiconClassifier) Classify(_ context.Context, text string) (string, float64, error) {
	var pos, neg int
	for _, tok := range tokenize(text) {
		if _, ok := c.positive[tok]; ok {
			pos++
		}
		if _, ok := c.negative[tok]; ok {
			neg++
		}
	}

	total := pos + neg
	switch {
	case total == 0 || pos == neg:
		return LabelNeutral, 0.5, nil
	case pos > neg:
		return LabelPositive, float64(pos) / float64(total), nil
	default:
		return LabelNegative, float64(neg) / float64(total), nil
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
