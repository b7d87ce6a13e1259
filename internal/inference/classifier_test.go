package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconClassifier(t *testing.T) {
	c := NewLexiconClassifier()

	tests := []struct {
		name      string
		text      string
		wantLabel string
		wantScore float64
	}{
		{
			name:      "clearly positive",
			text:      "This product is great, I love it",
			wantLabel: LabelPositive,
			wantScore: 1.0,
		},
		{
			name:      "clearly negative",
			text:      "Terrible experience, the app is slow and broken",
			wantLabel: LabelNegative,
			wantScore: 1.0,
		},
		{
			name:      "no lexicon hits",
			text:      "The package arrived on Tuesday",
			wantLabel: LabelNeutral,
			wantScore: 0.5,
		},
		{
			name:      "balanced hits tie to neutral",
			text:      "great screen but terrible battery",
			wantLabel: LabelNeutral,
			wantScore: 0.5,
		},
		{
			name:      "majority wins",
			text:      "good camera, nice build, bad speaker",
			wantLabel: LabelPositive,
			wantScore: 2.0 / 3.0,
		},
		{
			name:      "case and punctuation ignored",
			text:      "LOVE!!! this... PERFECT?",
			wantLabel: LabelPositive,
			wantScore: 1.0,
		},
		{
			name:      "empty text",
			text:      "",
			wantLabel: LabelNeutral,
			wantScore: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
		})
	}
}

func TestLexiconClassifierDeterministic(t *testing.T) {
	c := NewLexiconClassifier()
	const text = "an awesome and wonderful day, nothing wrong at all"

	label1, score1, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		label, score, err := c.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, label1, label)
		assert.Equal(t, score1, score)
	}
}
