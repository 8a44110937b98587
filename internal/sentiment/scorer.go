// Package sentiment scores short English texts (headlines, summaries) with a
// fixed valence lexicon. The scoring rules follow the VADER approach: word
// valences adjusted by preceding negations and intensity boosters, then
// normalized to a compound score in [-1, 1].
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// normalization constant from the VADER paper
const alpha = 15.0

// negationScalar flips and dampens a valence preceded by a negation
const negationScalar = -0.74

// lookback is how many preceding tokens are inspected for negations/boosters
const lookback = 3

// Scores holds the result of scoring one text. Compound is the headline
// number in [-1, 1]; Positive, Negative and Neutral are proportions that
// sum to approximately 1.
type Scores struct {
	Compound float64
	Positive float64
	Negative float64
	Neutral  float64
}

// Score rates a text. An empty text or one with no lexicon hits scores
// fully neutral.
func Score(text string) Scores {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Scores{Neutral: 1}
	}

	var valences []float64
	for i, tok := range tokens {
		v, ok := lexicon[tok]
		if !ok {
			valences = append(valences, 0)
			continue
		}
		v = applyContext(v, tokens, i)
		valences = append(valences, v)
	}

	var sum, posSum, negSum float64
	neuCount := 0
	for _, v := range valences {
		sum += v
		switch {
		case v > 0:
			posSum += v + 1
		case v < 0:
			negSum += math.Abs(v) + 1
		default:
			neuCount++
		}
	}

	compound := sum / math.Sqrt(sum*sum+alpha)

	total := posSum + negSum + float64(neuCount)
	if total == 0 {
		return Scores{Compound: round4(compound), Neutral: 1}
	}
	return Scores{
		Compound: round4(compound),
		Positive: round4(posSum / total),
		Negative: round4(negSum / total),
		Neutral:  round4(float64(neuCount) / total),
	}
}

// applyContext adjusts a valence for negations and boosters among the
// preceding tokens.
func applyContext(v float64, tokens []string, idx int) float64 {
	for back := 1; back <= lookback; back++ {
		j := idx - back
		if j < 0 {
			break
		}
		prev := tokens[j]
		if negations[prev] {
			v *= negationScalar
			continue
		}
		if b, ok := boosters[prev]; ok {
			// boosters further away contribute less
			scale := 1.0 - 0.05*float64(back-1)
			if v < 0 {
				v -= b * scale
			} else {
				v += b * scale
			}
		}
	}
	return v
}

// tokenize lowercases and splits on non-letter runes, keeping apostrophes so
// contractions like "won't" survive as single tokens.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
