package embedding

import (
	"math"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

// functionWords are dropped by the corpus-fitted embedders. The list is kept
// short: pronouns and modal verbs carry signal in short messages.
var functionWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "from": true, "as": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "it": true, "its": true, "this": true, "that": true,
}

// words lower-cases text and splits it into runs of letters and digits.
func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// contentWords is words without functionWords.
func contentWords(text string) []string {
	toks := words(text)
	out := toks[:0]
	for _, t := range toks {
		if !functionWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// bigrams joins adjacent tokens with a space.
func bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 1; i < len(tokens); i++ {
		out = append(out, tokens[i-1]+" "+tokens[i])
	}
	return out
}

// normalizeL2 scales vec to unit length. The zero vector stays zero.
func normalizeL2(vec []float64) []float32 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
