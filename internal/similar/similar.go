package similar

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"triagekit/internal/domain"
)

// Match is a related incident with its cosine similarity score.
type Match struct {
	Incident domain.Incident `json:"incident"`
	Score    float64         `json:"score"`
}

const (
	// scoreThreshold filters out weakly related incidents.
	scoreThreshold = 0.15
	maxMatches     = 2
)

// Find ranks the corpus against the target incident by TF-IDF cosine
// similarity over title, description, category, subcategory, and tags,
// returning the closest matches at or above the threshold, scores rounded
// to three decimals.
func Find(target domain.Incident, corpus []domain.Incident) []Match {
	docs := make([][]string, 0, len(corpus)+1)
	docs = append(docs, tokenize(text(target)))
	others := make([]domain.Incident, 0, len(corpus))
	for _, inc := range corpus {
		if inc.ID == target.ID {
			continue
		}
		others = append(others, inc)
		docs = append(docs, tokenize(text(inc)))
	}
	if len(others) == 0 {
		return []Match{}
	}

	idf := inverseDocFrequency(docs)
	vectors := make([]map[string]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = tfidf(doc, idf)
	}

	matches := make([]Match, 0, maxMatches)
	for i, inc := range others {
		score := cosine(vectors[0], vectors[i+1])
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, Match{Incident: inc, Score: round3(score)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

func text(inc domain.Incident) string {
	parts := []string{inc.Title, inc.Description, inc.Category, inc.Subcategory}
	parts = append(parts, inc.Tags...)
	return strings.Join(parts, " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func inverseDocFrequency(docs [][]string) map[string]float64 {
	counts := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, tok := range doc {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			counts[tok]++
		}
	}
	idf := make(map[string]float64, len(counts))
	n := float64(len(docs))
	for tok, df := range counts {
		idf[tok] = math.Log((1+n)/(1+float64(df))) + 1
	}
	return idf
}

func tfidf(doc []string, idf map[string]float64) map[string]float64 {
	if len(doc) == 0 {
		return map[string]float64{}
	}
	tf := map[string]float64{}
	for _, tok := range doc {
		tf[tok]++
	}
	vec := make(map[string]float64, len(tf))
	total := float64(len(doc))
	for tok, count := range tf {
		vec[tok] = count / total * idf[tok]
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for tok, va := range a {
		normA += va * va
		if vb, ok := b[tok]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
