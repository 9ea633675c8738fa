// Package retrieval ranks extracted policy sections against a free-text
// query using a lexical scorer: weighted token hits in titles and content,
// an exact-phrase bonus and a proximity bonus for multi-token queries.
// It is deliberately index-free; corpora are small and re-extracted per
// request, so a full scan per query is cheap and easy to explain.
package retrieval

import (
	"math"
	"sort"
	"strings"

	"github.com/fabfab/policy-qa/doc"
)

const (
	// Empirically tuned. Tests pin the ranking order these produce;
	// change them only together with those expectations.
	titleTokenPoints   = 10.0
	exactTitleBonus    = 30.0
	exactContentBonus  = 20.0
	contentPointsBase  = 5.0
	contentPointsCap   = 15.0
	structuredBoost    = 1.2
	minScore           = 5.0
	maxResults         = 5
	minTokenLen        = 3
	domainTokenWeight  = 2.0
	defaultTokenWeight = 1.0
)

// domainKeywords get double weight: they are the vocabulary users reach
// for when asking about institutional policy.
var domainKeywords = map[string]struct{}{
	"policy": {}, "procedure": {}, "regulation": {}, "rule": {},
	"guideline": {}, "requirement": {}, "mandatory": {}, "prohibited": {},
	"permission": {}, "approval": {}, "student": {}, "faculty": {},
	"staff": {}, "admin": {}, "academic": {}, "conduct": {}, "discipline": {},
}

// ScoredSection pairs a section with its relevance score for one query.
type ScoredSection struct {
	Section doc.Section
	Score   float64
}

// Rank scores every section against the query and returns the most
// relevant ones, best first. At most five sections are returned and
// only sections scoring above the relevance floor are kept. Ties keep
// their input order (stable sort). Rank is a pure function.
func Rank(query string, sections []doc.Section) []doc.Section {
	scored := RankScored(query, sections)
	result := make([]doc.Section, 0, len(scored))
	for _, s := range scored {
		result = append(result, s.Section)
	}
	return result
}

// RankScored is Rank with the computed scores exposed.
func RankScored(query string, sections []doc.Section) []ScoredSection {
	queryNorm := normalize(query)
	tokens := tokenize(queryNorm)
	if len(tokens) == 0 {
		return nil
	}

	scored := make([]ScoredSection, 0, len(sections))
	for _, section := range sections {
		score := scoreSection(queryNorm, tokens, section)
		if score > minScore {
			scored = append(scored, ScoredSection{Section: section, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

func scoreSection(queryNorm string, tokens []string, section doc.Section) float64 {
	titleNorm := normalize(section.Title)
	contentNorm := normalize(section.Content)

	score := 0.0
	for _, token := range tokens {
		weight := tokenWeight(token)

		if strings.Contains(titleNorm, token) {
			score += titleTokenPoints * weight
		}

		if count := countWordOccurrences(contentNorm, token); count > 0 {
			points := contentPointsBase + 2*math.Log2(float64(count)+1)
			if points > contentPointsCap {
				points = contentPointsCap
			}
			score += points * weight
		}
	}

	if strings.Contains(titleNorm, queryNorm) {
		score += exactTitleBonus
	}

	// Sections carrying both an article number and a section id come
	// from a structured part of the document and are weighted up.
	if section.ArticleNumber != "" && section.SectionID != "" {
		score *= structuredBoost
	}

	if strings.Contains(contentNorm, queryNorm) {
		score += exactContentBonus
	}

	if len(tokens) > 1 {
		score += proximityBonus(contentNorm, tokens)
	}

	return score
}

// proximityBonus rewards sections where all query tokens occur close
// together. It finds the minimal character window spanning at least one
// occurrence of every distinct token by sliding over the merged, sorted
// occurrence positions. A token that never occurs yields no bonus.
func proximityBonus(content string, tokens []string) float64 {
	distinct := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		distinct = append(distinct, token)
	}

	type occurrence struct {
		pos   int
		token int
	}

	var occurrences []occurrence
	for idx, token := range distinct {
		positions := wordOccurrencePositions(content, token)
		if len(positions) == 0 {
			return 0
		}
		for _, pos := range positions {
			occurrences = append(occurrences, occurrence{pos: pos, token: idx})
		}
	}

	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].pos < occurrences[j].pos
	})

	counts := make([]int, len(distinct))
	covered := 0
	best := math.MaxInt
	left := 0
	for right := 0; right < len(occurrences); right++ {
		if counts[occurrences[right].token] == 0 {
			covered++
		}
		counts[occurrences[right].token]++

		for covered == len(distinct) {
			span := occurrences[right].pos + len(distinct[occurrences[right].token]) - occurrences[left].pos
			if span < best {
				best = span
			}
			counts[occurrences[left].token]--
			if counts[occurrences[left].token] == 0 {
				covered--
			}
			left++
		}
	}

	switch {
	case best < 100:
		return 15
	case best < 300:
		return 10
	case best < 600:
		return 5
	default:
		return 0
	}
}

// normalize lowercases the text and keeps only ASCII letters and
// digits; every other rune, accented letters included, acts as a
// separator, with runs of separators collapsed to a single space.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenWeight(token string) float64 {
	if _, ok := domainKeywords[token]; ok {
		return domainTokenWeight
	}
	return defaultTokenWeight
}

func countWordOccurrences(content, token string) int {
	return len(wordOccurrencePositions(content, token))
}

// wordOccurrencePositions returns the start index of every whole-word
// occurrence of token in content. Both inputs must already be normalized,
// so word boundaries are exactly the space-delimited field edges.
func wordOccurrencePositions(content, token string) []int {
	if token == "" {
		return nil
	}
	var positions []int
	offset := 0
	for {
		idx := strings.Index(content[offset:], token)
		if idx < 0 {
			return positions
		}
		start := offset + idx
		end := start + len(token)
		leftOK := start == 0 || content[start-1] == ' '
		rightOK := end == len(content) || content[end] == ' '
		if leftOK && rightOK {
			positions = append(positions, start)
		}
		offset = start + 1
	}
}
