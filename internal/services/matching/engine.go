package matching

import (
	"sort"
	"strings"
	"unicode"

	"payout-invoice-backend/internal/models"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName lower-cases a free-text name, strips accents and punctuation and
// collapses whitespace, so "Café  Rio's" and "cafe rios" compare equal.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity is the indel-normalized edit ratio in [0, 1] of two already
// normalized names. Substitutions cost two, so the ratio is
// (len(a)+len(b)-distance) / (len(a)+len(b)).
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

// Matcher pairs unmatched names from two sides for human review.
type Matcher struct {
	threshold      float64
	maxComparisons int
	logger         *zap.Logger
}

func NewMatcher(threshold float64, maxComparisons int, logger *zap.Logger) *Matcher {
	return &Matcher{threshold: threshold, maxComparisons: maxComparisons, logger: logger}
}

type candidate struct {
	raw, name string
}

// Candidates compares every left name with every right name and returns the pairs
// scoring at or above the threshold, best first. Nothing is resolved; the caller
// only reports them. When the pair count would exceed the comparison cap, names are
// compared only within buckets sharing a first character.
func (m *Matcher) Candidates(left, right []string) []models.PotentialMatch {
	l, r := prepare(left), prepare(right)
	if len(l) == 0 || len(r) == 0 {
		return []models.PotentialMatch{}
	}

	pairs := len(l) * len(r)
	var matches []models.PotentialMatch
	if m.maxComparisons > 0 && pairs > m.maxComparisons {
		m.logger.Warn("fuzzy comparison bounded by first-character buckets",
			zap.Int("left", len(l)),
			zap.Int("right", len(r)),
			zap.Int("pairs", pairs),
			zap.Int("max_comparisons", m.maxComparisons),
		)
		lb, rb := bucket(l), bucket(r)
		for key, group := range lb {
			matches = append(matches, m.compare(group, rb[key])...)
		}
	} else {
		matches = m.compare(l, r)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].InvoiceName != matches[j].InvoiceName {
			return matches[i].InvoiceName < matches[j].InvoiceName
		}
		return matches[i].MasterName < matches[j].MasterName
	})
	if matches == nil {
		matches = []models.PotentialMatch{}
	}
	return matches
}

func (m *Matcher) compare(left, right []candidate) []models.PotentialMatch {
	var out []models.PotentialMatch
	for _, a := range left {
		for _, b := range right {
			score := Similarity(a.name, b.name)
			if score >= m.threshold {
				out = append(out, models.PotentialMatch{
					InvoiceName: a.raw,
					MasterName:  b.raw,
					Similarity:  score,
				})
			}
		}
	}
	return out
}

// prepare normalizes and de-duplicates names, dropping ones that normalize to nothing.
func prepare(names []string) []candidate {
	seen := make(map[string]struct{}, len(names))
	out := make([]candidate, 0, len(names))
	for _, raw := range names {
		n := NormalizeName(raw)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, candidate{raw: raw, name: n})
	}
	return out
}

func bucket(cs []candidate) map[rune][]candidate {
	out := map[rune][]candidate{}
	for _, c := range cs {
		first := []rune(c.name)[0]
		out[first] = append(out[first], c)
	}
	return out
}
