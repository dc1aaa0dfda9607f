package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Joe's Pizza", "joes pizza"},
		{"  CAFÉ   Rio  ", "cafe rio"},
		{"Taco-Bell #12", "tacobell 12"},
		{"Crème Brûlée Co.", "creme brulee co"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.Equal(t, Similarity("kitten", "sitting"), Similarity("sitting", "kitten"))
}

func TestCandidates_ThresholdIsInclusive(t *testing.T) {
	at := NewMatcher(0.75, 0, zap.NewNop()).Candidates([]string{"abcd"}, []string{"abce"})
	require.Len(t, at, 1)
	assert.Equal(t, "abcd", at[0].InvoiceName)
	assert.Equal(t, "abce", at[0].MasterName)
	assert.InDelta(t, 0.75, at[0].Similarity, 1e-9)

	above := NewMatcher(0.76, 0, zap.NewNop()).Candidates([]string{"abcd"}, []string{"abce"})
	assert.Empty(t, above)
}

func TestCandidates_SortedBestFirst(t *testing.T) {
	m := NewMatcher(0.7, 0, zap.NewNop())

	got := m.Candidates(
		[]string{"Burger Barn", "Sushi Place"},
		[]string{"Burger Barns", "Sushi Palace", "Noodle House"},
	)

	require.Len(t, got, 2)
	assert.Equal(t, "Burger Barn", got[0].InvoiceName)
	assert.Equal(t, "Burger Barns", got[0].MasterName)
	assert.Equal(t, "Sushi Palace", got[1].MasterName)
	assert.GreaterOrEqual(t, got[0].Similarity, got[1].Similarity)
}

func TestCandidates_EmptySides(t *testing.T) {
	m := NewMatcher(0.85, 0, zap.NewNop())
	assert.Empty(t, m.Candidates(nil, []string{"x"}))
	assert.Empty(t, m.Candidates([]string{"  "}, []string{"x"}))
	assert.NotNil(t, m.Candidates(nil, nil))
}

func TestCandidates_BucketsAboveComparisonCap(t *testing.T) {
	m := NewMatcher(0.5, 1, zap.NewNop())

	got := m.Candidates(
		[]string{"alpha grill", "beta grill"},
		[]string{"alpha grills", "zeta grill"},
	)

	// "beta grill" and "zeta grill" land in different buckets and are never compared
	require.Len(t, got, 1)
	assert.Equal(t, "alpha grill", got[0].InvoiceName)
	assert.Equal(t, "alpha grills", got[0].MasterName)
}
