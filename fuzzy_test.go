package voyagebed

import (
	"context"
	"strings"
	"testing"

	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSorensenDice(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"a", "a", 1},
		{"a", "b", 0},
		{"london", "london", 1},
		{"ab", "abc", 2.0 / 3.0},
		{"night", "nacht", 0.25},
		{"french republic", "republic of france", 2.0 * 9 / 28},
		{"aaaa", "aa", 0.5},
		{"port royal", "portroyal", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, sorensenDice(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, sorensenDice(tt.b, tt.a), 1e-9, "not symmetric")
		})
	}
}

func TestDamerauLevenshteinBounds(t *testing.T) {
	pairs := [][2]string{
		{"londn", "london"},
		{"lnodon", "london"},
		{"kingstn", "kingston"},
		{"salvdor", "salvador"},
		{"", "lagos"},
	}
	for _, p := range pairs {
		dl := matchr.DamerauLevenshtein(p[0], p[1])
		lev := levenshtein.ComputeDistance(p[0], p[1])
		assert.LessOrEqual(t, dl, lev, "%q/%q", p[0], p[1])
	}

	// Adjacent transposition costs one edit.
	assert.Equal(t, 1, matchr.DamerauLevenshtein("lnodon", "london"))
	assert.Equal(t, 2, levenshtein.ComputeDistance("lnodon", "london"))
}

var testPorts = []PortCandidate{
	{Value: 10433, Name: "London", SpecificRegion: "England", BroadRegion: "Europe"},
	{Value: 10432, Name: "Liverpool", SpecificRegion: "England", BroadRegion: "Europe"},
	{Value: 34211, Name: "Kingston", SpecificRegion: "Jamaica", BroadRegion: "Caribbean"},
	{Value: 34212, Name: "Port Royal", SpecificRegion: "Jamaica", BroadRegion: "Caribbean"},
	{Value: 60503, Name: "Lagos", SpecificRegion: "Bight of Benin", BroadRegion: "Africa"},
	{Value: 60506, Name: "Ouidah", SpecificRegion: "Bight of Benin", BroadRegion: "Africa"},
	{Value: 60206, Name: "Delagoa", SpecificRegion: "Southeast Africa and Indian Ocean islands", BroadRegion: "Africa"},
}

func TestRankPorts(t *testing.T) {
	tests := []struct {
		query     string
		wantFirst string
	}{
		{"londn", "London"},
		{"LONDN", "London"},
		{"liverpol", "Liverpool"},
		{"kings", "Kingston"},
		{"lagos", "Lagos"},
		{"royal", "Port Royal"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := RankPorts(tt.query, testPorts)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantFirst, got[0].Name)
			assert.LessOrEqual(t, len(got), MaxFuzzyResults)
		})
	}
}

func TestRankPortsRegionPrefix(t *testing.T) {
	got := RankPorts("jamaica", testPorts)
	require.GreaterOrEqual(t, len(got), 2)
	assert.ElementsMatch(t, []string{"Kingston", "Port Royal"}, candidateNames(got[:2]))
}

func TestRankPortsGate(t *testing.T) {
	queries := []string{"", "x", "londn", "jamaica", "caribbean", "qqqqqqqqqqqqqqqq"}
	for _, q := range queries {
		for _, p := range RankPorts(q, testPorts) {
			lq := strings.ToLower(q)
			passes := matchr.DamerauLevenshtein(lq, strings.ToLower(p.Name)) <= maxNameDistance ||
				matchr.DamerauLevenshtein(lq, strings.ToLower(p.SpecificRegion)) <= maxRegionDistance ||
				matchr.DamerauLevenshtein(lq, strings.ToLower(p.BroadRegion)) <= maxBroadRegionDistance
			assert.True(t, passes, "RankPorts(%q) returned %s outside the gate", q, p.Name)
		}
	}

	assert.Empty(t, RankPorts("qqqqqqqqqqqqqqqq", testPorts))
}

func TestRankPortsStableTies(t *testing.T) {
	twins := []PortCandidate{
		{Value: 1, Name: "Alpha", SpecificRegion: "Same", BroadRegion: "Same"},
		{Value: 2, Name: "Alpha", SpecificRegion: "Same", BroadRegion: "Same"},
		{Value: 3, Name: "Alpha", SpecificRegion: "Same", BroadRegion: "Same"},
	}
	got := RankPorts("alpa", twins)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, i+1, p.Value)
	}
}

func TestRankPortsByName(t *testing.T) {
	got := RankPortsByName("londn", testPorts)
	require.NotEmpty(t, got)
	assert.Equal(t, "London", got[0].Name)
	assert.LessOrEqual(t, len(got), MaxSimpleFuzzyResults)

	for _, p := range got {
		assert.LessOrEqual(t, matchr.DamerauLevenshtein("londn", strings.ToLower(p.Name)), maxNameDistance)
	}

	// Regions play no part.
	got = RankPortsByName("jamaica", testPorts)
	for _, p := range got {
		assert.NotEqual(t, "Jamaica", p.SpecificRegion, "matched %s on its region", p.Name)
	}
}

func TestFuzzySearch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		query     string
		wantFirst string
	}{
		{"londn", "London"},
		{"kings", "Kingston"},
		{"kingstn", "Kingston"},
		{"bristl", "Bristol"},
		{"salvdor", "Salvador"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := e.FuzzySearch(ctx, tt.query)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantFirst, got[0].Name)
			assert.LessOrEqual(t, len(got), MaxFuzzyResults)
		})
	}

	got, err := e.FuzzySearch(ctx, "jamaica")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 2)
	assert.ElementsMatch(t, []string{"Kingston", "Port Royal"}, candidateNames(got[:2]))
}

func TestSimpleFuzzySearch(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.SimpleFuzzySearch(context.Background(), "bristl")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bristol", "Ouidah"}, candidateNames(got))

	got, err = e.SimpleFuzzySearch(context.Background(), "lagos")
	require.NoError(t, err)
	require.Len(t, got, MaxSimpleFuzzyResults)
	assert.Equal(t, "Lagos", got[0].Name)
}
