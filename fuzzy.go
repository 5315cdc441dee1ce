package voyagebed

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	// MaxFuzzyResults caps FuzzySearch.
	MaxFuzzyResults = 5
	// MaxSimpleFuzzyResults caps SimpleFuzzySearch.
	MaxSimpleFuzzyResults = 4
)

// Field weights, applied to both the distance and the similarity aggregate.
const (
	nameWeight        = 0.7
	regionWeight      = 0.2
	broadRegionWeight = 0.1
)

// Bonuses are subtracted from the score and stack.
const (
	namePrefixBonus        = 1000.0
	nameContainsBonus      = 500.0
	regionPrefixBonus      = 100.0
	broadRegionPrefixBonus = 50.0
)

// Inclusion gate: a port is ranked only if one of its fields is this close.
const (
	maxNameDistance        = 5
	maxRegionDistance      = 3
	maxBroadRegionDistance = 3
)

// FuzzySearch ranks every port against query by name, region and broad
// region, returning at most MaxFuzzyResults.
func (e *Engine) FuzzySearch(ctx context.Context, query string) ([]PortCandidate, error) {
	rows, err := e.portCandidates(ctx)
	if err != nil {
		return nil, err
	}
	results := RankPorts(query, rows)
	e.logger.Debug("fuzzy search", "query", query, "ports", len(rows), "results", len(results))
	return results, nil
}

// SimpleFuzzySearch ranks every port against query by name edit distance
// only, returning at most MaxSimpleFuzzyResults.
func (e *Engine) SimpleFuzzySearch(ctx context.Context, query string) ([]PortCandidate, error) {
	rows, err := e.portCandidates(ctx)
	if err != nil {
		return nil, err
	}
	results := RankPortsByName(query, rows)
	e.logger.Debug("simple fuzzy search", "query", query, "ports", len(rows), "results", len(results))
	return results, nil
}

// portCandidates reads all ports in store order.
func (e *Engine) portCandidates(ctx context.Context) ([]PortCandidate, error) {
	var rows []placeModel
	if err := e.db.WithContext(ctx).
		Where("place_type = ?", string(PlaceTypePort)).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, queryErr("read ports", err)
	}

	out := make([]PortCandidate, 0, len(rows))
	for _, m := range rows {
		p, err := m.toPlace()
		if err != nil {
			return nil, queryErr("read ports", err)
		}
		c, err := PortCandidateFromPlace(p)
		if err != nil {
			return nil, queryErr("read ports", err)
		}
		out = append(out, c)
	}
	return out, nil
}

type scoredPort struct {
	port  PortCandidate
	score float64
}

// fieldMatch is the distance and similarity of the query to one field.
type fieldMatch struct {
	distance   int
	similarity float64
}

func matchField(query, field string) fieldMatch {
	return fieldMatch{
		distance:   matchr.DamerauLevenshtein(query, field),
		similarity: sorensenDice(query, field),
	}
}

// RankPorts orders rows by weighted edit distance and bigram similarity
// with prefix and substring bonuses. Rows outside the inclusion gate are
// dropped; equal scores keep row order.
func RankPorts(query string, rows []PortCandidate) []PortCandidate {
	q := strings.ToLower(query)

	var scored []scoredPort
	for _, row := range rows {
		name := strings.ToLower(row.Name)
		region := strings.ToLower(row.SpecificRegion)
		broad := strings.ToLower(row.BroadRegion)

		n, r, b := matchField(q, name), matchField(q, region), matchField(q, broad)
		if n.distance > maxNameDistance && r.distance > maxRegionDistance && b.distance > maxBroadRegionDistance {
			continue
		}

		distance := float64(n.distance)*nameWeight +
			float64(r.distance)*regionWeight +
			float64(b.distance)*broadRegionWeight
		dissimilarity := 1 - (n.similarity*nameWeight +
			r.similarity*regionWeight +
			b.similarity*broadRegionWeight)
		score := math.Sqrt(distance*distance + dissimilarity*dissimilarity)

		if strings.HasPrefix(name, q) {
			score -= namePrefixBonus
		}
		if strings.Contains(name, q) {
			score -= nameContainsBonus
		}
		if strings.HasPrefix(region, q) {
			score -= regionPrefixBonus
		}
		if strings.HasPrefix(broad, q) {
			score -= broadRegionPrefixBonus
		}
		scored = append(scored, scoredPort{port: row, score: score})
	}
	return topPorts(scored, MaxFuzzyResults)
}

// RankPortsByName orders rows by name edit distance alone. Rows further
// than the name gate are dropped; equal distances keep row order.
func RankPortsByName(query string, rows []PortCandidate) []PortCandidate {
	q := strings.ToLower(query)

	var scored []scoredPort
	for _, row := range rows {
		d := matchr.DamerauLevenshtein(q, strings.ToLower(row.Name))
		if d > maxNameDistance {
			continue
		}
		scored = append(scored, scoredPort{port: row, score: float64(d)})
	}
	return topPorts(scored, MaxSimpleFuzzyResults)
}

func topPorts(scored []scoredPort, limit int) []PortCandidate {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score < scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]PortCandidate, len(scored))
	for i, s := range scored {
		out[i] = s.port
	}
	return out
}

// sorensenDice is the Sørensen–Dice coefficient over the multisets of
// character bigrams of a and b, ignoring whitespace. Identical strings score
// 1; a string with fewer than two characters shares no bigrams and scores 0.
func sorensenDice(a, b string) float64 {
	ra, rb := stripSpace(a), stripSpace(b)
	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	type bigram [2]rune
	counts := make(map[bigram]int, len(ra)-1)
	for i := 0; i+1 < len(ra); i++ {
		counts[bigram{ra[i], ra[i+1]}]++
	}

	shared := 0
	for i := 0; i+1 < len(rb); i++ {
		bg := bigram{rb[i], rb[i+1]}
		if counts[bg] > 0 {
			counts[bg]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ra)+len(rb)-2)
}

func stripSpace(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}
