package voyagebed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxSearchResults caps SearchPlaces.
const MaxSearchResults = 10

// Match tiers, best first.
const (
	tierExact = iota + 1
	tierPrefix
	tierContains
)

// SearchPlaces returns up to MaxSearchResults places whose name contains
// query, case-insensitively. An empty query matches every place.
//
// When opposite is set, only places with at least one voyage connecting
// them, in role, to opposite in the other role are returned. Both sides
// match at any hierarchy level.
func (e *Engine) SearchPlaces(ctx context.Context, query string, role Role, opposite *Place) ([]Place, error) {
	q := e.db.WithContext(ctx).Model(&placeModel{})
	if opposite != nil {
		q = q.Where(connectedPlacesClause(role), map[string]any{"opposite": opposite.Value})
	}

	var rows []placeModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, queryErr("search places", err)
	}
	candidates, err := toPlaces(rows)
	if err != nil {
		return nil, queryErr("search places", err)
	}

	results := rankPlaces(query, candidates, MaxSearchResults)
	e.logger.Debug("search places",
		"query", query,
		"role", role,
		"constrained", opposite != nil,
		"candidates", len(candidates),
		"results", len(results))
	return results, nil
}

// connectedPlacesClause restricts places to those linked by a voyage to
// the @opposite value, with places.value on the role side.
func connectedPlacesClause(role Role) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM voyages v WHERE %s AND %s)",
		hierarchyPredicate("v", role.Opposite(), "@opposite"),
		hierarchyPredicate("v", role, "places.value"))
}

type rankedPlace struct {
	place   Place
	tier    int
	nameLen int
}

// rankPlaces keeps the places whose name contains query and orders them by
// tier, then shorter name, then store id.
func rankPlaces(query string, places []Place, limit int) []Place {
	needle := strings.ToLower(strings.TrimSpace(query))

	ranked := make([]rankedPlace, 0, len(places))
	for _, p := range places {
		tier := matchTier(needle, strings.ToLower(p.Name))
		if tier == 0 {
			continue
		}
		ranked = append(ranked, rankedPlace{place: p, tier: tier, nameLen: utf8.RuneCountInString(p.Name)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.nameLen != b.nameLen {
			return a.nameLen < b.nameLen
		}
		return a.place.ID < b.place.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Place, len(ranked))
	for i, r := range ranked {
		out[i] = r.place
	}
	return out
}

// matchTier returns 0 when name does not contain needle. An empty needle
// is a prefix of everything.
func matchTier(needle, name string) int {
	switch {
	case needle == name:
		return tierExact
	case strings.HasPrefix(name, needle):
		return tierPrefix
	case strings.Contains(name, needle):
		return tierContains
	}
	return 0
}

// PlaceByName returns the place called name, compared case-insensitively.
// An empty placeType matches any level. When several places share the name
// the one stored first wins, so broad regions precede regions and ports.
func (e *Engine) PlaceByName(ctx context.Context, name string, placeType PlaceType) (Place, error) {
	var rows []placeModel
	q := e.db.WithContext(ctx)
	if placeType != "" {
		q = q.Where("place_type = ?", string(placeType))
	}
	// sqlite lower() only folds ASCII, so names are compared in Go.
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return Place{}, queryErr("place by name", err)
	}
	name = strings.TrimSpace(name)
	for _, m := range rows {
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		p, err := m.toPlace()
		if err != nil {
			return Place{}, queryErr("place by name", err)
		}
		return p, nil
	}
	return Place{}, fmt.Errorf("%s %q: %w", placeTypeLabel(placeType), name, ErrPlaceNotFound)
}

func placeTypeLabel(t PlaceType) string {
	if t == "" {
		return "place"
	}
	return string(t)
}
