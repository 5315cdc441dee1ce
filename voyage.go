package voyagebed

import (
	"fmt"
	"strings"
)

// Level is a tier of the gazetteer hierarchy.
type Level int

const (
	LevelPort Level = iota
	LevelRegion
	LevelBroadRegion
)

func (l Level) String() string {
	switch l {
	case LevelRegion:
		return "region"
	case LevelBroadRegion:
		return "broad region"
	}
	return "port"
}

// hierarchyLevel maps a level to the voyage column suffix holding it.
type hierarchyLevel struct {
	level  Level
	suffix string
}

// hierarchyLevels is the rule table for hierarchy fallback. The SQL
// predicates and Voyage.MatchLevel are both derived from it.
var hierarchyLevels = [...]hierarchyLevel{
	{level: LevelPort, suffix: "port"},
	{level: LevelRegion, suffix: "region"},
	{level: LevelBroadRegion, suffix: "broad_region"},
}

func (r Role) columnPrefix() string {
	if r == Destination {
		return "destination"
	}
	return "origin"
}

// hierarchyColumns returns the voyage columns for role, most specific first.
func hierarchyColumns(role Role) []string {
	cols := make([]string, 0, len(hierarchyLevels))
	for _, hl := range hierarchyLevels {
		cols = append(cols, role.columnPrefix()+"_"+hl.suffix)
	}
	return cols
}

// hierarchyPredicate renders "(alias.col1 = operand OR alias.col2 = operand ...)"
// over every hierarchy column of role.
func hierarchyPredicate(alias string, role Role, operand string) string {
	cols := hierarchyColumns(role)
	clauses := make([]string, len(cols))
	for i, col := range cols {
		clauses[i] = fmt.Sprintf("%s.%s = %s", alias, col, operand)
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// Voyage is a recorded voyage between two places, each side possibly known
// only at region or broad region level. Nil fields are unknown, not zero.
type Voyage struct {
	ID                     int64
	OriginPort             *int
	OriginRegion           *int
	OriginBroadRegion      *int
	DestinationPort        *int
	DestinationRegion      *int
	DestinationBroadRegion *int
	EmbarkDate             *string
	DisembarkDate          *string
	SlavesEmbarked         *int
	SlavesDisembarked      *int
}

// endpoint returns the role's fields in hierarchyLevels order.
func (v Voyage) endpoint(role Role) [len(hierarchyLevels)]*int {
	if role == Destination {
		return [...]*int{v.DestinationPort, v.DestinationRegion, v.DestinationBroadRegion}
	}
	return [...]*int{v.OriginPort, v.OriginRegion, v.OriginBroadRegion}
}

// MatchLevel reports the most specific level at which the role side of the
// voyage equals value.
func (v Voyage) MatchLevel(role Role, value int) (Level, bool) {
	fields := v.endpoint(role)
	for i, hl := range hierarchyLevels {
		if fields[i] != nil && *fields[i] == value {
			return hl.level, true
		}
	}
	return 0, false
}

// Connects reports whether the voyage links origin to destination under
// hierarchy fallback, each side evaluated independently.
func (v Voyage) Connects(origin, destination Place) bool {
	_, okOrigin := v.MatchLevel(Origin, origin.Value)
	_, okDest := v.MatchLevel(Destination, destination.Value)
	return okOrigin && okDest
}

// RouteAnalysis aggregates the voyages matching a route.
type RouteAnalysis struct {
	Origin             Place
	Destination        Place
	TotalVoyages       int64
	TotalEmbarked      int64
	TotalDisembarked   int64
	AverageJourneyDays float64
	MortalityRate      float64
}

// mortalityRate is 1 - disembarked/embarked, or 0 when nothing was embarked.
// Callers pass sums over voyages with both counts recorded.
func mortalityRate(embarked, disembarked int64) float64 {
	if embarked <= 0 {
		return 0
	}
	return 1 - float64(disembarked)/float64(embarked)
}

// TemporalOptions configures AnalyzeTemporal. Nil years leave that side of
// the range open.
type TemporalOptions struct {
	ByMonth   bool
	StartYear *int
	EndYear   *int
}

// TemporalBucket is the voyage activity for one year, or one month of a year.
type TemporalBucket struct {
	Year             int
	Month            *int
	VoyageCount      int64
	TotalEmbarked    int64
	TotalDisembarked int64
}
