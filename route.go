package voyagebed

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// routeClause matches voyages leaving @origin and arriving at @destination,
// each side at any hierarchy level.
var routeClause = hierarchyPredicate("v", Origin, "@origin") + " AND " +
	hierarchyPredicate("v", Destination, "@destination")

const bothCountsKnown = "v.slaves_embarked IS NOT NULL AND v.slaves_disembarked IS NOT NULL"

func routeArgs(origin, destination Place) map[string]any {
	return map[string]any{"origin": origin.Value, "destination": destination.Value}
}

// ResolveRoute returns every voyage from origin to destination. Dated
// voyages come first in embark order, undated ones after; ties by id.
func (e *Engine) ResolveRoute(ctx context.Context, origin, destination Place) ([]Voyage, error) {
	var rows []voyageModel
	err := e.db.WithContext(ctx).Raw(
		"SELECT v.* FROM voyages v WHERE "+routeClause+
			" ORDER BY CASE WHEN v.embark_date IS NOT NULL THEN 0 ELSE 1 END, v.embark_date, v.id",
		routeArgs(origin, destination),
	).Scan(&rows).Error
	if err != nil {
		return nil, queryErr("resolve route", err)
	}

	voyages := make([]Voyage, len(rows))
	for i, m := range rows {
		voyages[i] = m.toVoyage()
	}
	e.logger.Debug("resolve route", "origin", origin, "destination", destination, "voyages", len(voyages))
	return voyages, nil
}

// AnalyzeRoute aggregates the voyages ResolveRoute would return. Unknown
// counts are left out of the sums. Mortality covers only voyages with both
// counts recorded, and the mean journey only voyages with both dates.
func (e *Engine) AnalyzeRoute(ctx context.Context, origin, destination Place) (RouteAnalysis, error) {
	var agg struct {
		TotalVoyages     int64
		TotalEmbarked    int64
		TotalDisembarked int64
		KnownEmbarked    int64
		KnownDisembarked int64
		AvgJourneyDays   *float64
	}
	err := e.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) AS total_voyages,"+
			" COALESCE(SUM(v.slaves_embarked), 0) AS total_embarked,"+
			" COALESCE(SUM(v.slaves_disembarked), 0) AS total_disembarked,"+
			" COALESCE(SUM(CASE WHEN "+bothCountsKnown+" THEN v.slaves_embarked END), 0) AS known_embarked,"+
			" COALESCE(SUM(CASE WHEN "+bothCountsKnown+" THEN v.slaves_disembarked END), 0) AS known_disembarked,"+
			" AVG(julianday(v.disembark_date) - julianday(v.embark_date)) AS avg_journey_days"+
			" FROM voyages v WHERE "+routeClause,
		routeArgs(origin, destination),
	).Scan(&agg).Error
	if err != nil {
		return RouteAnalysis{}, queryErr("analyze route", err)
	}

	a := RouteAnalysis{
		Origin:           origin,
		Destination:      destination,
		TotalVoyages:     agg.TotalVoyages,
		TotalEmbarked:    agg.TotalEmbarked,
		TotalDisembarked: agg.TotalDisembarked,
		MortalityRate:    mortalityRate(agg.KnownEmbarked, agg.KnownDisembarked),
	}
	if agg.AvgJourneyDays != nil {
		a.AverageJourneyDays = *agg.AvgJourneyDays
	}
	return a, nil
}

// RouteReport fetches the voyages and the analysis of a route concurrently.
func (e *Engine) RouteReport(ctx context.Context, origin, destination Place) ([]Voyage, RouteAnalysis, error) {
	var (
		voyages  []Voyage
		analysis RouteAnalysis
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		voyages, err = e.ResolveRoute(ctx, origin, destination)
		return err
	})
	g.Go(func() error {
		var err error
		analysis, err = e.AnalyzeRoute(ctx, origin, destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, RouteAnalysis{}, err
	}
	return voyages, analysis, nil
}

// AnalyzeTemporal buckets voyages by embark year, or by year and month.
// Voyages without a parseable embark date are not bucketed. An inverted
// or empty year range yields no buckets.
func (e *Engine) AnalyzeTemporal(ctx context.Context, opts TemporalOptions) ([]TemporalBucket, error) {
	if opts.StartYear != nil && opts.EndYear != nil && *opts.StartYear > *opts.EndYear {
		return []TemporalBucket{}, nil
	}

	group := "year"
	if opts.ByMonth {
		group = "year, month"
	}

	where := []string{"year IS NOT NULL"}
	args := map[string]any{}
	if opts.StartYear != nil {
		where = append(where, "year >= @start")
		args["start"] = *opts.StartYear
	}
	if opts.EndYear != nil {
		where = append(where, "year <= @end")
		args["end"] = *opts.EndYear
	}

	sql := fmt.Sprintf("SELECT %s, COUNT(*) AS voyage_count,"+
		" COALESCE(SUM(slaves_embarked), 0) AS total_embarked,"+
		" COALESCE(SUM(slaves_disembarked), 0) AS total_disembarked"+
		" FROM (SELECT CAST(strftime('%%Y', embark_date) AS INTEGER) AS year,"+
		" CAST(strftime('%%m', embark_date) AS INTEGER) AS month,"+
		" slaves_embarked, slaves_disembarked FROM voyages)"+
		" WHERE %s GROUP BY %s ORDER BY %s",
		group, strings.Join(where, " AND "), group, group)

	var rows []struct {
		Year             int
		Month            *int
		VoyageCount      int64
		TotalEmbarked    int64
		TotalDisembarked int64
	}
	q := e.db.WithContext(ctx)
	if len(args) > 0 {
		q = q.Raw(sql, args)
	} else {
		q = q.Raw(sql)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, queryErr("analyze temporal", err)
	}

	buckets := make([]TemporalBucket, len(rows))
	for i, r := range rows {
		buckets[i] = TemporalBucket{
			Year:             r.Year,
			VoyageCount:      r.VoyageCount,
			TotalEmbarked:    r.TotalEmbarked,
			TotalDisembarked: r.TotalDisembarked,
		}
		if opts.ByMonth {
			buckets[i].Month = r.Month
		}
	}
	return buckets, nil
}
