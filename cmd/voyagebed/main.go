// Command voyagebed searches the gazetteer and resolves voyage routes.
//
// Usage:
//
//	voyagebed --dsn voyages.db --data-dir ./voyagebed-data build
//	voyagebed --dsn voyages.db search --role destination --opposite Delagoa char
//	voyagebed --dsn voyages.db fuzzy londn
//	voyagebed --dsn voyages.db route --from Delagoa --to "South Carolina"
//	voyagebed --dsn voyages.db temporal --by-month --start 1780 --end 1800
//
// Global flags precede the command. Every command other than build opens,
// and if needed populates, the store named by --dsn.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andreiashu/voyagebed"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.App {
	return &cli.App{
		Name:   "voyagebed",
		Usage:  "Gazetteer search and voyage route analysis",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "sqlite database file (overrides config)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding geography.csv and voyages.csv (overrides config)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Write results as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Load the source tables into the database",
				Action: buildCommand,
			},
			{
				Name:      "search",
				Usage:     "Search places by name, optionally constrained by the other route endpoint",
				ArgsUsage: "[query]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role",
						Usage: "Endpoint being searched (origin, destination)",
						Value: "origin",
					},
					&cli.StringFlag{
						Name:  "opposite",
						Usage: "Name of the already chosen place at the other endpoint",
					},
					&cli.StringFlag{
						Name:  "opposite-type",
						Usage: "Level of --opposite (Port, SpecificRegion, BroadRegion)",
					},
				},
			},
			{
				Name:      "fuzzy",
				Usage:     "Rank ports by typo-tolerant similarity",
				ArgsUsage: "<query>",
				Action:    fuzzyCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "simple",
						Usage: "Rank by port name edit distance only",
					},
				},
			},
			{
				Name:   "route",
				Usage:  "List and summarise the voyages between two places",
				Action: routeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Origin place name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Destination place name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "from-type",
						Usage: "Level of --from (Port, SpecificRegion, BroadRegion)",
					},
					&cli.StringFlag{
						Name:  "to-type",
						Usage: "Level of --to (Port, SpecificRegion, BroadRegion)",
					},
				},
			},
			{
				Name:   "temporal",
				Usage:  "Bucket voyages by embark year or month",
				Action: temporalCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "by-month",
						Usage: "Bucket by year and month",
					},
					&cli.IntFlag{
						Name:  "start",
						Usage: "First year, inclusive",
					},
					&cli.IntFlag{
						Name:  "end",
						Usage: "Last year, inclusive",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Check store counts and known routes",
				Action: validateCommand,
			},
		},
	}
}

// loadConfig merges the config file with any global flags that were set.
func loadConfig(c *cli.Context) (voyagebed.Config, error) {
	cfg, err := voyagebed.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("dsn") {
		cfg.Store.DSN = c.String("dsn")
	}
	if c.IsSet("data-dir") {
		cfg.Data.Dir = c.String("data-dir")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	return cfg, nil
}

func openEngine(c *cli.Context) (*voyagebed.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return voyagebed.Open(c.Context, voyagebed.WithConfig(cfg))
}

func buildCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := voyagebed.OpenStore(c.Context, cfg.Store.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	stats, err := voyagebed.NewLoader(db, voyagebed.NewLogger(cfg.Log)).LoadDir(c.Context, cfg.Data.Dir)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, stats)
	}
	fmt.Fprintf(c.App.Writer, "places inserted: %d\nvoyages inserted: %d\nrows skipped: %d\n",
		stats.PlacesInserted, stats.VoyagesInserted, stats.SkippedRows)
	return nil
}

func searchCommand(c *cli.Context) error {
	role, err := voyagebed.ParseRole(c.String("role"))
	if err != nil {
		return err
	}
	e, err := openEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	var opposite *voyagebed.Place
	if name := c.String("opposite"); name != "" {
		p, err := lookupPlace(c.Context, e, name, c.String("opposite-type"))
		if err != nil {
			return err
		}
		opposite = &p
	}

	places, err := e.SearchPlaces(c.Context, strings.Join(c.Args().Slice(), " "), role, opposite)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, places)
	}
	for _, p := range places {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}

func fuzzyCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("fuzzy: query is required")
	}
	e, err := openEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	query := strings.Join(c.Args().Slice(), " ")
	var ports []voyagebed.PortCandidate
	if c.Bool("simple") {
		ports, err = e.SimpleFuzzySearch(c.Context, query)
	} else {
		ports, err = e.FuzzySearch(c.Context, query)
	}
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, ports)
	}
	for _, p := range ports {
		fmt.Fprintf(c.App.Writer, "%s, %s, %s (%d)\n", p.Name, p.SpecificRegion, p.BroadRegion, p.Value)
	}
	return nil
}

type routeOutput struct {
	Voyages  []voyagebed.Voyage
	Analysis voyagebed.RouteAnalysis
}

func routeCommand(c *cli.Context) error {
	e, err := openEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	from, err := lookupPlace(c.Context, e, c.String("from"), c.String("from-type"))
	if err != nil {
		return err
	}
	to, err := lookupPlace(c.Context, e, c.String("to"), c.String("to-type"))
	if err != nil {
		return err
	}

	voyages, analysis, err := e.RouteReport(c.Context, from, to)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, routeOutput{Voyages: voyages, Analysis: analysis})
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s -> %s\n", from, to)
	for _, v := range voyages {
		originLevel, _ := v.MatchLevel(voyagebed.Origin, from.Value)
		destLevel, _ := v.MatchLevel(voyagebed.Destination, to.Value)
		fmt.Fprintf(w, "  voyage %d  %s -> %s  (by %s / %s)\n",
			v.ID, orUnknown(v.EmbarkDate), orUnknown(v.DisembarkDate), originLevel, destLevel)
	}
	fmt.Fprintf(w, "voyages: %d\nembarked: %d\ndisembarked: %d\naverage journey: %.1f days\nmortality: %.1f%%\n",
		analysis.TotalVoyages, analysis.TotalEmbarked, analysis.TotalDisembarked,
		analysis.AverageJourneyDays, analysis.MortalityRate*100)
	return nil
}

func temporalCommand(c *cli.Context) error {
	e, err := openEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := voyagebed.TemporalOptions{ByMonth: c.Bool("by-month")}
	if c.IsSet("start") {
		start := c.Int("start")
		opts.StartYear = &start
	}
	if c.IsSet("end") {
		end := c.Int("end")
		opts.EndYear = &end
	}

	buckets, err := e.AnalyzeTemporal(c.Context, opts)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, buckets)
	}
	for _, b := range buckets {
		period := fmt.Sprintf("%d", b.Year)
		if b.Month != nil {
			period = fmt.Sprintf("%d-%02d", b.Year, *b.Month)
		}
		fmt.Fprintf(c.App.Writer, "%s  voyages=%d embarked=%d disembarked=%d\n",
			period, b.VoyageCount, b.TotalEmbarked, b.TotalDisembarked)
	}
	return nil
}

func validateCommand(c *cli.Context) error {
	e, err := openEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Validate(c.Context); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "store OK")
	return nil
}

func lookupPlace(ctx context.Context, e *voyagebed.Engine, name, placeType string) (voyagebed.Place, error) {
	var pt voyagebed.PlaceType
	if placeType != "" {
		var err error
		if pt, err = voyagebed.ParsePlaceType(placeType); err != nil {
			return voyagebed.Place{}, err
		}
	}
	p, err := e.PlaceByName(ctx, name, pt)
	if voyagebed.IsNotFound(err) {
		return voyagebed.Place{}, fmt.Errorf("no place named %q; try the search command", name)
	}
	return p, err
}

func orUnknown(s *string) string {
	if s == nil {
		return "?"
	}
	return *s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
