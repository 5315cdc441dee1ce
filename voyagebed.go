// Package voyagebed resolves free-text place names against a port, specific
// region and broad region gazetteer and retrieves the recorded voyages that
// connect two places at any level of that hierarchy.
//
// An Engine wraps a sqlite store populated from two tables: geography.csv,
// one row per port with its region and broad region, and voyages.csv, one
// row per voyage. The tables ship embedded in the package:
//
//	e, err := voyagebed.Open(ctx, voyagebed.WithDSN("voyages.db"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	from, _ := e.PlaceByName(ctx, "Delagoa", voyagebed.PlaceTypePort)
//	to, _ := e.SearchPlaces(ctx, "char", voyagebed.Destination, &from)
//	voyages, _ := e.ResolveRoute(ctx, from, to[0])
package voyagebed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Engine answers search and route queries against a populated store.
// Safe for concurrent use after construction.
type Engine struct {
	db     *gorm.DB
	logger *Logger
	owned  bool
}

// Open opens the configured store, populating it from the data directory
// (or the embedded dataset) when it holds no places or no voyages.
//
// Options customise the store and data locations:
//
//	e, err := Open(ctx, WithDSN("/var/lib/voyagebed.db"), WithDataDir("/srv/tables"))
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	db, err := OpenStore(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	e := newEngine(db, cfg)
	e.owned = true

	st, err := e.Stats(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	if st.Places() == 0 || st.Voyages == 0 {
		e.logger.Info("populating store", "dsn", cfg.Store.DSN, "data_dir", cfg.Data.Dir)
		if _, err := NewLoader(db, e.logger).LoadDir(ctx, cfg.Data.Dir); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to populate store: %w", err)
		}
	}
	return e, nil
}

// New wraps an already migrated and populated store. Store and data options
// are ignored; Close leaves db open.
func New(db *gorm.DB, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newEngine(db, cfg)
}

func newEngine(db *gorm.DB, cfg *config) *Engine {
	logger := cfg.logger
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}
	return &Engine{db: db, logger: logger}
}

// Close releases the store if the engine opened it.
func (e *Engine) Close() error {
	if !e.owned {
		return nil
	}
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stats counts the places and voyages held by the store.
func (e *Engine) Stats(ctx context.Context) (StoreStats, error) {
	st, err := storeStats(ctx, e.db)
	if err != nil {
		return StoreStats{}, queryErr("stats", err)
	}
	return st, nil
}

// Singleton for the embedded dataset.
var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
	defaultEngineErr  error
)

// GetDefaultEngine returns a shared in-memory Engine over the embedded
// dataset, initializing it on first call.
func GetDefaultEngine() (*Engine, error) {
	defaultEngineOnce.Do(func() {
		defaultEngine, defaultEngineErr = Open(context.Background(), WithDSN(""), WithDataDir(""))
	})
	return defaultEngine, defaultEngineErr
}

// Validation thresholds, met by the embedded dataset.
const (
	minPortCount   = 20
	minRegionCount = 10
	minVoyageCount = 10
)

type validationRoute struct {
	from, to string
	minCount int
}

type validationFuzzy struct {
	query    string
	wantPort string
}

var knownRoutes = []validationRoute{
	{"Delagoa", "Charleston", 1},
	{"Luanda", "Kingston", 1},
}

var knownFuzzy = []validationFuzzy{
	{"londn", "London"},
	{"kingstn", "Kingston"},
}

// Validate performs integrity and functional checks on the store.
func (e *Engine) Validate(ctx context.Context) error {
	st, err := e.Stats(ctx)
	if err != nil {
		return err
	}
	if st.Places() == 0 || st.Voyages == 0 {
		return ErrEmptyStore
	}
	if st.Ports < minPortCount {
		return fmt.Errorf("port count too low: got %d, want >= %d", st.Ports, minPortCount)
	}
	if st.SpecificRegions < minRegionCount {
		return fmt.Errorf("region count too low: got %d, want >= %d", st.SpecificRegions, minRegionCount)
	}
	if st.Voyages < minVoyageCount {
		return fmt.Errorf("voyage count too low: got %d, want >= %d", st.Voyages, minVoyageCount)
	}
	e.logger.Info("store counts OK", "ports", st.Ports, "regions", st.SpecificRegions,
		"broad_regions", st.BroadRegions, "voyages", st.Voyages)

	for _, tc := range knownRoutes {
		from, err := e.PlaceByName(ctx, tc.from, PlaceTypePort)
		if err != nil {
			return fmt.Errorf("route %s -> %s: %w", tc.from, tc.to, err)
		}
		to, err := e.PlaceByName(ctx, tc.to, PlaceTypePort)
		if err != nil {
			return fmt.Errorf("route %s -> %s: %w", tc.from, tc.to, err)
		}
		voyages, err := e.ResolveRoute(ctx, from, to)
		if err != nil {
			return err
		}
		if len(voyages) < tc.minCount {
			return fmt.Errorf("route %s -> %s: got %d voyages, want >= %d", tc.from, tc.to, len(voyages), tc.minCount)
		}
	}
	e.logger.Info("known routes OK", "routes", len(knownRoutes))

	for _, tc := range knownFuzzy {
		got, err := e.FuzzySearch(ctx, tc.query)
		if err != nil {
			return err
		}
		if len(got) == 0 || got[0].Name != tc.wantPort {
			return fmt.Errorf("fuzzy(%q) = %v, want %q first", tc.query, got, tc.wantPort)
		}
	}
	e.logger.Info("fuzzy matching OK", "queries", len(knownFuzzy))
	return nil
}

// IsNotFound reports whether err means a lookup matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlaceNotFound)
}
