package voyagebed

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// placeModel is the gorm mapping of the places table.
type placeModel struct {
	ID               int64   `gorm:"column:id;primaryKey"`
	PlaceType        string  `gorm:"column:place_type;not null"`
	Value            int     `gorm:"column:value;not null"`
	Name             string  `gorm:"column:name;not null"`
	RegionValue      *int    `gorm:"column:region_value"`
	RegionName       *string `gorm:"column:region_name"`
	BroadRegionValue *int    `gorm:"column:broad_region_value"`
	BroadRegionName  *string `gorm:"column:broad_region_name"`
}

func (placeModel) TableName() string { return "places" }

// voyageModel is the gorm mapping of the voyages table. Ids come from the
// source data.
type voyageModel struct {
	ID                     int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	OriginPort             *int    `gorm:"column:origin_port"`
	OriginRegion           *int    `gorm:"column:origin_region"`
	OriginBroadRegion      *int    `gorm:"column:origin_broad_region"`
	DestinationPort        *int    `gorm:"column:destination_port"`
	DestinationRegion      *int    `gorm:"column:destination_region"`
	DestinationBroadRegion *int    `gorm:"column:destination_broad_region"`
	EmbarkDate             *string `gorm:"column:embark_date"`
	DisembarkDate          *string `gorm:"column:disembark_date"`
	SlavesEmbarked         *int    `gorm:"column:slaves_embarked"`
	SlavesDisembarked      *int    `gorm:"column:slaves_disembarked"`
}

func (voyageModel) TableName() string { return "voyages" }

// toPlace converts a stored row, failing hard on an unknown place_type.
func (m placeModel) toPlace() (Place, error) {
	pt, err := ParsePlaceType(m.PlaceType)
	if err != nil {
		return Place{}, fmt.Errorf("place row %d: %w", m.ID, err)
	}
	return Place{
		ID:               m.ID,
		Type:             pt,
		Value:            m.Value,
		Name:             m.Name,
		RegionValue:      m.RegionValue,
		RegionName:       m.RegionName,
		BroadRegionValue: m.BroadRegionValue,
		BroadRegionName:  m.BroadRegionName,
	}, nil
}

func placeModelFrom(p Place) placeModel {
	return placeModel{
		PlaceType:        string(p.Type),
		Value:            p.Value,
		Name:             p.Name,
		RegionValue:      p.RegionValue,
		RegionName:       p.RegionName,
		BroadRegionValue: p.BroadRegionValue,
		BroadRegionName:  p.BroadRegionName,
	}
}

func toPlaces(rows []placeModel) ([]Place, error) {
	places := make([]Place, 0, len(rows))
	for _, m := range rows {
		p, err := m.toPlace()
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, nil
}

func (m voyageModel) toVoyage() Voyage {
	return Voyage{
		ID:                     m.ID,
		OriginPort:             m.OriginPort,
		OriginRegion:           m.OriginRegion,
		OriginBroadRegion:      m.OriginBroadRegion,
		DestinationPort:        m.DestinationPort,
		DestinationRegion:      m.DestinationRegion,
		DestinationBroadRegion: m.DestinationBroadRegion,
		EmbarkDate:             m.EmbarkDate,
		DisembarkDate:          m.DisembarkDate,
		SlavesEmbarked:         m.SlavesEmbarked,
		SlavesDisembarked:      m.SlavesDisembarked,
	}
}

func voyageModelFrom(v Voyage) voyageModel {
	return voyageModel{
		ID:                     v.ID,
		OriginPort:             v.OriginPort,
		OriginRegion:           v.OriginRegion,
		OriginBroadRegion:      v.OriginBroadRegion,
		DestinationPort:        v.DestinationPort,
		DestinationRegion:      v.DestinationRegion,
		DestinationBroadRegion: v.DestinationBroadRegion,
		EmbarkDate:             v.EmbarkDate,
		DisembarkDate:          v.DisembarkDate,
		SlavesEmbarked:         v.SlavesEmbarked,
		SlavesDisembarked:      v.SlavesDisembarked,
	}
}

// isMemoryDSN reports whether dsn names a private in-memory database.
func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// OpenStore opens the sqlite store at dsn and applies the schema migrations.
// An empty dsn opens a private in-memory database.
func OpenStore(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
	}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dsn, err)
	}
	// Every connection to :memory: is a separate database.
	if isMemoryDSN(dsn) {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := RunMigrations(ctx, db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating store %s: %w", dsn, err)
	}
	return db, nil
}

// RunMigrations creates the places and voyages tables if they are missing.
// Each call uses its own goose provider and leaves goose's package state
// untouched.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, fsys)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return err
	}
	return nil
}

// StoreStats counts the rows of each kind held by the store.
type StoreStats struct {
	Ports           int64
	SpecificRegions int64
	BroadRegions    int64
	Voyages         int64
}

// Places returns the total number of places across all levels.
func (s StoreStats) Places() int64 {
	return s.Ports + s.SpecificRegions + s.BroadRegions
}

func storeStats(ctx context.Context, db *gorm.DB) (StoreStats, error) {
	type row struct {
		PlaceType string
		N         int64
	}
	var rows []row
	if err := db.WithContext(ctx).Model(&placeModel{}).
		Select("place_type, COUNT(*) AS n").
		Group("place_type").
		Scan(&rows).Error; err != nil {
		return StoreStats{}, err
	}

	var st StoreStats
	for _, r := range rows {
		pt, err := ParsePlaceType(r.PlaceType)
		if err != nil {
			return StoreStats{}, err
		}
		switch pt {
		case PlaceTypePort:
			st.Ports = r.N
		case PlaceTypeSpecificRegion:
			st.SpecificRegions = r.N
		case PlaceTypeBroadRegion:
			st.BroadRegions = r.N
		}
	}

	if err := db.WithContext(ctx).Model(&voyageModel{}).Count(&st.Voyages).Error; err != nil {
		return StoreStats{}, err
	}
	return st, nil
}
