package voyagebed

import (
	"compress/bzip2"
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed voyagebed-data
var embeddedData embed.FS

const (
	geographyFile = "geography.csv"
	voyagesFile   = "voyages.csv"

	embeddedDataDir = "voyagebed-data"
)

// Geography columns, as exported by the voyages database.
const (
	colBroadRegionValue    = "Broad Region Value"
	colBroadRegion         = "Broad Region"
	colSpecificRegionValue = "Specific Region Value"
	colSpecificRegion      = "Specific Region (country or colony)"
	colPlaceValue          = "Place Value"
	colPlaceName           = "Place (port or location)"
)

var geographyColumns = []string{
	colBroadRegionValue, colBroadRegion,
	colSpecificRegionValue, colSpecificRegion,
	colPlaceValue, colPlaceName,
}

// Voyage columns, using the variable names of the voyages database.
const (
	colVoyageID               = "VOYAGEID"
	colOriginPort             = "MAJBUYPT"
	colOriginRegion           = "MAJBYIMP"
	colOriginBroadRegion      = "MAJBYIMP1"
	colDestinationPort        = "MJSLPTIMP"
	colDestinationRegion      = "MJSELIMP"
	colDestinationBroadRegion = "MJSELIMP1"
	colEmbarkDate             = "DATELEFTAFR"
	colDisembarkDate          = "DATELAND1"
	colSlavesEmbarked         = "SLAXIMP"
	colSlavesDisembarked      = "SLAMIMP"
)

var voyageColumns = []string{
	colVoyageID,
	colOriginPort, colOriginRegion, colOriginBroadRegion,
	colDestinationPort, colDestinationRegion, colDestinationBroadRegion,
	colEmbarkDate, colDisembarkDate,
	colSlavesEmbarked, colSlavesDisembarked,
}

// LoadStats summarises a load. Inserted counts exclude rows ignored as
// duplicates of rows already in the store.
type LoadStats struct {
	PlacesInserted  int64
	VoyagesInserted int64
	SkippedRows     int
}

// Loader populates the store from tabular source data.
type Loader struct {
	db     *gorm.DB
	logger *log.Logger
}

// NewLoader returns a Loader writing to db. A nil logger uses the default.
func NewLoader(db *gorm.DB, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{db: db, logger: logger}
}

// Load reads the geography and voyage tables and inserts them. Rows that
// fail to parse are skipped with a warning; a missing column is a
// *LoadError and nothing is committed.
func (l *Loader) Load(ctx context.Context, geography, voyages io.Reader) (LoadStats, error) {
	var stats LoadStats

	ports, skipped, err := l.readGeography(geography)
	if err != nil {
		return stats, err
	}
	stats.SkippedRows += skipped

	vs, skipped, err := l.readVoyages(voyages)
	if err != nil {
		return stats, err
	}
	stats.SkippedRows += skipped

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := insertPlaces(tx, hierarchyPlaces(ports))
		if err != nil {
			return err
		}
		stats.PlacesInserted = n

		n, err = insertVoyages(tx, vs)
		if err != nil {
			return err
		}
		stats.VoyagesInserted = n
		return nil
	})
	if err != nil {
		return LoadStats{}, fmt.Errorf("storing source data: %w", err)
	}

	l.logger.Info("loaded source data",
		"places", stats.PlacesInserted,
		"voyages", stats.VoyagesInserted,
		"skipped", stats.SkippedRows)
	return stats, nil
}

// LoadDir loads geography.csv and voyages.csv from dir, either of which may
// be bzip2 compressed with a .bz2 suffix. Files missing from dir are read
// from the embedded dataset.
func (l *Loader) LoadDir(ctx context.Context, dir string) (LoadStats, error) {
	geo, closeGeo, err := openOptionallyBzippedFile(dir, geographyFile)
	if err != nil {
		return LoadStats{}, err
	}
	defer closeGeo()

	voy, closeVoy, err := openOptionallyBzippedFile(dir, voyagesFile)
	if err != nil {
		return LoadStats{}, err
	}
	defer closeVoy()

	return l.Load(ctx, geo, voy)
}

// geographyRow is one port line of the geography table.
type geographyRow struct {
	broadValue  int
	broadName   string
	regionValue int
	regionName  string
	value       int
	name        string
}

func (l *Loader) readGeography(r io.Reader) ([]geographyRow, int, error) {
	cr := newCSVReader(r)
	idx, err := readHeader(cr, geographyFile, geographyColumns)
	if err != nil {
		return nil, 0, err
	}

	var rows []geographyRow
	skipped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, skipped, &LoadError{Source: geographyFile, Line: line, Err: err}
			}
			l.logger.Warn("skipping geography row", "line", line, "err", err)
			skipped++
			continue
		}
		row, err := parseGeographyRecord(rec, idx)
		if err != nil {
			l.logger.Warn("skipping geography row", "line", line, "err", err)
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func parseGeographyRecord(rec []string, idx map[string]int) (geographyRow, error) {
	var (
		row geographyRow
		err error
	)
	if row.broadValue, err = requiredInt(rec, idx, colBroadRegionValue); err != nil {
		return row, err
	}
	if row.regionValue, err = requiredInt(rec, idx, colSpecificRegionValue); err != nil {
		return row, err
	}
	if row.value, err = requiredInt(rec, idx, colPlaceValue); err != nil {
		return row, err
	}
	if row.broadName, err = requiredString(rec, idx, colBroadRegion); err != nil {
		return row, err
	}
	if row.regionName, err = requiredString(rec, idx, colSpecificRegion); err != nil {
		return row, err
	}
	if row.name, err = requiredString(rec, idx, colPlaceName); err != nil {
		return row, err
	}
	return row, nil
}

// hierarchyPlaces expands port rows into broad regions, then specific
// regions, then ports, so parents always precede their children.
func hierarchyPlaces(rows []geographyRow) []Place {
	places := make([]Place, 0, len(rows)*3)
	for _, r := range rows {
		places = append(places, Place{
			Type:  PlaceTypeBroadRegion,
			Value: r.broadValue,
			Name:  r.broadName,
		})
	}
	for _, r := range rows {
		places = append(places, Place{
			Type:             PlaceTypeSpecificRegion,
			Value:            r.regionValue,
			Name:             r.regionName,
			BroadRegionValue: ptr(r.broadValue),
			BroadRegionName:  ptr(r.broadName),
		})
	}
	for _, r := range rows {
		places = append(places, Place{
			Type:             PlaceTypePort,
			Value:            r.value,
			Name:             r.name,
			RegionValue:      ptr(r.regionValue),
			RegionName:       ptr(r.regionName),
			BroadRegionValue: ptr(r.broadValue),
			BroadRegionName:  ptr(r.broadName),
		})
	}
	return places
}

func (l *Loader) readVoyages(r io.Reader) ([]Voyage, int, error) {
	cr := newCSVReader(r)
	idx, err := readHeader(cr, voyagesFile, voyageColumns)
	if err != nil {
		return nil, 0, err
	}

	var voyages []Voyage
	skipped := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, skipped, &LoadError{Source: voyagesFile, Line: line, Err: err}
			}
			l.logger.Warn("skipping voyage row", "line", line, "err", err)
			skipped++
			continue
		}
		v, err := parseVoyageRecord(rec, idx)
		if err != nil {
			l.logger.Warn("skipping voyage row", "line", line, "err", err)
			skipped++
			continue
		}
		voyages = append(voyages, v)
	}
	return voyages, skipped, nil
}

func parseVoyageRecord(rec []string, idx map[string]int) (Voyage, error) {
	id, err := requiredInt(rec, idx, colVoyageID)
	if err != nil {
		return Voyage{}, err
	}
	return Voyage{
		ID:                     int64(id),
		OriginPort:             optionalInt(rec, idx, colOriginPort),
		OriginRegion:           optionalInt(rec, idx, colOriginRegion),
		OriginBroadRegion:      optionalInt(rec, idx, colOriginBroadRegion),
		DestinationPort:        optionalInt(rec, idx, colDestinationPort),
		DestinationRegion:      optionalInt(rec, idx, colDestinationRegion),
		DestinationBroadRegion: optionalInt(rec, idx, colDestinationBroadRegion),
		EmbarkDate:             optionalString(rec, idx, colEmbarkDate),
		DisembarkDate:          optionalString(rec, idx, colDisembarkDate),
		SlavesEmbarked:         optionalInt(rec, idx, colSlavesEmbarked),
		SlavesDisembarked:      optionalInt(rec, idx, colSlavesDisembarked),
	}, nil
}

func insertPlaces(tx *gorm.DB, places []Place) (int64, error) {
	var inserted int64
	for _, p := range places {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		m := placeModelFrom(p)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		if res.Error != nil {
			return 0, fmt.Errorf("inserting place %s: %w", p, res.Error)
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

func insertVoyages(tx *gorm.DB, voyages []Voyage) (int64, error) {
	var inserted int64
	for _, v := range voyages {
		m := voyageModelFrom(v)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		if res.Error != nil {
			return 0, fmt.Errorf("inserting voyage %d: %w", v.ID, res.Error)
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

// newCSVReader drops a leading byte order mark, decoding UTF-16 exports
// to UTF-8, before the header is parsed.
func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// readHeader maps column names to record positions. Any required column
// missing from the header is structural and fatal.
func readHeader(cr *csv.Reader, source string, required []string) (map[string]int, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, &LoadError{Source: source, Line: 1, Err: fmt.Errorf("reading header: %w", err)}
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, &LoadError{Source: source, Line: 1, Err: fmt.Errorf("missing column %q", col)}
		}
	}
	return idx, nil
}

func field(rec []string, idx map[string]int, col string) (string, bool) {
	i := idx[col]
	if i >= len(rec) {
		return "", false
	}
	return strings.TrimSpace(rec[i]), true
}

func requiredString(rec []string, idx map[string]int, col string) (string, error) {
	s, ok := field(rec, idx, col)
	if !ok || s == "" {
		return "", fmt.Errorf("column %q is empty", col)
	}
	return s, nil
}

func requiredInt(rec []string, idx map[string]int, col string) (int, error) {
	s, err := requiredString(rec, idx, col)
	if err != nil {
		return 0, err
	}
	n, ok := parseNumber(s)
	if !ok {
		return 0, fmt.Errorf("column %q: %q is not an integer", col, s)
	}
	return n, nil
}

// optionalInt treats empty and unparseable cells as unknown.
func optionalInt(rec []string, idx map[string]int, col string) *int {
	s, ok := field(rec, idx, col)
	if !ok || s == "" {
		return nil
	}
	n, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &n
}

func optionalString(rec []string, idx map[string]int, col string) *string {
	s, ok := field(rec, idx, col)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// parseNumber accepts plain integers and integral floats such as "60206.0",
// which spreadsheet exports produce for numeric columns with gaps.
func parseNumber(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func ptr[T any](v T) *T { return &v }

// openOptionallyCachedFile prefers dir on disk and falls back to the
// embedded dataset, so a data directory can override individual files.
func openOptionallyCachedFile(dir, name string) (fs.File, error) {
	if dir != "" {
		if fh, err := os.Open(filepath.Join(dir, name)); err == nil {
			return fh, nil
		}
	}
	return embeddedData.Open(embeddedDataDir + "/" + name)
}

func openOptionallyBzippedFile(dir, name string) (io.Reader, func() error, error) {
	fh, err := openOptionallyCachedFile(dir, name+".bz2")
	if err != nil {
		fh, err = openOptionallyCachedFile(dir, name)
		if err != nil {
			return nil, nil, &LoadError{Source: name, Err: err}
		}
		return fh, fh.Close, nil
	}
	return bzip2.NewReader(fh), fh.Close, nil
}
