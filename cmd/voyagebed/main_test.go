package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/andreiashu/voyagebed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a fresh store in a temp dir.
func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"voyagebed", "--dsn", dsn, "--data-dir", "", "--log-level", "error"}, args...)
	err := newApp(&out).Run(full)
	return out.String(), err
}

func tempDSN(t *testing.T) string {
	return filepath.Join(t.TempDir(), "voyagebed.db")
}

func TestBuildCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "places inserted: 43")
	assert.Contains(t, out, "voyages inserted: 12")
	assert.Contains(t, out, "rows skipped: 1")

	out, err = run(t, dsn, "--json", "build")
	require.NoError(t, err)
	var stats voyagebed.LoadStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Zero(t, stats.PlacesInserted, "rebuild must not duplicate rows")
	assert.Zero(t, stats.VoyagesInserted)
}

func TestSearchCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "search", "--role", "destination", "--opposite", "Delagoa", "char")
	require.NoError(t, err)
	assert.Equal(t, "Charleston (Port 21302)\n", out)

	out, err = run(t, dsn, "--json", "search", "mont")
	require.NoError(t, err)
	var places []voyagebed.Place
	require.NoError(t, json.Unmarshal([]byte(out), &places))
	require.Len(t, places, 2)
	assert.Equal(t, voyagebed.PlaceTypeSpecificRegion, places[0].Type)

	_, err = run(t, dsn, "search", "--role", "sideways", "x")
	require.Error(t, err)

	_, err = run(t, dsn, "search", "--opposite", "Atlantis", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Atlantis")
}

func TestFuzzyCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "fuzzy", "londn")
	require.NoError(t, err)
	assert.Contains(t, out, "London, England, Europe (10433)")

	out, err = run(t, dsn, "--json", "fuzzy", "--simple", "bristl")
	require.NoError(t, err)
	var ports []voyagebed.PortCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &ports))
	require.NotEmpty(t, ports)
	assert.Equal(t, "Bristol", ports[0].Name)

	_, err = run(t, dsn, "fuzzy")
	require.Error(t, err)
}

func TestRouteCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "route", "--from", "Delagoa", "--to", "South Carolina")
	require.NoError(t, err)
	assert.Contains(t, out, "voyage 1001  1804-01-10 -> 1804-04-02  (by port / region)")
	assert.Contains(t, out, "voyage 1008  1806-02-01 -> ?")
	assert.Contains(t, out, "voyages: 2")
	assert.Contains(t, out, "average journey: 83.0 days")

	out, err = run(t, dsn, "--json", "route", "--from", "Montserrat", "--from-type", "Port", "--to", "Africa")
	require.NoError(t, err)
	var report routeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Voyages)
	assert.Zero(t, report.Analysis.TotalVoyages)

	_, err = run(t, dsn, "route", "--from", "Delagoa")
	require.Error(t, err, "--to is required")

	_, err = run(t, dsn, "route", "--from", "Delagoa", "--to", "x", "--to-type", "Harbour")
	var ipt *voyagebed.InvalidPlaceTypeError
	assert.ErrorAs(t, err, &ipt)
}

func TestTemporalCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := run(t, dsn, "temporal", "--start", "1785", "--end", "1786")
	require.NoError(t, err)
	assert.Equal(t,
		"1785  voyages=2 embarked=400 disembarked=570\n"+
			"1786  voyages=1 embarked=5000 disembarked=4000\n", out)

	out, err = run(t, dsn, "temporal", "--by-month", "--start", "1790", "--end", "1790")
	require.NoError(t, err)
	assert.Contains(t, out, "1790-01  voyages=1")
	assert.Contains(t, out, "1790-06  voyages=2")

	out, err = run(t, dsn, "temporal", "--start", "1800", "--end", "1700")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, tempDSN(t), "validate")
	require.NoError(t, err)
	assert.Equal(t, "store OK\n", out)
}

func TestConfigFile(t *testing.T) {
	_, err := run(t, tempDSN(t), "--config", filepath.Join("testdata", "does-not-exist.toml"), "validate")
	require.NoError(t, err, "a missing config file falls back to defaults")
}
