package voyagebed

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func quietLogger() *Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// newTestEngine opens a temp-dir store populated from the embedded dataset.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(context.Background(),
		WithDSN(filepath.Join(t.TempDir(), "voyagebed.db")),
		WithDataDir(""),
		WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func mustPlace(t *testing.T, e *Engine, name string, pt PlaceType) Place {
	t.Helper()
	p, err := e.PlaceByName(context.Background(), name, pt)
	require.NoError(t, err, "PlaceByName(%q, %q)", name, pt)
	return p
}

func candidateNames(ports []PortCandidate) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names
}

func placeNames(places []Place) []string {
	names := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
	}
	return names
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
