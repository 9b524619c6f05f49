package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SessionLogHeader is the English column header of a meeting-provider export.
const SessionLogHeader = "Name (Original Name),User Email,Join Time,Leave Time,Duration (Minutes),Guest,In Waiting Room"

// WriteSessionLog writes a session export made of the standard header and
// the given data rows, returning its path.
func WriteSessionLog(t testing.TB, dir, name string, rows ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(SessionLogHeader)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return WriteFile(t, filepath.Join(dir, name), b.String())
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
