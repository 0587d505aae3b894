package upgrade

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"

	"github.com/example/dbup/internal/script"
)

func scriptsNamed(names ...string) []script.Script {
	scripts := make([]script.Script, len(names))
	for i, name := range names {
		scripts[i] = script.New(name, "-- "+name)
	}
	return scripts
}

func writeDependencyFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dependencies.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDependencyOrderer_Order(t *testing.T) {
	path := writeDependencyFile(t, "b.sql\na.sql\n")

	got, err := DependencyOrderer{}.Order(scriptsNamed("a.sql", "b.sql", "c.sql"), path)
	if err != nil {
		t.Fatalf("Order() returned error: %v", err)
	}
	if diff := deep.Equal(script.Names(got), []string{"b.sql", "a.sql", "c.sql"}); diff != nil {
		t.Error(diff)
	}
}

func TestDependencyOrderer_KeepsRelativeOrderOfUnlisted(t *testing.T) {
	path := writeDependencyFile(t, "m.sql\r\nc.sql")

	got, err := DependencyOrderer{}.Order(scriptsNamed("z.sql", "c.sql", "a.sql", "m.sql"), path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(script.Names(got), []string{"m.sql", "c.sql", "z.sql", "a.sql"}); diff != nil {
		t.Error(diff)
	}
}

func TestDependencyOrderer_MissingDependencies(t *testing.T) {
	path := writeDependencyFile(t, "d.sql\na.sql\ne.sql\n")

	_, err := DependencyOrderer{}.Order(scriptsNamed("a.sql", "b.sql", "c.sql"), path)
	if !errors.Is(err, ErrMissingDependencies) {
		t.Fatalf("expected ErrMissingDependencies, got %v", err)
	}

	var depErr *DependencyFileError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected *DependencyFileError, got %T", err)
	}
	if diff := deep.Equal(depErr.Missing, []string{"d.sql", "e.sql"}); diff != nil {
		t.Error(diff)
	}
	if depErr.Path != path {
		t.Errorf("Path = %q", depErr.Path)
	}
}

func TestDependencyOrderer_FileNotFound(t *testing.T) {
	_, err := DependencyOrderer{}.Order(scriptsNamed("a.sql"), filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, ErrDependencyFileNotFound) {
		t.Fatalf("expected ErrDependencyFileNotFound, got %v", err)
	}
	if errors.Is(err, ErrMissingDependencies) {
		t.Error("a missing file is not a missing dependency")
	}
}

func TestDependencyOrderer_CustomReader(t *testing.T) {
	reads := 0
	orderer := DependencyOrderer{ReadFile: func(path string) ([]byte, error) {
		reads++
		if path != "deps" {
			return nil, fs.ErrNotExist
		}
		return []byte("\ufeffc.sql\nc.sql\n"), nil
	}}

	got, err := orderer.Order(scriptsNamed("a.sql", "c.sql"), "deps")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(script.Names(got), []string{"c.sql", "a.sql"}); diff != nil {
		t.Error(diff)
	}
	if reads != 1 {
		t.Errorf("expected one read, got %d", reads)
	}
}

func TestDependencyOrderer_BlankLineIsAName(t *testing.T) {
	path := writeDependencyFile(t, "a.sql\n\nb.sql\n")

	_, err := DependencyOrderer{}.Order(scriptsNamed("a.sql", "b.sql"), path)
	var depErr *DependencyFileError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected *DependencyFileError, got %v", err)
	}
	if diff := deep.Equal(depErr.Missing, []string{""}); diff != nil {
		t.Error(diff)
	}
}
