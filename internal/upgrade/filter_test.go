package upgrade

import (
	"fmt"
	"testing"

	"github.com/go-test/deep"

	"github.com/example/dbup/internal/script"
)

func hashOf(contents string) *string {
	h := script.SHA256Hasher{}.Hash(contents)
	return &h
}

func TestDefaultFilter_Filter(t *testing.T) {
	candidates := []script.Script{
		script.New("001_new.sql", "new"),
		script.New("002_nohash.sql", "edited since it ran"),
		script.New("003_changed.sql", "v2"),
		script.New("004_same.sql", "same"),
	}
	executed := []script.Executed{
		{Name: "002_nohash.sql"},
		{Name: "003_changed.sql", Hash: hashOf("v1")},
		{Name: "004_same.sql", Hash: hashOf("same")},
	}

	got := DefaultFilter{}.Filter(candidates, executed, script.Ordinal{}, script.SHA256Hasher{})
	if diff := deep.Equal(script.Names(got), []string{"001_new.sql", "003_changed.sql"}); diff != nil {
		t.Error(diff)
	}
}

func TestDefaultFilter_AnyMatchingHashExcludes(t *testing.T) {
	candidates := []script.Script{script.New("views.sql", "v1")}
	executed := []script.Executed{
		{Name: "views.sql", Hash: hashOf("v1")},
		{Name: "views.sql", Hash: hashOf("v2")},
	}

	got := DefaultFilter{}.Filter(candidates, executed, script.Ordinal{}, script.SHA256Hasher{})
	if len(got) != 0 {
		t.Errorf("expected script to be excluded, got %v", script.Names(got))
	}
}

func TestDefaultFilter_UsesComparer(t *testing.T) {
	candidates := []script.Script{script.New("001_Init.sql", "x")}
	executed := []script.Executed{{Name: "001_init.SQL"}}

	if got := (DefaultFilter{}).Filter(candidates, executed, script.Ordinal{}, script.SHA256Hasher{}); len(got) != 1 {
		t.Error("ordinal comparison should treat differently cased names as distinct")
	}
	if got := (DefaultFilter{}).Filter(candidates, executed, script.OrdinalIgnoreCase{}, script.SHA256Hasher{}); len(got) != 0 {
		t.Error("case-insensitive comparison should match")
	}
}

func TestDefaultFilter_NameOnlyFormAgreesWithoutHashes(t *testing.T) {
	var candidates []script.Script
	for i := 0; i < 12; i++ {
		candidates = append(candidates, script.New(fmt.Sprintf("%03d.sql", i), fmt.Sprintf("SELECT %d;", i)))
	}

	// Every subset selected by a bit mask over the first six names.
	for mask := 0; mask < 1<<6; mask++ {
		var (
			executed []script.Executed
			names    []string
		)
		for i := 0; i < 6; i++ {
			if mask&(1<<i) != 0 {
				name := fmt.Sprintf("%03d.sql", i*2)
				executed = append(executed, script.Executed{Name: name})
				names = append(names, name)
			}
		}

		byHash := DefaultFilter{}.Filter(candidates, executed, script.Ordinal{}, script.SHA256Hasher{})
		byName := DefaultFilter{}.FilterByName(candidates, names, script.Ordinal{})
		if diff := deep.Equal(script.Names(byHash), script.Names(byName)); diff != nil {
			t.Fatalf("mask %06b: %v", mask, diff)
		}
	}
}

func TestDefaultFilter_HashesContentOnce(t *testing.T) {
	calls := 0
	hasher := script.HasherFunc(func(contents string) string {
		calls++
		return "h:" + contents
	})
	candidates := []script.Script{script.New("a.sql", "x")}
	h1, h2 := "h:old", "h:older"
	executed := []script.Executed{{Name: "a.sql", Hash: &h1}, {Name: "a.sql", Hash: &h2}}

	got := DefaultFilter{}.Filter(candidates, executed, script.Ordinal{}, hasher)
	if len(got) != 1 {
		t.Fatalf("changed script should be pending")
	}
	if calls != 1 {
		t.Errorf("expected one hash computation, got %d", calls)
	}
}
