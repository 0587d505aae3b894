package script

import (
	"sort"
	"testing"
)

func TestNewHasher(t *testing.T) {
	tests := []struct {
		name    string
		want    Hasher
		wantErr bool
	}{
		{name: "", want: SHA256Hasher{}},
		{name: "SHA256", want: SHA256Hasher{}},
		{name: "blake2b", want: Blake2bHasher{}},
		{name: "md5", want: MD5Hasher{}},
		{name: "crc32", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NewHasher(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewHasher(%q) expected error, got nil", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewHasher(%q) returned error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("NewHasher(%q) = %T, want %T", tt.name, got, tt.want)
		}
	}
}

func TestHashers_KnownDigests(t *testing.T) {
	const sha256Empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := (SHA256Hasher{}).Hash(""); got != sha256Empty {
		t.Errorf("sha256 of empty string = %s, want %s", got, sha256Empty)
	}

	const md5Empty = "1B2M2Y8AsgTpgAmY7PhCfg=="
	if got := (MD5Hasher{}).Hash(""); got != md5Empty {
		t.Errorf("md5 of empty string = %s, want %s", got, md5Empty)
	}

	b := Blake2bHasher{}
	if len(b.Hash("select 1")) != 64 {
		t.Errorf("blake2b digest should be 32 bytes hex encoded, got %q", b.Hash("select 1"))
	}
}

func TestHashers_Deterministic(t *testing.T) {
	for _, h := range []Hasher{SHA256Hasher{}, Blake2bHasher{}, MD5Hasher{}} {
		a := h.Hash("CREATE TABLE users (id INTEGER);")
		b := h.Hash("CREATE TABLE users (id INTEGER);")
		c := h.Hash("CREATE TABLE users (id INTEGER, name TEXT);")
		if a != b {
			t.Errorf("%T: same content produced different hashes", h)
		}
		if a == c {
			t.Errorf("%T: different content produced the same hash", h)
		}
	}
}

func TestHasherFunc(t *testing.T) {
	h := HasherFunc(func(contents string) string { return "fixed:" + contents })
	if got := h.Hash("x"); got != "fixed:x" {
		t.Errorf("HasherFunc.Hash() = %q", got)
	}
}

func TestComparers(t *testing.T) {
	names := []string{"b.sql", "A.sql", "a.sql", "C.sql"}

	ordinal := append([]string(nil), names...)
	sort.SliceStable(ordinal, func(i, j int) bool { return Ordinal{}.Compare(ordinal[i], ordinal[j]) < 0 })
	if want := []string{"A.sql", "C.sql", "a.sql", "b.sql"}; !equalStrings(ordinal, want) {
		t.Errorf("ordinal sort = %v, want %v", ordinal, want)
	}

	ignoreCase := append([]string(nil), names...)
	sort.SliceStable(ignoreCase, func(i, j int) bool {
		return OrdinalIgnoreCase{}.Compare(ignoreCase[i], ignoreCase[j]) < 0
	})
	if want := []string{"A.sql", "a.sql", "b.sql", "C.sql"}; !equalStrings(ignoreCase, want) {
		t.Errorf("ignore-case sort = %v, want %v", ignoreCase, want)
	}

	if (Ordinal{}).Equal("A.sql", "a.sql") {
		t.Error("ordinal comparer should be case sensitive")
	}
	if !(OrdinalIgnoreCase{}).Equal("A.sql", "a.sql") {
		t.Error("ignore-case comparer should match names differing only in case")
	}
}

func TestNewComparer(t *testing.T) {
	if c, err := NewComparer(""); err != nil || c != (Ordinal{}) {
		t.Errorf("NewComparer(\"\") = %v, %v", c, err)
	}
	if c, err := NewComparer("ignore_case"); err != nil || c != (OrdinalIgnoreCase{}) {
		t.Errorf("NewComparer(ignore_case) = %v, %v", c, err)
	}
	if _, err := NewComparer("culture"); err == nil {
		t.Error("expected error for unknown comparison")
	}
}

func TestExecutedAndNames(t *testing.T) {
	hash := "abc"
	if (Executed{Name: "a"}).HasHash() {
		t.Error("entry without hash reported HasHash")
	}
	if !(Executed{Name: "a", Hash: &hash}).HasHash() {
		t.Error("entry with hash reported no hash")
	}

	got := Names([]Script{New("a.sql", ""), New("b.sql", "")})
	if !equalStrings(got, []string{"a.sql", "b.sql"}) {
		t.Errorf("Names() = %v", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
