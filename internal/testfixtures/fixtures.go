package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/dbup/internal/script"
)

var scriptCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ScriptOption configures a generated script fixture.
type ScriptOption func(*script.Script)

// WithName overrides the generated script name.
func WithName(name string) ScriptOption {
	return func(s *script.Script) { s.Name = name }
}

// WithContents overrides the generated script body.
func WithContents(contents string) ScriptOption {
	return func(s *script.Script) { s.Contents = contents }
}

// Redeployable marks the script for redeployment on content change.
func Redeployable() ScriptOption {
	return func(s *script.Script) { s.RedeployOnChange = true }
}

// StartingPoint marks the script as a first-deployment starting point.
func StartingPoint() ScriptOption {
	return func(s *script.Script) { s.FirstDeploymentAsStartingPoint = true }
}

// NewScript returns a deterministic script whose body creates a table named
// after the fixture sequence number.
func NewScript(opts ...ScriptOption) script.Script {
	idx := atomic.AddUint64(&scriptCounter, 1)
	s := script.Script{
		Name:     fmt.Sprintf("%03d_fixture.sql", idx),
		Contents: fmt.Sprintf("CREATE TABLE fixture_%03d (id INTEGER PRIMARY KEY, label TEXT);", idx),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// CreateTableScripts returns one script per name, each creating a table
// whose name is derived from its position.
func CreateTableScripts(names ...string) []script.Script {
	scripts := make([]script.Script, len(names))
	for i, name := range names {
		scripts[i] = script.New(name, fmt.Sprintf("CREATE TABLE t%d (id INTEGER PRIMARY KEY);", i+1))
	}
	return scripts
}
