package upgrade

import (
	"context"
	"errors"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/script"
)

// mockProvider returns a fixed list of scripts.
type mockProvider struct {
	scripts []script.Script
	options *script.Options
	err     error
	calls   int
}

func newMockProvider(opts *script.Options, scripts ...script.Script) *mockProvider {
	if opts == nil {
		opts = &script.Options{}
	}
	return &mockProvider{scripts: scripts, options: opts}
}

func (m *mockProvider) Scripts(ctx context.Context, conn database.Connector) ([]script.Script, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]script.Script, len(m.scripts))
	copy(out, m.scripts)
	return out, nil
}

func (m *mockProvider) Options() *script.Options {
	return m.options
}

// mockScope records how the operation ended.
type mockScope struct {
	manager *mockConnections
}

func (s *mockScope) Release(runErr error) (bool, error) {
	s.manager.released = append(s.manager.released, runErr)
	s.manager.open--
	if s.manager.panicOnRelease {
		panic("release exploded")
	}
	return runErr != nil && s.manager.discardOnError, s.manager.releaseErr
}

// mockConnections is a connection manager that never touches a database.
type mockConnections struct {
	open           int
	started        int
	released       []error
	startErr       error
	releaseErr     error
	discardOnError bool
	panicOnRelease bool
	connectErr     string
	inScript       bool
	scriptUnits    int
	failedUnits    int
}

func (m *mockConnections) TryConnect(ctx context.Context) (bool, string) {
	if m.connectErr != "" {
		return false, m.connectErr
	}
	return true, ""
}

func (m *mockConnections) OperationStarting(ctx context.Context) (database.Scope, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started++
	m.open++
	return &mockScope{manager: m}, nil
}

func (m *mockConnections) WithConnection(ctx context.Context, fn func(database.Queryer) error) error {
	return fn(nil)
}

func (m *mockConnections) WithScriptTransaction(ctx context.Context, fn func(database.Queryer) error) error {
	m.scriptUnits++
	m.inScript = true
	defer func() { m.inScript = false }()
	if err := fn(nil); err != nil {
		m.failedUnits++
		return err
	}
	return nil
}

// mockExecutor records executed scripts and fails on demand.
type mockExecutor struct {
	executed  []string
	verified  int
	verifyErr error
	failOn    map[string]error
	panicOn   string
	variables map[string]string
}

func (m *mockExecutor) VerifySchema(ctx context.Context) error {
	m.verified++
	return m.verifyErr
}

func (m *mockExecutor) Execute(ctx context.Context, s script.Script, variables map[string]string) error {
	if s.Name == m.panicOn {
		panic("executor exploded")
	}
	if err, ok := m.failOn[s.Name]; ok {
		return err
	}
	m.variables = variables
	m.executed = append(m.executed, s.Name)
	return nil
}

// mockJournal keeps entries in memory and models the lazily created table
// and the hash column added by the first redeployable store.
type mockJournal struct {
	entries    []script.Executed
	exists     bool
	hashColumn bool
	hasher     script.Hasher
	readErr    error
	storeErr   map[string]error
	stored     []string

	// When set, stores made outside a script unit are recorded in outside.
	connections *mockConnections
	outside     []string
}

func newMockJournal() *mockJournal {
	return &mockJournal{hasher: script.SHA256Hasher{}}
}

func (m *mockJournal) ExecutedScripts(ctx context.Context) ([]script.Executed, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]script.Executed, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockJournal) StoreExecutedScript(ctx context.Context, s script.Script) error {
	if m.connections != nil && !m.connections.inScript {
		m.outside = append(m.outside, s.Name)
	}
	if err, ok := m.storeErr[s.Name]; ok {
		return err
	}
	m.exists = true
	entry := script.Executed{Name: s.Name}
	if s.RedeployOnChange {
		m.hashColumn = true
		h := m.hasher.Hash(s.Contents)
		entry.Hash = &h
	}
	m.entries = append(m.entries, entry)
	m.stored = append(m.stored, s.Name)
	return nil
}

func (m *mockJournal) EnsureReady(ctx context.Context) error {
	m.exists = true
	return nil
}

func (m *mockJournal) EverUsed(ctx context.Context) (bool, error) {
	return m.exists, nil
}

func (m *mockJournal) TracksHashes(ctx context.Context) (bool, error) {
	return m.hashColumn, nil
}

// hashingMockJournal is a mockJournal that reports its hasher.
type hashingMockJournal struct {
	*mockJournal
}

func (m hashingMockJournal) Hasher() script.Hasher {
	return m.hasher
}

var errBoom = errors.New("boom")
