package upgrade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/logging"
	"github.com/example/dbup/internal/script"
)

// ConnectionManager scopes every engine operation on the target database.
// WithScriptTransaction must route the WithConnection calls made inside fn
// through the same unit of work, so a script and its journal entry commit
// or roll back together.
type ConnectionManager interface {
	database.Connector
	TryConnect(ctx context.Context) (bool, string)
	OperationStarting(ctx context.Context) (database.Scope, error)
	WithScriptTransaction(ctx context.Context, fn func(database.Queryer) error) error
}

// ScriptExecutor runs scripts against the target database.
type ScriptExecutor interface {
	VerifySchema(ctx context.Context) error
	Execute(ctx context.Context, s script.Script, variables map[string]string) error
}

// Journal is the record of applied scripts.
type Journal interface {
	ExecutedScripts(ctx context.Context) ([]script.Executed, error)
	StoreExecutedScript(ctx context.Context, s script.Script) error
	EnsureReady(ctx context.Context) error
	EverUsed(ctx context.Context) (bool, error)
	TracksHashes(ctx context.Context) (bool, error)
}

// hashingJournal is implemented by journals that hash script contents
// themselves. The engine filter must agree with them.
type hashingJournal interface {
	Hasher() script.Hasher
}

// Config wires the engine's collaborators. Providers, Connections, Executor
// and Journal are required.
type Config struct {
	Providers   []ScriptProvider
	Connections ConnectionManager
	Executor    ScriptExecutor
	Journal     Journal

	Filter    ScriptFilter        // Defaults to DefaultFilter
	Orderer   DependencyOrderer   // Reads dependency files from disk by default
	Hasher    script.Hasher       // Defaults to the journal's hasher, else SHA256Hasher; must match the journal's
	Comparer  script.NameComparer // Defaults to Ordinal
	Variables map[string]string   // $name$ substitutions passed to the executor
	Logger    *slog.Logger        // Defaults to slog.Default()
}

// Engine computes and applies pending scripts. An Engine runs one operation
// at a time and must not be shared between goroutines running operations.
type Engine struct {
	providers   []ScriptProvider
	connections ConnectionManager
	executor    ScriptExecutor
	journal     Journal
	filter      ScriptFilter
	assembler   Assembler
	hasher      script.Hasher
	comparer    script.NameComparer
	variables   map[string]string
	logger      *slog.Logger

	phase Phase
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Connections == nil {
		return nil, NewConfigurationError("Connections", "a connection manager is required")
	}
	if cfg.Executor == nil {
		return nil, NewConfigurationError("Executor", "a script executor is required")
	}
	if cfg.Journal == nil {
		return nil, NewConfigurationError("Journal", "a journal is required")
	}
	for i, p := range cfg.Providers {
		if p == nil {
			return nil, NewConfigurationError(fmt.Sprintf("Providers[%d]", i), "provider is nil")
		}
		if p.Options() == nil {
			return nil, NewConfigurationError(fmt.Sprintf("Providers[%d]", i), "script options are nil")
		}
	}

	if cfg.Filter == nil {
		cfg.Filter = DefaultFilter{}
	}
	if hj, ok := cfg.Journal.(hashingJournal); ok && hj.Hasher() != nil {
		if cfg.Hasher == nil {
			cfg.Hasher = hj.Hasher()
		} else if !sameHasher(cfg.Hasher, hj.Hasher()) {
			return nil, NewConfigurationError("Hasher", "differs from the journal's hasher")
		}
	}
	if cfg.Hasher == nil {
		cfg.Hasher = script.SHA256Hasher{}
	}
	if cfg.Comparer == nil {
		cfg.Comparer = script.Ordinal{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		providers:   cfg.Providers,
		connections: cfg.Connections,
		executor:    cfg.Executor,
		journal:     cfg.Journal,
		filter:      cfg.Filter,
		assembler:   Assembler{Orderer: cfg.Orderer, Comparer: cfg.Comparer},
		hasher:      cfg.Hasher,
		comparer:    cfg.Comparer,
		variables:   cfg.Variables,
		logger:      cfg.Logger,
	}, nil
}

// Phase returns the phase reached by the most recent command run.
func (e *Engine) Phase() Phase {
	return e.phase
}

// TryConnect reports whether the target database is reachable.
func (e *Engine) TryConnect(ctx context.Context) (bool, string) {
	return e.connections.TryConnect(ctx)
}

// NeedsUpgrade reports whether any script is pending.
func (e *Engine) NeedsUpgrade(ctx context.Context) (bool, error) {
	pending, err := e.PlanPendingScripts(ctx)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// PlanPendingScripts returns the scripts PerformUpgrade would process, in order.
// It writes nothing.
func (e *Engine) PlanPendingScripts(ctx context.Context) ([]script.Script, error) {
	var pending []script.Script
	err := e.query(ctx, func(ctx context.Context) error {
		var err error
		pending, err = e.pendingScripts(ctx)
		return err
	})
	return pending, err
}

// DiscoveredScripts returns the sorted candidate list of all providers.
func (e *Engine) DiscoveredScripts(ctx context.Context) ([]script.Script, error) {
	var discovered []script.Script
	err := e.query(ctx, func(ctx context.Context) error {
		var err error
		discovered, err = e.assembler.Assemble(ctx, e.providers, e.connections)
		return err
	})
	return discovered, err
}

// ExecutedScripts returns the names recorded in the journal, in journal order.
func (e *Engine) ExecutedScripts(ctx context.Context) ([]string, error) {
	var names []string
	err := e.query(ctx, func(ctx context.Context) error {
		executed, err := e.journal.ExecutedScripts(ctx)
		if err != nil {
			return err
		}
		names = make([]string, len(executed))
		for i, entry := range executed {
			names[i] = entry.Name
		}
		return nil
	})
	return names, err
}

// ExecutedButNotDiscovered returns the journal names no provider yields any more.
func (e *Engine) ExecutedButNotDiscovered(ctx context.Context) ([]string, error) {
	var orphans []string
	err := e.query(ctx, func(ctx context.Context) error {
		discovered, err := e.assembler.Assemble(ctx, e.providers, e.connections)
		if err != nil {
			return err
		}
		executed, err := e.journal.ExecutedScripts(ctx)
		if err != nil {
			return err
		}
		for _, entry := range executed {
			if !e.containsName(discovered, entry.Name) {
				orphans = append(orphans, entry.Name)
			}
		}
		return nil
	})
	return orphans, err
}

// PerformUpgrade executes every pending script and records it in the journal.
// Failures are reported in the Result; scripts processed before the failure
// are kept unless the operation transaction was rolled back.
func (e *Engine) PerformUpgrade(ctx context.Context) Result {
	return e.command(ctx, "upgrade", func(ctx context.Context, r *run) error {
		r.logger.Info("Beginning database upgrade")

		pending, err := e.pendingScripts(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			r.transition(PhaseEmpty)
			r.logger.Info("No new scripts need to be executed - completing.")
			return nil
		}
		r.transition(PhaseExecuting)

		if err := e.executor.VerifySchema(ctx); err != nil {
			return err
		}

		// Captured once so every script of this run sees the journal as it
		// was before the run started.
		everUsed, err := e.journal.EverUsed(ctx)
		if err != nil {
			return err
		}
		tracksHashes, err := e.journal.TracksHashes(ctx)
		if err != nil {
			return err
		}

		for _, s := range pending {
			r.current = s.Name
			if err := ctx.Err(); err != nil {
				return err
			}

			baseline := isBaseline(s, everUsed, tracksHashes)
			err := e.connections.WithScriptTransaction(ctx, func(database.Queryer) error {
				if baseline {
					r.logger.Info("Recording script as starting point without executing", "script", s.Name)
				} else if err := e.executor.Execute(ctx, s, e.variables); err != nil {
					return err
				}
				return e.journal.StoreExecutedScript(ctx, s)
			})
			if err != nil {
				return err
			}
			r.scripts = append(r.scripts, s)
		}
		r.current = ""

		r.logger.Info("Upgrade successful", "scripts", len(r.scripts))
		return nil
	})
}

// MarkAsExecuted records every pending script in the journal without running it.
func (e *Engine) MarkAsExecuted(ctx context.Context) Result {
	return e.markAsExecuted(ctx, "")
}

// MarkAsExecutedUpTo records pending scripts without running them, stopping
// after the script named latest.
func (e *Engine) MarkAsExecutedUpTo(ctx context.Context, latest string) Result {
	return e.markAsExecuted(ctx, latest)
}

func (e *Engine) markAsExecuted(ctx context.Context, latest string) Result {
	return e.command(ctx, "mark_executed", func(ctx context.Context, r *run) error {
		pending, err := e.pendingScripts(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			r.transition(PhaseEmpty)
			r.logger.Info("No new scripts need to be marked - completing.")
			return nil
		}
		r.transition(PhaseExecuting)

		for _, s := range pending {
			r.current = s.Name
			if err := e.journal.StoreExecutedScript(ctx, s); err != nil {
				return err
			}
			r.logger.Info("Marking script as executed", "script", s.Name)
			r.scripts = append(r.scripts, s)
			if latest != "" && e.comparer.Equal(s.Name, latest) {
				break
			}
		}
		r.current = ""

		r.logger.Info("Script marking successful", "scripts", len(r.scripts))
		return nil
	})
}

// sameHasher reports whether a and b produce the same digest for a fixed input.
func sameHasher(a, b script.Hasher) bool {
	const sample = "dbup hasher check"
	return a.Hash(sample) == b.Hash(sample)
}

func isBaseline(s script.Script, everUsed, tracksHashes bool) bool {
	if !s.FirstDeploymentAsStartingPoint {
		return false
	}
	if s.RedeployOnChange {
		return !tracksHashes
	}
	return !everUsed
}

func (e *Engine) pendingScripts(ctx context.Context) ([]script.Script, error) {
	candidates, err := e.assembler.Assemble(ctx, e.providers, e.connections)
	if err != nil {
		return nil, err
	}
	executed, err := e.journal.ExecutedScripts(ctx)
	if err != nil {
		return nil, err
	}
	return e.filter.Filter(candidates, executed, e.comparer, e.hasher), nil
}

func (e *Engine) containsName(scripts []script.Script, name string) bool {
	for _, s := range scripts {
		if e.comparer.Equal(s.Name, name) {
			return true
		}
	}
	return false
}

// query runs fn inside an operation scope and returns its error unchanged.
func (e *Engine) query(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, err := e.connections.OperationStarting(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx)
	if _, relErr := scope.Release(runErr); relErr != nil && runErr == nil {
		return relErr
	}
	return runErr
}

// run accumulates the outcome of one command.
type run struct {
	id      string
	logger  *slog.Logger
	phase   Phase
	current string
	scripts []script.Script
}

func (r *run) transition(to Phase) {
	if !isAllowedTransition(r.phase, to) {
		r.logger.Warn("unexpected phase transition", "from", r.phase.String(), "to", to.String())
	}
	r.logger.Debug("phase transition", "from", r.phase.String(), "to", to.String())
	r.phase = to
}

// command runs body inside an operation scope, converts panics into errors
// and always returns a Result.
func (e *Engine) command(ctx context.Context, operation string, body func(ctx context.Context, r *run) error) Result {
	r := &run{id: uuid.NewString(), scripts: make([]script.Script, 0)}
	r.logger = e.logger.With("run_id", r.id, "operation", operation)
	ctx = logging.ContextWithLogger(ctx, r.logger)
	r.transition(PhaseResolving)

	runErr := e.inScope(ctx, r, body)
	result := e.finish(r, runErr)
	e.phase = r.phase
	return result
}

func (e *Engine) inScope(ctx context.Context, r *run, body func(ctx context.Context, r *run) error) error {
	scope, err := safely(func() (database.Scope, error) { return e.connections.OperationStarting(ctx) })
	if err != nil {
		return err
	}

	_, runErr := safely(func() (struct{}, error) { return struct{}{}, body(ctx, r) })

	discarded, relErr := safely(func() (bool, error) { return scope.Release(runErr) })
	if discarded {
		r.logger.Info("Operation transaction rolled back, no scripts were persisted", "discarded", len(r.scripts))
		r.scripts = r.scripts[:0]
	}
	if relErr != nil {
		if runErr != nil {
			r.logger.Error("Failed to release operation", "error", relErr)
			return runErr
		}
		return relErr
	}
	return runErr
}

func (e *Engine) finish(r *run, runErr error) Result {
	result := Result{RunID: r.id, Scripts: r.scripts, Successful: runErr == nil}
	if runErr == nil {
		r.transition(PhaseDone)
		return result
	}

	if r.current != "" {
		runErr = NewScriptError(r.current, runErr)
		result.ErrorScript = r.current
	}
	result.Error = runErr
	r.transition(PhaseFailed)
	r.logger.Error("Upgrade failed", "script", r.current, "processed", len(r.scripts), "error", runErr)
	return result
}

// safely calls fn and converts a panic into an ErrPanic error.
func safely[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return fn()
}
