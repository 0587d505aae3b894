// Package upgrade reconciles the scripts a deployment ships with the journal
// of scripts already applied to the target database, and applies the rest.
//
// A run assembles candidates from every provider, optionally reorders each
// provider's scripts with a dependency file, sorts the combined list by name,
// and removes the scripts the journal already knows. Scripts marked
// RedeployOnChange are re-run whenever their content hash differs from the
// last recorded hash. Scripts marked FirstDeploymentAsStartingPoint are
// recorded without running when the journal has never seen that kind of script.
//
// Command operations (PerformUpgrade, MarkAsExecuted, MarkAsExecutedUpTo)
// never return an error; failures are reported in the Result together with
// the scripts processed before the failure. Query operations (NeedsUpgrade,
// PlanPendingScripts and the listing helpers) return errors to the caller.
//
// Example usage:
//
//	engine, err := upgrade.NewEngine(upgrade.Config{
//		Providers:   []upgrade.ScriptProvider{providers.NewFileSystem("sql", providers.FileSystemOptions{}, nil)},
//		Connections: manager,
//		Executor:    database.NewExecutor(manager, dialect.SQLite{}, "", logger),
//		Journal:     journal.NewTable(manager, dialect.SQLite{}, journal.TableOptions{}),
//	})
//	if err != nil {
//		return err
//	}
//	if result := engine.PerformUpgrade(ctx); !result.Successful {
//		return result.Error
//	}
//
// Runs are strictly sequential. Concurrent runs against the same database
// must be serialized by the caller.
package upgrade
