package journal

import (
	"context"

	"github.com/example/dbup/internal/script"
)

// Null is a journal that remembers nothing. Every run treats all scripts as
// new, which suits scripts that are safe to run on every deployment.
type Null struct{}

func (Null) ExecutedScripts(context.Context) ([]script.Executed, error) { return nil, nil }

func (Null) StoreExecutedScript(context.Context, script.Script) error { return nil }

func (Null) EnsureReady(context.Context) error { return nil }

func (Null) EverUsed(context.Context) (bool, error) { return false, nil }

func (Null) TracksHashes(context.Context) (bool, error) { return false, nil }
