// Package providers yields candidate scripts from code, directories and
// embedded file systems.
package providers

import (
	"context"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/script"
)

// Static provides a fixed list of scripts.
type Static struct {
	scripts []script.Script
	options *script.Options
}

// NewStatic returns a provider for scripts. A nil opts selects default options.
func NewStatic(scripts []script.Script, opts *script.Options) *Static {
	if opts == nil {
		opts = &script.Options{}
	}
	copied := make([]script.Script, len(scripts))
	copy(copied, scripts)
	return &Static{scripts: copied, options: opts}
}

// Scripts returns a copy of the configured scripts.
func (p *Static) Scripts(context.Context, database.Connector) ([]script.Script, error) {
	out := make([]script.Script, len(p.scripts))
	copy(out, p.scripts)
	return out, nil
}

func (p *Static) Options() *script.Options {
	return p.options
}
