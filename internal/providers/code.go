package providers

import (
	"context"
	"fmt"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/script"
)

// CodeScript is a script whose body is produced by Go code. Build may query
// the target database to decide what to emit.
type CodeScript struct {
	Name  string
	Build func(ctx context.Context, q database.Queryer) (string, error)
}

// Code provides scripts generated at discovery time.
type Code struct {
	scripts []CodeScript
	options *script.Options
}

// NewCode returns a provider for the given code scripts.
func NewCode(opts *script.Options, scripts ...CodeScript) *Code {
	if opts == nil {
		opts = &script.Options{}
	}
	return &Code{scripts: scripts, options: opts}
}

// Scripts builds every code script on a connection from conn.
func (p *Code) Scripts(ctx context.Context, conn database.Connector) ([]script.Script, error) {
	out := make([]script.Script, 0, len(p.scripts))
	err := conn.WithConnection(ctx, func(q database.Queryer) error {
		for _, cs := range p.scripts {
			if cs.Build == nil {
				return fmt.Errorf("code script %s has no builder", cs.Name)
			}
			body, err := cs.Build(ctx, q)
			if err != nil {
				return fmt.Errorf("build code script %s: %w", cs.Name, err)
			}
			out = append(out, script.New(cs.Name, body))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Code) Options() *script.Options {
	return p.options
}
