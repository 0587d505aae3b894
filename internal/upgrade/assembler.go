package upgrade

import (
	"context"
	"fmt"
	"sort"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/script"
)

// ScriptProvider yields candidate scripts along with the options stamped onto them.
type ScriptProvider interface {
	Scripts(ctx context.Context, conn database.Connector) ([]script.Script, error)
	Options() *script.Options
}

// Assembler merges the scripts of several providers into one sorted candidate list.
type Assembler struct {
	Orderer  DependencyOrderer
	Comparer script.NameComparer
}

// Assemble fetches every provider's scripts, applies its dependency file and
// flags, then sorts the combined list by name. The final sort is stable and
// overrides any dependency order that does not already collate by name.
func (a Assembler) Assemble(ctx context.Context, providers []ScriptProvider, conn database.Connector) ([]script.Script, error) {
	comparer := a.Comparer
	if comparer == nil {
		comparer = script.Ordinal{}
	}

	var all []script.Script
	for i, p := range providers {
		scripts, err := p.Scripts(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("provider %d: %w", i, err)
		}
		opts := p.Options()

		if len(scripts) > 0 && opts.DependencyOrderFilePath != "" {
			scripts, err = a.Orderer.Order(scripts, opts.DependencyOrderFilePath)
			if err != nil {
				return nil, err
			}
		}

		if opts.RedeployOnChange || opts.FirstDeploymentAsStartingPoint {
			for j := range scripts {
				scripts[j].RedeployOnChange = opts.RedeployOnChange
				scripts[j].FirstDeploymentAsStartingPoint = opts.FirstDeploymentAsStartingPoint
			}
		}
		all = append(all, scripts...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return comparer.Compare(all[i].Name, all[j].Name) < 0
	})
	return all, nil
}
