package upgrade

import "github.com/example/dbup/internal/script"

// ScriptFilter removes already applied scripts from a sorted candidate list.
type ScriptFilter interface {
	Filter(sorted []script.Script, executed []script.Executed, comparer script.NameComparer, hasher script.Hasher) []script.Script
}

// DefaultFilter excludes a candidate when a journal entry with the same name
// either carries no hash or carries the hash of the candidate's current contents.
type DefaultFilter struct{}

func (DefaultFilter) Filter(sorted []script.Script, executed []script.Executed, comparer script.NameComparer, hasher script.Hasher) []script.Script {
	pending := make([]script.Script, 0, len(sorted))
	for _, candidate := range sorted {
		if !alreadyApplied(candidate, executed, comparer, hasher) {
			pending = append(pending, candidate)
		}
	}
	return pending
}

// FilterByName excludes every candidate whose name appears in executed.
// It agrees with Filter when no journal entry carries a hash.
func (DefaultFilter) FilterByName(sorted []script.Script, executed []string, comparer script.NameComparer) []script.Script {
	pending := make([]script.Script, 0, len(sorted))
	for _, candidate := range sorted {
		found := false
		for _, name := range executed {
			if comparer.Equal(name, candidate.Name) {
				found = true
				break
			}
		}
		if !found {
			pending = append(pending, candidate)
		}
	}
	return pending
}

func alreadyApplied(candidate script.Script, executed []script.Executed, comparer script.NameComparer, hasher script.Hasher) bool {
	var hash *string
	for _, entry := range executed {
		if !comparer.Equal(entry.Name, candidate.Name) {
			continue
		}
		if entry.Hash == nil {
			return true
		}
		if hash == nil {
			h := hasher.Hash(candidate.Contents)
			hash = &h
		}
		if *entry.Hash == *hash {
			return true
		}
	}
	return false
}
