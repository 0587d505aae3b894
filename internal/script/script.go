// Package script defines the deployable SQL script model shared by the
// providers, the journal and the upgrade engine.
package script

// Script is a named, versioned change to apply against a database.
type Script struct {
	Name                           string // Unique identity after the global sort
	Contents                       string // Raw script text, used for hashing and execution
	RedeployOnChange               bool   // Re-apply whenever the content hash changes
	FirstDeploymentAsStartingPoint bool   // Record without executing on first deployment
}

// New returns a script with the given name and contents and no deployment flags.
func New(name, contents string) Script {
	return Script{Name: name, Contents: contents}
}

// Options holds the per-provider settings that are stamped onto every script
// the provider yields.
type Options struct {
	// RedeployOnChange marks scripts for redeployment when their content changes.
	RedeployOnChange bool

	// FirstDeploymentAsStartingPoint records scripts as applied, without
	// running them, when the journal has never seen this kind of script.
	// Used when adopting the tool on an existing database.
	FirstDeploymentAsStartingPoint bool

	// DependencyOrderFilePath points to a file containing one script name per
	// line. Listed scripts are moved ahead of the rest, in file order.
	DependencyOrderFilePath string

	// IncludeSubDirectoryInName names file system scripts by their path
	// relative to the provider root rather than by base name.
	IncludeSubDirectoryInName bool
}

// Executed is a journal entry for an applied script.
type Executed struct {
	Name string
	Hash *string // nil when the entry predates hash tracking or is not redeployable
}

// HasHash reports whether the entry carries a content hash.
func (e Executed) HasHash() bool {
	return e.Hash != nil
}

// Names returns the script names in order.
func Names(scripts []Script) []string {
	names := make([]string, len(scripts))
	for i, s := range scripts {
		names[i] = s.Name
	}
	return names
}
