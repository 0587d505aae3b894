package upgrade

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/example/dbup/internal/script"
)

// DependencyOrderer moves the scripts listed in a dependency file ahead of
// the rest of a provider's scripts.
type DependencyOrderer struct {
	// ReadFile loads the dependency file. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Order returns the scripts named in the file at path, in file order,
// followed by the unlisted scripts in their original relative order.
// Names are matched exactly. A name listed more than once is emitted only at
// its first position, so each script appears once in the result. Every listed
// name without a matching script is reported in a single error.
func (o DependencyOrderer) Order(scripts []script.Script, path string) ([]script.Script, error) {
	readFile := o.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	data, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DependencyFileError{Path: path, Err: ErrDependencyFileNotFound}
		}
		return nil, &DependencyFileError{Path: path, Err: err}
	}

	byName := make(map[string]int, len(scripts))
	for i, s := range scripts {
		if _, dup := byName[s.Name]; !dup {
			byName[s.Name] = i
		}
	}

	var (
		ordered = make([]script.Script, 0, len(scripts))
		listed  = make(map[string]bool)
		missing []string
	)
	for _, name := range splitLines(data) {
		idx, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if listed[name] {
			continue
		}
		listed[name] = true
		ordered = append(ordered, scripts[idx])
	}
	if len(missing) > 0 {
		return nil, &DependencyFileError{Path: path, Missing: missing, Err: ErrMissingDependencies}
	}

	for _, s := range scripts {
		if !listed[s.Name] {
			ordered = append(ordered, s)
		}
	}
	return ordered, nil
}

// splitLines splits raw file content into lines. A trailing line break does
// not produce an empty final line; blank lines elsewhere are kept.
func splitLines(data []byte) []string {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
