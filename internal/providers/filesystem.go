package providers

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/script"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileSystemOptions controls which files a directory provider picks up.
type FileSystemOptions struct {
	// IncludeSubDirectories walks the whole tree below the root.
	IncludeSubDirectories bool

	// Pattern is an optional glob matched against the base file name. The
	// .sql suffix is always required.
	Pattern string

	// Filter, when set, must accept the slash-separated path relative to
	// the root for the file to be used.
	Filter func(relPath string) bool
}

// Embedded provides the .sql files found under root in fsys.
type Embedded struct {
	fsys    fs.FS
	root    string
	fsOpts  FileSystemOptions
	options *script.Options
}

// NewEmbedded returns a provider reading scripts from fsys, typically an
// embed.FS. An empty root means the top of fsys.
func NewEmbedded(fsys fs.FS, root string, fsOpts FileSystemOptions, opts *script.Options) *Embedded {
	if opts == nil {
		opts = &script.Options{}
	}
	if root == "" {
		root = "."
	}
	return &Embedded{fsys: fsys, root: path.Clean(root), fsOpts: fsOpts, options: opts}
}

// Scripts reads the matching files, names them and sorts them by name.
func (p *Embedded) Scripts(ctx context.Context, _ database.Connector) ([]script.Script, error) {
	return scanScripts(ctx, p.fsys, p.root, p.root, p.fsOpts, p.options.IncludeSubDirectoryInName)
}

func (p *Embedded) Options() *script.Options {
	return p.options
}

// FileSystem provides the .sql files found in a directory on disk.
type FileSystem struct {
	dir     string
	fsOpts  FileSystemOptions
	options *script.Options
}

// NewFileSystem returns a provider reading scripts from dir.
func NewFileSystem(dir string, fsOpts FileSystemOptions, opts *script.Options) *FileSystem {
	if opts == nil {
		opts = &script.Options{}
	}
	return &FileSystem{dir: dir, fsOpts: fsOpts, options: opts}
}

// Scripts reads the matching files, names them and sorts them by name.
func (p *FileSystem) Scripts(ctx context.Context, _ database.Connector) ([]script.Script, error) {
	info, err := os.Stat(p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileSystemError(p.dir, "scan directory", ErrDirectoryNotFound)
		}
		return nil, NewFileSystemError(p.dir, "scan directory", err)
	}
	if !info.IsDir() {
		return nil, NewFileSystemError(p.dir, "scan directory", errors.New("not a directory"))
	}
	return scanScripts(ctx, os.DirFS(p.dir), ".", p.dir, p.fsOpts, p.options.IncludeSubDirectoryInName)
}

func (p *FileSystem) Options() *script.Options {
	return p.options
}

func scanScripts(ctx context.Context, fsys fs.FS, root, display string, opts FileSystemOptions, nameWithDir bool) ([]script.Script, error) {
	if opts.Pattern != "" {
		if _, err := path.Match(opts.Pattern, ""); err != nil {
			return nil, NewFileSystemError(display, "match pattern", err)
		}
	}

	var scripts []script.Script
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && errors.Is(err, fs.ErrNotExist) {
				return ErrDirectoryNotFound
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && !opts.IncludeSubDirectories {
				return fs.SkipDir
			}
			return nil
		}

		base := d.Name()
		if !strings.HasSuffix(strings.ToLower(base), ".sql") {
			return nil
		}
		if opts.Pattern != "" {
			if ok, _ := path.Match(opts.Pattern, base); !ok {
				return nil
			}
		}
		rel := relativePath(root, p)
		if opts.Filter != nil && !opts.Filter(rel) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return NewFileSystemError(p, "read file", err)
		}

		name := base
		if nameWithDir {
			name = rel
		}
		scripts = append(scripts, script.New(name, string(bytes.TrimPrefix(data, utf8BOM))))
		return nil
	})
	if err != nil {
		var fsErr *FileSystemError
		if errors.As(err, &fsErr) {
			return nil, err
		}
		return nil, NewFileSystemError(display, "scan directory", err)
	}

	sort.SliceStable(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

func relativePath(root, p string) string {
	if root == "." {
		return p
	}
	return strings.TrimPrefix(p, root+"/")
}
