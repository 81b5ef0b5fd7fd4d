// Package materials confines every file access to a single materials root
// and maps subject names onto folders beneath it.
package materials

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// AliasTable maps alternative subject names onto folder names. It is built
// once at startup and never modified afterwards.
type AliasTable struct {
	byKey map[string]string
	names []string
}

// DefaultAliases are used when no alias table is configured.
var DefaultAliases = map[string]string{
	"Mathematics":     "Math",
	"Global Politics": "GlobalPolitics",
}

// NewAliasTable copies m into an immutable table. Keys match case-insensitively.
func NewAliasTable(m map[string]string) AliasTable {
	t := AliasTable{byKey: make(map[string]string, len(m))}
	for alias, folder := range m {
		key := strings.ToLower(strings.TrimSpace(alias))
		if key == "" || folder == "" {
			continue
		}
		t.byKey[key] = folder
		t.names = append(t.names, alias)
	}
	sort.Strings(t.names)
	return t
}

// Lookup returns the folder an alias points to.
func (t AliasTable) Lookup(alias string) (string, bool) {
	folder, ok := t.byKey[strings.ToLower(strings.TrimSpace(alias))]
	return folder, ok
}

// AliasesFor returns every alias that points to folder, sorted.
func (t AliasTable) AliasesFor(folder string) []string {
	var out []string
	for _, name := range t.names {
		if f, _ := t.Lookup(name); strings.EqualFold(f, folder) {
			out = append(out, name)
		}
	}
	return out
}

// Resolver maps relative paths and subject names to absolute paths under Root.
type Resolver struct {
	root    string
	aliases AliasTable
}

// NewResolver creates a Resolver for root, which must be an existing directory.
func NewResolver(root string, aliases AliasTable) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("materials root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("materials root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("materials root %q is not a directory", root)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Resolver{root: filepath.Clean(abs), aliases: aliases}, nil
}

// Root returns the absolute materials root.
func (r *Resolver) Root() string {
	return r.root
}

// Aliases returns the resolver's alias table.
func (r *Resolver) Aliases() AliasTable {
	return r.aliases
}

// Resolve maps a root-relative path to an absolute path. It returns false for
// any input that contains a ".." segment or that would land outside the root.
// Callers must not touch the filesystem when ok is false.
func (r *Resolver) Resolve(rel string) (abs string, ok bool) {
	clean, ok := NormalizeRel(rel)
	if !ok {
		return "", false
	}
	abs = filepath.Join(r.root, filepath.FromSlash(clean))
	if !r.within(abs) {
		return "", false
	}
	// A symlink inside the tree must not lead out of it.
	if real, err := filepath.EvalSymlinks(abs); err == nil && !r.within(real) {
		return "", false
	}
	return abs, true
}

// Rel converts an absolute path under the root back into its
// forward-slash relative form.
func (r *Resolver) Rel(abs string) (string, bool) {
	if !r.within(abs) || abs == r.root {
		return "", false
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (r *Resolver) within(abs string) bool {
	abs = filepath.Clean(abs)
	return abs == r.root || strings.HasPrefix(abs, r.root+string(filepath.Separator))
}

// NormalizeRel converts backslashes to slashes, drops leading slashes and
// "." segments, and rejects ".." segments and empty paths.
func NormalizeRel(rel string) (string, bool) {
	rel = strings.ReplaceAll(strings.TrimSpace(rel), `\`, "/")
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}
	// Windows drive letters are never relative.
	if len(rel) >= 2 && rel[1] == ':' {
		return "", false
	}
	clean := strings.TrimLeft(path.Clean("/"+rel), "/")
	if clean == "" || clean == "." {
		return "", false
	}
	return clean, true
}

// ResolveSubject maps a subject identifier to its folder name and absolute
// path. It tries an exact folder match, then a case-insensitive match, then
// the alias table. It returns false when nothing matches.
func (r *Resolver) ResolveSubject(subject string) (folder, abs string, ok bool) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", "", false
	}
	folders, err := r.subjectFolders()
	if err != nil {
		return "", "", false
	}

	match := func(name string) (string, bool) {
		for _, f := range folders {
			if f == name {
				return f, true
			}
		}
		for _, f := range folders {
			if strings.EqualFold(f, name) {
				return f, true
			}
		}
		return "", false
	}

	folder, ok = match(subject)
	if !ok {
		target, found := r.aliases.Lookup(subject)
		if !found {
			return "", "", false
		}
		if folder, ok = match(target); !ok {
			return "", "", false
		}
	}

	abs, ok = r.Resolve(folder)
	if !ok {
		return "", "", false
	}
	return folder, abs, true
}

// subjectFolders lists the immediate, non-hidden directories under the root.
func (r *Resolver) subjectFolders() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folders = append(folders, e.Name())
	}
	sort.Strings(folders)
	return folders, nil
}
