package materials

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pavelanni/studyroom/internal/extract"
	"github.com/pavelanni/studyroom/internal/model"
)

// Subjects lists every subject folder under the root with the aliases that
// resolve to it. The listing is read fresh on every call.
func (r *Resolver) Subjects() ([]model.Subject, error) {
	folders, err := r.subjectFolders()
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjects := make([]model.Subject, 0, len(folders))
	for _, f := range folders {
		subjects = append(subjects, model.Subject{Folder: f, Aliases: r.aliases.AliasesFor(f)})
	}
	return subjects, nil
}

// ListFiles returns every regular file under the subject's folder, sorted by
// relative path. Hidden files and directories are skipped.
func (r *Resolver) ListFiles(subject string) ([]model.SourceFile, error) {
	_, dir, ok := r.ResolveSubject(subject)
	if !ok {
		return nil, fmt.Errorf("%w: subject %q", model.ErrNotFound, subject)
	}

	var files []model.SourceFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, ok := r.Rel(p)
		if !ok {
			return nil
		}
		files = append(files, model.SourceFile{
			Path:        rel,
			DisplayName: d.Name(),
			Format:      extract.Classify(d.Name(), "").String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk subject %q: %w", subject, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// SupportedFiles is ListFiles filtered to formats the extractor handles.
func (r *Resolver) SupportedFiles(subject string) ([]model.SourceFile, error) {
	all, err := r.ListFiles(subject)
	if err != nil {
		return nil, err
	}
	var out []model.SourceFile
	for _, f := range all {
		if f.Format != extract.Unsupported.String() {
			out = append(out, f)
		}
	}
	return out, nil
}
