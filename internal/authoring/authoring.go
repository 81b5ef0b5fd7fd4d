// Package authoring validates resource content written by teachers or
// generators and imports seed files of resources.
package authoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/studyroom/internal/model"
	"github.com/pavelanni/studyroom/internal/quiz"
	"github.com/pavelanni/studyroom/internal/review"
	"github.com/pavelanni/studyroom/internal/store"
)

// Canonical validates content for a resource type and returns its canonical
// stored form.
func Canonical(typ model.ResourceType, content string) (string, error) {
	switch typ {
	case model.ResourceQuiz:
		return quiz.Canonicalize(content)
	case model.ResourceFlashcards:
		return review.Canonicalize(content)
	}
	return "", fmt.Errorf("%w: unknown resource type %q", model.ErrValidation, typ)
}

// NewResource validates a draft and fills in canonical content.
func NewResource(r model.Resource) (model.Resource, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return r, fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	content, err := Canonical(r.Type, r.Content)
	if err != nil {
		return r, err
	}
	r.Content = content
	return r, nil
}

// ImportResult reports what an import did.
type ImportResult struct {
	Imported  int  `json:"imported"`
	Unchanged bool `json:"unchanged"`
	// Changed is set when a file was imported before with different content.
	// Such files are not re-imported so existing attempts keep their quiz.
	Changed bool `json:"changed"`
}

// Import loads a JSON list of model.ResourceImport owned by ownerID. A file
// already imported under the same name is skipped, whether or not its content
// changed since.
// The whole file is validated before anything is stored.
func Import(st *store.Store, ownerID int64, name string, data []byte) (*ImportResult, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	stored, err := st.GetImportedFileHash(name)
	if err != nil {
		return nil, fmt.Errorf("check import status: %w", err)
	}
	if stored == hash {
		slog.Info("resource file unchanged, skipping import", "file", name)
		return &ImportResult{Unchanged: true}, nil
	}
	if stored != "" {
		slog.Warn("resource file changed since last import, skipping", "file", name)
		return &ImportResult{Changed: true}, nil
	}

	var items []model.ResourceImport
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", model.ErrValidation, name, err)
	}

	resources := make([]model.Resource, 0, len(items))
	for i, it := range items {
		raw, err := json.Marshal(it.Content)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", name, i+1, err)
		}
		r, err := NewResource(model.Resource{
			Type:      it.Type,
			Title:     it.Title,
			Subject:   it.Subject,
			OwnerID:   ownerID,
			ClassID:   it.ClassID,
			Published: it.Published,
			Content:   string(raw),
		})
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", name, i+1, err)
		}
		resources = append(resources, r)
	}

	for _, r := range resources {
		if _, err := st.CreateResource(r); err != nil {
			return nil, fmt.Errorf("store %q: %w", r.Title, err)
		}
	}
	if err := st.SetImportedFileHash(name, hash); err != nil {
		return nil, fmt.Errorf("record import: %w", err)
	}
	slog.Info("imported resources", "file", name, "count", len(resources))
	return &ImportResult{Imported: len(resources)}, nil
}
