// Package seed loads classroom fixtures into the local store. A fixture lists
// each submission's files; change status and ranges come from an optional
// unified patch against the assignment baseline.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/stores"
)

// Fixture is the YAML document accepted by `grader serve --seed`.
type Fixture struct {
	ClassroomID int64        `yaml:"classroom_id"`
	Assignments []Assignment `yaml:"assignments"`
}

type Assignment struct {
	ID          int64        `yaml:"id"`
	Name        string       `yaml:"name"`
	Submissions []Submission `yaml:"submissions"`
}

type Submission struct {
	ID           int64     `yaml:"id"`
	Contributors []string  `yaml:"contributors"`
	CreatedAt    time.Time `yaml:"created_at"`
	Files        []File    `yaml:"files"`
	// Patch is a unified diff; files it touches get their status and ranges from it.
	Patch string `yaml:"patch"`
}

type File struct {
	Path     string `yaml:"path"`
	Content  string `yaml:"content"`
	Language string `yaml:"language"`
	// Status and Ranges override whatever the patch says about this file.
	Status string           `yaml:"status"`
	Ranges []snapshot.Range `yaml:"ranges"`
}

// Writer stores converted assignments.
type Writer interface {
	PutAssignment(ctx context.Context, a stores.Assignment) error
}

// LoadFile reads and parses a fixture.
func LoadFile(p string) (Fixture, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if f.ClassroomID == 0 {
		return Fixture{}, fmt.Errorf("fixture: classroom_id is required")
	}
	return f, nil
}

// Apply converts every assignment in f and writes it through w.
func Apply(ctx context.Context, w Writer, f Fixture) error {
	logger := logging.Component("seed")

	for _, a := range f.Assignments {
		converted, err := Convert(f.ClassroomID, a)
		if err != nil {
			return fmt.Errorf("assignment %d: %w", a.ID, err)
		}
		if err := w.PutAssignment(ctx, converted); err != nil {
			return err
		}
		logger.Info().
			Int64("assignment_id", a.ID).
			Int("submissions", len(a.Submissions)).
			Msg("seeded assignment")
	}
	return nil
}

// Convert turns a fixture assignment into the store's write shape.
func Convert(classroomID int64, a Assignment) (stores.Assignment, error) {
	if a.ID == 0 {
		return stores.Assignment{}, fmt.Errorf("id is required")
	}

	out := stores.Assignment{ClassroomID: classroomID, ID: a.ID, Name: a.Name}
	seen := make(map[int64]bool, len(a.Submissions))
	for _, s := range a.Submissions {
		if s.ID == 0 {
			return stores.Assignment{}, fmt.Errorf("submission id is required")
		}
		if seen[s.ID] {
			return stores.Assignment{}, fmt.Errorf("duplicate submission %d", s.ID)
		}
		seen[s.ID] = true

		sub, err := convertSubmission(s)
		if err != nil {
			return stores.Assignment{}, fmt.Errorf("submission %d: %w", s.ID, err)
		}
		out.Submissions = append(out.Submissions, sub)
	}
	return out, nil
}

func convertSubmission(s Submission) (stores.Submission, error) {
	changes, err := ParsePatch(s.Patch)
	if err != nil {
		return stores.Submission{}, err
	}

	out := stores.Submission{
		ID:           s.ID,
		Contributors: s.Contributors,
		CreatedAt:    s.CreatedAt,
	}

	dirs := make(map[string]bool)
	for _, f := range s.Files {
		if f.Path == "" {
			return stores.Submission{}, fmt.Errorf("file path is required")
		}

		for _, dir := range parents(f.Path) {
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			out.Entries = append(out.Entries, snapshot.Entry{Path: dir, Kind: snapshot.KindDirectory})
		}

		entry := snapshot.Entry{
			Path:      f.Path,
			Kind:      snapshot.KindFile,
			ContentID: contentID(f.Content),
			Status:    snapshot.StatusUnchanged,
		}
		if c, ok := changes[f.Path]; ok {
			entry.Status = c.Status
			entry.ChangeRanges = c.Ranges
		}
		if f.Status != "" {
			entry.Status = snapshot.ParseChangeStatus(f.Status)
		}
		if f.Ranges != nil {
			entry.ChangeRanges = f.Ranges
		}
		out.Entries = append(out.Entries, entry)

		lang := f.Language
		if lang == "" {
			lang = DetectLanguage(f.Path)
		}
		out.Files = append(out.Files, stores.File{Path: f.Path, Language: lang, Content: f.Content})
	}
	return out, nil
}

// parents returns the ancestor directories of p, outermost first.
func parents(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append([]string{dir}, out...)
	}
	return out
}

// DetectLanguage names the language of a file by its path, or "" if unknown.
func DetectLanguage(p string) string {
	lexer := lexers.Match(path.Base(p))
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
