// Package content loads authored arc files (YAML) into runtime arcs.
// One file per arc; malformed chapters are skipped with a warning so a
// single bad edit never takes the whole catalogue down.
package content

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"saga-server/internal/arc"
	"saga-server/internal/models"
)

// arcFile is the on-disk arc schema.
type arcFile struct {
	ID       string                      `yaml:"id" validate:"required"`
	Name     string                      `yaml:"name"`
	Entry    string                      `yaml:"entry"`
	Gate     *gateSpec                   `yaml:"gate"`
	Chapters []*models.ChapterDefinition `yaml:"chapters" validate:"required,min=1"`
}

// gateSpec is the authored gate union, discriminated by kind.
type gateSpec struct {
	Kind string `yaml:"kind" validate:"required,oneof=club relationship progress"`

	// kind: club
	ClubID               string   `yaml:"club_id"`
	RequiredLevel        int      `yaml:"required_level"`
	RequiredAttendance   int      `yaml:"required_attendance"`
	RequiredAchievements []string `yaml:"required_achievements"`

	// kind: relationship
	Name        string `yaml:"name"`
	MinAffinity int    `yaml:"min_affinity"`

	// kind: progress
	Thresholds map[string]int `yaml:"thresholds"`
}

// Loader parses and validates arc files.
type Loader struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		validate: validator.New(),
		logger:   logger.Named("ContentLoader"),
	}
}

// LoadDir reads every .yaml/.yml file under the filesystem root, one arc
// per file. A file that fails to parse or validate as a whole is an error;
// individual invalid chapters inside a valid file are skipped and logged.
func (l *Loader) LoadDir(fsys fs.FS) ([]*arc.Arc, error) {
	var arcs []*arc.Arc
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("ошибка чтения файла '%s': %w", path, err)
		}
		a, err := l.LoadArc(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		arcs = append(arcs, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(arcs) == 0 {
		return nil, fmt.Errorf("%w: не найдено ни одного файла арки", models.ErrInvalidContent)
	}
	return arcs, nil
}

// LoadArc parses one arc file.
func (l *Loader) LoadArc(raw []byte) (*arc.Arc, error) {
	var file arcFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidContent, err)
	}
	if err := l.validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidContent, err)
	}

	defs := make(map[string]*models.ChapterDefinition, len(file.Chapters))
	for _, def := range file.Chapters {
		if err := l.validate.Struct(def); err != nil {
			l.logger.Warn("Skipping invalid chapter",
				zap.String("arcID", file.ID),
				zap.String("chapterID", def.ID),
				zap.Error(err))
			continue
		}
		if !hasPlayableContent(def) {
			l.logger.Warn("Skipping chapter without dialogues or choices",
				zap.String("arcID", file.ID),
				zap.String("chapterID", def.ID))
			continue
		}
		if _, exists := defs[def.ID]; exists {
			l.logger.Warn("Skipping duplicate chapter id",
				zap.String("arcID", file.ID),
				zap.String("chapterID", def.ID))
			continue
		}
		defs[def.ID] = def
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: в арке '%s' нет ни одной валидной главы", models.ErrInvalidContent, file.ID)
	}

	gate, err := buildGate(file.Gate)
	if err != nil {
		return nil, fmt.Errorf("арка '%s': %w", file.ID, err)
	}

	name := file.Name
	if name == "" {
		name = file.ID
	}
	return arc.NewArc(file.ID, name, file.Entry, gate, defs), nil
}

// hasPlayableContent enforces the per-kind minimum: every chapter needs
// dialogues or choices; branching chapters may carry scenes instead.
func hasPlayableContent(def *models.ChapterDefinition) bool {
	if len(def.Dialogues) > 0 || len(def.Choices) > 0 {
		return true
	}
	return def.Kind == models.ChapterKindBranching && len(def.Scenes) > 0
}

func buildGate(spec *gateSpec) (arc.Gate, error) {
	if spec == nil {
		return nil, nil
	}
	switch spec.Kind {
	case "club":
		return arc.ClubGate{
			ClubID:               spec.ClubID,
			RequiredLevel:        spec.RequiredLevel,
			RequiredAttendance:   spec.RequiredAttendance,
			RequiredAchievements: spec.RequiredAchievements,
		}, nil
	case "relationship":
		return arc.RelationshipGate{Name: spec.Name, MinAffinity: spec.MinAffinity}, nil
	case "progress":
		return arc.ProgressGate{Thresholds: spec.Thresholds}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный вид гейта '%s'", models.ErrInvalidContent, spec.Kind)
	}
}
