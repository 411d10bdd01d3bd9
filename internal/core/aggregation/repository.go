package aggregation

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrPlanNotFound is returned when a plan name is not in the catalog.
var ErrPlanNotFound = errors.New("aggregation plan not found")

// PlanDefinition is a named plan loaded from the catalog.
type PlanDefinition struct {
	Name        string
	Fingerprint string // SHA-256 of the raw YAML file
	Path        string
	Plan        *Plan
}

// PlanRepository gives access to the configured plans.
type PlanRepository interface {
	// Get returns the plan with the given name, or ErrPlanNotFound.
	Get(ctx context.Context, name string) (*PlanDefinition, error)

	// List returns every plan sorted by name.
	List(ctx context.Context) ([]PlanDefinition, error)

	// Plans returns every plan sorted by name.
	Plans() []PlanDefinition
}

// FileSystemPlanRepository loads plans from *.yaml files in a directory, one
// plan per file. Plans are loaded once and cached in memory.
type FileSystemPlanRepository struct {
	dir   string
	plans map[string]PlanDefinition
}

// NewFileSystemPlanRepository creates a repository and eagerly loads every
// plan in dir. A missing directory yields an empty catalog; any malformed plan
// is an error.
func NewFileSystemPlanRepository(dir string) (*FileSystemPlanRepository, error) {
	repo := &FileSystemPlanRepository{
		dir:   dir,
		plans: make(map[string]PlanDefinition),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemPlanRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("aggregation plan dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("aggregation plan path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading aggregation plan dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading plan file %s: %w", path, err)
		}

		def, ok, err := ParsePlan(data)
		if err != nil {
			return fmt.Errorf("plan file %s: %w", path, err)
		}
		if !ok {
			continue // empty / comment-only file
		}
		if _, exists := r.plans[def.Name]; exists {
			return fmt.Errorf("plan %q: duplicate plan name (check multiple YAML files)", def.Name)
		}

		def.Path = path
		r.plans[def.Name] = def
	}
	return nil
}

// ParsePlan decodes one YAML plan document. ok is false when the document has
// no name, which marks a file to skip.
func ParsePlan(data []byte) (def PlanDefinition, ok bool, err error) {
	var raw rawPlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return PlanDefinition{}, false, fmt.Errorf("parsing plan: %w", err)
	}
	if raw.Name == "" {
		return PlanDefinition{}, false, nil
	}

	plan, err := raw.compile()
	if err != nil {
		return PlanDefinition{}, false, fmt.Errorf("plan %q: %w", raw.Name, err)
	}

	return PlanDefinition{
		Name:        raw.Name,
		Fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
		Plan:        plan,
	}, true, nil
}

// Get returns the plan with the given name.
func (r *FileSystemPlanRepository) Get(_ context.Context, name string) (*PlanDefinition, error) {
	def, ok := r.plans[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPlanNotFound, name)
	}
	return &def, nil
}

// List returns every plan sorted by name.
func (r *FileSystemPlanRepository) List(_ context.Context) ([]PlanDefinition, error) {
	return r.Plans(), nil
}

// Plans returns every plan sorted by name.
func (r *FileSystemPlanRepository) Plans() []PlanDefinition {
	plans := make([]PlanDefinition, 0, len(r.plans))
	for _, def := range r.plans {
		plans = append(plans, def)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans
}
