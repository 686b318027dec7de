// Package achievement holds the static achievement catalog and the
// requirement evaluator that decides which achievements a user unlocks.
package achievement

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/resume-analyzer/progress-hub/internal/domain/shared"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Requirement is one condition of an achievement.
type Requirement struct {
	Kind      RequirementKind `json:"kind"`
	Threshold float64         `json:"threshold"`
}

// Definition is an immutable catalog entry. Unlock state is never stored here.
type Definition struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Icon         string        `json:"icon"`
	Category     string        `json:"category"`
	Points       int           `json:"points"`
	Requirements []Requirement `json:"requirements"`
}

// Color returns the badge color of the definition's category.
func (d Definition) Color() string {
	return CategoryColor(d.Category)
}

// EarnedAchievement is the per-user view of an unlocked definition.
type EarnedAchievement struct {
	Definition
	// UnlockedAt is zero when the unlock log has no entry.
	UnlockedAt time.Time `json:"unlocked_at"`
}

var categoryColors = map[string]string{
	"analysis":   "#2E86AB",
	"interview":  "#F18F01",
	"skills":     "#2a9d8f",
	"engagement": "#C73E1D",
	"social":     "#592E83",
	"special":    "#FFD700",
}

// CategoryColor returns the badge color for a category, gray when unknown.
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return "#666666"
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is the ordered, read-only set of achievement definitions.
// Safe for concurrent use: it is never mutated after load.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

// NewCatalog validates definitions and builds a catalog preserving their order.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, catalogError(shared.ErrDuplicateAchievement, fmt.Errorf("%q", d.ID))
		}
		d.Requirements = append([]Requirement(nil), d.Requirements...)
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

func validateDefinition(d Definition) error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return catalogError(shared.ErrInvalidAchievement, fmt.Errorf("empty id"))
	case d.Points < 0:
		return catalogError(shared.ErrInvalidAchievement, fmt.Errorf("%s: negative points", d.ID))
	case len(d.Requirements) == 0:
		return catalogError(shared.ErrInvalidAchievement, fmt.Errorf("%s: no requirements", d.ID))
	}
	for _, r := range d.Requirements {
		if !r.Kind.IsValid() {
			return catalogError(shared.ErrUnknownRequirement, fmt.Errorf("%s: %q", d.ID, r.Kind))
		}
	}
	return nil
}

func catalogError(kind *shared.DomainError, err error) error {
	return shared.WrapError("achievement", "LoadCatalog", kind, kind.Message, err)
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get returns a definition by id.
func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// ─── YAML loading ───────────────────────────────────────────────────────────

type catalogFile struct {
	Achievements []definitionYAML `yaml:"achievements"`
}

type definitionYAML struct {
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description"`
	Icon         string                 `yaml:"icon"`
	Category     string                 `yaml:"category"`
	Points       int                    `yaml:"points"`
	Requirements map[string]interface{} `yaml:"requirements"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("achievement", "LoadCatalog", shared.ErrInvalidFormat, "malformed catalog", err)
	}

	defs := make([]Definition, 0, len(file.Achievements))
	for _, raw := range file.Achievements {
		reqs, err := parseRequirements(raw.ID, raw.Requirements)
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition{
			ID:           raw.ID,
			Name:         raw.Name,
			Description:  raw.Description,
			Icon:         raw.Icon,
			Category:     raw.Category,
			Points:       raw.Points,
			Requirements: reqs,
		})
	}
	return NewCatalog(defs)
}

func parseRequirements(id string, raw map[string]interface{}) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(raw))
	for key, value := range raw {
		kind := RequirementKind(key)
		if !kind.IsValid() {
			return nil, catalogError(shared.ErrUnknownRequirement, fmt.Errorf("%s: %q", id, key))
		}
		threshold, err := thresholdOf(value)
		if err != nil {
			return nil, catalogError(shared.ErrInvalidAchievement, fmt.Errorf("%s.%s: %w", id, key, err))
		}
		reqs = append(reqs, Requirement{Kind: kind, Threshold: threshold})
	}
	// YAML maps are unordered; keep requirement order stable.
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Kind.order() < reqs[j].Kind.order() })
	return reqs, nil
}

func thresholdOf(v interface{}) (float64, error) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// MustDefaultCatalog is DefaultCatalog that panics on a broken embedded file.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a catalog from path, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}
