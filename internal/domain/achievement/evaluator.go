package achievement

import (
	"github.com/resume-analyzer/progress-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUIREMENT KINDS
// ══════════════════════════════════════════════════════════════════════════════

// RequirementKind is the closed set of conditions an achievement can require.
type RequirementKind string

const (
	// Backed by persisted counters.
	KindResumesAnalyzed     RequirementKind = "resumes_analyzed"
	KindInterviewsCompleted RequirementKind = "interviews_completed"
	KindSkillsAdded         RequirementKind = "skills_added"
	KindCurrentStreak       RequirementKind = "current_streak"
	KindDaysActive          RequirementKind = "days_active"
	KindConnectionsMade     RequirementKind = "connections_made"

	// Read from the triggering activity's details.
	KindInterviewConfidence RequirementKind = "interview_confidence_score"
	KindPerfectResumeScore  RequirementKind = "perfect_resume_score"
	KindSkillCategories     RequirementKind = "skill_categories"
	KindUsersHelped         RequirementKind = "users_helped"

	// Derived from the user's signup order.
	KindEarlyAdopter RequirementKind = "early_adopter"
)

// Activity details keys read by payload requirements.
const (
	DetailConfidenceScore      = "confidence_score"
	DetailPerfectScore         = "perfect_score"
	DetailSkillCategoriesCount = "skill_categories_count"
	DetailUsersHelped          = "users_helped"
)

// DefaultEarlyAdopterCutoff is the number of first users eligible for early_adopter.
const DefaultEarlyAdopterCutoff = 100

// Source tells where a requirement reads its current value from.
type Source int

const (
	SourceProgress Source = iota
	SourcePayload
	SourceSignup
)

// measureFunc returns the current value of a requirement for a user.
type measureFunc func(e *Evaluator, p *progress.UserProgress, details map[string]interface{}) float64

type kindSpec struct {
	source  Source
	measure measureFunc
}

// registry maps every requirement kind to its measurement.
// Kind order in kindOrder drives requirement ordering in the catalog.
var registry = map[RequirementKind]kindSpec{
	KindResumesAnalyzed: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.TotalResumesAnalyzed)
	}},
	KindInterviewsCompleted: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.TotalInterviewsCompleted)
	}},
	KindSkillsAdded: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.SkillsAdded)
	}},
	KindCurrentStreak: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.CurrentStreak)
	}},
	KindDaysActive: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.DaysActive)
	}},
	KindConnectionsMade: {SourceProgress, func(_ *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return float64(p.ConnectionsMade)
	}},
	KindInterviewConfidence: {SourcePayload, func(_ *Evaluator, _ *progress.UserProgress, d map[string]interface{}) float64 {
		return progress.NumberDetail(d, DetailConfidenceScore)
	}},
	KindPerfectResumeScore: {SourcePayload, func(_ *Evaluator, _ *progress.UserProgress, d map[string]interface{}) float64 {
		return boolValue(progress.BoolDetail(d, DetailPerfectScore))
	}},
	KindSkillCategories: {SourcePayload, func(_ *Evaluator, _ *progress.UserProgress, d map[string]interface{}) float64 {
		return progress.NumberDetail(d, DetailSkillCategoriesCount)
	}},
	KindUsersHelped: {SourcePayload, func(_ *Evaluator, _ *progress.UserProgress, d map[string]interface{}) float64 {
		return progress.NumberDetail(d, DetailUsersHelped)
	}},
	KindEarlyAdopter: {SourceSignup, func(e *Evaluator, p *progress.UserProgress, _ map[string]interface{}) float64 {
		return boolValue(p.SignupOrder >= 1 && p.SignupOrder <= int64(e.earlyAdopterCutoff))
	}},
}

var kindOrder = []RequirementKind{
	KindResumesAnalyzed,
	KindInterviewsCompleted,
	KindSkillsAdded,
	KindCurrentStreak,
	KindDaysActive,
	KindConnectionsMade,
	KindInterviewConfidence,
	KindPerfectResumeScore,
	KindSkillCategories,
	KindUsersHelped,
	KindEarlyAdopter,
}

// Kinds returns every known requirement kind.
func Kinds() []RequirementKind {
	return append([]RequirementKind(nil), kindOrder...)
}

// IsValid reports whether k is a known requirement kind.
func (k RequirementKind) IsValid() bool {
	_, ok := registry[k]
	return ok
}

// Source returns where the kind reads its value from.
func (k RequirementKind) Source() Source {
	return registry[k].source
}

func (k RequirementKind) order() int {
	for i, known := range kindOrder {
		if k == known {
			return i
		}
	}
	return len(kindOrder)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator decides which catalog achievements a user satisfies.
// It is pure and safe for concurrent use.
type Evaluator struct {
	catalog            *Catalog
	earlyAdopterCutoff int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEarlyAdopterCutoff overrides how many first users count as early adopters.
func WithEarlyAdopterCutoff(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n >= 0 {
			e.earlyAdopterCutoff = n
		}
	}
}

// NewEvaluator creates an evaluator over catalog.
func NewEvaluator(catalog *Catalog, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		catalog:            catalog,
		earlyAdopterCutoff: DefaultEarlyAdopterCutoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the evaluator works on.
func (e *Evaluator) Catalog() *Catalog {
	return e.catalog
}

// Evaluate returns the achievements not yet earned by p whose requirements
// all hold, in catalog order. Malformed details never fail evaluation; the
// affected requirement is simply not met.
func (e *Evaluator) Evaluate(p *progress.UserProgress, details map[string]interface{}) []Definition {
	var unlocked []Definition
	for _, def := range e.catalog.defs {
		if p.HasAchievement(def.ID) {
			continue
		}
		if e.satisfied(def, p, details) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

func (e *Evaluator) satisfied(def Definition, p *progress.UserProgress, details map[string]interface{}) bool {
	for _, req := range def.Requirements {
		if e.measure(req.Kind, p, details) < req.Threshold {
			return false
		}
	}
	return true
}

func (e *Evaluator) measure(kind RequirementKind, p *progress.UserProgress, details map[string]interface{}) float64 {
	spec, ok := registry[kind]
	if !ok {
		return 0
	}
	return spec.measure(e, p, details)
}

// ─── Progress towards unearned achievements ─────────────────────────────────

// RequirementProgress is the completion of a single requirement.
type RequirementProgress struct {
	Current   float64 `json:"current"`
	Threshold float64 `json:"threshold"`
	Fraction  float64 `json:"fraction"`
}

// Progress is the completion of one unearned achievement. Overall is the
// smallest requirement fraction.
type Progress struct {
	Achievement  Definition                              `json:"achievement"`
	Overall      float64                                 `json:"overall_progress"`
	Requirements map[RequirementKind]RequirementProgress `json:"requirement_progress"`
}

// Progress reports, for every unearned achievement in catalog order, how
// close p is to it. Only persisted state is consulted: payload kinds
// report 0.
func (e *Evaluator) Progress(p *progress.UserProgress) []Progress {
	out := make([]Progress, 0, len(e.catalog.defs))
	for _, def := range e.catalog.defs {
		if p.HasAchievement(def.ID) {
			continue
		}

		reqs := make(map[RequirementKind]RequirementProgress, len(def.Requirements))
		overall := 1.0
		for _, req := range def.Requirements {
			rp := RequirementProgress{Threshold: req.Threshold}
			if req.Kind.Source() != SourcePayload {
				rp.Current = e.measure(req.Kind, p, nil)
			}
			rp.Fraction = fraction(rp.Current, req.Threshold)
			if rp.Fraction < overall {
				overall = rp.Fraction
			}
			reqs[req.Kind] = rp
		}
		if len(reqs) == 0 {
			overall = 0
		}

		out = append(out, Progress{Achievement: def, Overall: overall, Requirements: reqs})
	}
	return out
}

func fraction(current, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	f := current / threshold
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
