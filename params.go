package codescope

import "github.com/nehcuh/codescope/config"

// Scope controls which part of the graph contributes candidate nodes to a
// summary.
type Scope string

const (
	// ScopeSeedOnly keeps the seed nodes and nothing else.
	ScopeSeedOnly Scope = "seed_only"
	// ScopeModule keeps nodes that share a file path with any seed.
	ScopeModule Scope = "module"
	// ScopeCommunity expands from the seeds by BFS up to the radius.
	ScopeCommunity Scope = "community"
	// ScopeFull considers every node in the graph a candidate.
	ScopeFull Scope = "full"
)

// Format selects the summary serialization.
type Format string

const (
	FormatSummary Format = "summary"
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
)

// MaxRadius is the hard cap on BFS expansion. Radius 2 on a dense graph
// already reaches most of a typical codebase; anything beyond defeats the
// point of summarizing.
const MaxRadius = 2

// Params configures a single summarization request.
type Params struct {
	// Seeds are the node ids the summary is anchored on, typically the
	// symbols touched by a change.
	Seeds []string

	// Radius is the BFS expansion depth from the seeds. Default 1,
	// hard-capped at MaxRadius.
	Radius int
	// TopK bounds the kept candidate set. Default 200.
	TopK int

	WithCommunities bool
	WithPaths       bool

	// PathSamples is the number of representative call paths. Default 5.
	PathSamples int
	// PathMaxHops bounds each sampled path. Default 5.
	PathMaxHops int

	// BudgetTokens caps the approximate serialized size. Default 3000.
	BudgetTokens int

	// IncludeFilters and ExcludeFilters are glob patterns matched against
	// node file paths. Seeds are exempt. When ExcludeFilters is nil the
	// configured summary.default_excludes apply; pass an empty non-nil
	// slice to disable them.
	IncludeFilters []string
	ExcludeFilters []string
	// LanguageFilters restricts candidates to the listed languages.
	LanguageFilters []string

	Scope  Scope
	Format Format
}

// DefaultParams returns a Params with every tunable at its default.
func DefaultParams() Params {
	return Params{
		Radius:       1,
		TopK:         200,
		PathSamples:  5,
		PathMaxHops:  5,
		BudgetTokens: 3000,
		Scope:        ScopeCommunity,
		Format:       FormatSummary,
	}
}

// withDefaults fills zero-valued fields with their defaults. Exclude
// filters fall back to the configured summary.default_excludes.
func (p Params) withDefaults(cfg *config.Config) Params {
	d := DefaultParams()
	if p.Radius == 0 {
		p.Radius = d.Radius
	}
	if p.TopK == 0 {
		p.TopK = d.TopK
	}
	if p.PathSamples == 0 {
		p.PathSamples = d.PathSamples
	}
	if p.PathMaxHops == 0 {
		p.PathMaxHops = d.PathMaxHops
	}
	if p.BudgetTokens == 0 {
		p.BudgetTokens = d.BudgetTokens
	}
	if p.Scope == "" {
		p.Scope = d.Scope
	}
	if p.Format == "" {
		p.Format = d.Format
	}
	if p.ExcludeFilters == nil {
		p.ExcludeFilters = cfg.Summary.DefaultExcludes
	}
	return p
}

func (p Params) validate(cfg *config.Config) error {
	if p.Radius < 0 || p.Radius > MaxRadius {
		return newError(ErrRadiusTooLarge, "radius %d exceeds hard cap %d", p.Radius, MaxRadius)
	}
	if p.BudgetTokens < 1 {
		return newError(ErrBudgetTooSmall, "budget_tokens %d cannot hold any output", p.BudgetTokens)
	}
	if p.BudgetTokens*charsPerToken < cfg.Summary.MinCharBudget {
		return newError(ErrBudgetTooSmall, "budget_tokens %d is below the configured minimum of %d chars", p.BudgetTokens, cfg.Summary.MinCharBudget)
	}
	switch p.Scope {
	case ScopeSeedOnly, ScopeModule, ScopeCommunity, ScopeFull:
	default:
		return newError(ErrInvalidFilter, "unknown scope %q", p.Scope)
	}
	switch p.Format {
	case FormatSummary, FormatJSON, FormatDOT:
	default:
		return newError(ErrInvalidFilter, "unknown format %q", p.Format)
	}
	return nil
}
