package codescope

import (
	"github.com/gobwas/glob"

	"github.com/nehcuh/codescope/graph"
)

// filterSet holds compiled node filters for one summarization request.
type filterSet struct {
	include   []glob.Glob
	exclude   []glob.Glob
	languages map[string]bool
}

// compileFilters compiles the request's glob patterns. A pattern that fails
// to compile surfaces as an invalid_filter error naming the pattern.
func compileFilters(p Params) (*filterSet, error) {
	fs := &filterSet{}

	var err error
	if fs.include, err = compileGlobs(p.IncludeFilters); err != nil {
		return nil, err
	}
	if fs.exclude, err = compileGlobs(p.ExcludeFilters); err != nil {
		return nil, err
	}

	if len(p.LanguageFilters) > 0 {
		fs.languages = make(map[string]bool, len(p.LanguageFilters))
		for _, lang := range p.LanguageFilters {
			fs.languages[lang] = true
		}
	}
	return fs, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, newError(ErrInvalidFilter, "invalid glob pattern %q: %v", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// admits reports whether a node passes the filters. Filters match on the
// node's file path and language; nodes with no file path are only subject
// to the language filter.
func (fs *filterSet) admits(n *graph.Node) bool {
	if fs.languages != nil && !fs.languages[n.Language] {
		return false
	}
	if n.FilePath != "" {
		for _, g := range fs.exclude {
			if g.Match(n.FilePath) {
				return false
			}
		}
		if len(fs.include) > 0 {
			matched := false
			for _, g := range fs.include {
				if g.Match(n.FilePath) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
