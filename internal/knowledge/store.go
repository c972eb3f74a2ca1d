package knowledge

import (
	"fmt"
	"sync"
	"time"
)

// maxSolutionsPerProblem bounds how many solutions are retained per
// problem within one source.
const maxSolutionsPerProblem = 5

// Solution is a stored remedy with provenance metadata.
type Solution struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UseCount  int       `json:"use_count"`
	Source    string    `json:"source"` // "project" or "global"
}

// Strategy names the rule that resolved a project/global conflict.
type Strategy string

const (
	// StrategyRecentProjectPriority: project solutions under 30 days old always win.
	StrategyRecentProjectPriority Strategy = "recent_project_priority"
	// StrategyNewerSolution: the more recent solution wins when the age gap exceeds 90 days.
	StrategyNewerSolution Strategy = "newer_solution"
	// StrategyPopularityBased: the heavier-used solution wins when the use ratio exceeds 3x.
	StrategyPopularityBased Strategy = "popularity_based"
	// StrategyDefaultLocalPreference: fall back to the project solution.
	StrategyDefaultLocalPreference Strategy = "default_local_preference"
)

// ConflictResult is a chosen solution plus the strategy and reason that
// selected it.
type ConflictResult struct {
	Solution Solution `json:"solution"`
	Strategy Strategy `json:"strategy"`
	Reason   string   `json:"reason"`
}

// solutionCache holds project and global solutions for one category,
// keyed by problem.
type solutionCache struct {
	project map[string][]Solution
	global  map[string][]Solution
}

func newSolutionCache() *solutionCache {
	return &solutionCache{
		project: make(map[string][]Solution),
		global:  make(map[string][]Solution),
	}
}

func (c *solutionCache) add(problem string, solution Solution, global bool) {
	target := c.project
	if global {
		target = c.global
	}
	target[problem] = append(target[problem], solution)
	if len(target[problem]) > maxSolutionsPerProblem {
		target[problem] = target[problem][1:]
	}
}

func (c *solutionCache) all(problem string) []Solution {
	out := make([]Solution, 0, len(c.project[problem])+len(c.global[problem]))
	out = append(out, c.project[problem]...)
	out = append(out, c.global[problem]...)
	return out
}

// resolve picks between the latest project and global solutions for a
// problem, applying the conflict rules in priority order.
func (c *solutionCache) resolve(problem string, now time.Time) *ConflictResult {
	projectSolutions := c.project[problem]
	globalSolutions := c.global[problem]

	hasProject := len(projectSolutions) > 0
	hasGlobal := len(globalSolutions) > 0
	if !hasProject && !hasGlobal {
		return nil
	}

	if hasProject && !hasGlobal {
		latest := projectSolutions[len(projectSolutions)-1]
		return &ConflictResult{latest, StrategyDefaultLocalPreference, "Only project solution available"}
	}

	if hasGlobal && !hasProject {
		latest := globalSolutions[len(globalSolutions)-1]
		// Stale global-only solutions (older than 180 days) are not offered.
		if now.Sub(latest.CreatedAt) <= 180*24*time.Hour {
			return &ConflictResult{latest, StrategyDefaultLocalPreference, "Only recent global solution available"}
		}
		return nil
	}

	project := projectSolutions[len(projectSolutions)-1]
	global := globalSolutions[len(globalSolutions)-1]

	// Rule 1: project solutions under 30 days always win.
	if now.Sub(project.CreatedAt) < 30*24*time.Hour {
		return &ConflictResult{project, StrategyRecentProjectPriority, "Recent project solution takes priority"}
	}

	// Rule 2: newer solution wins when the age gap exceeds 90 days.
	ageDiff := project.CreatedAt.Sub(global.CreatedAt)
	if ageDiff < 0 {
		ageDiff = -ageDiff
	}
	if ageDiff > 90*24*time.Hour {
		newer := project
		if global.CreatedAt.After(project.CreatedAt) {
			newer = global
		}
		reason := fmt.Sprintf("Newer solution chosen (age difference: %d days)", int(ageDiff.Hours()/24))
		return &ConflictResult{newer, StrategyNewerSolution, reason}
	}

	// Rule 3: heavier-used solution wins when the use ratio exceeds 3x.
	maxUse, minUse := project.UseCount, global.UseCount
	if minUse > maxUse {
		maxUse, minUse = minUse, maxUse
	}
	if minUse > 0 && float64(maxUse)/float64(minUse) > 3.0 {
		popular := project
		if global.UseCount > project.UseCount {
			popular = global
		}
		reason := fmt.Sprintf("Popular solution chosen (use counts: project=%d, global=%d)",
			project.UseCount, global.UseCount)
		return &ConflictResult{popular, StrategyPopularityBased, reason}
	}

	// Rule 4: default to the project solution.
	return &ConflictResult{project, StrategyDefaultLocalPreference, "Default local preference"}
}

// StoreStats summarizes the store's cache state.
type StoreStats struct {
	TotalLookups      uint64                    `json:"total_lookups"`
	CacheHits         uint64                    `json:"cache_hits"`
	HitRate           float64                   `json:"hit_rate"`
	Categories        int                       `json:"categories"`
	CategoryBreakdown map[string]CategoryCounts `json:"category_breakdown"`
}

// CategoryCounts holds per-category problem counts.
type CategoryCounts struct {
	Project int `json:"project"`
	Global  int `json:"global"`
}

// Store is the category-indexed solution cache backing the engine's
// backward-compatible storage and lookup path.
type Store struct {
	mu          sync.RWMutex
	categories  map[string]*solutionCache
	categorizer *Categorizer
	scorer      *Scorer

	totalLookups uint64
	cacheHits    uint64
}

// NewStore builds the knowledge store. Compiling the category patterns is
// the only fallible step; a failure here aborts engine initialization.
func NewStore(categories map[string][]string) (*Store, error) {
	categorizer, err := NewCategorizer(categories)
	if err != nil {
		return nil, err
	}
	return &Store{
		categories:  make(map[string]*solutionCache),
		categorizer: categorizer,
		scorer:      NewScorer(),
	}, nil
}

// Categorizer exposes the underlying categorizer (used for pattern
// hot-reload).
func (s *Store) Categorizer() *Categorizer {
	return s.categorizer
}

// Categorize classifies an error message.
func (s *Store) Categorize(message string) string {
	return s.categorizer.Categorize(message)
}

// AddSolution stores a solution under the given category, auto-categorizing
// from the problem text when the category is empty.
func (s *Store) AddSolution(problem, category, content string, global bool) {
	if category == "" {
		category = s.categorizer.Categorize(problem)
	}
	source := "project"
	if global {
		source = "global"
	}
	solution := Solution{Content: content, CreatedAt: time.Now(), UseCount: 1, Source: source}

	s.mu.Lock()
	defer s.mu.Unlock()
	cache, ok := s.categories[category]
	if !ok {
		cache = newSolutionCache()
		s.categories[category] = cache
	}
	cache.add(problem, solution, global)
}

// FindSolution resolves the best stored solution for a problem, or nil
// when nothing usable is cached.
func (s *Store) FindSolution(problem, category string) *ConflictResult {
	if category == "" {
		category = s.categorizer.Categorize(problem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalLookups++
	cache, ok := s.categories[category]
	if !ok {
		return nil
	}
	result := cache.resolve(problem, time.Now())
	if result != nil {
		s.cacheHits++
	}
	return result
}

// Stats returns lookup counters and per-category cache sizes.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	breakdown := make(map[string]CategoryCounts, len(s.categories))
	for category, cache := range s.categories {
		breakdown[category] = CategoryCounts{
			Project: len(cache.project),
			Global:  len(cache.global),
		}
	}

	hitRate := 0.0
	if s.totalLookups > 0 {
		hitRate = float64(s.cacheHits) / float64(s.totalLookups)
	}
	return StoreStats{
		TotalLookups:      s.totalLookups,
		CacheHits:         s.cacheHits,
		HitRate:           hitRate,
		Categories:        len(s.categories),
		CategoryBreakdown: breakdown,
	}
}

// Clear drops all cached solutions and resets counters. Aggregate state is
// untouched; this only affects the compatibility cache.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = make(map[string]*solutionCache)
	s.totalLookups = 0
	s.cacheHits = 0
}
