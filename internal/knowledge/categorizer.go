// Package knowledge implements the categorization and compatibility layer
// the domain engine consumes: regex-based error categorization, a
// category-indexed solution cache with conflict resolution, and heuristic
// solution ranking.
package knowledge

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// UncategorizedCategory is returned when no pattern matches.
const UncategorizedCategory = "errors_uncategorised"

// Categorizer classifies error messages into categories using compiled,
// case-insensitive regex pattern sets.
type Categorizer struct {
	mu       sync.RWMutex
	patterns map[string][]*regexp.Regexp
	order    []string
}

// NewCategorizer compiles the given pattern sets. A pattern that fails to
// compile fails the whole construction; callers treat that as an
// initialization failure.
func NewCategorizer(categories map[string][]string) (*Categorizer, error) {
	c := &Categorizer{}
	if err := c.Reload(categories); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces all pattern sets atomically. On error the previous
// patterns remain in effect.
func (c *Categorizer) Reload(categories map[string][]string) error {
	compiled := make(map[string][]*regexp.Regexp, len(categories))
	order := make([]string, 0, len(categories))
	for category, patterns := range categories {
		for _, pattern := range patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return fmt.Errorf("category %q: invalid pattern %q: %w", category, pattern, err)
			}
			compiled[category] = append(compiled[category], re)
		}
		order = append(order, category)
	}
	sort.Strings(order)

	c.mu.Lock()
	c.patterns = compiled
	c.order = order
	c.mu.Unlock()
	return nil
}

// Categorize returns the first category whose pattern set matches the
// message, scanning categories in stable name order, or
// UncategorizedCategory when nothing matches.
func (c *Categorizer) Categorize(message string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, category := range c.order {
		for _, re := range c.patterns[category] {
			if re.MatchString(message) {
				return category
			}
		}
	}
	return UncategorizedCategory
}

// Categories returns the known category names in stable order.
func (c *Categorizer) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
