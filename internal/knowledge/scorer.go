package knowledge

import (
	"sort"
	"strings"
	"time"
)

// QualityMetrics breaks a solution score into its weighted components.
type QualityMetrics struct {
	Completeness     float64 `json:"completeness_score"`
	Clarity          float64 `json:"clarity_score"`
	Specificity      float64 `json:"specificity_score"`
	Reliability      float64 `json:"reliability_score"`
	ContextRelevance float64 `json:"context_relevance"`
}

// Combined blends the component scores into one value in [0,1].
func (m QualityMetrics) Combined() float64 {
	return m.Completeness*0.25 + m.Clarity*0.20 + m.Specificity*0.25 +
		m.Reliability*0.15 + m.ContextRelevance*0.15
}

// Scorer ranks solutions with lightweight text heuristics.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes a solution's quality against the problem it answers.
func (sc *Scorer) Score(solution Solution, problemContext string) float64 {
	return sc.Metrics(solution, problemContext).Combined()
}

// Metrics computes the detailed component scores.
func (sc *Scorer) Metrics(solution Solution, problemContext string) QualityMetrics {
	return QualityMetrics{
		Completeness:     scoreCompleteness(solution.Content),
		Clarity:          scoreClarity(solution.Content),
		Specificity:      scoreSpecificity(solution.Content, problemContext),
		Reliability:      scoreReliability(solution, time.Now()),
		ContextRelevance: scoreContextRelevance(solution.Content, problemContext),
	}
}

func scoreCompleteness(content string) float64 {
	score := 0.0
	if len(content) > 20 {
		score += 0.3
	}
	if len(content) > 100 {
		score += 0.2
	}
	if strings.Contains(content, "```") {
		score += 0.2
	}
	if strings.Contains(content, "npm") || strings.Contains(content, "yarn") {
		score += 0.1
	}
	// Step-by-step instructions read as more complete.
	if strings.Contains(content, "1.") || strings.Contains(content, "2.") {
		score += 0.2
	}
	return clamp(score)
}

func scoreClarity(content string) float64 {
	score := 0.5
	if len(content) < 10 {
		score -= 0.3
	}
	if strings.Contains(content, "\n") {
		score += 0.1
	}
	if strings.Contains(content, "- ") {
		score += 0.1
	}
	if strings.Contains(content, "need to") || strings.Contains(content, "should") ||
		strings.Contains(content, "try") {
		score += 0.2
	}
	if strings.Contains(content, "maybe") || strings.Contains(content, "not sure") {
		score -= 0.2
	}
	return clamp(score)
}

func scoreSpecificity(content, problemContext string) float64 {
	score := 0.2
	lowerContent := strings.ToLower(content)
	matched, total := 0, 0
	for _, word := range strings.Fields(strings.ToLower(problemContext)) {
		if len(word) <= 3 {
			continue
		}
		total++
		if strings.Contains(lowerContent, word) {
			matched++
		}
	}
	if total > 0 {
		score += float64(matched) / float64(total) * 0.6
	}
	if strings.Contains(content, "config") || strings.Contains(content, ".json") {
		score += 0.2
	}
	return clamp(score)
}

func scoreReliability(solution Solution, now time.Time) float64 {
	score := 0.5
	ageDays := int(now.Sub(solution.CreatedAt).Hours() / 24)
	switch {
	case ageDays < 30:
		score += 0.3
	case ageDays < 90:
		score += 0.2
	case ageDays < 180:
		score += 0.1
	case ageDays > 365:
		score -= 0.2
	}
	if solution.UseCount > 1 {
		score += 0.1
	}
	if solution.UseCount > 3 {
		score += 0.1
	}
	if solution.UseCount > 5 {
		score += 0.1
	}
	return clamp(score)
}

func scoreContextRelevance(content, problemContext string) float64 {
	score := 0.3
	lowerContent := strings.ToLower(content)
	lowerProblem := strings.ToLower(problemContext)
	if (strings.Contains(lowerProblem, "npm") && strings.Contains(lowerContent, "npm")) ||
		(strings.Contains(lowerProblem, "node") && strings.Contains(lowerContent, "node")) {
		score += 0.3
	}
	if strings.Contains(lowerProblem, "auth") && strings.Contains(lowerContent, "auth") {
		score += 0.4
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Suggestion is one ranked lookup result.
type Suggestion struct {
	Solution  string    `json:"solution"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	UseCount  int       `json:"use_count"`
	CreatedAt time.Time `json:"created_at"`
}

// RankedSolutions scores every cached solution for a problem and returns
// the best maxResults, highest score first.
func (s *Store) RankedSolutions(problem, category string, maxResults int) []Suggestion {
	if category == "" {
		category = s.categorizer.Categorize(problem)
	}

	s.mu.RLock()
	cache, ok := s.categories[category]
	var solutions []Solution
	if ok {
		solutions = cache.all(problem)
	}
	s.mu.RUnlock()

	suggestions := make([]Suggestion, 0, len(solutions))
	for _, solution := range solutions {
		suggestions = append(suggestions, Suggestion{
			Solution:  solution.Content,
			Score:     s.scorer.Score(solution, problem),
			Source:    solution.Source,
			UseCount:  solution.UseCount,
			CreatedAt: solution.CreatedAt,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if maxResults > 0 && len(suggestions) > maxResults {
		suggestions = suggestions[:maxResults]
	}
	return suggestions
}

// SuggestionSet is the structured lookup document returned to callers.
type SuggestionSet struct {
	Suggestions []Suggestion `json:"suggestions"`
	TotalFound  int          `json:"total_found"`
	Context     string       `json:"context"`
}

// Suggestions performs a ranked lookup and wraps it in a document.
func (s *Store) Suggestions(problem, context string, maxResults int) SuggestionSet {
	if maxResults <= 0 {
		maxResults = 5
	}
	ranked := s.RankedSolutions(problem, "", maxResults)
	return SuggestionSet{
		Suggestions: ranked,
		TotalFound:  len(ranked),
		Context:     context,
	}
}
