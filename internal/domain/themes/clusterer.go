package themes

import (
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Scoring weights and the detection threshold.
const (
	keywordWeight     = 3.0
	synonymWeight     = 2.0
	weakKeywordWeight = 1.0
	weakSynonymWeight = 0.5
	detectThreshold   = 1.5
	maxExamples       = 3
	// Words shorter than this never take part in weak partial matching.
	minWeakWordRunes = 3
)

// Strategy decides which detected theme a snippet is assigned to.
type Strategy int

const (
	// StrategyFirst picks the first detected theme in dictionary order.
	StrategyFirst Strategy = iota
	// StrategyBest picks the highest score; ties go to dictionary order.
	StrategyBest
)

// ParseStrategy maps "first" and "best" to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return StrategyFirst, true
	case "best":
		return StrategyBest, true
	default:
		return StrategyFirst, false
	}
}

// ItemType tags a snippet as strength or improvement.
type ItemType string

// Snippet kinds.
const (
	TypeStrength    ItemType = "strength"
	TypeImprovement ItemType = "improvement"
)

// Item is one feedback snippet.
type Item struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      ItemType  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClusteredTheme is a theme with the snippets assigned to it.
type ClusteredTheme struct {
	Theme            Definition `json:"theme"`
	Count            int        `json:"count"`
	Examples         []Item     `json:"examples"`
	StrengthCount    int        `json:"strengthCount"`
	ImprovementCount int        `json:"improvementCount"`
}

// Report is the result of clustering a set of snippets.
type Report struct {
	Themes            []ClusteredTheme `json:"themes"`
	TotalFeedback     int              `json:"totalFeedback"`
	UnrecognizedCount int              `json:"unrecognizedCount"`
	ThemeDistribution map[string]int   `json:"themeDistribution"`
}

// Score is a theme's score for one snippet.
type Score struct {
	ThemeID  string
	Value    float64
	Detected bool
}

// Option applies a configuration option to the Clusterer.
type Option func(*Clusterer)

// WithStrategy selects how a multi-theme snippet is assigned.
func WithStrategy(s Strategy) Option {
	return func(c *Clusterer) { c.strategy = s }
}

// Clusterer maps snippets onto a Dictionary. It holds no mutable state.
type Clusterer struct {
	dict     *Dictionary
	strategy Strategy
}

// NewClusterer creates a Clusterer; a nil dict means Default().
func NewClusterer(dict *Dictionary, opts ...Option) *Clusterer {
	if dict == nil {
		dict = Default()
	}
	c := &Clusterer{dict: dict, strategy: StrategyFirst}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dictionary returns the table the clusterer scores against.
func (c *Clusterer) Dictionary() *Dictionary { return c.dict }

// Scores returns every theme's score for text in dictionary order.
func (c *Clusterer) Scores(text string) []Score {
	processed := normalize(text)
	words := strings.Fields(processed)
	out := make([]Score, len(c.dict.defs))
	for i, def := range c.dict.defs {
		v := scoreTheme(processed, words, c.dict.keywords[i], c.dict.synonyms[i])
		out[i] = Score{ThemeID: def.ID, Value: v, Detected: v >= detectThreshold}
	}
	return out
}

// Classify returns the theme text is assigned to, or false when none is detected.
func (c *Clusterer) Classify(text string) (Definition, bool) {
	idx := c.pick(c.Scores(text))
	if idx < 0 {
		return Definition{}, false
	}
	def, _ := c.dict.Lookup(c.dict.defs[idx].ID)
	return def, true
}

func (c *Clusterer) pick(scores []Score) int {
	best := -1
	for i, s := range scores {
		if !s.Detected {
			continue
		}
		if c.strategy == StrategyFirst {
			return i
		}
		if best < 0 || s.Value > scores[best].Value {
			best = i
		}
	}
	return best
}

// Cluster assigns each item to at most one theme and summarizes the result.
// Unmatched items count toward TotalFeedback and UnrecognizedCount.
func (c *Clusterer) Cluster(items []Item) Report {
	buckets := make([]ClusteredTheme, len(c.dict.defs))
	unrecognized := 0

	for _, item := range items {
		idx := c.pick(c.Scores(item.Content))
		if idx < 0 {
			unrecognized++
			continue
		}
		b := &buckets[idx]
		b.Count++
		if item.Type == TypeStrength {
			b.StrengthCount++
		} else {
			b.ImprovementCount++
		}
		b.Examples = append(b.Examples, item)
		if len(b.Examples) > maxExamples {
			slices.SortStableFunc(b.Examples, func(x, y Item) int {
				return y.CreatedAt.Compare(x.CreatedAt)
			})
			b.Examples = b.Examples[:maxExamples]
		}
	}

	rep := Report{
		Themes:            make([]ClusteredTheme, 0, len(buckets)),
		TotalFeedback:     len(items),
		UnrecognizedCount: unrecognized,
		ThemeDistribution: make(map[string]int),
	}
	defs := c.dict.Definitions()
	for i, b := range buckets {
		if b.Count == 0 {
			continue
		}
		b.Theme = defs[i]
		rep.Themes = append(rep.Themes, b)
		rep.ThemeDistribution[b.Theme.ID] = b.Count
	}
	slices.SortStableFunc(rep.Themes, func(x, y ClusteredTheme) int {
		return y.Count - x.Count
	})
	return rep
}

func scoreTheme(processed string, words, keywords, synonyms []string) float64 {
	var score float64
	for _, k := range keywords {
		if strings.Contains(processed, k) {
			score += keywordWeight
		}
	}
	for _, s := range synonyms {
		if strings.Contains(processed, s) {
			score += synonymWeight
		}
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) < minWeakWordRunes {
			continue
		}
		if weakMatch(w, keywords) {
			score += weakKeywordWeight
		}
		if weakMatch(w, synonyms) {
			score += weakSynonymWeight
		}
	}
	return score
}

func weakMatch(word string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(t, word) || strings.Contains(word, t) {
			return true
		}
	}
	return false
}

// normalize lower-cases text, turns punctuation into spaces and collapses whitespace.
func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}
