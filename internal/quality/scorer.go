// Package quality scores papers by estimated research quality and provides
// ranking and filtering over scored papers.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Weights are the coefficients of the five sub-scores. They must sum to 1.0.
type Weights struct {
	Citations         float64 `mapstructure:"citations" json:"citations"`
	AuthorReputation  float64 `mapstructure:"author_reputation" json:"author_reputation"`
	VenueQuality      float64 `mapstructure:"venue_quality" json:"venue_quality"`
	Recency           float64 `mapstructure:"recency" json:"recency"`
	AdditionalSignals float64 `mapstructure:"additional_signals" json:"additional_signals"`
}

// DefaultWeights returns the standard weighting.
func DefaultWeights() Weights {
	return Weights{
		Citations:         0.40,
		AuthorReputation:  0.25,
		VenueQuality:      0.20,
		Recency:           0.10,
		AdditionalSignals: 0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Citations + w.AuthorReputation + w.VenueQuality + w.Recency + w.AdditionalSignals
}

// Validate checks each weight is in [0,1] and the total is 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"citations":          w.Citations,
		"author_reputation":  w.AuthorReputation,
		"venue_quality":      w.VenueQuality,
		"recency":            w.Recency,
		"additional_signals": w.AdditionalSignals,
	} {
		if v < 0 || v > 1 {
			return domain.NewValidationError("quality.weights."+name, fmt.Sprintf("must be in [0,1], got %g", v))
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return domain.NewValidationError("quality.weights", fmt.Sprintf("must sum to 1.0, got %g", w.Sum()))
	}
	return nil
}

// DefaultTier1Venues are top-rank venues.
var DefaultTier1Venues = []string{
	"NeurIPS", "ICML", "ICLR", "ACL", "EMNLP", "NAACL",
	"CVPR", "ICCV", "ECCV", "SIGIR", "WWW", "KDD",
	"Nature", "Science", "PNAS", "Cell",
}

// DefaultTier2Venues are second-rank venues.
var DefaultTier2Venues = []string{
	"AAAI", "IJCAI", "WSDM", "RecSys", "CIKM",
	"COLING", "EACL", "CoNLL", "SIGCHI", "UIST",
}

// DefaultTopInstitutions are matched against author affiliations and venues.
var DefaultTopInstitutions = []string{
	"Stanford", "MIT", "CMU", "Berkeley", "Oxford", "Cambridge",
	"Harvard", "Princeton", "Yale", "ETH Zurich", "Imperial College",
	"Google", "DeepMind", "OpenAI", "Anthropic", "Meta AI",
	"Microsoft Research", "IBM Research", "Allen Institute",
}

// Config configures a Scorer. Empty lists fall back to the defaults.
type Config struct {
	Weights         Weights
	Tier1Venues     []string
	Tier2Venues     []string
	TopInstitutions []string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the standard scorer configuration.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		Tier1Venues:     DefaultTier1Venues,
		Tier2Venues:     DefaultTier2Venues,
		TopInstitutions: DefaultTopInstitutions,
	}
}

// Breakdown holds the five sub-scores of a paper and its weighted total.
type Breakdown struct {
	Citations         float64 `json:"citations"`
	AuthorReputation  float64 `json:"author_reputation"`
	VenueQuality      float64 `json:"venue_quality"`
	Recency           float64 `json:"recency"`
	AdditionalSignals float64 `json:"additional_signals"`
	Total             float64 `json:"total"`
}

// Scorer computes deterministic quality scores in [0,1].
// Scorer is safe for concurrent use.
type Scorer struct {
	weights         Weights
	tier1           []string
	tier2           []string
	topInstitutions []string
	now             func() time.Time
}

// NewScorer creates a scorer. It returns an error if the weights are invalid.
func NewScorer(cfg Config) (*Scorer, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Tier1Venues) == 0 {
		cfg.Tier1Venues = DefaultTier1Venues
	}
	if len(cfg.Tier2Venues) == 0 {
		cfg.Tier2Venues = DefaultTier2Venues
	}
	if len(cfg.TopInstitutions) == 0 {
		cfg.TopInstitutions = DefaultTopInstitutions
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scorer{
		weights:         cfg.Weights,
		tier1:           lowerAll(cfg.Tier1Venues),
		tier2:           lowerAll(cfg.Tier2Venues),
		topInstitutions: lowerAll(cfg.TopInstitutions),
		now:             cfg.Now,
	}, nil
}

// Calculate returns the paper's quality score rounded to three decimals.
func (s *Scorer) Calculate(p *domain.Paper) float64 {
	return s.Breakdown(p).Total
}

// Breakdown returns the sub-scores and the weighted total for a paper.
func (s *Scorer) Breakdown(p *domain.Paper) Breakdown {
	year := s.now().Year()
	b := Breakdown{
		Citations:         clamp01(s.citationScore(p, year)),
		AuthorReputation:  clamp01(s.authorScore(p)),
		VenueQuality:      clamp01(s.venueScore(p)),
		Recency:           clamp01(recencyScore(p, year)),
		AdditionalSignals: clamp01(signalsScore(p)),
	}
	total := s.weights.Citations*b.Citations +
		s.weights.AuthorReputation*b.AuthorReputation +
		s.weights.VenueQuality*b.VenueQuality +
		s.weights.Recency*b.Recency +
		s.weights.AdditionalSignals*b.AdditionalSignals
	b.Total = clamp01(math.Round(total*1000) / 1000)
	return b
}

// Rank sets QualityScore on every paper and returns a new slice sorted by
// score, descending. Equal scores keep input order.
func (s *Scorer) Rank(papers []*domain.Paper) []*domain.Paper {
	ranked := make([]*domain.Paper, len(papers))
	copy(ranked, papers)
	for _, p := range ranked {
		score := s.Calculate(p)
		p.QualityScore = &score
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].QualityScore > *ranked[j].QualityScore
	})
	return ranked
}

// FilterByQuality returns the papers whose score is at least minScore, in
// input order. Unscored papers count as zero.
func FilterByQuality(papers []*domain.Paper, minScore float64) []*domain.Paper {
	filtered := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		var score float64
		if p.QualityScore != nil {
			score = *p.QualityScore
		}
		if score >= minScore {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// citationThreshold is the expected citation count for a paper of this age.
func citationThreshold(age int) int {
	switch {
	case age <= 1:
		return 5
	case age <= 2:
		return 15
	case age <= 3:
		return 30
	case age <= 5:
		return 50
	case age <= 10:
		return 100
	default:
		return 200
	}
}

func (s *Scorer) citationScore(p *domain.Paper, currentYear int) float64 {
	citations := p.CitationCount()

	var normalized float64
	if p.Year > 0 && p.Year <= currentYear {
		threshold := citationThreshold(currentYear - p.Year)
		normalized = math.Min(float64(citations)/float64(2*threshold), 1.0)
	}

	var bonus float64
	if influential := p.InfluentialCitationCount(); influential > 0 && citations > 0 {
		bonus = math.Min(float64(influential)/float64(citations)*0.5, 0.3)
	}

	return math.Min(0.7*normalized+bonus, 1.0)
}

func (s *Scorer) authorScore(p *domain.Paper) float64 {
	if len(p.Authors) == 0 {
		return 0.3
	}

	score := 0.4
	if s.hasTopInstitution(p) {
		score += 0.4
	}
	if len(p.Authors) >= 3 {
		score += 0.1
	}

	var maxH float64
	for _, a := range p.Authors {
		if a.HIndex > maxH {
			maxH = a.HIndex
		}
	}
	if maxH > 0 {
		score += math.Min(maxH/50, 0.3)
	}

	return math.Min(score, 1.0)
}

func (s *Scorer) hasTopInstitution(p *domain.Paper) bool {
	for _, a := range p.Authors {
		if containsAny(strings.ToLower(a.Affiliation), s.topInstitutions) {
			return true
		}
	}
	return containsAny(strings.ToLower(p.Venue), s.topInstitutions)
}

func (s *Scorer) venueScore(p *domain.Paper) float64 {
	venue := strings.ToLower(strings.TrimSpace(p.Venue))
	switch {
	case venue == "" || venue == strings.ToLower(domain.UnknownVenue):
		return 0.3
	case containsAny(venue, s.tier1):
		return 1.0
	case containsAny(venue, s.tier2):
		return 0.7
	case strings.Contains(venue, "arxiv"):
		return 0.3
	case containsAny(venue, []string{"workshop", "poster", "demo"}):
		return 0.4
	default:
		return 0.5
	}
}

func recencyScore(p *domain.Paper, currentYear int) float64 {
	if p.Year <= 0 {
		return 0.3
	}
	age := currentYear - p.Year
	switch {
	case age < 0:
		return 0
	case age <= 1:
		return 1.0
	case age <= 3:
		return 0.8
	case age <= 5:
		return 0.6
	case age <= 10:
		return 0.4
	default:
		return 0.2
	}
}

func signalsScore(p *domain.Paper) float64 {
	var score float64
	if len(p.Implementations) > 0 {
		maxStars := 0
		official := false
		for _, impl := range p.Implementations {
			if impl.Stars > maxStars {
				maxStars = impl.Stars
			}
			official = official || impl.IsOfficial
		}
		score += math.Min(float64(maxStars)/1000, 0.5)
		if official {
			score += 0.3
		}
	}
	if p.PDFURL != "" {
		score += 0.2
	}
	return math.Min(score, 1.0)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
