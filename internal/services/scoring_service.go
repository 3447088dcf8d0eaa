package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/providers/llm"
)

const (
	DefaultScoringConcurrency = 8
	descriptionPromptLimit    = 1000
)

type ScoringService interface {
	// Score returns one ScoredPosting per input posting, in input order.
	// A posting whose call fails or whose answer does not parse gets a nil score.
	Score(ctx context.Context, postings []models.ScrapedPosting, c models.SearchCriteria) []models.ScoredPosting
	Model() string
}

type scoringService struct {
	llm    llm.Provider
	limit  int
	logger *logrus.Logger
}

func NewScoringService(p llm.Provider, limit int, l *logrus.Logger) ScoringService {
	if limit <= 0 {
		limit = DefaultScoringConcurrency
	}
	if l == nil {
		l = logrus.New()
	}
	return &scoringService{llm: p, limit: limit, logger: l}
}

func (s *scoringService) Model() string { return s.llm.Model() }

func (s *scoringService) Score(ctx context.Context, postings []models.ScrapedPosting, c models.SearchCriteria) []models.ScoredPosting {
	out := make([]models.ScoredPosting, len(postings))

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, p := range postings {
		g.Go(func() error {
			out[i] = s.scoreOne(ctx, p, c)
			return nil
		})
	}
	_ = g.Wait() // subtasks never return an error

	return out
}

func (s *scoringService) scoreOne(ctx context.Context, p models.ScrapedPosting, c models.SearchCriteria) (res models.ScoredPosting) {
	res = models.ScoredPosting{ScrapedPosting: p}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("url", p.URL).Errorf("scoring panicked: %v", r)
			res.AIScore = nil
		}
		res.LatencyMS = time.Since(start).Milliseconds()
	}()

	text, err := llm.Collect(ctx, s.llm, BuildPrompt(c, p.Description))
	if err != nil {
		s.logger.WithError(err).WithField("url", p.URL).Warn("scoring call failed")
		return res
	}
	res.RawResponse = text

	if score, ok := ParseScore(text); ok {
		res.AIScore = &score
	} else {
		s.logger.WithFields(logrus.Fields{"url": p.URL, "response": truncateRunes(text, 80)}).Warn("unparseable score")
	}
	return res
}

// BuildPrompt renders the strict 0-100 rating prompt for one posting.
func BuildPrompt(c models.SearchCriteria, description string) string {
	var b strings.Builder
	b.WriteString("Rate job match (0-100, be strict):\n\n")
	fmt.Fprintf(&b, "Candidate: %s, skills: %s, location: %s, salary: %dk€\n\n",
		c.JobTitle, strings.Join(c.SkillList(), ", "), c.Location, c.SalaryExpectation)
	fmt.Fprintf(&b, "Job: %s\n\n", truncateRunes(description, descriptionPromptLimit))
	b.WriteString(`**Strict Scoring:**
- 90-100: Perfect match - exact role, all skills, right level
- 70-89: Good match - similar role, most skills match, right level
- 50-69: Decent match - some overlap but missing key elements
- 30-49: Poor match - wrong level (intern vs senior) or major skill gaps
- 0-29: No match - completely different role or requirements

Be very strict about experience level mismatches (internship (stage in French job offers) vs experienced roles).

Reply with a single integer between 0 and 100.

Score only:`)
	return b.String()
}

// ParseScore reads a leading integer the way parseInt does: optional sign,
// then digits, anything after is ignored. The result is clamped to [0,100].
func ParseScore(text string) (int, bool) {
	s := strings.TrimSpace(text)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n <= 1000 {
			n = n*10 + int(s[digits]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}

	switch {
	case neg:
		n = 0
	case n > 100:
		n = 100
	}
	return n, true
}

// Rank returns a copy of postings sorted by score descending, nil scores
// counted as zero. Equal scores keep their input order.
func Rank(postings []models.ScoredPosting) []models.ScoredPosting {
	out := make([]models.ScoredPosting, len(postings))
	copy(out, postings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RankScore() > out[j].RankScore()
	})
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
