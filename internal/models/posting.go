package models

// ScrapedPosting is produced by the scraper service and treated as
// untrusted text. Duplicate URLs are possible and kept.
type ScrapedPosting struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// ScoredPosting carries the model's score. A nil AIScore means the scoring
// call failed or its output could not be parsed.
type ScoredPosting struct {
	ScrapedPosting

	AIScore *int `json:"aiScore"`

	RawResponse string `json:"-"`
	LatencyMS   int64  `json:"-"`
}

// RankScore is the value used for ordering: nil counts as zero.
func (p ScoredPosting) RankScore() int {
	if p.AIScore == nil {
		return 0
	}
	return *p.AIScore
}
