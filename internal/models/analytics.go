package models

// Analytics is the per-user dashboard summary.
type Analytics struct {
	TotalSearches     int           `json:"total_searches"`
	TotalJobs         int           `json:"total_jobs"`
	AvgJobsPerSearch  float64       `json:"avg_jobs_per_search"`
	AvgScore          float64       `json:"avg_score"`
	ScoredResults     int           `json:"scored_results"`
	ScoreDistribution []ScoreBucket `json:"score_distribution"`
}

type ScoreBucket struct {
	Range string `json:"range"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}
