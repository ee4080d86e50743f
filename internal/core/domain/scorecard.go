package domain

import "math"

// ScoreCategory is a single judged category of a track or video.
type ScoreCategory struct {
	Category    string `json:"category"`
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// ScoreCard is the canonical analysis result returned to every caller,
// regardless of which scoring provider produced the underlying text.
// Suggestions keeps whatever shape the provider returned: a plain
// paragraph or a mapping of sub-suggestions.
type ScoreCard struct {
	PulseScore  float64         `json:"pulseScore"`
	Suggestions any             `json:"suggestions"`
	Scores      []ScoreCategory `json:"scores"`
}

// MeanScore returns the average of all category scores rounded to one
// decimal. It is the fallback aggregate when a provider reply omits or
// corrupts the explicit pulse score.
func (c ScoreCard) MeanScore() float64 {
	if len(c.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range c.Scores {
		sum += float64(s.Score)
	}
	return Round1(sum / float64(len(c.Scores)))
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
