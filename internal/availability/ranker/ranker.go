package ranker

import (
	"sort"
)

// Unlimited keeps the whole vocabulary when passed as the limit.
const Unlimited = -1

type Entry struct {
	Token string  `json:"token"`
	Score float64 `json:"score"`
}

// List is a ranked sequence, score descending then token ascending.
type List []Entry

// Rank orders scores into a List and keeps at most limit entries. A negative
// limit keeps everything; zero yields an empty list.
func Rank(scores map[string]float64, limit int) List {
	result := make(List, 0, len(scores))
	for token, score := range scores {
		result = append(result, Entry{
			Token: token,
			Score: score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Token < result[j].Token
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Map returns the list as a token to score mapping.
func (l List) Map() map[string]float64 {
	m := make(map[string]float64, len(l))
	for _, e := range l {
		m[e.Token] = e.Score
	}
	return m
}

func (l List) Tokens() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Token
	}
	return out
}
