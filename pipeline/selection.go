package pipeline

import (
	"sort"

	"hn-insight/models"
)

// Criteria selects the input subset before processing. This is a pure filter
// over already-known articles, not a vector query. At most one of the three
// selectors applies; precedence is IDs, then Topic, then RecentN.
type Criteria struct {
	IDs     []string
	Topic   string
	RecentN int
}

func (c Criteria) IsZero() bool {
	return len(c.IDs) == 0 && c.Topic == "" && c.RecentN <= 0
}

// Select applies the criteria. The returned order is the processing order:
// id-list order for IDs, input order for Topic, score-descending for RecentN.
func Select(articles []models.Article, c Criteria) []models.Article {
	switch {
	case len(c.IDs) > 0:
		byID := make(map[string]models.Article, len(articles))
		for _, a := range articles {
			byID[a.ID] = a
		}
		out := make([]models.Article, 0, len(c.IDs))
		for _, id := range c.IDs {
			if a, ok := byID[id]; ok {
				out = append(out, a)
			}
		}
		return out

	case c.Topic != "":
		var out []models.Article
		for _, a := range articles {
			if a.Topic == c.Topic {
				out = append(out, a)
			}
		}
		return out

	case c.RecentN > 0:
		out := make([]models.Article, len(articles))
		copy(out, articles)
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Score != out[j].Score {
				return out[i].Score > out[j].Score
			}
			if out[i].Timestamp != out[j].Timestamp {
				return out[i].Timestamp > out[j].Timestamp
			}
			return out[i].ID < out[j].ID
		})
		if len(out) > c.RecentN {
			out = out[:c.RecentN]
		}
		return out

	default:
		return articles
	}
}
