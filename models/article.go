package models

import "hn-insight/apperrors"

// Topics is the fixed 10-value taxonomy assigned by the external classifier.
var Topics = []string{
	"AI/ML", "Programming Languages", "Web Development",
	"Databases", "Security/Privacy", "Startups/Business",
	"Hardware/IoT", "Science", "Open Source", "Career/Jobs",
}

// IsKnownTopic reports whether the label belongs to the taxonomy.
func IsKnownTopic(topic string) bool {
	for _, t := range Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Comment is a single high-score comment attached to an article.
type Comment struct {
	ID        string `bson:"comment_id" json:"comment_id"`
	Author    string `bson:"author" json:"author"`
	Text      string `bson:"text" json:"text"`
	Score     int    `bson:"score" json:"score"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}

// Article is a classified article with its discussion material, as produced
// by the external crawler+classifier. Immutable per ingestion run.
// Collection: articles
type Article struct {
	ID              string    `bson:"article_id" json:"article_id"`
	Title           string    `bson:"title" json:"title"`
	URL             string    `bson:"url" json:"url"`
	Author          string    `bson:"author" json:"author"`
	Score           int       `bson:"score" json:"score"`
	Descendants     int       `bson:"descendants" json:"descendants"`
	Timestamp       int64     `bson:"timestamp" json:"timestamp"`
	Topic           string    `bson:"topic" json:"topic"`
	Tags            []string  `bson:"tags" json:"tags"`
	Confidence      string    `bson:"classification_confidence" json:"classification_confidence"`
	Content         string    `bson:"content" json:"content"`
	CommentsSummary string    `bson:"comments_summary" json:"comments_summary"`
	TopComments     []Comment `bson:"top_comments" json:"top_comments"`
}

// Validate checks the fields every ingestion depends on.
func (a *Article) Validate() error {
	if a.ID == "" {
		return apperrors.Validation("article missing article_id")
	}
	if a.Title == "" {
		return apperrors.Validation("article %s missing title", a.ID)
	}
	if a.Topic != "" && !IsKnownTopic(a.Topic) {
		return apperrors.Validation("article %s has unknown topic %q", a.ID, a.Topic)
	}
	if len(a.Tags) > 3 {
		return apperrors.Validation("article %s carries %d tags, max is 3", a.ID, len(a.Tags))
	}
	return nil
}
