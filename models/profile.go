package models

import "time"

// ReadEntry is one reading-history record. History is ordered and append-only.
type ReadEntry struct {
	ArticleID string    `bson:"article_id" json:"article_id"`
	Title     string    `bson:"title" json:"title"`
	Topic     string    `bson:"topic" json:"topic"`
	ReadAt    time.Time `bson:"read_at" json:"read_at"`
}

// Preferences tunes recommendation defaults per user.
type Preferences struct {
	MinScore            int `bson:"min_score" json:"min_score"`
	TimeRangeDays       int `bson:"time_range_days" json:"time_range_days"`
	RecommendationCount int `bson:"recommendations_count" json:"recommendations_count"`
}

// UserProfile holds a user's interest tags, reading history and preferences.
// Collection: user_profiles
type UserProfile struct {
	UserID         string      `bson:"user_id" json:"user_id"`
	Interests      []string    `bson:"interests" json:"interests"`
	ReadingHistory []ReadEntry `bson:"reading_history" json:"reading_history"`
	Preferences    Preferences `bson:"preferences" json:"preferences"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}

// DefaultProfile builds the profile created on first access.
func DefaultProfile(userID string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID:         userID,
		Interests:      []string{},
		ReadingHistory: []ReadEntry{},
		Preferences: Preferences{
			MinScore:            0,
			TimeRangeDays:       3,
			RecommendationCount: 5,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
