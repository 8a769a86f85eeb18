package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"hn-insight/apperrors"
	"hn-insight/logger"
	"hn-insight/models"
)

const (
	maxHistoryEntries = 100

	// Auto-interest promotion: a topic read this often within the recent
	// history window becomes an interest.
	interestWindow    = 20
	interestThreshold = 3
)

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection("user_profiles")}
}

// GetOrCreate returns the user's profile, creating the default on first access.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, apperrors.Validation("user id must not be empty")
	}

	var p models.UserProfile
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.Upstream(err, "find profile %s", userID)
	}

	created := models.DefaultProfile(userID)
	if _, err := r.col.InsertOne(ctx, created); err != nil {
		// A concurrent first access may have won the insert.
		if mongo.IsDuplicateKeyError(err) {
			if err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&p); err == nil {
				return &p, nil
			}
		}
		return nil, apperrors.Upstream(err, "create profile %s", userID)
	}
	logger.Log.Infof("created default profile for user %s", userID)
	return created, nil
}

// UpdateInterests replaces the interest tag set.
func (r *ProfileRepository) UpdateInterests(ctx context.Context, userID string, interests []string) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{"interests": interests, "updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "update interests for %s", userID)
	}
	return nil
}

// AddInterest appends one tag when absent.
func (r *ProfileRepository) AddInterest(ctx context.Context, userID, interest string) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$addToSet": bson.M{"interests": interest},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "add interest for %s", userID)
	}
	return nil
}

// RemoveInterest drops one tag; removing an absent tag is a no-op.
func (r *ProfileRepository) RemoveInterest(ctx context.Context, userID, interest string) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$pull": bson.M{"interests": interest},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "remove interest for %s", userID)
	}
	return nil
}

// AppendHistory prepends a reading record, trims the history to its cap and
// promotes frequently read topics into interests.
func (r *ProfileRepository) AppendHistory(ctx context.Context, userID string, entry models.ReadEntry) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	if entry.ReadAt.IsZero() {
		entry.ReadAt = time.Now()
	}

	_, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$push": bson.M{
			"reading_history": bson.M{
				"$each":     bson.A{entry},
				"$position": 0,
				"$slice":    maxHistoryEntries,
			},
		},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "append history for %s", userID)
	}

	return r.promoteInterests(ctx, userID)
}

// History returns the most recent entries, newest first.
func (r *ProfileRepository) History(ctx context.Context, userID string, limit int) ([]models.ReadEntry, error) {
	if limit <= 0 {
		limit = interestWindow
	}
	profile, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	history := profile.ReadingHistory
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// UpdatePreferences replaces the preference block.
func (r *ProfileRepository) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{"preferences": prefs, "updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "update preferences for %s", userID)
	}
	return nil
}

// promoteInterests adds any topic read interestThreshold times within the
// recent window and not yet tracked.
func (r *ProfileRepository) promoteInterests(ctx context.Context, userID string) error {
	profile, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	window := profile.ReadingHistory
	if len(window) > interestWindow {
		window = window[:interestWindow]
	}
	counts := make(map[string]int)
	for _, entry := range window {
		if entry.Topic != "" {
			counts[entry.Topic]++
		}
	}

	have := make(map[string]bool, len(profile.Interests))
	for _, interest := range profile.Interests {
		have[interest] = true
	}

	var promoted []string
	for topic, count := range counts {
		if count >= interestThreshold && !have[topic] {
			promoted = append(promoted, topic)
		}
	}
	if len(promoted) == 0 {
		return nil
	}

	_, err = r.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$addToSet": bson.M{"interests": bson.M{"$each": promoted}},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return apperrors.Upstream(err, "promote interests for %s", userID)
	}
	logger.Log.Infof("auto-added interests for user %s: %v", userID, promoted)
	return nil
}
