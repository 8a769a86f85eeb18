// Package repositories holds the Mongo persistence layer for articles and
// user profiles.
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hn-insight/apperrors"
	"hn-insight/models"
)

type ArticleRepository struct {
	col *mongo.Collection
}

func NewArticleRepository(db *mongo.Database) *ArticleRepository {
	return &ArticleRepository{col: db.Collection("articles")}
}

// Upsert stores an article keyed by its natural article_id.
func (r *ArticleRepository) Upsert(ctx context.Context, a *models.Article) error {
	filter := bson.M{"article_id": a.ID}
	update := bson.M{
		"$set": bson.M{
			"article_id":                a.ID,
			"title":                     a.Title,
			"url":                       a.URL,
			"author":                    a.Author,
			"score":                     a.Score,
			"descendants":               a.Descendants,
			"timestamp":                 a.Timestamp,
			"topic":                     a.Topic,
			"tags":                      a.Tags,
			"classification_confidence": a.Confidence,
			"content":                   a.Content,
			"comments_summary":          a.CommentsSummary,
			"top_comments":              a.TopComments,
			"updated_at":                time.Now(),
		},
		"$setOnInsert": bson.M{
			"created_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return apperrors.Upstream(err, "upsert article %s", a.ID)
	}
	return nil
}

// FindByID returns one article by its natural key.
func (r *ArticleRepository) FindByID(ctx context.Context, articleID string) (*models.Article, error) {
	var a models.Article
	err := r.col.FindOne(ctx, bson.M{"article_id": articleID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("article %s not found", articleID)
	}
	if err != nil {
		return nil, apperrors.Upstream(err, "find article %s", articleID)
	}
	return &a, nil
}

// FindAll returns every stored article, score descending.
func (r *ArticleRepository) FindAll(ctx context.Context) ([]models.Article, error) {
	opts := options.Find().SetSort(bson.D{{Key: "score", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.Upstream(err, "list articles")
	}
	defer cur.Close(ctx)

	var articles []models.Article
	if err := cur.All(ctx, &articles); err != nil {
		return nil, apperrors.Upstream(err, "decode articles")
	}
	return articles, nil
}

// FindByTopic returns articles of one taxonomy topic, score descending.
func (r *ArticleRepository) FindByTopic(ctx context.Context, topic string) ([]models.Article, error) {
	opts := options.Find().SetSort(bson.D{{Key: "score", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"topic": topic}, opts)
	if err != nil {
		return nil, apperrors.Upstream(err, "list articles by topic %s", topic)
	}
	defer cur.Close(ctx)

	var articles []models.Article
	if err := cur.All(ctx, &articles); err != nil {
		return nil, apperrors.Upstream(err, "decode articles")
	}
	return articles, nil
}
