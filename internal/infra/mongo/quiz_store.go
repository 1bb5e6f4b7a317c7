package mongo

import (
	"context"
	"errors"
	"fmt"

	"quizgen/internal/app"
	"quizgen/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// appendRetries bounds the optimistic retry loop of AppendAttempt.
const appendRetries = 8

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = newID()
	}
	if quiz.Attempts == nil {
		quiz.Attempts = []domain.Attempt{}
	}
	if _, err := s.quizzes.InsertOne(ctx, quizToDoc(quiz)); err != nil {
		return domain.Quiz{}, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var doc quizDoc
	err := s.quizzes.FindOne(ctx, bson.M{"_id": quizID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("failed to get quiz: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateQuiz rewrites the editable fields only; the attempt log and its
// aggregates are never touched by an edit.
func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	set := bson.M{
		"title":       quiz.Title,
		"description": quiz.Description,
		"isPublic":    quiz.IsPublic,
		"category":    quiz.Category,
		"difficulty":  quiz.Difficulty,
		"questions":   questionsToDocs(quiz.Questions),
		"updatedAt":   quiz.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if quiz.TimeLimit != nil {
		set["timeLimit"] = *quiz.TimeLimit
	} else {
		update["$unset"] = bson.M{"timeLimit": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc quizDoc
	err := s.quizzes.FindOneAndUpdate(ctx, bson.M{"_id": quiz.ID}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("failed to update quiz: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.quizzes.DeleteOne(ctx, bson.M{"_id": quizID})
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) ListPublicQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.findQuizzes(ctx, bson.M{"isPublic": true})
}

func (s *Store) ListQuizzesByCreator(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	return s.findQuizzes(ctx, bson.M{"creator": creatorID})
}

func (s *Store) ListQuizzesByIDs(ctx context.Context, quizIDs []string) ([]domain.Quiz, error) {
	if len(quizIDs) == 0 {
		return []domain.Quiz{}, nil
	}
	return s.findQuizzes(ctx, bson.M{"_id": bson.M{"$in": quizIDs}})
}

// AppendAttempt pushes the attempt and rewrites the aggregates in a single
// update guarded by the attempt count that was read. A concurrent append
// makes the guard miss and the loop re-reads.
func (s *Store) AppendAttempt(ctx context.Context, quizID string, attempt domain.Attempt) (domain.Quiz, error) {
	for i := 0; i < appendRetries; i++ {
		quiz, err := s.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		observed := quiz.TotalAttempts
		quiz.Attempts = append(quiz.Attempts, attempt)
		app.RecomputeAggregates(&quiz)

		filter := bson.M{"_id": quizID, "totalAttempts": observed}
		update := bson.M{
			"$push": bson.M{"attempts": attemptToDoc(attempt)},
			"$set": bson.M{
				"averageScore":  quiz.AverageScore,
				"totalAttempts": quiz.TotalAttempts,
			},
		}
		res, err := s.quizzes.UpdateOne(ctx, filter, update)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("failed to append attempt: %w", err)
		}
		if res.MatchedCount == 1 {
			return quiz, nil
		}
	}
	return domain.Quiz{}, fmt.Errorf("failed to append attempt to quiz %s: too much contention", quizID)
}

func (s *Store) findQuizzes(ctx context.Context, filter bson.M) ([]domain.Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.quizzes.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []quizDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
