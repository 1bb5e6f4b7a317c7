package mongo

import (
	"context"
	"errors"
	"fmt"

	"quizgen/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, userToDoc(user), opts); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) AddCreatedQuiz(ctx context.Context, userID, quizID string) error {
	return s.updateUser(ctx, userID, bson.M{"$addToSet": bson.M{"quizzesCreated": quizID}})
}

func (s *Store) RemoveCreatedQuiz(ctx context.Context, userID, quizID string) error {
	return s.updateUser(ctx, userID, bson.M{"$pull": bson.M{"quizzesCreated": quizID}})
}

func (s *Store) AppendQuizTaken(ctx context.Context, userID string, summary domain.AttemptSummary) error {
	return s.updateUser(ctx, userID, bson.M{"$push": bson.M{"quizzesTaken": takenToDoc(summary)}})
}

func (s *Store) updateUser(ctx context.Context, userID string, update bson.M) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
