package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizgen/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	_, err := s.assignments.InsertOne(ctx, assignmentToDoc(a))
	if mongo.IsDuplicateKeyError(err) {
		return domain.Assignment{}, domain.ErrDuplicateAssignment
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("failed to create assignment: %w", err)
	}
	return a, nil
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	return s.findAssignment(ctx, bson.M{"_id": assignmentID})
}

func (s *Store) FindAssignment(ctx context.Context, quizID, userID string) (domain.Assignment, error) {
	return s.findAssignment(ctx, bson.M{"quiz": quizID, "assignedTo": userID})
}

func (s *Store) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	return s.findAssignments(ctx, bson.M{"assignedTo": userID})
}

func (s *Store) ListAssignmentsByAssignor(ctx context.Context, assignorID string) ([]domain.Assignment, error) {
	return s.findAssignments(ctx, bson.M{"assignedBy": assignorID})
}

// CompleteAssignment matches only a pending document whose deadline is
// absent or after the completion time, so of two racing submissions at most
// one finds a document to update.
func (s *Store) CompleteAssignment(ctx context.Context, assignmentID string, result domain.AssignmentResult) (domain.Assignment, error) {
	filter := bson.M{
		"_id":    assignmentID,
		"status": string(domain.StatusPending),
		"$or": bson.A{
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gt": result.CompletedAt}},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":         string(domain.StatusCompleted),
		"completedAt":    result.CompletedAt,
		"score":          result.Score,
		"totalQuestions": result.TotalQuestions,
		"timeTaken":      result.TimeTaken,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc assignmentDoc
	err := s.assignments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Assignment{}, fmt.Errorf("failed to complete assignment: %w", err)
	}

	current, err := s.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if current.Status != domain.StatusPending {
		return domain.Assignment{}, domain.ErrAssignmentNotPending
	}
	return domain.Assignment{}, domain.ErrAssignmentExpired
}

func (s *Store) ExpireAssignments(ctx context.Context, now time.Time) (int, error) {
	filter := bson.M{
		"status":    string(domain.StatusPending),
		"expiresAt": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": string(domain.StatusExpired)}}
	res, err := s.assignments.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire assignments: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *Store) DeleteAssignmentsForQuiz(ctx context.Context, quizID string) error {
	if _, err := s.assignments.DeleteMany(ctx, bson.M{"quiz": quizID}); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

func (s *Store) findAssignment(ctx context.Context, filter bson.M) (domain.Assignment, error) {
	var doc assignmentDoc
	err := s.assignments.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) findAssignments(ctx context.Context, filter bson.M) ([]domain.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.assignments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []assignmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	out := make([]domain.Assignment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
