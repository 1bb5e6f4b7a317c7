package mongo

import (
	"context"
	"fmt"
	"time"

	"quizgen/internal/app"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	quizzesCollection     = "quizzes"
	assignmentsCollection = "quizassignments"
	usersCollection       = "users"
)

// Store implements the quiz, assignment and user stores on MongoDB.
type Store struct {
	quizzes     *mongo.Collection
	assignments *mongo.Collection
	users       *mongo.Collection
}

var (
	_ app.QuizStore       = (*Store)(nil)
	_ app.AssignmentStore = (*Store)(nil)
	_ app.UserStore       = (*Store)(nil)
)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		quizzes:     db.Collection(quizzesCollection),
		assignments: db.Collection(assignmentsCollection),
		users:       db.Collection(usersCollection),
	}
}

// Stores exposes s through the app.Stores bundle.
func (s *Store) Stores() app.Stores {
	return app.Stores{Quizzes: s, Assignments: s, Users: s}
}

// EnsureIndexes creates the indexes the stores rely on. The unique
// (quiz, assignedTo) index is what rejects duplicate assignments.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	assignmentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "quiz", Value: 1},
				{Key: "assignedTo", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "assignedTo", Value: 1},
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "assignedBy", Value: 1}},
		},
	}
	if _, err := s.assignments.Indexes().CreateMany(ctx, assignmentIndexes); err != nil {
		return fmt.Errorf("failed to create assignment indexes: %w", err)
	}

	quizIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "creator", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "isPublic", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	}
	if _, err := s.quizzes.Indexes().CreateMany(ctx, quizIndexes); err != nil {
		return fmt.Errorf("failed to create quiz indexes: %w", err)
	}
	return nil
}

func newID() string {
	return bson.NewObjectID().Hex()
}
