package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"moviehub/internal/auth"
)

// Users implements auth.Store.
type Users struct {
	col *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{col: db.Collection(colUsers)}
}

var _ auth.Store = (*Users)(nil)

func (r *Users) CreateUser(ctx context.Context, u auth.User) error {
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", dupUser(err))
	}
	return nil
}

func (r *Users) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var u auth.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.TrimSpace(strings.ToLower(email))})
}

func (r *Users) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"username": strings.TrimSpace(username)})
}

func (r *Users) GetByID(ctx context.Context, id string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Users) GetTokenVersion(ctx context.Context, id string) (int, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get token version: %w", err)
	}
	if u == nil {
		return 0, auth.ErrUserNotFound
	}
	return u.TokenVersion, nil
}

func (r *Users) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	return r.update(ctx, id, bson.M{
		"$set": bson.M{"passwordHash": passwordHash},
		"$inc": bson.M{"tokenVersion": 1},
	})
}

func (r *Users) BumpTokenVersion(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{"$inc": bson.M{"tokenVersion": 1}})
}

func (r *Users) UpdateProfile(ctx context.Context, id string, p auth.Profile) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{
		"username": p.Username,
		"email":    p.Email,
		"bio":      p.Bio,
	}})
}

func (r *Users) update(ctx context.Context, id string, change bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, change)
	if err != nil {
		return fmt.Errorf("update user: %w", dupUser(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update user: %w", auth.ErrUserNotFound)
	}
	return nil
}

func dupUser(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), "username") {
		return auth.ErrUsernameTaken
	}
	return auth.ErrEmailTaken
}
