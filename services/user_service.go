package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/Adnan2208/EcoTech/database"
	"github.com/Adnan2208/EcoTech/models"
)

// UserService handles registration, credential checks and user lookup.
type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

func (in *RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("please provide a name")
	}
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return errors.New("please provide a valid email")
	}
	if len(in.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if in.Role != models.RoleCitizen && in.Role != models.RoleAuthority {
		return errors.New("role must be citizen or authority")
	}
	return nil
}

// Register creates a user with a bcrypt password hash. Email uniqueness is
// backed by the unique index on the users collection.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleCitizen
	}
	if err := in.validate(); err != nil {
		return nil, ValidationError{Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  string(hash),
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.Users().InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return &u, nil
}

// Authenticate checks email/password and returns the user on success.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.Users().FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetByID loads a user, as needed by the auth middleware on every
// protected request.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	var u models.User
	if err := s.db.Users().FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
