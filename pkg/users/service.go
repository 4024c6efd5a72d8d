package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

type UserService interface {
	Signup(ctx context.Context, input SignupInput) (User, string, error)
	Login(ctx context.Context, email, password string) (User, string, error)
	Logout(ctx context.Context, token string) error
	GetUserByToken(ctx context.Context, token string) (User, error)
	UpdateProfile(ctx context.Context, token, firstName, lastName, username string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (PublicProfile, error)
}

type userService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) Signup(ctx context.Context, input SignupInput) (User, string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", err
	}

	u, err := s.repo.CreateUser(ctx, User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  input.Username,
		Email:     input.Email,
	}, string(hashBytes))
	if err != nil {
		return User{}, "", uniqueViolationError(err)
	}

	token, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return User{}, "", err
	}

	return u, token, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (User, string, error) {
	id, hash, err := s.repo.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}

	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}

	token, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return User{}, "", err
	}

	return u, token, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

func (s *userService) GetUserByToken(ctx context.Context, token string) (User, error) {
	userID, err := s.repo.UserIDByToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	return s.repo.GetUserByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, token, firstName, lastName, username string) (User, error) {
	userID, err := s.repo.UserIDByToken(ctx, token)
	if err != nil {
		return User{}, err
	}

	u, err := s.repo.UpdateProfile(ctx, userID, firstName, lastName, username)
	if err != nil {
		return User{}, uniqueViolationError(err)
	}
	return u, nil
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (PublicProfile, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return PublicProfile{}, err
	}

	return PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}, nil
}

func (s *userService) issueSession(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if _, err := s.repo.CreateSession(ctx, userID, token); err != nil {
		return "", err
	}
	return token, nil
}

// uniqueViolationError maps Postgres unique violations on the users table to
// the matching sentinel, so handlers can answer 409 instead of 500.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "username") {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	return err
}
