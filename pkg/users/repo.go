package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

type UserRepository interface {
	CreateUser(ctx context.Context, u User, passwordHash string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserAuthByEmail(ctx context.Context, email string) (int64, string, error)
	UpdateProfile(ctx context.Context, userID int64, firstName, lastName, username string) (User, error)

	CreateSession(ctx context.Context, userID int64, token string) (Session, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
	DeleteSession(ctx context.Context, token string) error
}

type postgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) UserRepository {
	return &postgresUserRepository{pool: pool}
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, u User, passwordHash string) (User, error) {
	query := `INSERT INTO users (first_name, last_name, username, email, password_hash, created_at)
              VALUES ($1, $2, $3, $4, $5, NOW())
              RETURNING id, first_name, last_name, username, email, bio, avatar, created_at`

	row := r.pool.QueryRow(ctx, query, u.FirstName, u.LastName, u.Username, u.Email, passwordHash)

	var created User
	if err := row.Scan(&created.ID, &created.FirstName, &created.LastName, &created.Username, &created.Email, &created.Bio, &created.Avatar, &created.CreatedAt); err != nil {
		return User{}, err
	}

	return created, nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id int64) (User, error) {
	query := `SELECT id, first_name, last_name, username, email, bio, avatar, created_at
              FROM users
              WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)

	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Bio, &u.Avatar, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return u, nil
}

func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT id, first_name, last_name, username, email, bio, avatar, created_at
              FROM users
              WHERE username = $1`

	row := r.pool.QueryRow(ctx, query, username)

	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Bio, &u.Avatar, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return u, nil
}

func (r *postgresUserRepository) GetUserAuthByEmail(ctx context.Context, email string) (int64, string, error) {
	row := r.pool.QueryRow(ctx, "SELECT id, password_hash FROM users WHERE email = $1", email)

	var id int64
	var hash string
	if err := row.Scan(&id, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrUserNotFound
		}
		return 0, "", err
	}

	return id, hash, nil
}

func (r *postgresUserRepository) UpdateProfile(ctx context.Context, userID int64, firstName, lastName, username string) (User, error) {
	query := `UPDATE users
              SET first_name = $1, last_name = $2, username = $3
              WHERE id = $4
              RETURNING id, first_name, last_name, username, email, bio, avatar, created_at`

	row := r.pool.QueryRow(ctx, query, firstName, lastName, username, userID)

	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Bio, &u.Avatar, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return u, nil
}

func (r *postgresUserRepository) CreateSession(ctx context.Context, userID int64, token string) (Session, error) {
	query := `INSERT INTO sessions (user_id, token, created_at)
              VALUES ($1, $2, NOW())
              RETURNING id, user_id, token, created_at`

	row := r.pool.QueryRow(ctx, query, userID, token)

	var s Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.CreatedAt); err != nil {
		return Session{}, err
	}

	return s, nil
}

func (r *postgresUserRepository) UserIDByToken(ctx context.Context, token string) (int64, error) {
	row := r.pool.QueryRow(ctx, "SELECT user_id FROM sessions WHERE token = $1", token)

	var userID int64
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}

	return userID, nil
}

func (r *postgresUserRepository) DeleteSession(ctx context.Context, token string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
