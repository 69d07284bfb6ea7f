package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ailice/ailice/types"
	"github.com/google/uuid"
)

// UserConn is a handle on the users collection bound to one dedicated
// connection. Close must be called on every exit path.
type UserConn interface {
	FindByEmail(ctx context.Context, email string) (types.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	Insert(ctx context.Context, user types.User) (string, error)
	Close() error
}

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Acquire reserves a connection for the duration of one request.
func (r *UserRepository) Acquire(ctx context.Context) (UserConn, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &userConn{conn: conn}, nil
}

type userConn struct {
	conn *sql.Conn
}

func (c *userConn) FindByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, username, email, password, created_at
		FROM users
		WHERE email = $1`
	var user types.User
	err := c.conn.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (c *userConn) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 OR username = $2
		)`
	var exists bool
	if err := c.conn.QueryRowContext(ctx, query, email, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores the record and returns its new id. The users table carries
// UNIQUE constraints on email and username, so a concurrent duplicate that
// passed the existence check fails here with ErrDuplicateKey.
func (c *userConn) Insert(ctx context.Context, user types.User) (string, error) {
	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO users (id, username, email, password, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := c.conn.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateKey
		}
		return "", err
	}
	return user.ID, nil
}

func (c *userConn) Close() error {
	return c.conn.Close()
}
