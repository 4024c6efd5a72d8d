package testhelpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var uniqueCounter int64

func nextSuffix() int64 {
	return atomic.AddInt64(&uniqueCounter, 1)
}

// CreateTestUser inserts a minimal valid user row and returns its ID.
func CreateTestUser(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()

	ctx := context.Background()
	suffix := nextSuffix()
	username := fmt.Sprintf("test-user-%d", suffix)
	email := fmt.Sprintf("%s@example.com", username)

	var id int64
	err := db.QueryRow(ctx,
		"INSERT INTO users (first_name, last_name, username, email, password_hash) VALUES ('Test', 'User', $1, $2, 'hash') RETURNING id",
		username, email).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateTestSession inserts a session for the given user and returns its token.
func CreateTestSession(t *testing.T, db *pgxpool.Pool, userID int64) string {
	t.Helper()

	ctx := context.Background()
	token := fmt.Sprintf("test-token-%d", nextSuffix())

	_, err := db.Exec(ctx, "INSERT INTO sessions (user_id, token) VALUES ($1, $2)", userID, token)
	require.NoError(t, err)
	return token
}

// CreateTestStartup inserts a startup for the given owner and returns its ID.
func CreateTestStartup(t *testing.T, db *pgxpool.Pool, ownerID int64) int64 {
	t.Helper()

	ctx := context.Background()
	suffix := nextSuffix()
	name := fmt.Sprintf("test-startup-%d", suffix)

	var id int64
	err := db.QueryRow(ctx,
		"INSERT INTO startups (name, stripe_key, owner_id) VALUES ($1, 'sk_test_fixture', $2) RETURNING id",
		name, ownerID).Scan(&id)
	require.NoError(t, err)
	return id
}

// SponsorTestStartup marks an existing startup as sponsored in the given slot.
func SponsorTestStartup(t *testing.T, db *pgxpool.Pool, startupID int64, slot int, expiresAt time.Time) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx,
		`UPDATE startups
		    SET is_sponsored = true, sponsor_slot = $2, sponsor_since = NOW(),
		        sponsor_duration_months = 1, sponsor_expires_at = $3
		  WHERE id = $1`,
		startupID, slot, expiresAt)
	require.NoError(t, err)
}
