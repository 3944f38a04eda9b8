package main

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Point the global db at a fresh temp database with the schema applied.
func setupTestDB(t *testing.T) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "warbler-test-*.db")
	require.NoError(t, err)
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	db, err = openDB(tmpFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
}

func mustCreateUser(t *testing.T, username string) *User {
	t.Helper()
	u, err := createUser(username, username+"@example.com", "secret", "")
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestUserRepr(t *testing.T) {
	setupTestDB(t)

	u := mustCreateUser(t, "eve")
	assert.Equal(t, fmt.Sprintf("<User #%d: eve, eve@example.com>", u.ID), u.String())
}

func TestNewUserStartsEmpty(t *testing.T) {
	setupTestDB(t)

	u := mustCreateUser(t, "eve")
	assert.Zero(t, countMessages(u.ID))
	assert.Empty(t, followersOf(u.ID))
	assert.Empty(t, followingOf(u.ID))
	assert.Zero(t, countLikes(u.ID))
}

func TestCreateUserValidation(t *testing.T) {
	setupTestDB(t)
	mustCreateUser(t, "eve")

	tests := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{"missing username", "", "a@example.com", "secret", "username"},
		{"missing email", "bob", "", "secret", "email"},
		{"malformed email", "bob", "not-an-address", "secret", "email"},
		{"missing password", "bob", "bob@example.com", "", "password"},
		{"duplicate username", "eve", "fresh@example.com", "secret", "username"},
		{"duplicate email", "fresh", "eve@example.com", "secret", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createUser(tt.username, tt.email, tt.password, "")
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.Has(tt.field), "expected %q in %v", tt.field, ve.Fields)
		})
	}
}

func TestCreateUserDefaults(t *testing.T) {
	setupTestDB(t)

	u := mustCreateUser(t, "eve")
	assert.Equal(t, defaultImageURL, u.ImageURL)
	assert.Equal(t, defaultHeaderImageURL, u.HeaderImageURL)
	assert.NotEqual(t, "secret", u.PwHash, "password must never be stored in plaintext")
	assert.True(t, checkPassword(u.PwHash, "secret"))
}

func TestAuthenticateUser(t *testing.T) {
	setupTestDB(t)
	u := mustCreateUser(t, "eve")

	got := authenticateUser("eve", "secret")
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	assert.Nil(t, authenticateUser("eve", "wrong"))
	assert.Nil(t, authenticateUser("nobody", "secret"))
}

func TestMessageLengthConstraint(t *testing.T) {
	setupTestDB(t)
	u := mustCreateUser(t, "eve")

	_, err := createMessage(strings.Repeat("a", 140), u.ID, nil)
	assert.NoError(t, err)

	_, err = createMessage(strings.Repeat("a", 141), u.ID, nil)
	require.Error(t, err)
	assert.True(t, isConstraintErr(err), "expected a storage constraint error, got %v", err)
}

func TestMessageDefaultTimestamp(t *testing.T) {
	setupTestDB(t)
	u := mustCreateUser(t, "eve")

	before := time.Now().UTC()
	m, err := createMessage("hello", u.ID, nil)
	require.NoError(t, err)

	got, err := getMessage(m.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, before, got.CreatedAt(), time.Second)
	assert.Equal(t, time.UTC, got.CreatedAt().Location())
}

func TestMessageExplicitTimestamp(t *testing.T) {
	setupTestDB(t)
	u := mustCreateUser(t, "eve")

	at := time.Date(2017, 1, 21, 11, 4, 53, 0, time.UTC)
	m, err := createMessage("old warble", u.ID, &at)
	require.NoError(t, err)

	got, err := getMessage(m.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt().Equal(at))
}

func TestMessageOwnerRoundTrip(t *testing.T) {
	setupTestDB(t)
	u := mustCreateUser(t, "eve")

	m, err := createMessage("hello", u.ID, nil)
	require.NoError(t, err)

	owner := getUserByID(m.UserID)
	require.NotNil(t, owner)
	assert.Equal(t, "eve", owner.Username)
}

func TestGetMessageNotFound(t *testing.T) {
	setupTestDB(t)

	_, err := getMessage(12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowDirection(t *testing.T) {
	setupTestDB(t)
	a := mustCreateUser(t, "eve")
	b := mustCreateUser(t, "mallory")

	require.NoError(t, follow(a.ID, b.ID))

	assert.True(t, isFollowing(a.ID, b.ID))
	assert.False(t, isFollowing(b.ID, a.ID))
	assert.True(t, isFollowedBy(b.ID, a.ID))
	assert.False(t, isFollowedBy(a.ID, b.ID))

	require.Len(t, followersOf(b.ID), 1)
	assert.Equal(t, "eve", followersOf(b.ID)[0].Username)
	require.Len(t, followingOf(a.ID), 1)
	assert.Equal(t, "mallory", followingOf(a.ID)[0].Username)
	assert.Empty(t, followersOf(a.ID))
	assert.Empty(t, followingOf(b.ID))
}

func TestFollowIdempotent(t *testing.T) {
	setupTestDB(t)
	a := mustCreateUser(t, "eve")
	b := mustCreateUser(t, "mallory")

	require.NoError(t, follow(a.ID, b.ID))
	require.NoError(t, follow(a.ID, b.ID))
	assert.Len(t, followersOf(b.ID), 1)

	require.NoError(t, unfollow(a.ID, b.ID))
	require.NoError(t, unfollow(a.ID, b.ID))
	assert.Empty(t, followersOf(b.ID))
}

func TestLikes(t *testing.T) {
	setupTestDB(t)
	a := mustCreateUser(t, "eve")
	b := mustCreateUser(t, "mallory")

	m, err := createMessage("like me", b.ID, nil)
	require.NoError(t, err)

	require.NoError(t, likeMessage(a.ID, m.ID))
	require.NoError(t, likeMessage(a.ID, m.ID)) // dedupes

	assert.True(t, hasLiked(a.ID, m.ID))
	assert.False(t, hasLiked(b.ID, m.ID))
	assert.Equal(t, 1, countLikes(a.ID))
	assert.Equal(t, 1, countMessageLikes(m.ID))

	liked := likedMessagesOf(a.ID)
	require.Len(t, liked, 1)
	assert.Equal(t, "like me", liked[0].Text)
	assert.Equal(t, "mallory", liked[0].Username)

	require.NoError(t, unlikeMessage(a.ID, m.ID))
	assert.False(t, hasLiked(a.ID, m.ID))
	assert.Empty(t, likedMessagesOf(a.ID))
}

func TestFeed(t *testing.T) {
	setupTestDB(t)
	a := mustCreateUser(t, "eve")
	b := mustCreateUser(t, "mallory")
	c := mustCreateUser(t, "trent")

	_, err := createMessage("by eve", a.ID, nil)
	require.NoError(t, err)
	_, err = createMessage("by mallory", b.ID, nil)
	require.NoError(t, err)
	_, err = createMessage("by trent", c.ID, nil)
	require.NoError(t, err)

	require.NoError(t, follow(a.ID, b.ID))

	var texts []string
	for _, m := range feedFor(a.ID, 100) {
		texts = append(texts, m.Text)
	}
	assert.ElementsMatch(t, []string{"by eve", "by mallory"}, texts)
}

func TestDeleteUserCascades(t *testing.T) {
	setupTestDB(t)
	a := mustCreateUser(t, "eve")
	b := mustCreateUser(t, "mallory")

	m, err := createMessage("doomed", a.ID, nil)
	require.NoError(t, err)
	require.NoError(t, follow(b.ID, a.ID))
	require.NoError(t, likeMessage(b.ID, m.ID))

	require.NoError(t, deleteUser(a.ID))

	assert.Nil(t, getUserByID(a.ID))
	_, err = getMessage(m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, followingOf(b.ID))
	assert.Zero(t, countLikes(b.ID))
}
