package main

import (
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

func openDB(path string) (*sql.DB, error) {
	// Foreign keys must be on for the delete cascades to fire.
	return sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
}

// ensureSchema applies schema.sql on a fresh database.
func ensureSchema() error {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'`).Scan(&name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	schema, err := os.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(string(schema))
	return err
}

func isConstraintErr(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

// asValidationError translates a UNIQUE violation into a ValidationError
// naming the duplicated column. Other errors pass through untouched.
func asValidationError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	var fields []string
	if strings.Contains(se.Error(), "users.username") {
		fields = append(fields, "username")
	}
	if strings.Contains(se.Error(), "users.email") {
		fields = append(fields, "email")
	}
	if len(fields) == 0 {
		return err
	}
	return &ValidationError{Fields: fields}
}

// --- Identity store ---

const userCols = "id, username, email, pw_hash, image_url, header_image_url, bio, location"

func scanUser(row *sql.Row) *User {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwHash,
		&u.ImageURL, &u.HeaderImageURL, &u.Bio, &u.Location)
	if err != nil {
		return nil
	}
	return &u
}

func getUserByID(userID int) *User {
	return scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE id = ?", userID))
}

func getUserByUsername(username string) *User {
	return scanUser(db.QueryRow("SELECT "+userCols+" FROM users WHERE username = ?", username))
}

// createUser is the signup operation: validates, hashes the password and
// persists the user. Uniqueness violations come back as *ValidationError.
func createUser(username, email, password, imageURL string) (*User, error) {
	var fields []string
	if strings.TrimSpace(username) == "" {
		fields = append(fields, "username")
	}
	if email == "" || !strings.Contains(email, "@") {
		fields = append(fields, "email")
	}
	if password == "" {
		fields = append(fields, "password")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if imageURL == "" {
		imageURL = defaultImageURL
	}

	res, err := db.Exec(
		"INSERT INTO users (username, email, pw_hash, image_url) VALUES (?, ?, ?, ?)",
		username, email, hashPassword(password), imageURL)
	if err != nil {
		return nil, asValidationError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	u := getUserByID(int(id))
	if u == nil {
		return nil, errors.New("user vanished after insert")
	}
	return u, nil
}

// authenticateUser returns the user on a username/password match and nil
// otherwise. The caller cannot tell an unknown user from a wrong password.
func authenticateUser(username, password string) *User {
	u := getUserByUsername(username)
	if u == nil || !checkPassword(u.PwHash, password) {
		return nil
	}
	return u
}

func updateProfile(u *User) error {
	_, err := db.Exec(
		`UPDATE users SET username = ?, email = ?, image_url = ?, header_image_url = ?,
		 bio = ?, location = ? WHERE id = ?`,
		u.Username, u.Email, u.ImageURL, u.HeaderImageURL, u.Bio, u.Location, u.ID)
	return asValidationError(err)
}

// deleteUser removes the user; messages, follow edges and likes go with it.
func deleteUser(userID int) error {
	_, err := db.Exec("DELETE FROM users WHERE id = ?", userID)
	return err
}

func queryUsers(query string, args ...interface{}) []User {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PwHash,
			&u.ImageURL, &u.HeaderImageURL, &u.Bio, &u.Location); err != nil {
			continue
		}
		users = append(users, u)
	}
	return users
}

func listUsers() []User {
	return queryUsers("SELECT " + userCols + " FROM users ORDER BY username")
}

func searchUsers(q string) []User {
	return queryUsers("SELECT "+userCols+" FROM users WHERE username LIKE ? ORDER BY username",
		"%"+q+"%")
}

// --- Message store ---

// createMessage persists a warble. The 140 character limit lives in the
// schema, so an oversized text surfaces as a constraint error here. A nil
// timestamp means "now", in UTC.
func createMessage(text string, userID int, at *time.Time) (*Message, error) {
	ts := time.Now().UTC()
	if at != nil {
		ts = at.UTC()
	}
	res, err := db.Exec(
		"INSERT INTO messages (text, pub_date, user_id) VALUES (?, ?, ?)",
		text, ts.Unix(), userID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Message{ID: int(id), Text: text, PubDate: ts.Unix(), UserID: userID}, nil
}

func getMessage(id int) (*Message, error) {
	var m Message
	err := db.QueryRow("SELECT id, text, pub_date, user_id FROM messages WHERE id = ?", id).
		Scan(&m.ID, &m.Text, &m.PubDate, &m.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// deleteMessage removes a message unconditionally; ownership is the
// handler's business, not the store's.
func deleteMessage(id int) error {
	_, err := db.Exec("DELETE FROM messages WHERE id = ?", id)
	return err
}

const messageViewCols = `
	m.id, m.text, m.pub_date, m.user_id, u.username, u.image_url,
	(SELECT COUNT(*) FROM likes l WHERE l.message_id = m.id)`

func queryMessageViews(query string, args ...interface{}) []MessageView {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var messages []MessageView
	for rows.Next() {
		var m MessageView
		if err := rows.Scan(&m.ID, &m.Text, &m.PubDate, &m.UserID,
			&m.Username, &m.UserImage, &m.Likes); err != nil {
			continue
		}
		m.When = time.Unix(m.PubDate, 0).UTC().Format("02 January 2006")
		messages = append(messages, m)
	}
	return messages
}

func messagesOf(userID int) []MessageView {
	return queryMessageViews(`
		SELECT `+messageViewCols+`
		FROM messages m JOIN users u ON m.user_id = u.id
		WHERE m.user_id = ?
		ORDER BY m.pub_date DESC`, userID)
}

// feedFor returns the newest messages by the user and everyone they follow.
func feedFor(userID, limit int) []MessageView {
	return queryMessageViews(`
		SELECT `+messageViewCols+`
		FROM messages m JOIN users u ON m.user_id = u.id
		WHERE m.user_id = ? OR m.user_id IN
			(SELECT followed_id FROM follows WHERE follower_id = ?)
		ORDER BY m.pub_date DESC LIMIT ?`, userID, userID, limit)
}

func recentMessages(limit int) []MessageView {
	return queryMessageViews(`
		SELECT `+messageViewCols+`
		FROM messages m JOIN users u ON m.user_id = u.id
		ORDER BY m.pub_date DESC LIMIT ?`, limit)
}

func countMessages(userID int) int {
	var n int
	db.QueryRow("SELECT COUNT(*) FROM messages WHERE user_id = ?", userID).Scan(&n)
	return n
}

// --- Relationship graph ---

// follow adds a directed edge; adding it twice is a no-op.
func follow(followerID, followedID int) error {
	_, err := db.Exec(
		"INSERT OR IGNORE INTO follows (follower_id, followed_id) VALUES (?, ?)",
		followerID, followedID)
	return err
}

func unfollow(followerID, followedID int) error {
	_, err := db.Exec(
		"DELETE FROM follows WHERE follower_id = ? AND followed_id = ?",
		followerID, followedID)
	return err
}

func isFollowing(followerID, followedID int) bool {
	var one int
	err := db.QueryRow(
		"SELECT 1 FROM follows WHERE follower_id = ? AND followed_id = ?",
		followerID, followedID).Scan(&one)
	return err == nil
}

func isFollowedBy(userID, otherID int) bool {
	return isFollowing(otherID, userID)
}

const joinedUserCols = `u.id, u.username, u.email, u.pw_hash, u.image_url,
	u.header_image_url, u.bio, u.location`

func followersOf(userID int) []User {
	return queryUsers(`
		SELECT `+joinedUserCols+`
		FROM users u JOIN follows f ON f.follower_id = u.id
		WHERE f.followed_id = ?
		ORDER BY u.username`, userID)
}

func followingOf(userID int) []User {
	return queryUsers(`
		SELECT `+joinedUserCols+`
		FROM users u JOIN follows f ON f.followed_id = u.id
		WHERE f.follower_id = ?
		ORDER BY u.username`, userID)
}

// --- Likes ---

func likeMessage(userID, messageID int) error {
	_, err := db.Exec(
		"INSERT OR IGNORE INTO likes (user_id, message_id) VALUES (?, ?)",
		userID, messageID)
	return err
}

func unlikeMessage(userID, messageID int) error {
	_, err := db.Exec(
		"DELETE FROM likes WHERE user_id = ? AND message_id = ?",
		userID, messageID)
	return err
}

func hasLiked(userID, messageID int) bool {
	var one int
	err := db.QueryRow(
		"SELECT 1 FROM likes WHERE user_id = ? AND message_id = ?",
		userID, messageID).Scan(&one)
	return err == nil
}

func likedMessagesOf(userID int) []MessageView {
	return queryMessageViews(`
		SELECT `+messageViewCols+`
		FROM messages m
		JOIN users u ON m.user_id = u.id
		JOIN likes lk ON lk.message_id = m.id
		WHERE lk.user_id = ?
		ORDER BY m.pub_date DESC`, userID)
}

func countLikes(userID int) int {
	var n int
	db.QueryRow("SELECT COUNT(*) FROM likes WHERE user_id = ?", userID).Scan(&n)
	return n
}

func countMessageLikes(messageID int) int {
	var n int
	db.QueryRow("SELECT COUNT(*) FROM likes WHERE message_id = ?", messageID).Scan(&n)
	return n
}
