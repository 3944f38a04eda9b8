package main

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultImageURL       = "/static/images/default-pic.png"
	defaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a registered user.
type User struct {
	ID             int
	Username       string
	Email          string
	PwHash         string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

func (u *User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

// Message represents a single warble, owned by exactly one user.
type Message struct {
	ID      int
	Text    string
	PubDate int64
	UserID  int
}

// CreatedAt returns the publication time in UTC.
func (m *Message) CreatedAt() time.Time {
	return time.Unix(m.PubDate, 0).UTC()
}

// MessageView is a message joined with its author, ready for rendering.
type MessageView struct {
	ID        int
	Text      string
	PubDate   int64
	UserID    int
	Username  string
	UserImage string
	When      string
	Likes     int
}

// ValidationError reports which fields failed signup/profile validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
