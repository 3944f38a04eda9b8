package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	return id, err == nil
}

// GET / — feed of self + followed for the logged-in user, recent warbles otherwise
func homeHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		renderTemplate(w, r, "home_anon.html", map[string]interface{}{
			"Messages": recentMessages(cfg.FeedSize),
		})
		return
	}

	renderTemplate(w, r, "home.html", map[string]interface{}{
		"CurrentUser": user,
		"Messages":    feedFor(user.ID, cfg.FeedSize),
	})
}

// GET + POST /signup
func signupHandler(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == "POST" {
		username := r.FormValue("username")
		email := r.FormValue("email")
		password := r.FormValue("password")
		imageURL := r.FormValue("image_url")

		if username == "" {
			errorMsg = "You have to enter a username"
		} else if email == "" || !strings.Contains(email, "@") {
			errorMsg = "You have to enter a valid email address"
		} else if password == "" {
			errorMsg = "You have to enter a password"
		} else {
			user, err := createUser(username, email, password, imageURL)
			var ve *ValidationError
			switch {
			case errors.As(err, &ve) && ve.Has("username"):
				errorMsg = "Username already taken"
			case errors.As(err, &ve) && ve.Has("email"):
				errorMsg = "Email already taken"
			case err != nil:
				http.Error(w, "DB error", http.StatusInternalServerError)
				return
			default:
				setCurrentUser(w, r, user.ID)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}
	}

	renderTemplate(w, r, "signup.html", map[string]interface{}{
		"Error": errorMsg,
	})
}

// GET + POST /login
func loginHandler(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	errorMsg := ""
	if r.Method == "POST" {
		user := authenticateUser(r.FormValue("username"), r.FormValue("password"))
		if user == nil {
			errorMsg = "Invalid credentials."
		} else {
			setCurrentUser(w, r, user.ID)
			addFlash(w, r, fmt.Sprintf("Hello, %s!", user.Username))
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	renderTemplate(w, r, "login.html", map[string]interface{}{
		"Error": errorMsg,
	})
}

// GET /logout
func logoutHandler(w http.ResponseWriter, r *http.Request) {
	clearCurrentUser(w, r)
	addFlash(w, r, "You have successfully logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET /users — all users as cards, filtered by ?q=
func usersIndexHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	var users []User
	if q == "" {
		users = listUsers()
	} else {
		users = searchUsers(q)
	}

	renderTemplate(w, r, "users.html", map[string]interface{}{
		"Users": users,
		"Query": q,
	})
}

// GET /users/{id} — profile page with the user's warbles
func userShowHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	profile := getUserByID(id)
	if profile == nil {
		http.NotFound(w, r)
		return
	}

	viewer := currentUser(r)
	renderTemplate(w, r, "show_user.html", map[string]interface{}{
		"ProfileUser":  profile,
		"Messages":     messagesOf(id),
		"IsSelf":       viewer != nil && viewer.ID == id,
		"Followed":     viewer != nil && isFollowing(viewer.ID, id),
		"NumMessages":  countMessages(id),
		"NumFollowing": len(followingOf(id)),
		"NumFollowers": len(followersOf(id)),
		"NumLikes":     countLikes(id),
	})
}

// GET /users/{id}/following
func followingHandler(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	profile := getUserByID(id)
	if profile == nil {
		http.NotFound(w, r)
		return
	}

	renderTemplate(w, r, "following.html", map[string]interface{}{
		"ProfileUser": profile,
		"Users":       followingOf(id),
	})
}

// GET /users/{id}/followers
func followersHandler(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	profile := getUserByID(id)
	if profile == nil {
		http.NotFound(w, r)
		return
	}

	renderTemplate(w, r, "followers.html", map[string]interface{}{
		"ProfileUser": profile,
		"Users":       followersOf(id),
	})
}

// GET /users/{id}/likes
func userLikesHandler(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	profile := getUserByID(id)
	if profile == nil {
		http.NotFound(w, r)
		return
	}

	renderTemplate(w, r, "likes.html", map[string]interface{}{
		"ProfileUser": profile,
		"Messages":    likedMessagesOf(id),
	})
}

// POST /users/follow/{id}
func addFollowHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(r)
	if !ok || getUserByID(id) == nil {
		http.NotFound(w, r)
		return
	}

	follow(user.ID, id)
	http.Redirect(w, r, fmt.Sprintf("/users/%d/following", user.ID), http.StatusFound)
}

// POST /users/stop-following/{id}
func stopFollowingHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(r)
	if !ok || getUserByID(id) == nil {
		http.NotFound(w, r)
		return
	}

	unfollow(user.ID, id)
	http.Redirect(w, r, fmt.Sprintf("/users/%d/following", user.ID), http.StatusFound)
}

// POST /users/add_like/{id} — toggle a like on a message
func addLikeHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := getMessage(id); err != nil {
		http.NotFound(w, r)
		return
	}

	if hasLiked(user.ID, id) {
		unlikeMessage(user.ID, id)
	} else {
		likeMessage(user.ID, id)
	}

	back := r.Referer()
	if back == "" {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusFound)
}

// GET + POST /users/profile — edit own profile, re-entering the password
func profileHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	errorMsg := ""
	if r.Method == "POST" {
		if !checkPassword(user.PwHash, r.FormValue("password")) {
			denyAccess(w, r)
			return
		}

		user.Username = r.FormValue("username")
		user.Email = r.FormValue("email")
		user.Bio = r.FormValue("bio")
		user.Location = r.FormValue("location")
		if v := r.FormValue("image_url"); v != "" {
			user.ImageURL = v
		} else {
			user.ImageURL = defaultImageURL
		}
		if v := r.FormValue("header_image_url"); v != "" {
			user.HeaderImageURL = v
		} else {
			user.HeaderImageURL = defaultHeaderImageURL
		}

		err := updateProfile(user)
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			errorMsg = "Username or email already taken"
		case err != nil:
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		default:
			http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
			return
		}
	}

	renderTemplate(w, r, "edit_profile.html", map[string]interface{}{
		"CurrentUser": user,
		"FormUser":    user,
		"Error":       errorMsg,
	})
}

// POST /users/delete — delete own account
func deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	clearCurrentUser(w, r)
	if err := deleteUser(user.ID); err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/signup", http.StatusFound)
}

// GET + POST /messages/new
func newMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	errorMsg := ""
	if r.Method == "POST" {
		text := r.FormValue("text")
		if text == "" {
			errorMsg = "You have to enter a message"
		} else {
			_, err := createMessage(text, user.ID, nil)
			switch {
			case isConstraintErr(err):
				errorMsg = "Messages are limited to 140 characters"
			case err != nil:
				http.Error(w, "DB error", http.StatusInternalServerError)
				return
			default:
				http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
				return
			}
		}
	}

	renderTemplate(w, r, "new_message.html", map[string]interface{}{
		"Error": errorMsg,
	})
}

// GET /messages/{id} — message detail; the delete affordance is owner-only
func showMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	msg, err := getMessage(id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	author := getUserByID(msg.UserID)
	if author == nil {
		http.NotFound(w, r)
		return
	}

	viewer := currentUser(r)
	renderTemplate(w, r, "show_message.html", map[string]interface{}{
		"Message":     msg,
		"Author":      author,
		"When":        msg.CreatedAt().Format("02 January 2006"),
		"CanDelete":   viewer != nil && viewer.ID == msg.UserID,
		"Liked":       viewer != nil && hasLiked(viewer.ID, msg.ID),
		"NumLikes":    countMessageLikes(msg.ID),
	})
}

// POST /messages/{id}/delete — owner only
func deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	msg, err := getMessage(id)
	if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	if msg.UserID != user.ID {
		denyAccess(w, r)
		return
	}

	if err := deleteMessage(id); err != nil {
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/users/%d", user.ID), http.StatusFound)
}
