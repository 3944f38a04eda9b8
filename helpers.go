package main

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/sessions"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "session"
	currUserKey = "curr_user"

	accessUnauthorized = "Access unauthorized."
)

// --- Session helpers ---

func newStore() *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(cfg.SecretKey))
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
	}
	return s
}

// currentUser resolves the session to a user, or nil for anonymous.
func currentUser(r *http.Request) *User {
	session, _ := store.Get(r, sessionName)
	userID, ok := session.Values[currUserKey].(int)
	if !ok {
		return nil
	}
	return getUserByID(userID)
}

func setCurrentUser(w http.ResponseWriter, r *http.Request, userID int) {
	session, _ := store.Get(r, sessionName)
	session.Values[currUserKey] = userID
	session.Save(r, w)
}

func clearCurrentUser(w http.ResponseWriter, r *http.Request) {
	session, _ := store.Get(r, sessionName)
	delete(session.Values, currUserKey)
	session.Save(r, w)
}

func addFlash(w http.ResponseWriter, r *http.Request, message string) {
	session, _ := store.Get(r, sessionName)
	session.AddFlash(message)
	session.Save(r, w)
}

func getFlashes(w http.ResponseWriter, r *http.Request) []interface{} {
	session, _ := store.Get(r, sessionName)
	flashes := session.Flashes()
	session.Save(r, w)
	return flashes
}

// requireUser gates a handler to authenticated requests. On an anonymous
// request it flashes and redirects, then returns nil; the handler must bail.
func requireUser(w http.ResponseWriter, r *http.Request) *User {
	user := currentUser(r)
	if user == nil {
		addFlash(w, r, accessUnauthorized)
		http.Redirect(w, r, "/", http.StatusFound)
	}
	return user
}

// denyAccess is the uniform refusal for ownership violations: same flash,
// same redirect as the anonymous case, never a 403.
func denyAccess(w http.ResponseWriter, r *http.Request) {
	addFlash(w, r, accessUnauthorized)
	http.Redirect(w, r, "/", http.StatusFound)
}

// --- Password helpers ---

func hashPassword(password string) string {
	bytes, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes)
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Template helpers ---

func renderTemplate(w http.ResponseWriter, r *http.Request, templateFile string, data map[string]interface{}) {
	tpl, err := gonja.FromFile(filepath.Join("templates", templateFile))
	if err != nil {
		log.WithError(err).WithField("template", templateFile).Error("template parse failed")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	if _, ok := data["CurrentUser"]; !ok {
		if u := currentUser(r); u != nil {
			data["CurrentUser"] = u
		}
	}
	if _, ok := data["Flashes"]; !ok {
		data["Flashes"] = getFlashes(w, r)
	}

	if err := tpl.Execute(w, exec.NewContext(data)); err != nil {
		log.WithError(err).WithField("template", templateFile).Error("template render failed")
	}
}
