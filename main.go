package main

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

var (
	db    *sql.DB
	store *sessions.CookieStore
)

func setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	fs := http.FileServer(http.Dir("static"))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))

	r.HandleFunc("/", homeHandler).Methods("GET")
	r.HandleFunc("/signup", signupHandler).Methods("GET", "POST")
	r.HandleFunc("/login", loginHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", logoutHandler).Methods("GET")

	r.HandleFunc("/users", usersIndexHandler).Methods("GET")
	r.HandleFunc("/users/profile", profileHandler).Methods("GET", "POST")
	r.HandleFunc("/users/delete", deleteUserHandler).Methods("POST")
	r.HandleFunc("/users/follow/{id:[0-9]+}", addFollowHandler).Methods("POST")
	r.HandleFunc("/users/stop-following/{id:[0-9]+}", stopFollowingHandler).Methods("POST")
	r.HandleFunc("/users/add_like/{id:[0-9]+}", addLikeHandler).Methods("POST")
	r.HandleFunc("/users/{id:[0-9]+}", userShowHandler).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/following", followingHandler).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/followers", followersHandler).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/likes", userLikesHandler).Methods("GET")

	r.HandleFunc("/messages/new", newMessageHandler).Methods("GET", "POST")
	r.HandleFunc("/messages/{id:[0-9]+}", showMessageHandler).Methods("GET")
	r.HandleFunc("/messages/{id:[0-9]+}/delete", deleteMessageHandler).Methods("POST")

	return r
}

func main() {
	cfg = loadConfig()

	var err error
	db, err = openDB(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("can't open database")
	}
	if err := ensureSchema(); err != nil {
		log.WithError(err).Fatal("can't apply schema")
	}

	store = newStore()

	log.WithFields(log.Fields{
		"addr": cfg.Addr,
		"db":   cfg.Database,
	}).Info("warbler listening")
	log.Fatal(http.ListenAndServe(cfg.Addr, setupRouter()))
}
