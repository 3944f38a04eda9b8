//go:build ignore

package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

const seedToolDoc = `Warbler Seed Tool

Usage:
  seed_tool <db-path> seed    Create the schema and a handful of demo users.
  seed_tool <db-path> dump    Dump all messages and authors to STDOUT.
  seed_tool -h                Show this screen.`

func main() {
	if len(os.Args) < 3 || os.Args[1] == "-h" {
		fmt.Println(seedToolDoc)
		return
	}

	db, err := sql.Open("sqlite3", "file:"+os.Args[1]+"?_foreign_keys=on")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't open database: %s\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch os.Args[2] {
	case "seed":
		schema, err := os.ReadFile("schema.sql")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Can't read schema: %s\n", err)
			os.Exit(1)
		}
		if _, err := db.Exec(string(schema)); err != nil {
			fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
			os.Exit(1)
		}

		now := time.Now().UTC().Unix()
		for i, name := range []string{"tuckerdiane", "awdeorio", "jag"} {
			hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
			res, err := db.Exec(
				"INSERT INTO users (username, email, pw_hash) VALUES (?, ?, ?)",
				name, name+"@example.com", string(hash))
			if err != nil {
				fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
				os.Exit(1)
			}
			id, _ := res.LastInsertId()
			db.Exec("INSERT INTO messages (text, pub_date, user_id) VALUES (?, ?, ?)",
				fmt.Sprintf("Hello from %s!", name), now-int64(i), id)
		}
		fmt.Println("Seeded 3 users and 3 messages")
	case "dump":
		rows, err := db.Query(`
			SELECT m.id, u.username, m.text, m.pub_date
			FROM messages m JOIN users u ON m.user_id = u.id
			ORDER BY m.pub_date DESC`)
		if err != nil {
			fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var id int
			var username, text string
			var pubDate int64
			rows.Scan(&id, &username, &text, &pubDate)
			fmt.Printf("%d,%s,%s,%d\n", id, username, text, pubDate)
		}
	default:
		fmt.Println(seedToolDoc)
	}
}
