package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// migrate applies goose SQL migrations from db/migrations.
func main() {
	var (
		dir     = flag.String("dir", "db/migrations", "migrations directory")
		command = flag.String("cmd", "up", "goose command: up, down, status, version")
	)
	flag.Parse()

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "Error: DB_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: set dialect: %v\n", err)
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = goose.Up(db, *dir)
	case "down":
		err = goose.Down(db, *dir)
	case "status":
		err = goose.Status(db, *dir)
	case "version":
		err = goose.Version(db, *dir)
	default:
		err = fmt.Errorf("unknown command %q", *command)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: goose %s: %v\n", *command, err)
		os.Exit(1)
	}
}
