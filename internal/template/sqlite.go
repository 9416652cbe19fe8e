package template

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

//go:embed schema.sql
var schema string

// Open opens the sqlite database at path, creating the tables and builtin
// fonts if they are missing.
func Open(path string) (*TemplateRepository, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("Couldn't open database:\n%w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("Couldn't initialise database:\n%w", err)
	}
	return &TemplateRepository{Db: db}, nil
}
