package template

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type TemplateRepository struct {
	Db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func (r *TemplateRepository) Close() error {
	return r.Db.Close()
}

func readTemplateBase(q queryer, u uuid.UUID) (*Template, error) {
	row := q.QueryRow(`
		SELECT id, name, created_at, landscape, width, height
		FROM template
		WHERE uuid = ?`, u.String())

	t := Template{Uuid: u}
	if err := row.Scan(&t.Id, &t.Name, &t.CreatedAt, &t.Landscape, &t.Width, &t.Height); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("Failed to read template:\n%w", err)
	}
	return &t, nil
}

func scanFont(s interface{ Scan(...any) error }, f *Font) error {
	var uuidString string
	var fontData []byte
	if err := s.Scan(&f.Id, &uuidString, &f.Name, &f.BuiltinName, &fontData); err != nil {
		return err
	}
	u, err := uuid.Parse(uuidString)
	if err != nil {
		return fmt.Errorf("Font has a bad UUID %q:\n%w", uuidString, err)
	}
	f.Uuid, f.FontData = u, fontData
	return nil
}

func (r *TemplateRepository) ListFonts() ([]Font, error) {
	return queryAndScanRows(r.Db, `
		SELECT id, uuid, name, builtin_name, font_data
		FROM font
		ORDER BY name`, nil, scanFont)
}

// GetFont returns nil if there is no font u.
func (r *TemplateRepository) GetFont(u uuid.UUID) (*Font, error) {
	row := r.Db.QueryRow(`
		SELECT id, uuid, name, builtin_name, font_data
		FROM font
		WHERE uuid = ?`, u.String())

	var f Font
	if err := scanFont(row, &f); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("Failed to read font:\n%w", err)
	}
	return &f, nil
}

// CreateFont stores a font file, giving it a new UUID.
func (r *TemplateRepository) CreateFont(f *Font) error {
	f.Uuid = uuid.New()
	row := r.Db.QueryRow(`
		INSERT INTO font(uuid, name, builtin_name, font_data)
		VALUES (?, ?, ?, ?)
		RETURNING id`, f.Uuid.String(), f.Name, f.BuiltinName, f.FontData)
	if err := row.Scan(&f.Id); err != nil {
		return fmt.Errorf("Failed to insert font:\n%w", err)
	}
	return nil
}

// List returns every template without its children.
func (r *TemplateRepository) List() ([]Template, error) {
	return queryAndScanRows(r.Db, `
		SELECT uuid, id, name, created_at, landscape, width, height
		FROM template
		ORDER BY created_at, id`, nil, func(s interface{ Scan(...any) error }, t *Template) error {
		var uuidString string
		if err := s.Scan(&uuidString, &t.Id, &t.Name, &t.CreatedAt, &t.Landscape, &t.Width, &t.Height); err != nil {
			return err
		}
		var err error
		t.Uuid, err = uuid.Parse(uuidString)
		return err
	})
}

func (r *TemplateRepository) Exists(u uuid.UUID) (bool, error) {
	t, err := readTemplateBase(r.Db, u)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// Get returns the template u with its children, or nil if there is none.
func (r *TemplateRepository) Get(u uuid.UUID) (*Template, error) {
	t, err := readTemplateBase(r.Db, u)
	if err != nil || t == nil {
		return nil, err
	}

	if t.Parameters, err = queryAndScanRows(r.Db, `
		SELECT id, name, max_length
		FROM template_parameter
		WHERE template_id = ?
		ORDER BY id`, []any{t.Id}, func(s interface{ Scan(...any) error }, x *Parameter) error {
		return s.Scan(&x.Id, &x.Name, &x.MaxLength)
	}); err != nil {
		return nil, fmt.Errorf("Failed to read parameters for template:\n%w", err)
	}

	if t.Images, err = queryAndScanRows(r.Db, `
		SELECT id, image, x, y, width, height
		FROM template_image
		WHERE template_id = ?
		ORDER BY id`, []any{t.Id}, func(s interface{ Scan(...any) error }, i *Image) error {
		return s.Scan(&i.Id, &i.Image, &i.X, &i.Y, &i.Width, &i.Height)
	}); err != nil {
		return nil, fmt.Errorf("Failed to read child images for template:\n%w", err)
	}

	if t.Texts, err = queryAndScanRows(r.Db, `
		SELECT t.id, t.text, t.x, t.y, t.width, t.height, t.font_size,
			f.id, f.uuid, f.name, f.builtin_name, f.font_data
		FROM template_text t
		JOIN font f ON f.id = t.font_id
		WHERE t.template_id = ?
		ORDER BY t.id`, []any{t.Id}, func(s interface{ Scan(...any) error }, i *Text) error {
		var uuidString string
		var fontData []byte
		if err := s.Scan(
			&i.Id, &i.Text, &i.X, &i.Y, &i.Width, &i.Height, &i.FontSize,
			&i.Font.Id, &uuidString, &i.Font.Name, &i.Font.BuiltinName, &fontData); err != nil {
			return err
		}
		i.Font.FontData = fontData
		var err error
		i.Font.Uuid, err = uuid.Parse(uuidString)
		return err
	}); err != nil {
		return nil, fmt.Errorf("Failed to read child texts for template:\n%w", err)
	}

	return t, nil
}

func queryAndScanRows[T any](q queryer, query string, args []any, scanRow func(interface{ Scan(...any) error }, *T) error) ([]T, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query execution failed:\n%w", err)
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		var x T
		if err := scanRow(rows, &x); err != nil {
			return nil, fmt.Errorf("Row scanning failed:\n%w", err)
		}
		results = append(results, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Error iterating rows:\n%w", err)
	}
	return results, nil
}

// Run operations in a transaction, committing afterward, or rolling back if the
// passed function returns an error
func (r *TemplateRepository) Transact(f func(*sql.Tx) error) error {
	tx, err := r.Db.Begin()
	if err != nil {
		return err
	}

	if err := f(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("Failed to roll back transaction: %w\n\nAfter handling: %v", err2, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Failed to commit transaction:\n%w", err)
	}
	return nil
}

func (r *TemplateRepository) Multi(tx *sql.Tx, param any, qs ...string) error {
	for n, q := range qs {
		if _, err := tx.Exec(q, param); err != nil {
			return fmt.Errorf("Error running statement #%d:\n%w", n+1, err)
		}
	}
	return nil
}

// Create inserts t under a new UUID unless it already has one.
func (r *TemplateRepository) Create(tx *sql.Tx, t *Template) error {
	if t.Uuid == uuid.Nil {
		t.Uuid = uuid.New()
	}
	row := tx.QueryRow(`
		INSERT INTO template(uuid, name, created_at, landscape, width, height)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`, t.Uuid.String(), t.Name, t.CreatedAt, t.Landscape, t.Width, t.Height)
	if err := row.Scan(&t.Id); err != nil {
		return fmt.Errorf("Failed to insert into template:\n%w", err)
	}
	return r.insertChildren(tx, t)
}

// Update replaces template u, children included, with t.
func (r *TemplateRepository) Update(tx *sql.Tx, u uuid.UUID, t *Template) error {
	tFromDb, err := readTemplateBase(tx, u)
	if err != nil {
		return err
	}
	if tFromDb == nil {
		return fmt.Errorf("%w: no template with UUID %s", ErrNotFound, u.String())
	}

	t.Id, t.Uuid, t.CreatedAt = tFromDb.Id, u, tFromDb.CreatedAt
	if err := r.Multi(tx, t.Id,
		"DELETE FROM template_parameter WHERE template_id = ?",
		"DELETE FROM template_image WHERE template_id = ?",
		"DELETE FROM template_text WHERE template_id = ?"); err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE template SET name = ?, landscape = ?, width = ?, height = ? WHERE id = ?`,
		t.Name, t.Landscape, t.Width, t.Height, t.Id)
	if err != nil {
		return fmt.Errorf("Couldn't update template data:\n%w", err)
	}
	return r.insertChildren(tx, t)
}

func (r *TemplateRepository) insertChildren(tx *sql.Tx, t *Template) error {
	pStmt, err := tx.Prepare(`
		INSERT INTO template_parameter(template_id, name, max_length)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("Failed to prepare statement to insert template parameter:\n%w", err)
	}
	defer pStmt.Close()
	for i, p := range t.Parameters {
		if _, err := pStmt.Exec(t.Id, p.Name, p.MaxLength); err != nil {
			return fmt.Errorf("Failed to insert parameter %v of template:\n%w", i, err)
		}
	}

	iStmt, err := tx.Prepare(`
		INSERT INTO template_image(template_id, image, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("Failed to prepare statement to insert template image:\n%w", err)
	}
	defer iStmt.Close()
	for i, img := range t.Images {
		if _, err := iStmt.Exec(t.Id, img.Image, img.X, img.Y, img.Width, img.Height); err != nil {
			return fmt.Errorf("Failed to insert image %v of template:\n%w", i, err)
		}
	}

	tStmt, err := tx.Prepare(`
		INSERT INTO template_text(template_id, text, x, y, width, height, font_size, font_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT id FROM font WHERE uuid = ?))`)
	if err != nil {
		return fmt.Errorf("Failed to prepare statement to insert template text:\n%w", err)
	}
	defer tStmt.Close()
	for i, txt := range t.Texts {
		if _, err := tStmt.Exec(t.Id,
			txt.Text,
			txt.X, txt.Y,
			txt.Width,
			txt.Height,
			txt.FontSize,
			txt.Font.Uuid.String(),
		); err != nil {
			return fmt.Errorf("Failed to insert text %v of template:\n%w", i, err)
		}
	}
	return nil
}
