package template

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func aRepository(t *testing.T) *TemplateRepository {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func builtinFont(t *testing.T, r *TemplateRepository, name string) Font {
	t.Helper()
	fonts, err := r.ListFonts()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fonts {
		if f.BuiltinName == name {
			return f
		}
	}
	t.Fatalf("no builtin font %s in %v", name, fonts)
	return Font{}
}

func TestBuiltinFonts(t *testing.T) {
	r := aRepository(t)
	fonts, err := r.ListFonts()
	if err != nil {
		t.Fatal(err)
	}
	if len(fonts) != 2 {
		t.Fatalf("got %d fonts, expected the 2 builtins", len(fonts))
	}
	f, err := r.GetFont(fonts[0].Uuid)
	if err != nil || f == nil {
		t.Fatalf("couldn't get font %s: %v", fonts[0].Uuid, err)
	}
	if f.Name != fonts[0].Name {
		t.Errorf("got font %q, expected %q", f.Name, fonts[0].Name)
	}
	if f, err := r.GetFont(uuid.New()); f != nil || err != nil {
		t.Errorf("expected no font and no error, got %v %v", f, err)
	}
}

func TestReopenKeepsFonts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for range 2 {
		r, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		fonts, err := r.ListFonts()
		r.Close()
		if err != nil {
			t.Fatal(err)
		}
		if len(fonts) != 2 {
			t.Errorf("got %d fonts after opening, expected 2", len(fonts))
		}
	}
}

func TestCreateAndGet(t *testing.T) {
	r := aRepository(t)
	tpl := aShippingLabel()
	tpl.CreatedAt = time.Now().UTC().Truncate(time.Second)
	tpl.Texts[0].Font = builtinFont(t, r, "goregular")
	tpl.Images = []Image{{Image: []byte{1, 2, 3}, X: 1, Y: 2, Width: 30, Height: 40.5}}

	if err := r.Transact(func(tx *sql.Tx) error { return r.Create(tx, tpl) }); err != nil {
		t.Fatal(err)
	}
	if tpl.Uuid == uuid.Nil || tpl.Id == 0 {
		t.Fatalf("created template has uuid %s id %d", tpl.Uuid, tpl.Id)
	}

	got, err := r.Get(tpl.Uuid)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatalf("template %s not found", tpl.Uuid)
	}
	if got.Name != "shipping" || got.Width != 2 || got.Height != 1 || !got.CreatedAt.Equal(tpl.CreatedAt) {
		t.Errorf("got %+v", got)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Name != "name" || got.Parameters[0].MaxLength != 20 {
		t.Errorf("parameters %+v", got.Parameters)
	}
	if len(got.Images) != 1 || got.Images[0].Height != 40.5 || len(got.Images[0].Image) != 3 {
		t.Errorf("images %+v", got.Images)
	}
	if len(got.Texts) != 1 || got.Texts[0].Text != "Ship to {name}" || got.Texts[0].Font.BuiltinName != "goregular" {
		t.Errorf("texts %+v", got.Texts)
	}

	exists, err := r.Exists(tpl.Uuid)
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
	missing, err := r.Get(uuid.New())
	if err != nil || missing != nil {
		t.Errorf("expected no template, got %v %v", missing, err)
	}
}

func TestCreateRollsBackOnUnknownFont(t *testing.T) {
	r := aRepository(t)
	tpl := aShippingLabel()
	tpl.Texts[0].Font = Font{Uuid: uuid.New()}

	if err := r.Transact(func(tx *sql.Tx) error { return r.Create(tx, tpl) }); err == nil {
		t.Fatalf("expected an error for a text with an unknown font")
	}
	list, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("failed create left %d templates behind", len(list))
	}
}

func TestUpdate(t *testing.T) {
	r := aRepository(t)
	tpl := aShippingLabel()
	tpl.Texts[0].Font = builtinFont(t, r, "goregular")
	if err := r.Transact(func(tx *sql.Tx) error { return r.Create(tx, tpl) }); err != nil {
		t.Fatal(err)
	}

	changed := &Template{
		Name:      "returns",
		Width:     4,
		Height:    6,
		Landscape: true,
		Texts: []Text{{
			Text:     "RETURN",
			FontSize: 20,
			Font:     builtinFont(t, r, "gomono"),
		}},
	}
	if err := r.Transact(func(tx *sql.Tx) error { return r.Update(tx, tpl.Uuid, changed) }); err != nil {
		t.Fatal(err)
	}

	got, err := r.Get(tpl.Uuid)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "returns" || got.Width != 4 || !got.Landscape {
		t.Errorf("template not updated: %+v", got)
	}
	if len(got.Parameters) != 0 || len(got.Texts) != 1 || got.Texts[0].Font.BuiltinName != "gomono" {
		t.Errorf("children not replaced: %+v %+v", got.Parameters, got.Texts)
	}

	err = r.Transact(func(tx *sql.Tx) error { return r.Update(tx, uuid.New(), changed) })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating a missing template, got %v", err)
	}
}

func TestList(t *testing.T) {
	r := aRepository(t)
	for _, name := range []string{"first", "second", "third"} {
		tpl := &Template{Name: name, Width: 4, Height: 6, CreatedAt: time.Now()}
		if err := r.Transact(func(tx *sql.Tx) error { return r.Create(tx, tpl) }); err != nil {
			t.Fatal(err)
		}
	}
	list, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Name != "first" || list[2].Name != "third" {
		t.Errorf("listed %+v", list)
	}
}

func TestCreateFont(t *testing.T) {
	r := aRepository(t)
	f := Font{Name: "Custom", FontData: []byte("not really a font")}
	if err := r.CreateFont(&f); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetFont(f.Uuid)
	if err != nil || got == nil {
		t.Fatalf("couldn't read back font: %v", err)
	}
	if string(got.FontData) != "not really a font" {
		t.Errorf("font data %q", got.FontData)
	}
}
