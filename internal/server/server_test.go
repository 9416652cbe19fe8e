package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tomgalvin.uk/zplconv/internal/config"
	"tomgalvin.uk/zplconv/internal/convert"
	"tomgalvin.uk/zplconv/internal/printer"
	"tomgalvin.uk/zplconv/internal/render"
	"tomgalvin.uk/zplconv/internal/template"
	"tomgalvin.uk/zplconv/internal/zpl"
)

func aServer(t *testing.T) *Server {
	t.Helper()
	repo, err := template.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return &Server{
		Config: config.ServerConfig{
			MaxUploadSize: 1 << 20,
			GinMode:       gin.TestMode,
		},
		Tools:              render.Tools{Pdftoppm: "pdftoppm", Wkhtmltopdf: "/nonexistent/wkhtmltopdf"},
		Defaults:           convert.DefaultOptions(),
		TemplateRepository: repo,
	}
}

func aBlackPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("couldn't decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("got status %d, expected %d: %s", w.Code, status, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := do(t, aServer(t).Handler(), http.MethodGet, "/healthz", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestConvertBase64(t *testing.T) {
	h := aServer(t).Handler()
	w := do(t, h, http.MethodPost, "/convert/base64", gin.H{
		"file_content": base64.StdEncoding.EncodeToString(aBlackPNG(t, 1, 1)),
		"file_type":    "png",
		"options":      gin.H{"dither": false},
	})
	expectStatus(t, w, http.StatusOK)

	res := decode[conversionResponse](t, w)
	if res.Status != "success" {
		t.Errorf("status %q", res.Status)
	}
	if res.ZplContent != "^XA\n^FO0,0^GFA,1,1,1,80^FS\n^XZ\n" {
		t.Errorf("got %q", res.ZplContent)
	}
	if res.Timestamp.IsZero() {
		t.Errorf("no timestamp")
	}
}

func TestConvertBase64Formats(t *testing.T) {
	h := aServer(t).Handler()
	for _, format := range []string{"ASCII", "B64", "Z64"} {
		w := do(t, h, http.MethodPost, "/convert/base64", gin.H{
			"file_content": base64.StdEncoding.EncodeToString(aBlackPNG(t, 16, 4)),
			"file_type":    "png",
			"options":      gin.H{"format": format},
		})
		expectStatus(t, w, http.StatusOK)
		res := decode[conversionResponse](t, w)
		hasFrame := strings.Contains(res.ZplContent, ":"+format+":")
		if hasFrame != (format != "ASCII") {
			t.Errorf("%s: unexpected data in %q", format, res.ZplContent)
		}
	}
}

func TestConvertBase64BadRequests(t *testing.T) {
	h := aServer(t).Handler()
	png := base64.StdEncoding.EncodeToString(aBlackPNG(t, 1, 1))
	cases := map[string]gin.H{
		"unsupported type": {"file_content": png, "file_type": "docx"},
		"bad base64":       {"file_content": "!!!", "file_type": "png"},
		"bad dpi":          {"file_content": png, "file_type": "png", "options": gin.H{"dpi": 250}},
		"bad format":       {"file_content": png, "file_type": "png", "options": gin.H{"format": "PNG"}},
		"missing content":  {"file_type": "png"},
		"not an image":     {"file_content": base64.StdEncoding.EncodeToString([]byte("hello")), "file_type": "png"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/convert/base64", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("got status %d: %s", w.Code, w.Body.String())
			}
			if res := decode[map[string]string](t, w); res["detail"] == "" {
				t.Errorf("no detail in %s", w.Body.String())
			}
		})
	}
}

func multipartBody(t *testing.T, filename string, data []byte, options string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	if options != "" {
		mw.WriteField("options", options)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestConvertFile(t *testing.T) {
	h := aServer(t).Handler()
	body, contentType := multipartBody(t, "label.png", aBlackPNG(t, 8, 2), `{"dither": false, "format": "ascii"}`)
	req := httptest.NewRequest(http.MethodPost, "/convert/file", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK)
	res := decode[conversionResponse](t, w)
	if !strings.Contains(res.ZplContent, "^GFA,2,2,1,FFFF") {
		t.Errorf("got %q", res.ZplContent)
	}
}

func TestConvertFileErrors(t *testing.T) {
	s := aServer(t)
	s.Config.MaxUploadSize = 512
	h := s.Handler()

	cases := []struct {
		name     string
		filename string
		data     []byte
		options  string
		status   int
	}{
		{"unsupported extension", "label.docx", []byte("hello"), "", http.StatusBadRequest},
		{"bad options", "label.png", aBlackPNG(t, 1, 1), "{not json", http.StatusBadRequest},
		{"too large", "label.png", bytes.Repeat([]byte{0}, 4096), "", http.StatusRequestEntityTooLarge},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body, contentType := multipartBody(t, c.filename, c.data, c.options)
			req := httptest.NewRequest(http.MethodPost, "/convert/file", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			expectStatus(t, w, c.status)
		})
	}
}

func TestConvertHTMLWithoutRenderer(t *testing.T) {
	w := do(t, aServer(t).Handler(), http.MethodPost, "/convert/html", gin.H{"html_content": "<p>hi</p>"})
	expectStatus(t, w, http.StatusInternalServerError)
}

func TestConvertHTMLBadScale(t *testing.T) {
	h := aServer(t).Handler()
	for _, scale := range []any{0, -1, "big"} {
		w := do(t, h, http.MethodPost, "/convert/html", gin.H{
			"html_content": "<p>hi</p>",
			"options":      gin.H{"scale": scale},
		})
		expectStatus(t, w, http.StatusBadRequest)
	}
}

func TestOptionsKeepFieldErrors(t *testing.T) {
	s := aServer(t)
	_, err := s.options([]byte(`{"format": "PNG"}`))
	if !errors.Is(err, convert.ErrInvalidOption) || !errors.Is(err, zpl.ErrUnsupportedFormat) {
		t.Errorf("expected ErrInvalidOption and ErrUnsupportedFormat, got %v", err)
	}

	opts, err := s.options([]byte(`{"format": "z64", "scale": 2}`))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Format != zpl.Z64 || opts.DPI != s.Defaults.DPI {
		t.Errorf("options not overlaid on defaults: %+v", opts)
	}
}

func goRegular(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodGet, "/fonts", nil)
	expectStatus(t, w, http.StatusOK)
	for _, f := range decode[[]fontJson](t, w) {
		if f.Name == "Go Regular" {
			return f.Uuid.String()
		}
	}
	t.Fatalf("no Go Regular font in %s", w.Body.String())
	return ""
}

func aTemplateBody(fontUuid string) gin.H {
	return gin.H{
		"name":       "shipping",
		"width":      2,
		"height":     1,
		"parameters": []gin.H{{"name": "name"}},
		"texts": []gin.H{{
			"text":      "Ship to {name}",
			"position":  gin.H{"x": 4, "y": 4},
			"font_size": 12,
			"font_uuid": fontUuid,
		}},
	}
}

func TestTemplates(t *testing.T) {
	h := aServer(t).Handler()
	font := goRegular(t, h)

	w := do(t, h, http.MethodPost, "/templates", aTemplateBody(font))
	expectStatus(t, w, http.StatusCreated)
	created := decode[templateJson](t, w)
	if created.Uuid == nil {
		t.Fatalf("created template has no uuid: %s", w.Body.String())
	}
	path := "/templates/" + created.Uuid.String()

	w = do(t, h, http.MethodGet, path, nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[templateJson](t, w)
	if got.Name != "shipping" || len(got.Texts) != 1 || got.Texts[0].FontUuid != font {
		t.Errorf("got %+v", got)
	}

	w = do(t, h, http.MethodGet, "/templates", nil)
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]templateJson](t, w); len(list) != 1 {
		t.Errorf("listed %d templates", len(list))
	}

	w = do(t, h, http.MethodPost, path+"/render", gin.H{"params": gin.H{"name": "Ada"}})
	expectStatus(t, w, http.StatusOK)
	res := decode[conversionResponse](t, w)
	if !strings.HasPrefix(res.ZplContent, "^XA\n^FO0,0^GFA,10353,10353,51,") {
		t.Errorf("unexpected label %.40q", res.ZplContent)
	}

	w = do(t, h, http.MethodPost, path+"/render", gin.H{"params": gin.H{}})
	expectStatus(t, w, http.StatusBadRequest)

	update := aTemplateBody(font)
	update["name"] = "returns"
	w = do(t, h, http.MethodPut, path, update)
	expectStatus(t, w, http.StatusOK)
	w = do(t, h, http.MethodGet, path, nil)
	if got := decode[templateJson](t, w); got.Name != "returns" {
		t.Errorf("template not updated: %+v", got)
	}
}

func TestTemplateErrors(t *testing.T) {
	h := aServer(t).Handler()

	expectStatus(t, do(t, h, http.MethodGet, "/templates/not-a-uuid", nil), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodGet, "/templates/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodPut, "/templates/6ba7b810-9dad-11d1-80b4-00c04fd430c8", aTemplateBody(goRegular(t, h))), http.StatusNotFound)
	expectStatus(t, do(t, h, http.MethodPost, "/templates", aTemplateBody("6ba7b810-9dad-11d1-80b4-00c04fd430c8")), http.StatusBadRequest)
	expectStatus(t, do(t, h, http.MethodPost, "/templates", gin.H{"width": 2}), http.StatusBadRequest)
}

func TestPrintWithoutPrinter(t *testing.T) {
	w := do(t, aServer(t).Handler(), http.MethodPost, "/print", gin.H{"zpl_content": "^XA^XZ"})
	expectStatus(t, w, http.StatusServiceUnavailable)
}

func TestPrint(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	received := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	s := aServer(t)
	s.Printer = &printer.TCPConnection{Address: l.Addr().String()}
	w := do(t, s.Handler(), http.MethodPost, "/print", gin.H{"zpl_content": "^XA^XZ"})
	expectStatus(t, w, http.StatusOK)
	if got := string(<-received); got != "^XA^XZ" {
		t.Errorf("printer received %q", got)
	}
}

func TestCors(t *testing.T) {
	s := aServer(t)
	s.Config.CorsOrigins = []string{"https://labels.example"}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://labels.example")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://labels.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
