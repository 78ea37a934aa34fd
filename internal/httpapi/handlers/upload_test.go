package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

type filePart struct {
	field       string
	contentType string
	payload     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%q): %v", k, err)
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="upload.bin"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("CreatePart(%q): %v", f.field, err)
		}
		if _, err := part.Write(f.payload); err != nil {
			t.Fatalf("writing part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestAddNewMedia(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body, contentType := multipartBody(t,
		map[string]string{"name": "fresh-photo", "section": "landing"},
		filePart{field: "image", contentType: "image/png", payload: []byte("png-bytes")},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/images/addNewImages", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !resp.Success || resp.URL != "/api/images/fresh-photo" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAddNewMedia_Rejections(t *testing.T) {
	t.Parallel()

	png := filePart{field: "image", contentType: "image/png", payload: []byte("x")}
	cases := []struct {
		name       string
		fields     map[string]string
		files      []filePart
		wantStatus int
	}{
		{
			name:       "no file",
			fields:     map[string]string{"name": "a", "section": "s"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "two files",
			fields:     map[string]string{"name": "a", "section": "s"},
			files:      []filePart{png, {field: "video", contentType: "video/mp4", payload: []byte("y")}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing name",
			fields:     map[string]string{"section": "s"},
			files:      []filePart{png},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing section",
			fields:     map[string]string{"name": "a"},
			files:      []filePart{png},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported content type",
			fields:     map[string]string{"name": "a", "section": "s"},
			files:      []filePart{{field: "image", contentType: "application/pdf", payload: []byte("x")}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			body, contentType := multipartBody(t, tc.fields, tc.files...)
			req := httptest.NewRequest(http.MethodPost, "/api/images/addNewImages", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			env.echo.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestAddNewMedia_DuplicateNameConflicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(t, "taken", "gallery", "image/png", []byte("first"))

	body, contentType := multipartBody(t,
		map[string]string{"name": "taken", "section": "gallery"},
		filePart{field: "image", contentType: "image/png", payload: []byte("second")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/addNewImages", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMedia_ReplacesExisting(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(t, "hero", "landing", "image/png", []byte("old-bytes"))

	replacement := []byte("new-bytes")
	body, contentType := multipartBody(t,
		map[string]string{"name": "hero"},
		filePart{field: "image", contentType: "image/png", payload: replacement},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/api/images/hero", nil)
	getRec := httptest.NewRecorder()
	env.echo.ServeHTTP(getRec, get)
	if !bytes.Equal(getRec.Body.Bytes(), replacement) {
		t.Fatalf("served bytes = %q, want %q", getRec.Body.String(), replacement)
	}
}

func TestUploadMedia_MissingNameRequiresSection(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body, contentType := multipartBody(t,
		map[string]string{"name": "brand-new"},
		filePart{field: "image", contentType: "image/png", payload: []byte("x")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMedia_RenameCollision(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seed(t, "alpha", "gallery", "image/png", []byte("a"))
	env.seed(t, "beta", "gallery", "image/png", []byte("b"))

	body, contentType := multipartBody(t,
		map[string]string{"name": "alpha", "newName": "beta"},
		filePart{field: "image", contentType: "image/png", payload: []byte("c")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadMedia_OversizedFileRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	big := strings.Repeat("x", (1<<20)+1)
	body, contentType := multipartBody(t,
		map[string]string{"name": "huge", "section": "gallery"},
		filePart{field: "file", contentType: "video/mp4", payload: []byte(big)},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/images/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}
