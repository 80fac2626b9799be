package httpx

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

func newLayout(t *testing.T) *LayoutRenderer {
	t.Helper()
	l, err := NewLayoutRenderer(LayoutConfig{TemplateFS: os.DirFS(TemplatePathFromTest)})
	require.NoError(t, err)
	return l
}

func TestNewLayoutRenderer_RequiresFS(t *testing.T) {
	_, err := NewLayoutRenderer(LayoutConfig{})
	assert.Error(t, err)
}

func TestNewLayoutRenderer_ParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"layout.tmpl":          {Data: []byte(`{{ define "layout" }}{{ .Broken `)},
		"pages/x.tmpl":         {Data: []byte(`{{ define "x-content" }}x{{ end }}`)},
		"partials/navbar.tmpl": {Data: []byte(`{{ define "navbar" }}{{ end }}`)},
	}
	_, err := NewLayoutRenderer(LayoutConfig{TemplateFS: fsys})
	assert.Error(t, err)
}

func TestLayoutRenderer_FrameFor(t *testing.T) {
	l := newLayout(t)
	writer := signedIn("w@x.io", domainauth.RoleWriter)

	assert.Equal(t, FrameLoading, l.FrameFor(domainauth.Session{Resolving: true, Current: writer.Current}, "/writer-dashboard"))
	assert.Equal(t, FramePlain, l.FrameFor(domainauth.Session{}, "/writer-dashboard"))
	assert.Equal(t, FramePlain, l.FrameFor(writer, "/"))
	assert.Equal(t, FramePlain, l.FrameFor(writer, "/login"))
	assert.Equal(t, FrameDashboard, l.FrameFor(writer, "/writer-dashboard"))
	// The frame follows the path, not whether this viewer may see it.
	assert.Equal(t, FrameDashboard, l.FrameFor(writer, "/admin-dashboard"))
}

func TestLayoutRenderer_RenderLoadingNil(t *testing.T) {
	var l *LayoutRenderer
	rec := httptest.NewRecorder()

	l.RenderLoading(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
	assert.Equal(t, "Loading...\n", rec.Body.String())
}

func TestLayoutRenderer_RenderDashboardMenu(t *testing.T) {
	l := newLayout(t)
	admin := signedIn("root.admin@x.io", domainauth.RoleAdmin)
	rec := httptest.NewRecorder()

	l.Render(rec, httptest.NewRequest(http.MethodGet, "/writers", nil), admin, PageView{
		Content: ContentView,
		Title:   "Writers",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="frame-dashboard"`)
	assert.Contains(t, body, `href="/writers" class="active"`)
	assert.Contains(t, body, `href="/paysheets"`)
	assert.NotContains(t, body, `href="/writer-dashboard"`)
	assert.Contains(t, body, "<h1>Writers</h1>")
}

func TestLayoutRenderer_RenderStatusAndEscaping(t *testing.T) {
	l := newLayout(t)
	rec := httptest.NewRecorder()

	l.Render(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), domainauth.Session{}, PageView{
		Content: ContentLogin,
		Title:   "Log in",
		Status:  http.StatusUnauthorized,
		Data:    map[string]any{"Error": "<b>nope</b>"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;nope&lt;/b&gt;")
	assert.Contains(t, rec.Body.String(), `class="frame-plain"`)
	assert.NotContains(t, rec.Body.String(), "&lt;nil&gt;")
}

func TestLayoutRenderer_UnknownContentIs500(t *testing.T) {
	l := newLayout(t)
	rec := httptest.NewRecorder()

	l.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), domainauth.Session{}, PageView{Content: "missing-content"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
