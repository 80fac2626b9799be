package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/assignpro/assignpro-web/internal/domain/access"
	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
)

// Frame identifies the shell a page is wrapped in.
type Frame string

const (
	// FrameLoading is the neutral placeholder shown while the session resolves.
	FrameLoading Frame = "loading"
	// FramePlain is the public frame: navbar only.
	FramePlain Frame = "plain"
	// FrameDashboard adds the role menu sidebar for an authenticated viewer on a protected path.
	FrameDashboard Frame = "dashboard"
)

// PageView describes one page to render inside the layout.
type PageView struct {
	// Content is the name of the content template, e.g. "login-content".
	Content string
	Title   string
	// Status defaults to 200.
	Status int
	Data   map[string]any
}

// PageData is the model every layout template receives.
type PageData struct {
	AppName string
	Title   string
	Path    string
	Frame   Frame
	User    *domainauth.Identity
	Home    string
	Menu    []access.MenuItem
	Content string
	Data    map[string]any
}

// LayoutConfig holds configuration for creating a LayoutRenderer.
type LayoutConfig struct {
	TemplateFS fs.FS          // Filesystem containing templates (required)
	Policy     *access.Policy // Menu and home source (defaults to the built-in table)
	AppName    string
	Logger     *slog.Logger
}

// LayoutRenderer renders pages in the loading, plain or dashboard frame.
type LayoutRenderer struct {
	t       *template.Template
	policy  *access.Policy
	appName string
	logger  *slog.Logger
}

// NewLayoutRenderer parses the layout, page and partial templates.
func NewLayoutRenderer(cfg LayoutConfig) (*LayoutRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	l := &LayoutRenderer{
		policy:  cfg.Policy,
		appName: cfg.AppName,
		logger:  cfg.Logger,
	}
	if l.policy == nil {
		l.policy = access.DefaultPolicy()
	}
	if l.appName == "" {
		l.appName = "AssignPro"
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	var t *template.Template
	var err error
	t, err = template.New("root").Funcs(templateFuncs(&t)).ParseFS(cfg.TemplateFS,
		"*.tmpl",
		"pages/*.tmpl",
		"partials/*.tmpl",
	)
	if err != nil {
		l.logger.Error("template parsing failed",
			slog.Any("error", err),
			slog.String("phase", "initialization"),
		)
		return nil, err
	}
	l.t = t
	return l, nil
}

// Policy returns the table used for menus and homes.
func (l *LayoutRenderer) Policy() *access.Policy { return l.policy }

// FrameFor selects the shell for a snapshot and path.
func (l *LayoutRenderer) FrameFor(s domainauth.Session, path string) Frame {
	switch {
	case s.Resolving:
		return FrameLoading
	case s.Current != nil && len(l.policy.RequiredRoles(path)) > 0:
		return FrameDashboard
	default:
		return FramePlain
	}
}

// RenderLoading writes the placeholder page. The browser re-requests the page each second.
// A nil renderer writes a minimal text placeholder.
func (l *LayoutRenderer) RenderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", "1")
	w.Header().Set("Cache-Control", "no-store")
	if l == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "Loading...\n")
		return
	}
	l.execute(w, http.StatusOK, "loading", PageData{
		AppName: l.appName,
		Title:   "Loading",
		Path:    r.URL.Path,
		Frame:   FrameLoading,
	})
}

// Render writes v inside the frame chosen for s and the request path.
func (l *LayoutRenderer) Render(w http.ResponseWriter, r *http.Request, s domainauth.Session, v PageView) {
	frame := l.FrameFor(s, r.URL.Path)
	if frame == FrameLoading {
		l.RenderLoading(w, r)
		return
	}

	data := PageData{
		AppName: l.appName,
		Title:   v.Title,
		Path:    r.URL.Path,
		Frame:   frame,
		Content: v.Content,
		Data:    v.Data,
	}
	if s.Current != nil {
		user := *s.Current
		data.User = &user
		data.Home = l.policy.RoleHome(user.Role)
		if frame == FrameDashboard {
			data.Menu = l.policy.Menu(user.Role)
		}
	}

	status := v.Status
	if status == 0 {
		status = http.StatusOK
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		return
	}
	l.execute(w, status, "layout", data)
}

func (l *LayoutRenderer) execute(w http.ResponseWriter, status int, name string, data PageData) {
	var buf bytes.Buffer
	if err := l.t.ExecuteTemplate(&buf, name, data); err != nil {
		l.logger.Error("template execution failed",
			slog.String("template", name),
			slog.String("content", data.Content),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		l.logger.Error("failed to write rendered template",
			slog.String("template", name),
			slog.Any("error", err),
		)
	}
}

// templateFuncs closes over the parsed template so layouts can render a content block by name.
func templateFuncs(t **template.Template) template.FuncMap {
	return template.FuncMap{
		"content": func(name string, data any) (template.HTML, error) {
			var buf bytes.Buffer
			if err := (*t).ExecuteTemplate(&buf, name, data); err != nil {
				return "", err
			}
			//nolint:gosec // output of html/template execution is already escaped
			return template.HTML(buf.String()), nil
		},
		"isActive": func(current, path string) bool { return current == path },
		// field reads an optional page value; missing keys render as "".
		"field": func(data map[string]any, key string) any {
			if v, ok := data[key]; ok && v != nil {
				return v
			}
			return ""
		},
	}
}
