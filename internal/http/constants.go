package httpx

import "time"

// Content templates rendered inside the layout.
const (
	ContentLanding  = "landing-content"
	ContentLogin    = "login-content"
	ContentRegister = "register-content"
	ContentView     = "view-content"
	ContentNotFound = "notfound-content"
)

// Template paths used for loading templates in tests and dev mode.
const (
	TemplatePathFromRoot = "frontend/templates"       // From project root
	TemplatePathFromTest = "../../frontend/templates" // From internal/http test files
	StaticPathFromRoot   = "frontend/static"
)

// maxStatusWait bounds how long GET /auth/status?wait= may hold a request.
const maxStatusWait = 30 * time.Second
