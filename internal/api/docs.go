package api

import (
	"html/template"
	"log/slog"
	"net/http"
)

// elementsVersion pins the Stoplight Elements bundle used for /docs.
const elementsVersion = "9.0.0"

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/@stoplight/elements@{{.Version}}/styles.min.css">
<script src="https://unpkg.com/@stoplight/elements@{{.Version}}/web-components.min.js" crossorigin="anonymous"></script>
<style>
  body { height: 100vh; margin: 0; background: #0d1117; }
  nav.board { position: fixed; top: 10px; right: 14px; z-index: 9999; display: flex; gap: 8px; }
  nav.board a { background: #161b22; border: 1px solid #30363d; border-radius: 6px; color: #58a6ff;
    font: 500 12px -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; padding: 5px 12px; text-decoration: none; }
</style>
</head>
<body>
<nav class="board"><a href="/">Dashboard</a><a href="/api/v1/health">Health</a></nav>
<elements-api apiDescriptionUrl="{{.SpecURL}}" router="hash" layout="sidebar" tryItCredentialsPolicy="same-origin" darkMode></elements-api>
</body>
</html>`))

type docsView struct {
	Title   string
	Version string
	SpecURL string
}

func docsHandler(title string) http.HandlerFunc {
	view := docsView{Title: title, Version: elementsVersion, SpecURL: "/openapi.json"}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := docsTemplate.Execute(w, view); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	}
}
