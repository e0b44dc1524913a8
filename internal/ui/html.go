package ui

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#f4f4f5;display:flex;justify-content:center;padding:4rem 1rem;margin:0}
.card{background:#fff;border-radius:1rem;box-shadow:0 4px 16px rgba(0,0,0,.08);max-width:28rem;width:100%;padding:1.5rem}
.status{display:flex;align-items:center;gap:.5rem;margin:1rem 0}
.status-success{color:#17c964}
.status-danger{color:#f31260}
.status-loading{color:#71717a}
.spinner{width:1rem;height:1rem;border:2px solid #d4d4d8;border-top-color:#006fee;border-radius:50%;animation:spin 1s linear infinite}
@keyframes spin{to{transform:rotate(360deg)}}
.actions{display:flex;gap:.5rem;margin-top:1rem}
.actions button,.actions a{padding:.5rem 1rem;border-radius:.5rem;border:1px solid #d4d4d8;background:#fff;font:inherit;text-decoration:none;color:inherit;cursor:pointer}
.actions button{background:#006fee;border-color:#006fee;color:#fff}
</style>
</head>
<body>
<main class="card">
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
<div class="status status-{{.Status.Tone}}" data-state="{{.Status.Tone}}">
<span>Backend status:</span>
{{- if eq (print .Status.Tone) "loading"}}
<span class="spinner" role="status" aria-label="{{.Status.Text}}"></span>
{{- else}}
<strong>{{.Status.Text}}</strong>
{{- end}}
</div>
<ul>
{{- range .TechStack}}
<li>{{.}}</li>
{{- end}}
</ul>
<div class="actions">
<form method="post" action="{{.RefreshPath}}?redirect=true">
<button type="submit">Refresh Status</button>
</form>
<a href="{{.DocsURL}}" target="_blank" rel="noopener noreferrer">HeroUI Docs</a>
</div>
</main>
</body>
</html>
`))

// RenderHTML writes the card page to w.
func RenderHTML(w io.Writer, card Card) error {
	return pageTemplate.Execute(w, card)
}
