package handlers

import (
	"html/template"
	"log"
	"net/http"
)

type endpointDoc struct {
	Method      string
	Path        string
	Auth        bool
	Description string
}

type sectionDoc struct {
	Title     string
	Endpoints []endpointDoc
}

var apiDocs = []sectionDoc{
	{"Players", []endpointDoc{
		{"POST", "/api/players", false, "Create an anonymous player. Returns the player ID, a bearer token and fresh progress."},
		{"DELETE", "/api/players/me", true, "Delete everything stored for the player."},
	}},
	{"Engine", []endpointDoc{
		{"POST", "/api/engine/move", false, "Choose a move for {fen, moves, difficulty}. difficulty is easy, medium or hard."},
		{"POST", "/api/engine/analyze", false, "Static evaluation, game phase and winning chances of a position."},
		{"POST", "/api/engine/hint", false, "Suggest a move for the side to move, with an explanation."},
		{"POST", "/api/engine/describe", false, "Describe what {move} does in the position."},
	}},
	{"Games", []endpointDoc{
		{"POST", "/api/games", true, "Start a game against the engine as {color}. The engine opens when the player takes black."},
		{"GET", "/api/games/{sessionId}", true, "The game and its move records."},
		{"POST", "/api/games/{sessionId}/move", true, "Play {move} in SAN. The response carries the engine's reply."},
		{"POST", "/api/games/{sessionId}/resign", true, "Resign the game."},
		{"GET", "/ws/games/{sessionId}?token=...", true, "WebSocket stream of game_state, game_update and game_over messages."},
	}},
	{"Curriculum", []endpointDoc{
		{"GET", "/api/curriculum", false, "Chapters, lessons, scenarios and principles."},
		{"POST", "/api/curriculum/chapters/{id}/unlock", true, "Unlock a chapter with {password} or by completing the previous one."},
		{"POST", "/api/curriculum/lessons/{id}/complete", true, "Record a lesson attempt."},
		{"POST", "/api/curriculum/scenarios/{id}/check", false, "Check {move} at {ply} of a scenario."},
		{"POST", "/api/curriculum/scenarios/{id}/complete", true, "Record a completed scenario with its accuracy."},
		{"POST", "/api/curriculum/principles/{id}/complete", true, "Mark a principle as read."},
	}},
	{"Progress", []endpointDoc{
		{"GET", "/api/progress", true, "The player's progress document."},
		{"GET", "/api/progress/stats", true, "Rating, results, win rate and recent games."},
		{"POST", "/api/progress/reset", true, "Clear curriculum progress. Rating and history are kept."},
		{"GET", "/api/leaderboard?limit=N", false, "Top players by rating."},
	}},
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Chess Coach API</title>
</head>
<body>
<h1>Chess Coach API</h1>
<p>Authenticated endpoints take <code>Authorization: Bearer &lt;token&gt;</code> from <code>POST /api/players</code>.</p>
{{range .}}
<h2>{{.Title}}</h2>
<table>
{{range .Endpoints}}<tr><td><code>{{.Method}}</code></td><td><code>{{.Path}}</code></td><td>{{if .Auth}}token{{end}}</td><td>{{.Description}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>`))

// ServeAPIDocs renders the endpoint reference.
// GET /api/docs
func ServeAPIDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docsTemplate.Execute(w, apiDocs); err != nil {
		log.Printf("Failed to render API docs: %v", err)
	}
}
