package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chess-coach/internal/agent"
	"chess-coach/internal/audit"
	"chess-coach/internal/auth"
	"chess-coach/internal/coach"
	"chess-coach/internal/curriculum"
	"chess-coach/internal/engine"
	"chess-coach/internal/middleware"
	"chess-coach/internal/progress"
	"chess-coach/internal/session"
)

type testServer struct {
	router http.Handler
	ws     *WebSocketHandler
	audit  *audit.Logger
	sink   *audit.MemorySink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog, err := curriculum.Load("", auth.NewPasswordService(bcrypt.MinCost))
	require.NoError(t, err)

	e := engine.New(engine.WithRandom(engine.NewRandomSource(11)))
	runner := agent.NewRunner(e, agent.Config{})
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	progressService := progress.NewService(progress.NewMemoryStore(), catalog)
	sessions := session.NewService(session.NewMemoryRepository(), runner, progressService)
	ws := NewWebSocketHandler(sessions)
	sessions.SetNotifier(ws)
	t.Cleanup(ws.GetHub().Stop)

	limiter := middleware.NewRateLimiter(middleware.DefaultLimits())
	t.Cleanup(limiter.Stop)

	sink := &audit.MemorySink{}
	auditLogger := audit.NewLogger(sink)

	router := NewRouter(Handlers{
		Auth:        middleware.NewAuthMiddleware(jwtService),
		RateLimiter: limiter,
		Players:     NewPlayerHandler(jwtService, progressService, auditLogger),
		Engine:      NewEngineHandler(runner, coach.New(runner), engine.Medium),
		Games:       NewGameHandler(sessions, engine.Easy),
		Curriculum:  NewCurriculumHandler(catalog, progressService, auditLogger),
		Progress:    NewProgressHandler(progressService, auditLogger),
		Leaderboard: NewLeaderboardHandler(progressService),
		WebSocket:   ws,
	})
	return &testServer{router: router, ws: ws, audit: auditLogger, sink: sink}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func (s *testServer) newPlayer(t *testing.T) CreatePlayerResponse {
	t.Helper()
	w := s.do(t, "POST", "/api/players", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp CreatePlayerResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCreatePlayerAndProgress(t *testing.T) {
	s := newTestServer(t)
	player := s.newPlayer(t)
	assert.Equal(t, 1200, player.Progress.Rating)

	w := s.do(t, "GET", "/api/progress", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p progress.Progress
	decode(t, w, &p)
	assert.Equal(t, player.PlayerID, p.PlayerID)
	assert.Equal(t, 1, p.Curriculum.CurrentChapter)

	w = s.do(t, "GET", "/api/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, "DELETE", "/api/players/me", player.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.audit.Wait()
	require.NotEmpty(t, s.sink.Events())
	assert.Equal(t, audit.EventPlayerCreated, s.sink.Events()[0].EventType)
}

func TestEngineMove(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/engine/move", "", EngineRequest{Moves: []string{"e4", "e5"}, Difficulty: "easy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp EngineMoveResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Move)
	assert.Equal(t, engine.Easy, resp.Difficulty)
	assert.NotEmpty(t, resp.FEN)

	tests := []struct {
		name   string
		req    EngineRequest
		status int
	}{
		{"bad difficulty", EngineRequest{Difficulty: "grandmaster"}, http.StatusBadRequest},
		{"bad fen", EngineRequest{FEN: "not a fen"}, http.StatusBadRequest},
		{"missing king", EngineRequest{FEN: "8/8/8/8/8/8/8/4K3 w - - 0 1"}, http.StatusBadRequest},
		{"castling without rook", EngineRequest{FEN: "4k3/8/8/8/8/8/8/4K3 w K - 0 1"}, http.StatusBadRequest},
		{"illegal history", EngineRequest{Moves: []string{"e4", "e4"}}, http.StatusBadRequest},
		{"checkmated", EngineRequest{Moves: []string{"f3", "e5", "g4", "Qh4#"}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, "POST", "/api/engine/move", "", tc.req)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestEngineAnalyzeHintDescribe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/engine/analyze", "", EngineRequest{Moves: []string{"f3", "e5", "g4", "Qh4#"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var a coach.Analysis
	decode(t, w, &a)
	assert.True(t, a.Checkmate)
	assert.Empty(t, a.BestMove)
	assert.Zero(t, a.LegalMoveCount)

	w = s.do(t, "POST", "/api/engine/hint", "", EngineRequest{FEN: "6k1/5ppp/8/8/8/8/8/4R1K1 w - - 0 1", Difficulty: "hard"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var hint coach.Hint
	decode(t, w, &hint)
	assert.Equal(t, "Re8#", hint.Move)
	assert.True(t, hint.Features.Checkmate)

	w = s.do(t, "POST", "/api/engine/describe", "", EngineRequest{Move: "e4"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var f coach.Features
	decode(t, w, &f)
	assert.True(t, f.DoubleAdvance)
	assert.True(t, f.CenterSquare)

	w = s.do(t, "POST", "/api/engine/describe", "", EngineRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, "POST", "/api/engine/describe", "", EngineRequest{Move: "e5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameLifecycle(t *testing.T) {
	s := newTestServer(t)
	player := s.newPlayer(t)
	other := s.newPlayer(t)

	w := s.do(t, "POST", "/api/games", "", CreateGameRequest{Color: "white"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, "POST", "/api/games", player.Token, CreateGameRequest{Color: "purple"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/games", player.Token, CreateGameRequest{Color: "white"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created session.Update
	decode(t, w, &created)
	id := created.Game.SessionID
	assert.Equal(t, engine.Easy, created.Game.Difficulty)

	w = s.do(t, "POST", "/api/games/"+id+"/move", player.Token, MakeMoveRequest{Move: "e4"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved session.Update
	decode(t, w, &moved)
	require.Len(t, moved.Moves, 2)
	assert.Equal(t, "e4", moved.Moves[0].Notation)

	w = s.do(t, "POST", "/api/games/"+id+"/move", player.Token, MakeMoveRequest{Move: "Ke3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, "GET", "/api/games/"+id, other.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, "GET", "/api/games/missing", player.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "GET", "/api/games/"+id, player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got GameResponse
	decode(t, w, &got)
	assert.Len(t, got.Moves, 2)

	w = s.do(t, "POST", "/api/games/"+id+"/resign", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, "POST", "/api/games/"+id+"/move", player.Token, MakeMoveRequest{Move: "d4"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, "GET", "/api/progress/stats", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats progress.Statistics
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.Losses)
	require.Len(t, stats.RecentGames, 1)
	assert.Equal(t, id, stats.RecentGames[0].ID)
}

func TestCurriculumRoutes(t *testing.T) {
	s := newTestServer(t)
	player := s.newPlayer(t)

	w := s.do(t, "GET", "/api/curriculum", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"password"`)
	var content curriculum.Content
	decode(t, w, &content)
	assert.Len(t, content.Chapters, 3)

	w = s.do(t, "POST", "/api/curriculum/chapters/3/unlock", player.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, "POST", "/api/curriculum/chapters/3/unlock", player.Token, UnlockChapterRequest{Password: "opening"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, "POST", "/api/curriculum/chapters/3/unlock", player.Token, UnlockChapterRequest{Password: "Endgame"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p progress.Progress
	decode(t, w, &p)
	assert.Equal(t, 3, p.Curriculum.CurrentChapter)
	w = s.do(t, "POST", "/api/curriculum/chapters/9/unlock", player.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.audit.Wait()
	var failed, unlocked int
	for _, e := range s.sink.Events() {
		switch e.EventType {
		case audit.EventChapterUnlockFailed:
			failed++
		case audit.EventChapterUnlock:
			unlocked++
			assert.Equal(t, "password", e.Details)
		}
	}
	assert.Equal(t, 2, failed)
	assert.Equal(t, 1, unlocked)

	w = s.do(t, "POST", "/api/curriculum/scenarios/back-rank-mate/check", "", CheckScenarioRequest{Move: "Re8"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var check curriculum.MoveCheck
	decode(t, w, &check)
	assert.True(t, check.Solved)
	assert.Equal(t, "Re8#", check.Move)
	w = s.do(t, "POST", "/api/curriculum/scenarios/back-rank-mate/check", "", CheckScenarioRequest{Ply: 4, Move: "Re8"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", "/api/curriculum/lessons/italian-game/complete", player.Token, CompleteLessonRequest{TimeTaken: 90})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lesson LessonResponse
	decode(t, w, &lesson)
	assert.True(t, lesson.Attempt.Completed)
	assert.Equal(t, 90, lesson.Attempt.TimeTaken)
	w = s.do(t, "POST", "/api/curriculum/lessons/nope/complete", player.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", "/api/curriculum/scenarios/back-rank-mate/complete", player.Token, CompleteScenarioRequest{Accuracy: 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, "POST", "/api/curriculum/scenarios/back-rank-mate/complete", player.Token, CompleteScenarioRequest{Accuracy: 80, HintsUsed: 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/api/curriculum/principles/pawn-structure/complete", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Equal(t, 80, p.Curriculum.TotalScore)
	assert.Contains(t, p.Curriculum.CompletedPrinciples, "pawn-structure")

	w = s.do(t, "POST", "/api/progress/reset", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &p)
	assert.Empty(t, p.Curriculum.CompletedLessons)
	assert.Equal(t, 1, p.Curriculum.CurrentChapter)
}

func TestWebSocketPushesUpdates(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	player := s.newPlayer(t)

	w := s.do(t, "POST", "/api/games", player.Token, CreateGameRequest{Color: "white", Difficulty: "easy"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created session.Update
	decode(t, w, &created)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games/" + created.Game.SessionID
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err, "token required")
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+player.Token, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "game_state", msg.Type)

	// Registration happens on the hub goroutine.
	require.Eventually(t, func() bool {
		return s.ws.GetHub().Connections(created.Game.SessionID) == 1
	}, 5*time.Second, 10*time.Millisecond)

	w = s.do(t, "POST", "/api/games/"+created.Game.SessionID+"/move", player.Token, MakeMoveRequest{Move: "d4"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "game_update", msg.Type)
	require.Len(t, msg.Moves, 2)
	assert.Equal(t, "d4", msg.Moves[0].Notation)
	assert.Equal(t, 2, msg.Game.MoveCount)
}

type recordingPublisher struct {
	mu       sync.Mutex
	sessions []string
	types    []string
}

func (p *recordingPublisher) Publish(sessionID string, message []byte) {
	var msg WSMessage
	_ = json.Unmarshal(message, &msg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sessionID)
	p.types = append(p.types, msg.Type)
}

func TestGameUpdatesArePublished(t *testing.T) {
	s := newTestServer(t)
	pub := &recordingPublisher{}
	s.ws.SetPublisher(pub)
	player := s.newPlayer(t)

	w := s.do(t, "POST", "/api/games", player.Token, CreateGameRequest{Color: "white"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created session.Update
	decode(t, w, &created)
	id := created.Game.SessionID

	w = s.do(t, "POST", "/api/games/"+id+"/resign", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{id, id}, pub.sessions)
	assert.Equal(t, []string{"game_update", "game_over"}, pub.types)
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t)
	player := s.newPlayer(t)
	s.newPlayer(t)

	w := s.do(t, "POST", "/api/games", player.Token, CreateGameRequest{Color: "black"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created session.Update
	decode(t, w, &created)
	w = s.do(t, "POST", "/api/games/"+created.Game.SessionID+"/resign", player.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "GET", "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var board []progress.Standing
	decode(t, w, &board)
	require.Len(t, board, 1, "only players with finished games are ranked")
	assert.Equal(t, progress.DisplayName(player.PlayerID), board[0].DisplayName)
	assert.Equal(t, 1, board[0].Losses)
	assert.NotContains(t, w.Body.String(), player.PlayerID)

	w = s.do(t, "GET", "/api/leaderboard?limit=zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIDocs(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "GET", "/api/docs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/engine/move")
	assert.Contains(t, w.Body.String(), "/api/games/{sessionId}/resign")
}
