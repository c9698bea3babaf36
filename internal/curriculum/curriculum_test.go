package curriculum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chess-coach/internal/auth"
)

func loadDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load("", auth.NewPasswordService(bcrypt.MinCost))
	require.NoError(t, err)
	return c
}

func TestDefaultContent(t *testing.T) {
	c := loadDefault(t)

	chapters := c.Chapters()
	require.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.ID)
		assert.Empty(t, ch.Password, "passwords must not leave the catalog")
		assert.NotEmpty(t, ch.Lessons)
	}
	assert.False(t, chapters[0].Protected)
	assert.True(t, chapters[1].Protected)

	l, err := c.Lesson("italian-game")
	require.NoError(t, err)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6", "Bc4"}, l.Moves)

	s, err := c.Scenario("knight-fork")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nc7+"}, s.Solution)
}

func TestLookupErrors(t *testing.T) {
	c := loadDefault(t)

	_, err := c.Chapter(42)
	assert.ErrorIs(t, err, ErrUnknownChapter)
	_, err = c.Lesson("nope")
	assert.ErrorIs(t, err, ErrUnknownLesson)
	_, err = c.Scenario("nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	_, err = c.Principle("nope")
	assert.ErrorIs(t, err, ErrUnknownPrinciple)
}

func TestCheckPassword(t *testing.T) {
	c := loadDefault(t)

	assert.True(t, c.CheckPassword(2, "tactics"))
	assert.True(t, c.CheckPassword(2, " Tactics "))
	assert.False(t, c.CheckPassword(2, "endgame"))
	assert.True(t, c.CheckPassword(3, "endgame"))
	assert.False(t, c.CheckPassword(1, ""), "chapter without a password")
	assert.False(t, c.CheckPassword(9, "tactics"))
}

func TestCheckScenarioMove(t *testing.T) {
	c := loadDefault(t)

	check, err := c.CheckScenarioMove("back-rank-mate", 0, "Re8")
	require.NoError(t, err)
	assert.True(t, check.Legal)
	assert.True(t, check.Correct)
	assert.True(t, check.Solved)
	assert.Equal(t, "Re8#", check.Move)
	assert.Empty(t, check.Hint)

	check, err = c.CheckScenarioMove("back-rank-mate", 0, "Re7")
	require.NoError(t, err)
	assert.True(t, check.Legal)
	assert.False(t, check.Correct)
	assert.Equal(t, "The black king is restricted by its own pawns", check.Hint)

	check, err = c.CheckScenarioMove("back-rank-mate", 0, "Qh5")
	require.NoError(t, err)
	assert.False(t, check.Legal)
	assert.False(t, check.Correct)

	check, err = c.CheckScenarioMove("scholars-mate", 0, "h5f7")
	require.NoError(t, err)
	assert.True(t, check.Correct, "UCI input is accepted")

	_, err = c.CheckScenarioMove("back-rank-mate", 1, "Re8")
	assert.ErrorIs(t, err, ErrInvalidPly)
	_, err = c.CheckScenarioMove("missing", 0, "e4")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestMultiPlyScenario(t *testing.T) {
	content := Content{
		Chapters: []Chapter{{ID: 1, Title: "One", Scenarios: []string{"s"}}},
		Scenarios: []Scenario{{
			ID:       "s",
			Solution: []string{"e4", "e5", "Nf3"},
			Hints:    []string{"center"},
			Chapter:  1,
		}},
	}
	c, err := NewCatalog(content, auth.NewPasswordService(bcrypt.MinCost))
	require.NoError(t, err)

	check, err := c.CheckScenarioMove("s", 2, "Nf3")
	require.NoError(t, err)
	assert.True(t, check.Solved)

	check, err = c.CheckScenarioMove("s", 2, "d4")
	require.NoError(t, err)
	assert.False(t, check.Correct)
	assert.Equal(t, "center", check.Hint, "last hint is reused past the end")
}

func TestValidationRejectsBadContent(t *testing.T) {
	ps := auth.NewPasswordService(bcrypt.MinCost)

	tests := []struct {
		name    string
		content Content
	}{
		{"illegal lesson", Content{
			Chapters: []Chapter{{ID: 1, Lessons: []string{"l"}}},
			Lessons:  []Lesson{{ID: "l", Moves: []string{"e4", "e4"}, Chapter: 1}},
		}},
		{"illegal solution", Content{
			Chapters:  []Chapter{{ID: 1, Scenarios: []string{"s"}}},
			Scenarios: []Scenario{{ID: "s", FEN: "4k3/8/8/8/8/8/8/4K3 w - - 0 1", Solution: []string{"Qh5"}, Chapter: 1}},
		}},
		{"empty solution", Content{
			Chapters:  []Chapter{{ID: 1, Scenarios: []string{"s"}}},
			Scenarios: []Scenario{{ID: "s", Chapter: 1}},
		}},
		{"missing lesson", Content{
			Chapters: []Chapter{{ID: 1, Lessons: []string{"ghost"}}},
		}},
		{"chapter mismatch", Content{
			Chapters:   []Chapter{{ID: 1, Principles: []string{"p"}}, {ID: 2}},
			Principles: []Principle{{ID: "p", Chapter: 2}},
		}},
		{"duplicate chapter", Content{
			Chapters: []Chapter{{ID: 1}, {ID: 1}},
		}},
		{"orphan principle", Content{
			Chapters:   []Chapter{{ID: 1}},
			Principles: []Principle{{ID: "p", Chapter: 5}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.content, ps)
			assert.ErrorIs(t, err, ErrInvalidContent)
		})
	}
}

func TestLoadFile(t *testing.T) {
	ps := auth.NewPasswordService(bcrypt.MinCost)
	path := filepath.Join(t.TempDir(), "curriculum.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"chapters": [{"id": 1, "title": "Only", "lessons": ["qg"], "password": "secret"}],
		"lessons": [{"id": "qg", "name": "Queen's Gambit", "moves": ["d4", "d5", "c4"], "chapter": 1}]
	}`), 0o600))

	c, err := Load(path, ps)
	require.NoError(t, err)
	assert.True(t, c.CheckPassword(1, "secret"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), ps)
	assert.Error(t, err)

	_, err = Parse([]byte("{"), ps)
	assert.ErrorIs(t, err, ErrInvalidContent)
}
