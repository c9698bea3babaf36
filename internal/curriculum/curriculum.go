// Package curriculum holds the learning content: chapters of opening lessons,
// tactical scenarios and strategic principles.
package curriculum

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"chess-coach/internal/auth"
	"chess-coach/internal/rules"
)

//go:embed content/default.json
var defaultContent []byte

var (
	ErrInvalidContent   = errors.New("invalid curriculum content")
	ErrUnknownChapter   = errors.New("unknown chapter")
	ErrUnknownLesson    = errors.New("unknown lesson")
	ErrUnknownScenario  = errors.New("unknown scenario")
	ErrUnknownPrinciple = errors.New("unknown principle")
	ErrInvalidPly       = errors.New("ply outside the scenario solution")
)

type Chapter struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RequiredRating int      `json:"requiredRating"`
	Lessons        []string `json:"lessons"`
	Scenarios      []string `json:"scenarios"`
	Principles     []string `json:"principles"`
	// Password is only read from content files; it is cleared after hashing.
	Password  string `json:"password,omitempty"`
	Protected bool   `json:"protected"`
}

type Lesson struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Moves       []string `json:"moves"`
	Explanation string   `json:"explanation"`
	Principles  []string `json:"principles"`
	Chapter     int      `json:"chapter"`
}

type Scenario struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	FEN         string   `json:"fen"`
	Objective   string   `json:"objective"`
	Solution    []string `json:"solution"`
	Hints       []string `json:"hints"`
	Chapter     int      `json:"chapter"`
	Difficulty  string   `json:"difficulty"`
}

type Principle struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Concepts []string `json:"concepts"`
	Chapter  int      `json:"chapter"`
}

// Content is the on-disk layout of a curriculum file.
type Content struct {
	Chapters   []Chapter   `json:"chapters"`
	Lessons    []Lesson    `json:"lessons"`
	Scenarios  []Scenario  `json:"scenarios"`
	Principles []Principle `json:"principles"`
}

// Catalog is validated, read-only curriculum content.
type Catalog struct {
	content    Content
	chapters   map[int]*Chapter
	lessons    map[string]*Lesson
	scenarios  map[string]*Scenario
	principles map[string]*Principle
	hashes     map[int]string
	passwords  *auth.PasswordService
}

// Load reads the curriculum from path, or the embedded default when path is empty.
func Load(path string, passwords *auth.PasswordService) (*Catalog, error) {
	if path == "" {
		return Parse(defaultContent, passwords)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum file: %w", err)
	}
	return Parse(data, passwords)
}

// Parse decodes and validates curriculum JSON.
func Parse(data []byte, passwords *auth.PasswordService) (*Catalog, error) {
	var content Content
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return NewCatalog(content, passwords)
}

// NewCatalog indexes and validates content and hashes chapter passwords.
func NewCatalog(content Content, passwords *auth.PasswordService) (*Catalog, error) {
	if passwords == nil {
		passwords = auth.NewPasswordService(auth.DefaultCost)
	}
	c := &Catalog{
		content:    content,
		chapters:   make(map[int]*Chapter),
		lessons:    make(map[string]*Lesson),
		scenarios:  make(map[string]*Scenario),
		principles: make(map[string]*Principle),
		hashes:     make(map[int]string),
		passwords:  passwords,
	}

	sort.Slice(c.content.Chapters, func(i, j int) bool {
		return c.content.Chapters[i].ID < c.content.Chapters[j].ID
	})
	if err := c.index(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	for i := range c.content.Chapters {
		ch := &c.content.Chapters[i]
		if ch.Password == "" {
			continue
		}
		hash, err := passwords.HashPassword(ch.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for chapter %d: %w", ch.ID, err)
		}
		c.hashes[ch.ID] = hash
		ch.Password = ""
		ch.Protected = true
	}
	return c, nil
}

func (c *Catalog) index() error {
	for i := range c.content.Chapters {
		ch := &c.content.Chapters[i]
		if ch.ID <= 0 {
			return fmt.Errorf("%w: chapter id %d", ErrInvalidContent, ch.ID)
		}
		if _, dup := c.chapters[ch.ID]; dup {
			return fmt.Errorf("%w: duplicate chapter %d", ErrInvalidContent, ch.ID)
		}
		c.chapters[ch.ID] = ch
	}
	for i := range c.content.Lessons {
		l := &c.content.Lessons[i]
		if _, dup := c.lessons[l.ID]; dup || l.ID == "" {
			return fmt.Errorf("%w: lesson id %q", ErrInvalidContent, l.ID)
		}
		c.lessons[l.ID] = l
	}
	for i := range c.content.Scenarios {
		s := &c.content.Scenarios[i]
		if _, dup := c.scenarios[s.ID]; dup || s.ID == "" {
			return fmt.Errorf("%w: scenario id %q", ErrInvalidContent, s.ID)
		}
		c.scenarios[s.ID] = s
	}
	for i := range c.content.Principles {
		p := &c.content.Principles[i]
		if _, dup := c.principles[p.ID]; dup || p.ID == "" {
			return fmt.Errorf("%w: principle id %q", ErrInvalidContent, p.ID)
		}
		c.principles[p.ID] = p
	}
	return nil
}

func (c *Catalog) validate() error {
	for _, ch := range c.content.Chapters {
		for _, id := range ch.Lessons {
			l, ok := c.lessons[id]
			if !ok || l.Chapter != ch.ID {
				return fmt.Errorf("%w: chapter %d lists lesson %q", ErrInvalidContent, ch.ID, id)
			}
		}
		for _, id := range ch.Scenarios {
			s, ok := c.scenarios[id]
			if !ok || s.Chapter != ch.ID {
				return fmt.Errorf("%w: chapter %d lists scenario %q", ErrInvalidContent, ch.ID, id)
			}
		}
		for _, id := range ch.Principles {
			p, ok := c.principles[id]
			if !ok || p.Chapter != ch.ID {
				return fmt.Errorf("%w: chapter %d lists principle %q", ErrInvalidContent, ch.ID, id)
			}
		}
	}

	for _, l := range c.lessons {
		if _, ok := c.chapters[l.Chapter]; !ok {
			return fmt.Errorf("%w: lesson %q in chapter %d", ErrInvalidContent, l.ID, l.Chapter)
		}
		g, err := rules.FromMoves("", l.Moves)
		if err != nil {
			return fmt.Errorf("%w: lesson %q: %v", ErrInvalidContent, l.ID, err)
		}
		l.Moves = g.History()
	}

	for _, s := range c.scenarios {
		if _, ok := c.chapters[s.Chapter]; !ok {
			return fmt.Errorf("%w: scenario %q in chapter %d", ErrInvalidContent, s.ID, s.Chapter)
		}
		if len(s.Solution) == 0 {
			return fmt.Errorf("%w: scenario %q has no solution", ErrInvalidContent, s.ID)
		}
		if s.FEN == "" {
			s.FEN = rules.StartFEN
		}
		g, err := rules.FromMoves(s.FEN, s.Solution)
		if err != nil {
			return fmt.Errorf("%w: scenario %q: %v", ErrInvalidContent, s.ID, err)
		}
		s.Solution = g.History()
	}

	for _, p := range c.principles {
		if _, ok := c.chapters[p.Chapter]; !ok {
			return fmt.Errorf("%w: principle %q in chapter %d", ErrInvalidContent, p.ID, p.Chapter)
		}
	}
	return nil
}

// Chapters returns every chapter in id order.
func (c *Catalog) Chapters() []Chapter {
	return append([]Chapter(nil), c.content.Chapters...)
}

// Content returns the whole catalog without chapter passwords.
func (c *Catalog) Content() Content {
	return Content{
		Chapters:   c.Chapters(),
		Lessons:    append([]Lesson(nil), c.content.Lessons...),
		Scenarios:  append([]Scenario(nil), c.content.Scenarios...),
		Principles: append([]Principle(nil), c.content.Principles...),
	}
}

func (c *Catalog) Chapter(id int) (Chapter, error) {
	ch, ok := c.chapters[id]
	if !ok {
		return Chapter{}, fmt.Errorf("%w: %d", ErrUnknownChapter, id)
	}
	return *ch, nil
}

func (c *Catalog) Lesson(id string) (Lesson, error) {
	l, ok := c.lessons[id]
	if !ok {
		return Lesson{}, fmt.Errorf("%w: %q", ErrUnknownLesson, id)
	}
	return *l, nil
}

func (c *Catalog) Scenario(id string) (Scenario, error) {
	s, ok := c.scenarios[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return *s, nil
}

func (c *Catalog) Principle(id string) (Principle, error) {
	p, ok := c.principles[id]
	if !ok {
		return Principle{}, fmt.Errorf("%w: %q", ErrUnknownPrinciple, id)
	}
	return *p, nil
}

// CheckPassword reports whether password unlocks chapterID. Chapters without
// a password never match.
func (c *Catalog) CheckPassword(chapterID int, password string) bool {
	hash, ok := c.hashes[chapterID]
	if !ok {
		return false
	}
	return c.passwords.ComparePassword(hash, password) == nil
}

// MoveCheck is the verdict on one move played in a scenario.
type MoveCheck struct {
	Legal     bool   `json:"legal"`
	Correct   bool   `json:"correct"`
	Solved    bool   `json:"solved"`
	Move      string `json:"move,omitempty"`
	Remaining int    `json:"remaining"`
	Hint      string `json:"hint,omitempty"`
}

// CheckScenarioMove compares move with the solution move at ply. The position
// is the scenario FEN with the first ply solution moves already played.
func (c *Catalog) CheckScenarioMove(scenarioID string, ply int, move string) (MoveCheck, error) {
	s, ok := c.scenarios[scenarioID]
	if !ok {
		return MoveCheck{}, fmt.Errorf("%w: %q", ErrUnknownScenario, scenarioID)
	}
	if ply < 0 || ply >= len(s.Solution) {
		return MoveCheck{}, fmt.Errorf("%w: %d", ErrInvalidPly, ply)
	}

	g, err := rules.FromMoves(s.FEN, s.Solution[:ply])
	if err != nil {
		return MoveCheck{}, err
	}

	check := MoveCheck{Remaining: len(s.Solution) - ply}
	if _, err := g.Apply(move); err != nil {
		check.Hint = hintAt(s, ply)
		return check, nil
	}

	check.Legal = true
	check.Move = g.LastMove()
	check.Correct = check.Move == s.Solution[ply]
	if check.Correct {
		check.Remaining--
		check.Solved = check.Remaining == 0
	} else {
		check.Hint = hintAt(s, ply)
	}
	return check, nil
}

func hintAt(s *Scenario, ply int) string {
	if len(s.Hints) == 0 {
		return ""
	}
	if ply >= len(s.Hints) {
		ply = len(s.Hints) - 1
	}
	return s.Hints[ply]
}
