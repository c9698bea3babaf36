// Package progress tracks a player's curriculum progress and games against
// the engine.
package progress

import (
	"math"
	"slices"
	"time"

	"chess-coach/internal/curriculum"
	"chess-coach/internal/elo"
	"chess-coach/internal/engine"
)

const (
	// HistoryLimit caps the stored game history.
	HistoryLimit = 50
	// RecentGames is how many games Statistics returns.
	RecentGames = 10
)

type Progress struct {
	PlayerID        string                   `json:"playerId" bson:"_id"`
	DisplayName     string                   `json:"displayName" bson:"displayName"`
	Rating          int                      `json:"rating" bson:"rating"`
	BestRating      int                      `json:"bestRating" bson:"bestRating"`
	Wins            int                      `json:"wins" bson:"wins"`
	Losses          int                      `json:"losses" bson:"losses"`
	Draws           int                      `json:"draws" bson:"draws"`
	GamesPlayed     int                      `json:"gamesPlayed" bson:"gamesPlayed"`
	LastGameDate    *time.Time               `json:"lastGameDate,omitempty" bson:"lastGameDate,omitempty"`
	Curriculum      Curriculum               `json:"curriculum" bson:"curriculum"`
	LessonAttempts  map[string]LessonAttempt `json:"lessonAttempts" bson:"lessonAttempts"`
	ChapterProgress []ChapterProgress        `json:"chapterProgress" bson:"chapterProgress"`
	History         []GameRecord             `json:"history" bson:"history"`
	CreatedAt       time.Time                `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt" bson:"updatedAt"`
}

type Curriculum struct {
	CurrentChapter      int       `json:"currentChapter" bson:"currentChapter"`
	CompletedLessons    []string  `json:"completedLessons" bson:"completedLessons"`
	CompletedScenarios  []string  `json:"completedScenarios" bson:"completedScenarios"`
	CompletedPrinciples []string  `json:"completedPrinciples" bson:"completedPrinciples"`
	UnlockedChapters    []int     `json:"unlockedChapters" bson:"unlockedChapters"`
	TotalScore          int       `json:"totalScore" bson:"totalScore"`
	HintsUsed           int       `json:"hintsUsed" bson:"hintsUsed"`
	ScenarioTime        int       `json:"scenarioTime" bson:"scenarioTime"` // seconds
	LastPlayed          time.Time `json:"lastPlayed" bson:"lastPlayed"`
}

type LessonAttempt struct {
	LessonID      string    `json:"lessonId" bson:"lessonId"`
	Completed     bool      `json:"completed" bson:"completed"`
	TimeTaken     int       `json:"timeTaken" bson:"timeTaken"` // seconds
	HintsUsed     int       `json:"hintsUsed" bson:"hintsUsed"`
	Attempts      int       `json:"attempts" bson:"attempts"`
	LastAttempted time.Time `json:"lastAttempted" bson:"lastAttempted"`
}

type ChapterProgress struct {
	ChapterID           int  `json:"chapterId" bson:"chapterId"`
	Completed           bool `json:"completed" bson:"completed"`
	Unlocked            bool `json:"unlocked" bson:"unlocked"`
	LessonsCompleted    int  `json:"lessonsCompleted" bson:"lessonsCompleted"`
	TotalLessons        int  `json:"totalLessons" bson:"totalLessons"`
	ScenariosCompleted  int  `json:"scenariosCompleted" bson:"scenariosCompleted"`
	TotalScenarios      int  `json:"totalScenarios" bson:"totalScenarios"`
	PrinciplesCompleted int  `json:"principlesCompleted" bson:"principlesCompleted"`
	TotalPrinciples     int  `json:"totalPrinciples" bson:"totalPrinciples"`
	TotalTime           int  `json:"totalTime" bson:"totalTime"`
}

// GameRecord is one finished game in the player's history.
type GameRecord struct {
	ID           string            `json:"id" bson:"id"`
	Date         time.Time         `json:"date" bson:"date"`
	Mode         string            `json:"mode" bson:"mode"`
	Difficulty   engine.Difficulty `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	Result       string            `json:"result" bson:"result"`
	Moves        []string          `json:"moves" bson:"moves"`
	RatingChange int               `json:"ratingChange" bson:"ratingChange"`
}

// New returns the progress of a player who has done nothing yet.
func New(playerID string, now time.Time) *Progress {
	return &Progress{
		PlayerID:       playerID,
		DisplayName:    DisplayName(playerID),
		Rating:         elo.DefaultRating,
		BestRating:     elo.DefaultRating,
		Curriculum:     newCurriculum(now),
		LessonAttempts: make(map[string]LessonAttempt),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newCurriculum(now time.Time) Curriculum {
	return Curriculum{
		CurrentChapter:      1,
		CompletedLessons:    []string{},
		CompletedScenarios:  []string{},
		CompletedPrinciples: []string{},
		UnlockedChapters:    []int{},
		LastPlayed:          now,
	}
}

func addUnique(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// CompleteLesson records an attempt. A lesson completes on the first attempt
// or from the third attempt on.
func (p *Progress) CompleteLesson(lessonID string, timeTaken time.Duration, hints int, now time.Time) LessonAttempt {
	if p.LessonAttempts == nil {
		p.LessonAttempts = make(map[string]LessonAttempt)
	}
	attempt, ok := p.LessonAttempts[lessonID]
	if !ok {
		attempt = LessonAttempt{LessonID: lessonID}
	}
	attempt.Attempts++
	attempt.TimeTaken = int(timeTaken.Seconds())
	attempt.HintsUsed = hints
	attempt.LastAttempted = now

	if attempt.Attempts == 1 || attempt.Attempts >= 3 {
		attempt.Completed = true
		p.Curriculum.CompletedLessons = addUnique(p.Curriculum.CompletedLessons, lessonID)
	}
	p.LessonAttempts[lessonID] = attempt
	p.Curriculum.LastPlayed = now
	return attempt
}

// CompleteScenario marks a solved scenario. Accuracy adds to the total score.
func (p *Progress) CompleteScenario(scenarioID string, accuracy int, timeTaken time.Duration, hints int, now time.Time) {
	p.Curriculum.CompletedScenarios = addUnique(p.Curriculum.CompletedScenarios, scenarioID)
	p.Curriculum.TotalScore += accuracy
	p.Curriculum.ScenarioTime += int(timeTaken.Seconds())
	p.Curriculum.HintsUsed += hints
	p.Curriculum.LastPlayed = now
}

func (p *Progress) CompletePrinciple(principleID string, now time.Time) {
	p.Curriculum.CompletedPrinciples = addUnique(p.Curriculum.CompletedPrinciples, principleID)
	p.Curriculum.LastPlayed = now
}

// Unlock marks chapterID as reached. Chapters opened with a password are also
// listed in UnlockedChapters.
func (p *Progress) Unlock(chapterID int, byPassword bool) {
	if byPassword && !slices.Contains(p.Curriculum.UnlockedChapters, chapterID) {
		p.Curriculum.UnlockedChapters = append(p.Curriculum.UnlockedChapters, chapterID)
	}
	p.Curriculum.CurrentChapter = max(p.Curriculum.CurrentChapter, chapterID)
}

// CanAdvanceTo reports whether chapterID opens without a password.
func (p *Progress) CanAdvanceTo(chapterID int) bool {
	return chapterID <= p.Curriculum.CurrentChapter+1
}

// Recompute rebuilds ChapterProgress from the completed item lists.
func (p *Progress) Recompute(chapters []curriculum.Chapter) {
	out := make([]ChapterProgress, 0, len(chapters))
	for _, ch := range chapters {
		cp := ChapterProgress{
			ChapterID:       ch.ID,
			TotalLessons:    len(ch.Lessons),
			TotalScenarios:  len(ch.Scenarios),
			TotalPrinciples: len(ch.Principles),
		}
		for _, id := range ch.Lessons {
			if slices.Contains(p.Curriculum.CompletedLessons, id) {
				cp.LessonsCompleted++
			}
			if attempt, ok := p.LessonAttempts[id]; ok {
				cp.TotalTime += attempt.TimeTaken
			}
		}
		for _, id := range ch.Scenarios {
			if slices.Contains(p.Curriculum.CompletedScenarios, id) {
				cp.ScenariosCompleted++
			}
		}
		for _, id := range ch.Principles {
			if slices.Contains(p.Curriculum.CompletedPrinciples, id) {
				cp.PrinciplesCompleted++
			}
		}

		cp.Completed = cp.TotalLessons > 0 &&
			cp.LessonsCompleted == cp.TotalLessons &&
			cp.ScenariosCompleted == cp.TotalScenarios &&
			cp.PrinciplesCompleted == cp.TotalPrinciples
		cp.Unlocked = ch.ID == 1 ||
			p.Curriculum.CurrentChapter >= ch.ID ||
			slices.Contains(p.Curriculum.UnlockedChapters, ch.ID)
		out = append(out, cp)
	}
	p.ChapterProgress = out
}

// Chapter returns the computed progress for chapterID.
func (p *Progress) Chapter(chapterID int) (ChapterProgress, bool) {
	for _, cp := range p.ChapterProgress {
		if cp.ChapterID == chapterID {
			return cp, true
		}
	}
	return ChapterProgress{}, false
}

// RecordGame applies a finished game against the engine: counters, Elo
// against the engine's nominal rating, and the capped history.
func (p *Progress) RecordGame(calc *elo.Calculator, rec GameRecord, result elo.GameResult) GameRecord {
	before := p.Rating
	p.Rating = calc.AgainstEngine(p.Rating, rec.Difficulty, result, p.GamesPlayed)
	rec.RatingChange = p.Rating - before
	rec.Result = result.String()

	switch result {
	case elo.Win:
		p.Wins++
	case elo.Loss:
		p.Losses++
	default:
		p.Draws++
	}
	p.GamesPlayed++
	p.BestRating = max(p.BestRating, p.Rating)
	date := rec.Date
	p.LastGameDate = &date

	p.History = append([]GameRecord{rec}, p.History...)
	if len(p.History) > HistoryLimit {
		p.History = p.History[:HistoryLimit]
	}
	return rec
}

// ResetCurriculum clears lessons, scenarios, principles and unlocked
// chapters. Rating and game history are kept.
func (p *Progress) ResetCurriculum(now time.Time) {
	p.Curriculum = newCurriculum(now)
	p.LessonAttempts = make(map[string]LessonAttempt)
}

type Statistics struct {
	Rating           int          `json:"rating"`
	BestRating       int          `json:"bestRating"`
	Wins             int          `json:"wins"`
	Losses           int          `json:"losses"`
	Draws            int          `json:"draws"`
	GamesPlayed      int          `json:"gamesPlayed"`
	WinRate          float64      `json:"winRate"`
	CompletedLessons int          `json:"completedLessons"`
	CompletedItems   int          `json:"completedItems"`
	CurrentChapter   int          `json:"currentChapter"`
	RecentGames      []GameRecord `json:"recentGames"`
}

// Stats summarises the progress. WinRate is a percentage with two decimals.
func (p *Progress) Stats() Statistics {
	var winRate float64
	if p.GamesPlayed > 0 {
		winRate = float64(p.Wins) / float64(p.GamesPlayed) * 100
		winRate = math.Round(winRate*100) / 100
	}
	recent := p.History
	if len(recent) > RecentGames {
		recent = recent[:RecentGames]
	}
	c := p.Curriculum
	return Statistics{
		Rating:           p.Rating,
		BestRating:       p.BestRating,
		Wins:             p.Wins,
		Losses:           p.Losses,
		Draws:            p.Draws,
		GamesPlayed:      p.GamesPlayed,
		WinRate:          winRate,
		CompletedLessons: len(c.CompletedLessons),
		CompletedItems:   len(c.CompletedLessons) + len(c.CompletedScenarios) + len(c.CompletedPrinciples),
		CurrentChapter:   c.CurrentChapter,
		RecentGames:      append([]GameRecord(nil), recent...),
	}
}
