// Package rules implements engine.Position over github.com/notnil/chess.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"chess-coach/internal/engine"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidFEN = errors.New("invalid FEN")

var notation = chess.AlgebraicNotation{}

// frame is one position on the apply stack. Legal moves are generated on
// first use and cached.
type frame struct {
	pos  *chess.Position
	move *chess.Move // move that produced pos; nil at the root
	san  string
	key  string

	generated bool
	moves     []*chess.Move
	sans      []string
}

func newFrame(pos *chess.Position, move *chess.Move, san string) *frame {
	return &frame{pos: pos, move: move, san: san, key: PositionKey(pos.String())}
}

func (f *frame) legal() ([]*chess.Move, []string) {
	if !f.generated {
		f.moves = f.pos.ValidMoves()
		f.sans = make([]string, len(f.moves))
		for i, m := range f.moves {
			f.sans[i] = notation.Encode(f.pos, m)
		}
		f.generated = true
	}
	return f.moves, f.sans
}

// Game is a position plus the stack of moves applied to reach it. It
// satisfies engine.Position. A Game is not safe for concurrent use; hand a
// Clone to other goroutines.
type Game struct {
	startFEN string
	startPly int
	stack    []*frame
}

var _ engine.Position = (*Game)(nil)

// New returns a game at the standard starting position.
func New() *Game {
	return &Game{
		startFEN: StartFEN,
		stack:    []*frame{newFrame(chess.NewGame().Position(), nil, "")},
	}
}

// FromFEN returns a game starting at fen.
func FromFEN(fen string) (*Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == StartFEN {
		return New(), nil
	}
	pos, err := decodeFEN(fen)
	if err != nil {
		return nil, err
	}
	return &Game{
		startFEN: fen,
		startPly: pliesFromFEN(fen),
		stack:    []*frame{newFrame(pos, nil, "")},
	}, nil
}

// FromMoves replays moves from fen (the start position when empty) and fails
// on the first illegal move.
func FromMoves(fen string, moves []string) (*Game, error) {
	g, err := FromFEN(fen)
	if err != nil {
		return nil, err
	}
	for i, m := range moves {
		if _, err := g.Apply(m); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return g, nil
}

func decodeFEN(fen string) (*chess.Position, error) {
	if len(strings.Fields(fen)) != 6 {
		return nil, fmt.Errorf("%w: expected 6 fields", ErrInvalidFEN)
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	pos := chess.NewGame(opt).Position()
	if err := checkPlacement(pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// castleHomes lists the king and rook squares each castling right needs.
var castleHomes = []struct {
	color      chess.Color
	side       chess.Side
	right      string
	king, rook chess.Square
}{
	{chess.White, chess.KingSide, "K", chess.E1, chess.H1},
	{chess.White, chess.QueenSide, "Q", chess.E1, chess.A1},
	{chess.Black, chess.KingSide, "k", chess.E8, chess.H8},
	{chess.Black, chess.QueenSide, "q", chess.E8, chess.A8},
}

// checkPlacement rejects positions the move generator cannot reason about:
// each side needs exactly one king, and every castling right needs its king
// and rook on their home squares.
func checkPlacement(pos *chess.Position) error {
	board := pos.Board()
	kings := map[chess.Color]int{}
	for _, p := range board.SquareMap() {
		if p.Type() == chess.King {
			kings[p.Color()]++
		}
	}
	if kings[chess.White] != 1 || kings[chess.Black] != 1 {
		return fmt.Errorf("%w: need one king per side, have %d white and %d black",
			ErrInvalidFEN, kings[chess.White], kings[chess.Black])
	}
	rights := pos.CastleRights()
	for _, h := range castleHomes {
		if !rights.CanCastle(h.color, h.side) {
			continue
		}
		if !holds(board, h.king, chess.King, h.color) || !holds(board, h.rook, chess.Rook, h.color) {
			return fmt.Errorf("%w: castling right %s without king on %s and rook on %s",
				ErrInvalidFEN, h.right, h.king, h.rook)
		}
	}
	return nil
}

func holds(board *chess.Board, sq chess.Square, t chess.PieceType, c chess.Color) bool {
	p := board.Piece(sq)
	return p.Type() == t && p.Color() == c
}

// pliesFromFEN derives the number of half-moves played from the fullmove
// number and side to move.
func pliesFromFEN(fen string) int {
	parts := strings.Fields(fen)
	if len(parts) < 6 {
		return 0
	}
	full, err := strconv.Atoi(parts[5])
	if err != nil || full < 1 {
		full = 1
	}
	plies := 2 * (full - 1)
	if parts[1] == "b" {
		plies++
	}
	return plies
}

func (g *Game) top() *frame {
	return g.stack[len(g.stack)-1]
}

// StartFEN returns the FEN the game was created from.
func (g *Game) StartFEN() string {
	return g.startFEN
}

// FEN returns the current position.
func (g *Game) FEN() string {
	return g.top().pos.String()
}

// History returns the SAN of every applied move.
func (g *Game) History() []string {
	history := make([]string, 0, len(g.stack)-1)
	for _, f := range g.stack[1:] {
		history = append(history, f.san)
	}
	return history
}

// LastMove returns the SAN of the most recent move, or "".
func (g *Game) LastMove() string {
	return g.top().san
}

func (g *Game) LegalMoves() []string {
	_, sans := g.top().legal()
	return append([]string(nil), sans...)
}

func (g *Game) LegalMovesVerbose() []engine.MoveInfo {
	top := g.top()
	moves, sans := top.legal()
	out := make([]engine.MoveInfo, len(moves))
	for i, m := range moves {
		out[i] = describe(top.pos, m, sans[i])
	}
	return out
}

// Apply plays a move given in SAN or UCI. Check and mate suffixes are optional.
func (g *Game) Apply(move string) (*engine.MoveInfo, error) {
	top := g.top()
	moves, sans := top.legal()

	idx := findMove(moves, sans, strings.TrimSpace(move))
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", engine.ErrIllegalMove, move)
	}

	m := moves[idx]
	next := newFrame(top.pos.Update(m), m, sans[idx])
	g.stack = append(g.stack, next)

	info := describe(top.pos, m, sans[idx])
	info.Check = m.HasTag(chess.Check)
	info.Checkmate = next.pos.Status() == chess.Checkmate
	return &info, nil
}

func findMove(moves []*chess.Move, sans []string, move string) int {
	if move == "" {
		return -1
	}
	for i := range moves {
		if sans[i] == move || moves[i].String() == move {
			return i
		}
	}
	bare := strings.TrimRight(move, "+#!?")
	for i := range moves {
		if strings.TrimRight(sans[i], "+#") == bare {
			return i
		}
	}
	return -1
}

// Undo takes back the last applied move.
func (g *Game) Undo() error {
	if len(g.stack) <= 1 {
		return engine.ErrNothingToUndo
	}
	g.stack[len(g.stack)-1] = nil
	g.stack = g.stack[:len(g.stack)-1]
	return nil
}

func (g *Game) Turn() engine.Color {
	return fromColor(g.top().pos.Turn())
}

func (g *Game) Snapshot() engine.Snapshot {
	var snap engine.Snapshot
	board := g.top().pos.Board()
	for i := 0; i < 64; i++ {
		sq := chess.Square(i)
		p := board.Piece(sq)
		if p == chess.NoPiece {
			continue
		}
		snap[i/8][i%8] = engine.Piece{Type: fromPieceType(p.Type()), Color: fromColor(p.Color())}
	}
	return snap
}

func (g *Game) IsCheck() bool {
	top := g.top()
	if top.move != nil {
		return top.move.HasTag(chess.Check)
	}
	snap := g.Snapshot()
	return InCheck(&snap, g.Turn())
}

func (g *Game) IsCheckmate() bool {
	return g.top().pos.Status() == chess.Checkmate
}

func (g *Game) IsStalemate() bool {
	return g.top().pos.Status() == chess.Stalemate
}

func (g *Game) IsInsufficientMaterial() bool {
	snap := g.Snapshot()
	return IsInsufficientMaterial(&snap)
}

// IsThreefoldRepetition counts occurrences of the current position key along
// the apply stack.
func (g *Game) IsThreefoldRepetition() bool {
	key := g.top().key
	count := 0
	for _, f := range g.stack {
		if f.key == key {
			count++
		}
	}
	return count >= 3
}

// IsFiftyMoveRule reports a halfmove clock of at least 100.
func (g *Game) IsFiftyMoveRule() bool {
	parts := strings.Fields(g.FEN())
	if len(parts) < 5 {
		return false
	}
	clock, err := strconv.Atoi(parts[4])
	if err != nil {
		return false
	}
	return IsFiftyMoveRule(clock)
}

func (g *Game) IsDraw() bool {
	_, ok := g.DrawReason()
	return ok
}

// DrawReason returns why the current position is drawn, if it is.
func (g *Game) DrawReason() (DrawReason, bool) {
	switch {
	case g.IsStalemate():
		return DrawByStalemate, true
	case g.IsInsufficientMaterial():
		return DrawByInsufficientMaterial, true
	case g.IsThreefoldRepetition():
		return DrawByThreefoldRepetition, true
	case g.IsFiftyMoveRule():
		return DrawByFiftyMoves, true
	}
	return "", false
}

func (g *Game) PliesPlayed() int {
	return g.startPly + len(g.stack) - 1
}

// Outcome describes a finished game.
type Outcome struct {
	Over   bool
	Winner engine.Color
	// Reason is "checkmate" or a DrawReason.
	Reason string
}

// Outcome reports whether the game is over and how.
func (g *Game) Outcome() Outcome {
	if g.IsCheckmate() {
		return Outcome{Over: true, Winner: g.Turn().Other(), Reason: "checkmate"}
	}
	if reason, ok := g.DrawReason(); ok {
		return Outcome{Over: true, Winner: engine.NoColor, Reason: string(reason)}
	}
	return Outcome{}
}

// Clone returns an independent copy. Positions are re-decoded so the copy
// shares no lazily-filled state with g.
func (g *Game) Clone() (*Game, error) {
	cp := &Game{
		startFEN: g.startFEN,
		startPly: g.startPly,
		stack:    make([]*frame, len(g.stack)),
	}
	for i, f := range g.stack {
		pos, err := decodeFEN(f.pos.String())
		if err != nil {
			return nil, fmt.Errorf("clone ply %d: %w", i, err)
		}
		cp.stack[i] = &frame{pos: pos, move: f.move, san: f.san, key: f.key}
	}
	return cp, nil
}

func describe(pos *chess.Position, m *chess.Move, san string) engine.MoveInfo {
	board := pos.Board()
	moving := board.Piece(m.S1())
	info := engine.MoveInfo{
		Notation:        san,
		From:            fromSquare(m.S1()),
		To:              fromSquare(m.S2()),
		Piece:           fromPieceType(moving.Type()),
		Color:           fromColor(moving.Color()),
		Promotion:       fromPieceType(m.Promo()),
		EnPassant:       m.HasTag(chess.EnPassant),
		KingSideCastle:  m.HasTag(chess.KingSideCastle),
		QueenSideCastle: m.HasTag(chess.QueenSideCastle),
	}
	if info.EnPassant {
		info.Captured = engine.Pawn
	} else if captured := board.Piece(m.S2()); captured != chess.NoPiece {
		info.Captured = fromPieceType(captured.Type())
	}
	return info
}

func fromSquare(sq chess.Square) engine.Square {
	return engine.Square{File: int(sq.File()), Rank: int(sq.Rank())}
}

func fromColor(c chess.Color) engine.Color {
	switch c {
	case chess.White:
		return engine.White
	case chess.Black:
		return engine.Black
	}
	return engine.NoColor
}

func fromPieceType(pt chess.PieceType) engine.PieceType {
	switch pt {
	case chess.Pawn:
		return engine.Pawn
	case chess.Knight:
		return engine.Knight
	case chess.Bishop:
		return engine.Bishop
	case chess.Rook:
		return engine.Rook
	case chess.Queen:
		return engine.Queen
	case chess.King:
		return engine.King
	}
	return engine.NoPieceType
}
