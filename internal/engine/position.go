package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrIllegalMove is returned by Position.Apply for a notation that is not
	// in the current legal move set.
	ErrIllegalMove = errors.New("illegal move")
	// ErrNothingToUndo is returned by Position.Undo at the root position.
	ErrNothingToUndo = errors.New("no move to undo")
	// ErrNoLegalMoves signals a terminal position to callers that need an error.
	ErrNoLegalMoves = errors.New("no legal moves")
)

// Color is the side owning a piece or the side to move.
type Color int8

const (
	NoColor Color = iota
	White
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	}
	return NoColor
}

// Sign is +1 for white and -1 for black. Scores are white-positive.
func (c Color) Sign() Score {
	switch c {
	case White:
		return 1
	case Black:
		return -1
	}
	return 0
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// PieceType identifies a kind of piece.
type PieceType int8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = map[PieceType]string{
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
	King:   "king",
}

func (p PieceType) String() string {
	if name, ok := pieceNames[p]; ok {
		return name
	}
	return "none"
}

// Piece is a piece on a square. The zero value is an empty square.
type Piece struct {
	Type  PieceType
	Color Color
}

// Empty reports whether the square holding this value is vacant.
func (p Piece) Empty() bool {
	return p.Type == NoPieceType
}

// Square addresses the board by zero-based file (a=0) and rank (1=0).
type Square struct {
	File int
	Rank int
}

// ParseSquare converts algebraic notation such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("invalid square: %q", s)
	}
	sq := Square{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("invalid square: %q", s)
	}
	return sq, nil
}

// Valid reports whether the square is on the board.
func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+s.File, '1'+s.Rank)
}

// Snapshot is the board indexed [rank][file], rank 0 being white's back rank.
type Snapshot [8][8]Piece

// At returns the piece on sq, or an empty piece for squares off the board.
func (b *Snapshot) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq.Rank][sq.File]
}

// MoveInfo is the verbose form of a legal move. Check and Checkmate are only
// known once the move has been applied.
type MoveInfo struct {
	Notation        string    `json:"notation"`
	From            Square    `json:"-"`
	To              Square    `json:"-"`
	Piece           PieceType `json:"-"`
	Color           Color     `json:"-"`
	Captured        PieceType `json:"-"`
	Promotion       PieceType `json:"-"`
	EnPassant       bool      `json:"enPassant,omitempty"`
	KingSideCastle  bool      `json:"kingSideCastle,omitempty"`
	QueenSideCastle bool      `json:"queenSideCastle,omitempty"`
	Check           bool      `json:"check,omitempty"`
	Checkmate       bool      `json:"checkmate,omitempty"`
}

// IsCapture reports whether the move removes an opposing piece.
func (m MoveInfo) IsCapture() bool {
	return m.Captured != NoPieceType
}

// IsCastle reports whether the move castles on either side.
func (m MoveInfo) IsCastle() bool {
	return m.KingSideCastle || m.QueenSideCastle
}

// Position is the rules-engine collaborator. The engine never checks legality
// itself; every move it returns comes from LegalMoves.
//
// Apply and Undo mutate the receiver and are not safe for concurrent use.
type Position interface {
	// LegalMoves lists the moves available to the side to move, in a stable
	// order, as notation strings accepted by Apply.
	LegalMoves() []string
	LegalMovesVerbose() []MoveInfo
	Apply(notation string) (*MoveInfo, error)
	Undo() error
	Turn() Color
	Snapshot() Snapshot

	IsCheck() bool
	IsCheckmate() bool
	IsDraw() bool
	IsStalemate() bool
	IsInsufficientMaterial() bool
	IsThreefoldRepetition() bool

	// PliesPlayed counts half-moves from the start of the game.
	PliesPlayed() int
}
