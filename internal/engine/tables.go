package engine

// Tables is the immutable configuration an Engine is built with. Piece-square
// tables are written from white's side and indexed [rank][file] with rank 0
// being white's back rank; black reads them mirrored as [7-rank][file].
type Tables struct {
	Material map[PieceType]int
	Squares  map[PieceType]*[8][8]int

	// Center squares earn CenterBonus for their occupant.
	Center      []Square
	CenterBonus int

	// MobilityWeight multiplies the legal move count of the side to move.
	MobilityWeight int

	Bonuses Bonuses

	// Openings are preferred while fewer than OpeningPlies have been played.
	Openings     []string
	OpeningPlies int
}

// Bonuses are added by the move scorer, signed toward the mover. They are
// ordered Checkmate > Check > Capture > Castling > Promotion > Center.
type Bonuses struct {
	Checkmate int
	Check     int
	Capture   int
	// A capture of a more valuable piece adds (captured-moving)/TradeDivisor.
	TradeDivisor int
	Castling     int
	Promotion    int
	Center       int
}

// MateScore is the magnitude reserved for a delivered checkmate.
const MateScore Score = 10000

// Infinity bounds the alpha-beta window.
const Infinity Score = 1 << 30

var pawnTable = [8][8]int{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{5, 10, 10, -20, -20, 10, 10, 5},
	{5, -5, -10, 0, 0, -10, -5, 5},
	{0, 0, 0, 20, 20, 0, 0, 0},
	{5, 5, 10, 25, 25, 10, 5, 5},
	{10, 10, 20, 30, 30, 20, 10, 10},
	{50, 50, 50, 50, 50, 50, 50, 50},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var knightTable = [8][8]int{
	{-50, -40, -30, -30, -30, -30, -40, -50},
	{-40, -20, 0, 5, 5, 0, -20, -40},
	{-30, 5, 10, 15, 15, 10, 5, -30},
	{-30, 0, 15, 20, 20, 15, 0, -30},
	{-30, 5, 15, 20, 20, 15, 5, -30},
	{-30, 0, 10, 15, 15, 10, 0, -30},
	{-40, -20, 0, 0, 0, 0, -20, -40},
	{-50, -40, -30, -30, -30, -30, -40, -50},
}

var bishopTable = [8][8]int{
	{-20, -10, -10, -10, -10, -10, -10, -20},
	{-10, 5, 0, 0, 0, 0, 5, -10},
	{-10, 10, 10, 10, 10, 10, 10, -10},
	{-10, 0, 10, 10, 10, 10, 0, -10},
	{-10, 5, 5, 10, 10, 5, 5, -10},
	{-10, 0, 5, 10, 10, 5, 0, -10},
	{-10, 0, 0, 0, 0, 0, 0, -10},
	{-20, -10, -10, -10, -10, -10, -10, -20},
}

var rookTable = [8][8]int{
	{0, 0, 0, 5, 5, 0, 0, 0},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{-5, 0, 0, 0, 0, 0, 0, -5},
	{5, 10, 10, 10, 10, 10, 10, 5},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var queenTable = [8][8]int{
	{-20, -10, -10, -5, -5, -10, -10, -20},
	{-10, 0, 5, 0, 0, 0, 0, -10},
	{-10, 5, 5, 5, 5, 5, 0, -10},
	{0, 0, 5, 5, 5, 5, 0, -5},
	{-5, 0, 5, 5, 5, 5, 0, -5},
	{-10, 0, 5, 5, 5, 5, 0, -10},
	{-10, 0, 0, 0, 0, 0, 0, -10},
	{-20, -10, -10, -5, -5, -10, -10, -20},
}

var kingTable = [8][8]int{
	{20, 30, 10, 0, 0, 10, 30, 20},
	{20, 20, 0, 0, 0, 0, 20, 20},
	{-10, -20, -20, -20, -20, -20, -20, -10},
	{-20, -30, -30, -40, -40, -30, -30, -20},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
	{-30, -40, -40, -50, -50, -40, -40, -30},
}

// StrongOpenings are the first moves the engine prefers from the opening.
var StrongOpenings = []string{"e4", "d4", "Nf3", "c4", "Nc3", "e3", "d3", "Bc4", "Bf4", "O-O"}

// DefaultTables returns a fresh copy of the stock configuration.
func DefaultTables() *Tables {
	squares := map[PieceType]*[8][8]int{}
	for pt, table := range map[PieceType][8][8]int{
		Pawn:   pawnTable,
		Knight: knightTable,
		Bishop: bishopTable,
		Rook:   rookTable,
		Queen:  queenTable,
		King:   kingTable,
	} {
		t := table
		squares[pt] = &t
	}

	return &Tables{
		Material: map[PieceType]int{
			Pawn:   100,
			Knight: 320,
			Bishop: 330,
			Rook:   500,
			Queen:  900,
			King:   0,
		},
		Squares: squares,
		Center: []Square{
			{File: 3, Rank: 3}, // d4
			{File: 4, Rank: 3}, // e4
			{File: 3, Rank: 4}, // d5
			{File: 4, Rank: 4}, // e5
		},
		CenterBonus:    50,
		MobilityWeight: 5,
		Bonuses: Bonuses{
			Checkmate:    10000,
			Check:        200,
			Capture:      150,
			TradeDivisor: 10,
			Castling:     120,
			Promotion:    100,
			Center:       30,
		},
		Openings:     append([]string(nil), StrongOpenings...),
		OpeningPlies: 4,
	}
}

// pieceSquare returns the placement bonus of p on (rank, file). Unknown piece
// types and out-of-range squares contribute nothing.
func (t *Tables) pieceSquare(p Piece, rank, file int) int {
	table, ok := t.Squares[p.Type]
	if !ok || table == nil || rank < 0 || rank > 7 || file < 0 || file > 7 {
		return 0
	}
	if p.Color == Black {
		rank = 7 - rank
	}
	return table[rank][file]
}

func (t *Tables) isCenter(sq Square) bool {
	for _, c := range t.Center {
		if c == sq {
			return true
		}
	}
	return false
}

func (t *Tables) isOpening(move string) bool {
	for _, o := range t.Openings {
		if o == move {
			return true
		}
	}
	return false
}
