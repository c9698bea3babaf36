package main

import (
	"strings"

	"chess-coach/internal/engine"
)

// Terminal color codes
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

var pieceLetters = map[engine.PieceType]byte{
	engine.Pawn:   'p',
	engine.Knight: 'n',
	engine.Bishop: 'b',
	engine.Rook:   'r',
	engine.Queen:  'q',
	engine.King:   'k',
}

// renderBoard draws the board with white pieces in upper case, from the
// side of viewer. Colors are ANSI escapes when colored is set.
func renderBoard(snap engine.Snapshot, viewer engine.Color, colored bool) string {
	paint := func(code, s string) string {
		if !colored {
			return s
		}
		return code + s + reset
	}

	files := "  a b c d e f g h"
	ranks := []int{7, 6, 5, 4, 3, 2, 1, 0}
	fileOrder := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if viewer == engine.Black {
		files = "  h g f e d c b a"
		ranks = []int{0, 1, 2, 3, 4, 5, 6, 7}
		fileOrder = []int{7, 6, 5, 4, 3, 2, 1, 0}
	}

	var b strings.Builder
	b.WriteString(paint(cyan, files))
	b.WriteByte('\n')
	for _, rank := range ranks {
		label := string(rune('1' + rank))
		b.WriteString(paint(cyan, label))
		for _, file := range fileOrder {
			b.WriteByte(' ')
			p := snap[rank][file]
			if p.Empty() {
				b.WriteByte('.')
				continue
			}
			letter := pieceLetters[p.Type]
			if p.Color == engine.White {
				b.WriteString(paint(blue, strings.ToUpper(string(letter))))
			} else {
				b.WriteString(paint(red, string(letter)))
			}
		}
		b.WriteByte(' ')
		b.WriteString(paint(cyan, label))
		b.WriteByte('\n')
	}
	b.WriteString(paint(cyan, files))
	b.WriteByte('\n')
	return b.String()
}
