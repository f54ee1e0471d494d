package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

// see (static exchange evaluation) estimates the net material result of
// playing m, assuming both sides recapture on m.To() with their cheapest
// attacker until the exchange runs dry. The move picker (§4F) uses it to
// separate winning captures from losing ones instead of trusting MVV-LVA
// alone. It walks a VBoard snapshot rather than the real Position so
// classifying a capture never pays for a MakeMove/UnmakeMove round trip.
func see(pos *board.Position, m board.Move) int {
	from, to := m.From(), m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var gain [32]int
	depth := 0

	if m.IsEnPassant() {
		gain[depth] = pieceValues[board.Pawn]
	} else {
		victim := pos.PieceAt(to)
		if victim == board.NoPiece {
			return 0 // not a capture
		}
		gain[depth] = pieceValues[victim.Type()]
	}
	if m.IsPromotion() {
		gain[depth] += pieceValues[m.Promotion()] - pieceValues[board.Pawn]
	}

	vb := board.NewVBoard(pos)
	vb.RemoveAttacker(from, attacker.Type(), attacker.Color())

	side := attacker.Color().Other()
	attackerValue := pieceValues[attacker.Type()]

	for depth < len(gain)-1 {
		depth++
		gain[depth] = attackerValue - gain[depth-1]
		if max(-gain[depth-1], gain[depth]) < 0 {
			break
		}

		sq, pt := vb.LeastValuableAttacker(to, side)
		if sq == board.NoSquare {
			break
		}
		vb.RemoveAttacker(sq, pt, side)
		attackerValue = pieceValues[pt]
		side = side.Other()
	}

	for depth--; depth > 0; depth-- {
		gain[depth-1] = -max(-gain[depth-1], gain[depth])
	}

	return gain[0]
}
