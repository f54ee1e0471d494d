package board

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// GenerateCaptures generates all capture moves (plus promotions, for quiescence).
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateCaptures(ml)
	return p.filterLegalMoves(ml)
}

// generateAllMoves generates all pseudo-legal moves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied

	p.generatePawnMoves(ml, us, p.Occupied[us.Other()], occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & ^p.Occupied[us]
		p.addMoves(ml, from, attacks)
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & ^p.Occupied[us]
		p.addMoves(ml, from, attacks)
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & ^p.Occupied[us]
		p.addMoves(ml, from, attacks)
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & ^p.Occupied[us]
		p.addMoves(ml, from, attacks)
	}

	p.generateKingMoves(ml, us)
	p.generateCastlingMoves(ml, us)
}

// addMoves emits a quiet or capture move for every destination in targets,
// resolving the captured piece type from the mailbox.
func (p *Position) addMoves(ml *MoveList, from Square, targets Bitboard) {
	for targets != 0 {
		to := targets.PopLSB()
		if victim := p.Mailbox[to]; victim != NoPiece {
			ml.Add(NewCaptureMove(from, to, victim.Type()))
		} else {
			ml.Add(NewQuietMove(from, to))
		}
	}
}

// generatePawnMoves generates all pawn moves.
func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	// Single pushes (non-promotion)
	nonPromo := push1 & ^promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		from := Square(int(to) - pushDir)
		ml.Add(NewQuietMove(from, to))
	}

	// Double pushes
	for push2 != 0 {
		to := push2.PopLSB()
		from := Square(int(to) - 2*pushDir)
		ml.Add(NewPawnStart(from, to))
	}

	// Captures (non-promotion)
	nonPromoL := attackL & ^promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		ml.Add(NewCaptureMove(from, to, p.Mailbox[to].Type()))
	}

	nonPromoR := attackR & ^promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		ml.Add(NewCaptureMove(from, to, p.Mailbox[to].Type()))
	}

	// Promotions (push)
	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		from := Square(int(to) - pushDir)
		addPromotions(ml, from, to, NoPieceType)
	}

	// Promotions (capture)
	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		addPromotions(ml, from, to, p.Mailbox[to].Type())
	}

	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		addPromotions(ml, from, to, p.Mailbox[to].Type())
	}

	// En passant
	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			from := epAttackers.PopLSB()
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}
}

// addPromotions adds all four promotion moves (captured is NoPieceType for a
// push promotion).
func addPromotions(ml *MoveList, from, to Square, captured PieceType) {
	ml.Add(NewPromotion(from, to, captured, Queen))
	ml.Add(NewPromotion(from, to, captured, Rook))
	ml.Add(NewPromotion(from, to, captured, Bishop))
	ml.Add(NewPromotion(from, to, captured, Knight))
}

// generateKingMoves generates king moves (non-castling).
func (p *Position) generateKingMoves(ml *MoveList, us Color) {
	from := p.KingSquare[us]
	attacks := KingAttacks(from) & ^p.Occupied[us]
	p.addMoves(ml, from, attacks)
}

// generateCastlingMoves generates castling moves.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()

	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 {
			if p.AllOccupied&((1<<F1)|(1<<G1)) == 0 {
				if !p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) {
					ml.Add(NewCastling(E1, G1))
				}
			}
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 {
			if p.AllOccupied&((1<<B1)|(1<<C1)|(1<<D1)) == 0 {
				if !p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) {
					ml.Add(NewCastling(E1, C1))
				}
			}
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 {
			if p.AllOccupied&((1<<F8)|(1<<G8)) == 0 {
				if !p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) {
					ml.Add(NewCastling(E8, G8))
				}
			}
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 {
			if p.AllOccupied&((1<<B8)|(1<<C8)|(1<<D8)) == 0 {
				if !p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) {
					ml.Add(NewCastling(E8, C8))
				}
			}
		}
	}
}

// generateCaptures generates capture moves (and promotions) only.
func (p *Position) generateCaptures(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemies := p.Occupied[them]
	occupied := p.AllOccupied

	pawns := p.Pieces[us][Pawn]
	var attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	nonPromoL := attackL & ^promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		ml.Add(NewCaptureMove(from, to, p.Mailbox[to].Type()))
	}

	nonPromoR := attackR & ^promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		ml.Add(NewCaptureMove(from, to, p.Mailbox[to].Type()))
	}

	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		addPromotions(ml, from, to, p.Mailbox[to].Type())
	}

	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		addPromotions(ml, from, to, p.Mailbox[to].Type())
	}

	// Pawn push promotions (not captures, but generated alongside for quiescence)
	empty := ^occupied
	var push1 Bitboard
	if us == White {
		push1 = pawns.North() & empty & Rank8
	} else {
		push1 = pawns.South() & empty & Rank1
	}
	for push1 != 0 {
		to := push1.PopLSB()
		from := Square(int(to) - pushDir)
		addPromotions(ml, from, to, NoPieceType)
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			from := epAttackers.PopLSB()
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & enemies
		p.addMoves(ml, from, attacks)
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & enemies
		p.addMoves(ml, from, attacks)
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & enemies
		p.addMoves(ml, from, attacks)
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & enemies
		p.addMoves(ml, from, attacks)
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) & enemies
	p.addMoves(ml, from, attacks)
}

// filterLegalMoves keeps only the moves of ml that survive make/unmake.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo, ok := p.MakeMove(m)
		if !ok {
			continue
		}
		p.UnmakeMove(m, undo)
		result.Add(m)
	}
	return result
}

// IsLegal reports whether m is legal in the current position. It is a
// convenience wrapper around MakeMove/UnmakeMove for callers (e.g. search's
// move picker) that only need the boolean and not the undo record.
func (p *Position) IsLegal(m Move) bool {
	undo, ok := p.MakeMove(m)
	if !ok {
		return false
	}
	p.UnmakeMove(m, undo)
	return true
}

// MakeMove applies a move to the position. If the move leaves the mover's own
// king in check, it is illegal: MakeMove unmakes it internally and returns
// ok=false, leaving the position exactly as it was. Callers MUST check ok
// before trusting the returned UndoInfo or continuing to search/evaluate
// from the resulting position.
func (p *Position) MakeMove(m Move) (UndoInfo, bool) {
	undo := UndoInfo{
		Move:           m,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return undo, false
	}
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if EPCapturable(p, p.EnPassant, p.SideToMove) {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	capturedType := m.Captured()

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
	} else if capturedType != NoPieceType {
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][capturedType][to]
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Mailbox[to] = NewPiece(promoPt, us)
		p.pieceListRemove(us, Pawn, to)
		p.pieceListAdd(us, promoPt, to)
		p.MGMaterial[us] += PieceValueMG[promoPt] - PieceValueMG[Pawn]
		p.EGMaterial[us] += PieceValueEG[promoPt] - PieceValueEG[Pawn]
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}
	p.Hash ^= zobristCastling[p.CastlingRights]

	if m.IsPawnStart() {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
		if EPCapturable(p, epSquare, them) {
			p.Hash ^= zobristEnPassant[epSquare.File()]
		}
	}

	if pt == Pawn || capturedType != NoPieceType {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.PawnKey = p.ComputePawnKey()
	p.SideToMove = them
	p.Ply++
	p.HistPly++
	p.UpdateCheckers()

	if p.IsSquareAttacked(p.KingSquare[us], them) {
		p.unmakeMove(m, undo)
		return undo, false
	}

	undo.Valid = true
	if p.HistPly >= 0 && p.HistPly < len(p.KeyHistory) {
		p.KeyHistory[p.HistPly] = p.Hash
	}

	return undo, true
}

// UnmakeMove undoes a move previously applied (and accepted) by MakeMove.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	p.unmakeMove(m, undo)
}

// unmakeMove is the shared restoration path for both the public UnmakeMove
// and MakeMove's internal rollback of an illegal move.
func (p *Position) unmakeMove(m Move, undo UndoInfo) {
	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.SideToMove = us
	p.Ply--
	p.HistPly--

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
		p.Mailbox[to] = NewPiece(Pawn, us)
		p.pieceListRemove(us, promoPt, to)
		p.pieceListAdd(us, Pawn, to)
		p.MGMaterial[us] += PieceValueMG[Pawn] - PieceValueMG[promoPt]
		p.EGMaterial[us] += PieceValueEG[Pawn] - PieceValueEG[promoPt]
	}

	p.movePiece(to, from)

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookTo, rookFrom)
	}

	capturedType := m.Captured()
	if capturedType != NoPieceType {
		if m.IsEnPassant() {
			var capturedSq Square
			if us == White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
			p.setPiece(NewPiece(Pawn, them), capturedSq)
		} else {
			p.setPiece(NewPiece(capturedType, them), to)
		}
	}

	p.PawnKey = p.ComputePawnKey()
	p.UpdateCheckers()
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw (stalemate, 50-move, insufficient material).
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}

// IsRepetition reports whether the current position's hash has occurred
// earlier in the game history within the fifty-move window (§4I step 3).
func (p *Position) IsRepetition() bool {
	limit := p.HistPly - p.HalfMoveClock
	if limit < 0 {
		limit = 0
	}
	for i := p.HistPly - 2; i >= limit; i -= 2 {
		if i < 0 || i >= len(p.KeyHistory) {
			continue
		}
		if p.KeyHistory[i] == p.Hash {
			return true
		}
	}
	return false
}
