package game

import (
	"github.com/OVECJOE/zai-client/internal/hex"
	"github.com/OVECJOE/zai-client/internal/protocol"
)

// Selection is the transient two-step sacrifice state: the stone nominated
// for removal and up to two target coordinates chosen so far. It never
// reaches the server except as the final composed move.
type Selection struct {
	Source     *hex.Coordinate
	Placements []hex.Coordinate
}

// Active reports whether a sacrifice source has been nominated.
func (sel Selection) Active() bool { return sel.Source != nil }

// Select resolves one coordinate click against the session and the current
// sacrifice selection. It returns the updated selection, the composed move
// to submit (nil when the click only adjusted selection state), and any
// effects to run.
//
// A click is interpreted in priority order:
//
//  1. no source selected and c is a legal placement target -> placement move
//  2. sacrifice phase and c is a legal sacrifice source -> nominate source,
//     reset placements
//  3. source selected and c is empty and not the void hex -> toggle c in the
//     placements, keeping the most recent two
//  4. two placements held -> submit if the combination is legal in either
//     order, otherwise warn and keep the selection for adjustment
//  5. anything else -> no-op
//
// "No source selected yet" is the discriminator that keeps a plain placement
// preferred over any sacrifice interpretation, even during the expansion
// phase.
func Select(s Session, sel Selection, me protocol.Color, c hex.Coordinate) (Selection, *protocol.Move, []Effect) {
	if !sel.Active() && s.HasLegalPlacement(c) {
		move := protocol.Placement(c)
		return Selection{}, &move, nil
	}

	if s.Phase == protocol.PhaseExpansion {
		if owner, ok := s.Board.StoneAt(c); ok && owner == me {
			if s.HasLegalSacrificeSource(c) {
				pos := c
				return Selection{Source: &pos}, nil, nil
			}
			warn := Toast{Level: ToastWarning, Message: "This stone cannot be sacrificed (connectivity rules)"}
			return sel, nil, []Effect{warn}
		}
	}

	if !sel.Active() || s.Board.Occupied(c) || c == Void {
		return sel, nil, nil
	}

	placements := togglePlacement(sel.Placements, c)
	next := Selection{Source: sel.Source, Placements: placements}

	if len(placements) == 2 {
		if s.HasLegalSacrifice(*sel.Source, placements[0], placements[1]) {
			move := protocol.Sacrifice(*sel.Source, [2]hex.Coordinate{placements[0], placements[1]})
			return Selection{}, &move, nil
		}
		warn := Toast{Level: ToastWarning, Message: "Invalid sacrifice combination"}
		return next, nil, []Effect{warn}
	}

	return next, nil, nil
}

// togglePlacement removes c if already chosen; otherwise appends it, keeping
// a most-recent-2 window by evicting the older entry when a third distinct
// coordinate arrives.
func togglePlacement(placements []hex.Coordinate, c hex.Coordinate) []hex.Coordinate {
	for i, p := range placements {
		if p == c {
			out := make([]hex.Coordinate, 0, len(placements)-1)
			out = append(out, placements[:i]...)
			return append(out, placements[i+1:]...)
		}
	}
	if len(placements) < 2 {
		return append(append([]hex.Coordinate{}, placements...), c)
	}
	return []hex.Coordinate{placements[1], c}
}
