package replay

import (
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

// Apply replays one recorded action onto st. Recorded actions are facts, not
// requests, so they are committed directly:
//
//	select              own selection, or both when the opponent already selected
//	finish, contest_win own attained status
//	pause, resume       game status
//	set-N               status N
//
// Actions addressing a cell outside the board, selects and claims by someone
// who is not a player, and unparsable set actions are skipped. It reports
// whether the state changed.
func Apply(st *session.State, players []string, a bingo.PlayerAction) bool {
	kind, status, ok := bingo.ParseActionType(a.ActionType)
	if !ok {
		return false
	}

	switch kind {
	case bingo.ActionPause:
		st.GameStatus = bingo.GamePaused
		return true
	case bingo.ActionResume:
		st.GameStatus = bingo.GameStarted
		return true
	}

	if !bingo.ValidIndex(a.SpellIndex) {
		return false
	}
	actor := actorOf(players, a.PlayerName)
	side, isPlayer := actor.Side()

	switch kind {
	case bingo.ActionSelect:
		if !isPlayer {
			return false
		}
		to := bingo.SelectedStatus(side)
		if st.Statuses[a.SpellIndex] == bingo.SelectedStatus(side.Opponent()) {
			to = bingo.StatusBothSelected
		}
		st.Commit(a.Timestamp, a.SpellIndex, actor, to, bingo.EventSelect)
	case bingo.ActionFinish, bingo.ActionContestWin:
		if !isPlayer {
			return false
		}
		st.Commit(a.Timestamp, a.SpellIndex, actor, bingo.AttainedStatus(side), bingo.Event(kind))
	case bingo.ActionSetPrefix:
		if !status.Valid() {
			return false
		}
		st.Commit(a.Timestamp, a.SpellIndex, actor, status, bingo.EventSet)
	default:
		return false
	}
	return true
}

func actorOf(players []string, name string) bingo.Actor {
	for i, p := range players {
		if i > 1 {
			break
		}
		if p == name {
			return bingo.ActorFor(bingo.Side(i))
		}
	}
	return bingo.ActorHost
}
