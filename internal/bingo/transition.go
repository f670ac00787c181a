package bingo

// Event is what a committed transition means for the action log.
type Event string

const (
	EventNone       Event = ""
	EventSelect     Event = "select"
	EventUnselect   Event = "unselect"
	EventFinish     Event = "finish"
	EventContestWin Event = "contest_win"
	EventSet        Event = "set"
	EventRefresh    Event = "refresh"
)

// ActionType returns the log action type recording e. Unselects are recorded
// as a direct status assignment so a replay reproduces them.
func (e Event) ActionType(to CellStatus) string {
	switch e {
	case EventUnselect, EventSet:
		return SetAction(to)
	default:
		return string(e)
	}
}

// IsClaim reports whether e moved a cell to its claimant's attained status.
func (e Event) IsClaim() bool {
	return e == EventFinish || e == EventContestWin
}

// edge is one allowed non-host transition.
type edge struct {
	From      CellStatus
	Actor     Actor
	Requested CellStatus
	To        CellStatus
	Event     Event
}

var transitionsTable = []edge{
	// Side A selects, contests and unselects
	{From: StatusNone, Actor: ActorA, Requested: StatusASelected, To: StatusASelected, Event: EventSelect},
	{From: StatusBSelected, Actor: ActorA, Requested: StatusASelected, To: StatusBothSelected, Event: EventSelect},
	{From: StatusASelected, Actor: ActorA, Requested: StatusASelected, To: StatusNone, Event: EventUnselect},
	{From: StatusBothSelected, Actor: ActorA, Requested: StatusASelected, To: StatusBSelected, Event: EventUnselect},

	// Side B selects, contests and unselects
	{From: StatusNone, Actor: ActorB, Requested: StatusBSelected, To: StatusBSelected, Event: EventSelect},
	{From: StatusASelected, Actor: ActorB, Requested: StatusBSelected, To: StatusBothSelected, Event: EventSelect},
	{From: StatusBSelected, Actor: ActorB, Requested: StatusBSelected, To: StatusNone, Event: EventUnselect},
	{From: StatusBothSelected, Actor: ActorB, Requested: StatusBSelected, To: StatusASelected, Event: EventUnselect},

	// Claims
	{From: StatusASelected, Actor: ActorA, Requested: StatusAAttained, To: StatusAAttained, Event: EventFinish},
	{From: StatusBothSelected, Actor: ActorA, Requested: StatusAAttained, To: StatusAAttained, Event: EventContestWin},
	{From: StatusBSelected, Actor: ActorB, Requested: StatusBAttained, To: StatusBAttained, Event: EventFinish},
	{From: StatusBothSelected, Actor: ActorB, Requested: StatusBAttained, To: StatusBAttained, Event: EventContestWin},
}

// Transition resolves a request by actor to move a cell from current to
// requested. The host may set any valid status unconditionally. For players
// the request names the player's own selected status (select/unselect) or
// own attained status (claim). Requests with no matching edge are rejected
// with EventNone and the cell keeps its current status.
func Transition(current CellStatus, actor Actor, requested CellStatus) (CellStatus, Event) {
	if actor == ActorHost {
		if !requested.Valid() {
			return current, EventNone
		}
		return requested, EventSet
	}
	for _, e := range transitionsTable {
		if e.From == current && e.Actor == actor && e.Requested == requested {
			return e.To, e.Event
		}
	}
	return current, EventNone
}

// RequestFor maps an authoritative status change made by side back to the
// request that produces it: a claim when the result is side's attained
// status, otherwise a select toggle.
func RequestFor(side Side, result CellStatus) CellStatus {
	if result == AttainedStatus(side) {
		return AttainedStatus(side)
	}
	return SelectedStatus(side)
}
