package models

import "time"

// Source records how a game reached the archive.
type Source string

const (
	SourceLive   Source = "live"   // recorded by a running session
	SourceImport Source = "import" // decoded from a report file
	SourceCLI    Source = "cli"    // added by hand from the command line
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceLive, SourceImport, SourceCLI:
		return true
	}
	return false
}

// GameLog is one archived game. Data holds the GameLogData JSON; the other
// columns are denormalized from it for listing and filtering.
type GameLog struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"roomId"`
	PlayerA     string     `json:"playerA"`
	PlayerB     string     `json:"playerB"`
	ScoreA      int        `json:"scoreA"`
	ScoreB      int        `json:"scoreB"`
	GameType    int        `json:"gameType"`
	DualBoard   bool       `json:"dualBoard"`
	IsCustom    bool       `json:"isCustom"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	TotalTimeMs int64      `json:"totalTimeMs"`
	ActionCount int        `json:"actionCount"`
	Source      Source     `json:"source"`
	ContentHash string     `json:"contentHash"`
	Data        []byte     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// GameAnalytics is the stored analysis of a game. Result holds the
// analytics.Result JSON.
type GameAnalytics struct {
	GameID       string    `json:"gameId"`
	TimerMetrics bool      `json:"timerMetrics"`
	CompletedA   int       `json:"completedA"`
	CompletedB   int       `json:"completedB"`
	TotalTimeA   int64     `json:"totalTimeA"`
	TotalTimeB   int64     `json:"totalTimeB"`
	Result       []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GameFilter narrows List. Zero values match everything.
type GameFilter struct {
	Player string // either side
	Source Source
	Since  *time.Time // started at or after
	Until  *time.Time // started before
	Limit  int
	Offset int
}
