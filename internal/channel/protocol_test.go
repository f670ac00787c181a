package channel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/session"
)

func TestDecodePush(t *testing.T) {
	tests := []struct {
		name   string
		action string
		data   string
		check  func(t *testing.T, p session.Push)
	}{
		{
			name:   "one spell",
			action: session.KindUpdateOneSpell,
			data:   `{"board_idx":1,"spell_idx":3,"spell":{"name":"x","star":2},"player_name":"host"}`,
			check: func(t *testing.T, p session.Push) {
				u := p.(session.OneSpellUpdate)
				if u.BoardIdx != 1 || u.SpellIdx != 3 || u.Spell.Name != "x" || u.PlayerName != "host" {
					t.Errorf("Unexpected update %+v", u)
				}
			},
		},
		{
			name:   "start with names",
			action: session.KindStartGame,
			data:   `{"rid":"r","names":["X","Y"],"is_custom_game":true,"cd_time":30}`,
			check: func(t *testing.T, p session.Push) {
				s := p.(session.StartGame)
				if s.Players[0] != "X" || !s.IsCustomGame || s.Room.CDTime != 30 {
					t.Errorf("Unexpected start %+v", s)
				}
			},
		},
		{
			name:   "failed counters",
			action: session.KindUpdateSpellStatus,
			data:   `{"index":2,"status":0,"causer":"Bob","spell_failed_count_b":2}`,
			check: func(t *testing.T, p session.Push) {
				u := p.(session.SpellStatusUpdate)
				if u.SpellFailedCountB == nil || *u.SpellFailedCountB != 2 || u.Status != bingo.StatusNone {
					t.Errorf("Unexpected update %+v", u)
				}
			},
		},
		{
			name:   "pause without data",
			action: session.KindPause,
			check: func(t *testing.T, p session.Push) {
				if p.(session.PauseUpdate).Pause {
					t.Error("Expected zero pause")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{Action: tt.action}
			if tt.data != "" {
				m.Data = json.RawMessage(tt.data)
			}
			p, err := DecodePush(m, []string{"A", "B"})
			if err != nil {
				t.Fatalf("DecodePush failed: %v", err)
			}
			if p.Kind() != tt.action {
				t.Errorf("Expected kind %s, got %s", tt.action, p.Kind())
			}
			tt.check(t, p)
		})
	}
}

func TestDecodePush_Errors(t *testing.T) {
	if _, err := DecodePush(Message{Action: "push_nope"}, nil); !errors.Is(err, ErrUnknownPush) {
		t.Errorf("Expected ErrUnknownPush, got %v", err)
	}
	if _, err := DecodePush(Message{Action: session.KindStopGame, Data: json.RawMessage(`{"winner":"x"}`)}, nil); err == nil {
		t.Error("Expected malformed data to fail")
	}
}

func TestGameData_Sync(t *testing.T) {
	g := GameData{Statuses: bingo.NewStatuses(), NormalData: &bingo.NormalData{WhichBoardA: 1}}
	s := g.Sync()
	if s.NormalData.WhichBoardA != 1 || len(s.Statuses) != bingo.BoardSize {
		t.Errorf("Unexpected sync %+v", s)
	}
}
