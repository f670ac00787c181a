package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

func sampleLog() *bingo.GameLogData {
	spells := make(bingo.Board, bingo.BoardSize)
	for i := range spells {
		spells[i] = bingo.Spell{Index: i, Name: "符卡" + string(rune('A'+i)), Star: 1 + i%5, Fastest: 12.5, MaxCapRate: 0.8}
	}
	return &bingo.GameLogData{
		RoomConfig: bingo.RoomConfig{RID: "r1", Type: 1, GameTime: 30, Countdown: 10, CDTime: 30, GameWeight: map[string]float64{"6": 1.5}},
		Players:    []string{"Alice", "Bob"},
		Spells:     spells,
		Actions: []bingo.PlayerAction{
			{PlayerName: "Alice", ActionType: "select", SpellIndex: 12, SpellName: "符卡M", Timestamp: 5000, ScoreNow: []int{0, 0}},
			{PlayerName: "Alice", ActionType: "finish", SpellIndex: 12, SpellName: "符卡M", Timestamp: 9000, ScoreNow: []int{1, 0}},
		},
		GameStartTimestamp: 1740859200000,
		Score:              []int{1, 0},
		InitStatus:         bingo.NewStatuses(),
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mod  func(g *bingo.GameLogData)
	}{
		{"full", func(*bingo.GameLogData) {}},
		{"zero actions", func(g *bingo.GameLogData) { g.Actions = nil }},
		{"empty second board", func(g *bingo.GameLogData) { g.Spells2 = nil }},
		{"dual board", func(g *bingo.GameLogData) {
			g.RoomConfig.DualBoard = 1
			g.Spells2 = g.Spells.Clone()
			g.NormalData = &bingo.NormalData{WhichBoardA: 1, IsPortalA: make([]int, 25), IsPortalB: make([]int, 25), GetOnWhichBoard: make([]int, 25)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleLog()
			tt.mod(in)

			code, err := Encode(in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			out, err := Decode(code)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if out.Version != Version {
				t.Errorf("Expected version %s, got %s", Version, out.Version)
			}
			if !reflect.DeepEqual(*in, out.Data) {
				t.Errorf("Round trip mismatch:\n in: %+v\nout: %+v", *in, out.Data)
			}
		})
	}
}

func TestDecode_IgnoresWrappingAndNoise(t *testing.T) {
	code, err := Encode(sampleLog())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	wrapped := "  " + Wrap(code, 16) + "\r\n\t"
	for _, line := range strings.Split(Wrap(code, 16), "\n") {
		if len(line) > 16 {
			t.Fatalf("Expected lines of at most 16 chars, got %d", len(line))
		}
	}

	out, err := Decode(wrapped)
	if err != nil {
		t.Fatalf("Decode of wrapped code failed: %v", err)
	}
	if out.Data.Players[0] != "Alice" {
		t.Errorf("Expected Alice, got %s", out.Data.Players[0])
	}
}

func TestDecodeReport(t *testing.T) {
	code, _ := Encode(sampleLog())
	report := "东方Bingo对战日志\n玩家: Alice vs Bob\n\n\n" + EditMarker + "\n" + CodeLabel + "\n" + Wrap(code, 128)

	out, err := DecodeReport(report)
	if err != nil {
		t.Fatalf("DecodeReport failed: %v", err)
	}
	if len(out.Data.Actions) != 2 {
		t.Errorf("Expected 2 actions, got %d", len(out.Data.Actions))
	}

	if _, err := DecodeReport(code); err != nil {
		t.Errorf("Expected bare code to decode, got %v", err)
	}
}

func deflate(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte(s))
	_ = zw.Close()
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"empty", "", ErrEmptyInput},
		{"only noise", "本局 \n\t", ErrEmptyInput},
		{"bad base64", "abc", ErrMalformed},
		{"not zlib", base64.StdEncoding.EncodeToString([]byte("plain text")), ErrMalformed},
		{"not json", deflate(t, "{nope"), ErrMalformed},
		{"missing version", deflate(t, `{"data":{}}`), ErrMalformed},
		{"missing data", deflate(t, `{"version":"1.0"}`), ErrMalformed},
		{"unknown version", deflate(t, `{"version":"2.0","data":{}}`), ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decode(tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if out != nil {
				t.Error("Expected no partial result on error")
			}
		})
	}
}

func TestDecode_SizeLimit(t *testing.T) {
	padded := `{"version":"1.0","data":{` + strings.Repeat(" ", MaxDecodedBytes) + `}}`
	code := deflate(t, padded)
	if len(code) > MaxDecodedBytes/100 {
		t.Fatalf("Expected a small code, got %d bytes", len(code))
	}

	out, err := Decode(code)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
	if out != nil {
		t.Error("Expected no result for an oversized payload")
	}
}

func TestWrap(t *testing.T) {
	if got := Wrap("abcdefg", 3); got != "abc\ndef\ng" {
		t.Errorf("Expected abc\\ndef\\ng, got %q", got)
	}
	if got := Wrap("abc", 3); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
}
