package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

func sampleResult() *analytics.Result {
	return &analytics.Result{
		TimerMetrics: true,
		Players: [2]analytics.PlayerStats{
			{
				Player:           "Alice",
				Side:             bingo.SideA,
				Score:            2,
				CompletedCount:   2,
				StarHistogram:    [5]int{1, 0, 1, 0, 0},
				TotalTime:        12500,
				AvailableTime:    60000,
				RawEfficiency:    80,
				HasRawEfficiency: true,
				Completed: []analytics.Task{
					{SpellIndex: 3, SpellName: "Spell D", Star: 1, Duration: 4000, FinishedAt: 9000},
					{SpellIndex: 7, SpellName: "Spell H", Star: 3, Duration: 8500, FinishedAt: 20000},
				},
			},
			{
				Player:      "Bob",
				Side:        bingo.SideB,
				StolenCount: 1,
				StolenTime:  3000,
				Stolen: []analytics.Task{
					{SpellIndex: 3, SpellName: "Spell D", Star: 1, Duration: 3000, FinishedAt: 9000},
				},
			},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite_PlayerRowsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, PlayerRows("g1", sampleResult()), false))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, "game_id", records[0][0])
	assert.Contains(t, records[0], "raw_efficiency")

	idx := func(name string) int {
		for i, h := range records[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "Alice", records[1][idx("player")])
	assert.Equal(t, "12.50", records[1][idx("total_time_s")])
	assert.Equal(t, "80.00", records[1][idx("raw_efficiency")])
	assert.Equal(t, "", records[2][idx("raw_efficiency")], "missing efficiency should be blank")
	assert.Equal(t, "1", records[1][idx("stars_3")])
}

func TestTaskRows(t *testing.T) {
	rows := TaskRows("g1", sampleResult())
	require.Len(t, rows, 3)
	assert.Equal(t, "completed", rows[0].Outcome)
	assert.Equal(t, 4.0, rows[0].DurationS)
	assert.Equal(t, "stolen", rows[2].Outcome)
	assert.Equal(t, "Bob", rows[2].Player)
}

func TestGameRows(t *testing.T) {
	started := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	rows := GameRows([]*models.GameLog{
		{ID: "g1", PlayerA: "Alice", PlayerB: "Bob", ScoreA: 3, TotalTimeMs: 61500, StartedAt: &started, Source: models.SourceImport},
		{ID: "g2", PlayerA: "Carol", PlayerB: "Dave"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 61.5, rows[0].TotalTimeS)
	assert.Equal(t, "import", rows[0].Source)
	assert.True(t, rows[1].StartedAt.IsZero())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, rows, false))
	records := readCSV(t, buf.Bytes())
	assert.Equal(t, "2025-03-01T20:00:00Z", records[1][8])
	assert.Equal(t, "", records[2][8])
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, errors.Is(Write(&buf, FormatCSV, []GameRow{}, false), ErrNoRows))
	assert.Error(t, Write(&buf, FormatCSV, GameRow{}, false))
	assert.Error(t, Write(&buf, FormatCSV, []int{1}, false))
	assert.Error(t, Write(&buf, Format("xml"), nil, false))
}

func TestExporter_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "players.json")
	e := NewExporter(Options{Format: FormatJSON, FilePath: path, PrettyJSON: true})
	require.NoError(t, e.Export(PlayerRows("g1", sampleResult())))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "\n  "), "expected indented JSON")

	var rows []PlayerRow
	require.NoError(t, json.Unmarshal(content, &rows))
	assert.Equal(t, "Alice", rows[0].Player)
	require.NotNil(t, rows[0].RawEfficiency)
	assert.Nil(t, rows[1].RawEfficiency)

	err = e.Export(PlayerRows("g1", sampleResult()))
	assert.Error(t, err, "expected refusal to overwrite")

	e = NewExporter(Options{Format: FormatJSON, FilePath: path, Overwrite: true})
	assert.NoError(t, e.Export([]string{"replaced"}))
}

func TestExporter_Sealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.csv.enc")
	e := NewExporter(Options{Format: FormatCSV, FilePath: path, Passphrase: "hunter2"})
	require.NoError(t, e.Export(TaskRows("g1", sampleResult())))

	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))

	plain, err := Open(sealed, DefaultSealConfig("hunter2"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plain), "game_id,player,outcome"))
}

func TestGenerateFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 20, 5, 9, 0, time.UTC)
	assert.Equal(t, "games_20250301_200509.csv", GenerateFilename("games", FormatCSV, now))
}
