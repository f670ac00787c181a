// Package report renders a recorded game as the plaintext log players
// download after a match: settings, boards, a narrated timeline, per-player
// analysis and the replay code.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/ramonehamilton/spell-bingo/internal/analytics"
	"github.com/ramonehamilton/spell-bingo/internal/bingo"
	"github.com/ramonehamilton/spell-bingo/internal/replay/codec"
)

// CodeLineWidth is the line length the replay code is wrapped at.
const CodeLineWidth = 128

const (
	boardCellWidth = 32
	starCellWidth  = 8
	rowLabelWidth  = 5
)

// Options tunes rendering. The zero value renders times in UTC.
type Options struct {
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Render builds the full report for data, including its replay code.
func Render(data *bingo.GameLogData, opts Options) (string, error) {
	code, err := codec.Encode(data)
	if err != nil {
		return "", err
	}
	res, err := analytics.Analyze(data)
	if err != nil {
		return "", err
	}
	return Format(data, res, code, opts), nil
}

// Format renders data with precomputed analysis and replay code. Identical
// inputs always give identical output.
func Format(data *bingo.GameLogData, res *analytics.Result, code string, opts Options) string {
	w := &writer{}
	writeHeader(w, data, opts)
	writeSettings(w, data)
	writeBoards(w, data)
	writeTimeline(w, data)
	writeAnalysis(w, data, res)

	w.line("\n\n" + codec.EditMarker)
	w.line(codec.CodeLabel + "\n")
	w.line(codec.Wrap(code, CodeLineWidth))
	return w.String()
}

// FileName returns the download name of a report, e.g.
// BingoLog_2025-03-01_2000_Alice_vs_Bob.txt.
func FileName(data *bingo.GameLogData, opts Options) string {
	start := time.UnixMilli(data.GameStartTimestamp).In(opts.location())
	return fmt.Sprintf("BingoLog_%s_%s_vs_%s.txt",
		start.Format("2006-01-02_1504"),
		safeName(data.PlayerName(bingo.SideA)),
		safeName(data.PlayerName(bingo.SideB)))
}

type writer struct {
	lines []string
}

func (w *writer) line(s string) { w.lines = append(w.lines, s) }

func (w *writer) linef(format string, args ...any) { w.line(fmt.Sprintf(format, args...)) }

func (w *writer) String() string { return strings.Join(w.lines, "\n") }

func writeHeader(w *writer, data *bingo.GameLogData, opts Options) {
	start := time.UnixMilli(data.GameStartTimestamp).In(opts.location())
	w.line("东方Bingo对战日志")
	w.linef("对局开始时间: %s", start.Format("2006/1/2 15:04:05"))
	w.linef("玩家: %s vs %s", data.PlayerName(bingo.SideA), data.PlayerName(bingo.SideB))
	w.linef("最终比分: %d - %d", data.FinalScore(bingo.SideA), data.FinalScore(bingo.SideB))
	w.line("---")
}

func writeSettings(w *writer, data *bingo.GameLogData) {
	cfg := data.RoomConfig
	w.line("【游戏设置】")
	mode, ok := bingo.GameTypeName(cfg.Type)
	if !ok {
		mode = "未知"
	}
	w.linef("模式: %s", mode)

	cd := fmt.Sprintf("时长: %d分钟, 倒计时: %d秒, cd： %d秒", cfg.GameTime, cfg.Countdown, cfg.CDTime)
	if cfg.CDModifierA != 0 || cfg.CDModifierB != 0 {
		cd += fmt.Sprintf(" (左侧: %d秒, 右侧: %d秒)", cfg.PlayerCD(bingo.SideA), cfg.PlayerCD(bingo.SideB))
	}
	w.line(cd)

	if data.IsCustomGame {
		w.line("卡池：自定义")
	} else {
		writePool(w, cfg)
	}
	w.line("---")
}

func writePool(w *writer, cfg bingo.RoomConfig) {
	pool, _ := bingo.SpellVersionName(cfg.SpellVersion)
	w.linef("卡池：%s", pool)

	games := append([]string(nil), cfg.Games...)
	sort.Strings(games)
	var titles []string
	for _, code := range games {
		if name, ok := bingo.TitleName(cfg.SpellVersion, code); ok {
			titles = append(titles, name)
		}
	}
	w.linef("作品来源: %s", orDefault(strings.Join(titles, ", "), "未指定"))
	w.linef("符卡难度: %s", orDefault(strings.Join(cfg.Ranks, ", "), "未指定"))
	diff, ok := bingo.DifficultyName(cfg.Difficulty)
	if !ok {
		diff = "未知"
	}
	w.linef("盘面难度: %s", diff)

	if gw := weightList(cfg.GameWeight, cfg.SpellVersion, true); gw != "" {
		w.linef("游戏生成权重设定：%s", gw)
	}
	if cfg.BlindSetting > 1 {
		w.linef("盲盒设定: 模式%d, 揭示等级%d", cfg.BlindSetting-1, cfg.BlindRevealLevel)
	}
	if cfg.IsDualBoard() {
		w.linef("双重盘面: 开启 (转换格: %d, 差异等级: %d)", cfg.PortalCount, cfg.DiffLevel)
	}
	if cfg.UseAI {
		w.linef("AI参数：Lv.%d / Lv.%d 策略等级：%d 选卡温度：%s",
			cfg.AIBasePower, cfg.AIExperience, cfg.AIStrategyLevel, formatFloat(cfg.AITemperature))
		if pref := weightList(cfg.AIPreference, cfg.SpellVersion, false); pref != "" {
			w.linef("AI作品相性：%s", pref)
		}
	}
}

// weightList renders non-zero per-title weights in title-code order.
func weightList(weights map[string]float64, spellVersion int, balancer bool) string {
	codes := make([]string, 0, len(weights))
	for code := range weights {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var sb strings.Builder
	for _, code := range codes {
		v := weights[code]
		if v == 0 {
			continue
		}
		name, ok := bingo.TitleName(spellVersion, code)
		if balancer && code == "weight_balancer" {
			name, ok = "生成波动", true
		}
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s：%s；", name, formatFloat(v))
	}
	return sb.String()
}

func writeBoards(w *writer, data *bingo.GameLogData) {
	var portalsA, portalsB []int
	if data.NormalData != nil {
		portalsA, portalsB = data.NormalData.IsPortalA, data.NormalData.IsPortalB
	}
	writeBoard(w, data.Spells, portalsA, "【盘面A】")
	if data.RoomConfig.IsDualBoard() && len(data.Spells2) == bingo.BoardSize {
		w.line("")
		writeBoard(w, data.Spells2, portalsB, "【盘面B】")
	}
	w.line("---")
}

func writeBoard(w *writer, board bingo.Board, portals []int, title string) {
	w.line(title)
	if len(board) != bingo.BoardSize {
		return
	}
	marker := func(i int) string {
		if i < len(portals) && portals[i] == 1 {
			return " (P)"
		}
		return ""
	}

	for r := 0; r < bingo.BoardWidth; r++ {
		row := padEnd(fmt.Sprintf("%d | ", r+1), rowLabelWidth)
		for c := 0; c < bingo.BoardWidth; c++ {
			i := r*bingo.BoardWidth + c
			row += padEnd(strings.TrimSpace(board[i].Name)+marker(i)+" | ", boardCellWidth)
		}
		w.line(row)
	}

	w.line("【等级分布】")
	for r := 0; r < bingo.BoardWidth; r++ {
		row := padEnd(fmt.Sprintf("%d | ", r+1), rowLabelWidth)
		for c := 0; c < bingo.BoardWidth; c++ {
			i := r*bingo.BoardWidth + c
			row += padEnd(strconv.Itoa(board[i].Star)+marker(i)+" | ", starCellWidth)
		}
		w.line(row)
	}
}

var setStatusNames = map[bingo.CellStatus]string{
	bingo.StatusDisabled:     "禁用",
	bingo.StatusNone:         "置空",
	bingo.StatusASelected:    "左侧玩家选择",
	bingo.StatusBSelected:    "右侧玩家选择",
	bingo.StatusBothSelected: "双方玩家选择",
	bingo.StatusAAttained:    "左侧玩家收取",
	bingo.StatusBAttained:    "右侧玩家收取",
	bingo.StatusBothAttained: "双方玩家收取",
}

func writeTimeline(w *writer, data *bingo.GameLogData) {
	w.line("【游戏进程】")
	cfg := data.RoomConfig
	dual := cfg.IsDualBoard()
	var boards [2]int
	claims := analytics.ClaimDurations(data)

	for i, a := range data.Actions {
		line := "[" + clock(a.Timestamp) + "] "
		idx := data.PlayerIndex(a.PlayerName)
		kind, status, _ := bingo.ParseActionType(a.ActionType)

		switch kind {
		case bingo.ActionPause:
			line += a.PlayerName + " 暂停了游戏。"
		case bingo.ActionResume:
			line += a.PlayerName + " 恢复了游戏。"
		case bingo.ActionSetPrefix:
			name, ok := setStatusNames[status]
			if !ok {
				name = "未知"
			}
			line += fmt.Sprintf("%s 将 \"%s\" 设置为 %s 状态。当前比分：%d-%d。",
				a.PlayerName, a.SpellName, name, a.Score(bingo.SideA), a.Score(bingo.SideB))
		default:
			line += "玩家 " + a.PlayerName + " "
			if dual && idx >= 0 {
				line += "(盘面" + boardName(boards[idx]) + ") "
			}
			loc := ""
			if bingo.ValidIndex(a.SpellIndex) {
				loc = fmt.Sprintf("(%d, %d) ", bingo.Row(a.SpellIndex)+1, bingo.Col(a.SpellIndex)+1)
			}

			switch kind {
			case bingo.ActionSelect:
				line += fmt.Sprintf("选择了符卡 %s\"%s\"。", loc, a.SpellName)
			case bingo.ActionFinish, bingo.ActionContestWin:
				verb := "收取了"
				if kind == bingo.ActionContestWin {
					verb = "抢了"
				}
				line += fmt.Sprintf("%s符卡 %s\"%s\"。", verb, loc, a.SpellName)
				if d, ok := claims[i]; ok {
					if d > 0 {
						line += fmt.Sprintf(" (用时: %s)", seconds(d))
					}
					line += fmt.Sprintf("(比分：%d-%d)", a.Score(bingo.SideA), a.Score(bingo.SideB))
				}
				if dual && idx >= 0 && data.NormalData != nil && flipsBoard(data.NormalData, boards[idx], a.SpellIndex) {
					boards[idx] = 1 - boards[idx]
					line += " (切换至盘面" + boardName(boards[idx]) + ")"
				}
			default:
				line += a.ActionType + "。"
			}
		}
		w.line(line)
	}
	w.line("---")
}

func flipsBoard(n *bingo.NormalData, board, index int) bool {
	portals := n.IsPortalA
	if board == 1 {
		portals = n.IsPortalB
	}
	return bingo.ValidIndex(index) && index < len(portals) && portals[index] == 1
}

func writeAnalysis(w *writer, data *bingo.GameLogData, res *analytics.Result) {
	w.line("【数据分析】")
	if res == nil {
		return
	}
	for _, p := range res.Players {
		w.linef("[玩家: %s]", p.Player)
		for _, t := range p.Completed {
			w.linef("- \"%s\": %s", t.SpellName, seconds(t.Duration))
		}
		for _, t := range p.Stolen {
			w.linef("- \"%s\" (被抢): %s", t.SpellName, seconds(t.Duration))
		}
		if p.UntrackedFinishes > 0 {
			w.linef("(有 %d 次收取操作因无前置选择或不匹配而未计入效率统计)", p.UntrackedFinishes)
		}
		if p.StolenCount > 0 {
			w.linef("(有 %d 张选择的符卡被对手抢走)", p.StolenCount)
		}

		stars := make([]string, len(p.StarHistogram))
		for i, n := range p.StarHistogram {
			stars[i] = strconv.Itoa(n)
		}
		w.linef("总计收取 %d 张符卡，等级分布: [%s]", p.CompletedCount, strings.Join(stars, ","))
		w.linef("总收卡时间: %s (收取: %s, 被抢损失: %s)",
			clock(p.TotalTime+p.StolenTime), clock(p.TotalTime), clock(p.StolenTime))

		if res.TimerMetrics {
			w.linef("纯收卡效率: %s", percent(p.RawEfficiency, p.HasRawEfficiency))
			w.linef("总时间效率: %s", percent(p.WeightedEfficiency, p.HasWeightedEfficiency))
		}
		w.line("")
	}
}

// padEnd pads s with spaces to a visual width of n columns, counting wide
// and fullwidth runes as two columns.
func padEnd(s string, n int) string {
	if pad := n - visualWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func visualWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// clock formats game ms as mm:ss.
func clock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 2, 64) + "s"
}

func percent(v float64, ok bool) string {
	if !ok {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boardName(board int) string {
	if board == 1 {
		return "B"
	}
	return "A"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

func safeName(s string) string {
	return unsafeFileChars.Replace(s)
}
