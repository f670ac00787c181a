package bingo

// Game types.
const (
	GameTypeStandard = 1
	GameTypeBP       = 2
	GameTypeLink     = 3
)

// SpellVersionWithTimer is the only spell pool whose spells carry reference
// completion times, so efficiency metrics are only computed for it.
const SpellVersionWithTimer = 1

var gameTypeNames = map[int]string{
	GameTypeStandard: "bingo 标准赛",
	GameTypeBP:       "bingo BP赛",
	GameTypeLink:     "bingo link赛",
}

var spellVersionNames = map[int]string{
	1: "S6卡池",
	3: "S5卡池",
	5: "史卡池（你确定吗）",
	6: "小数点",
	8: "二同（游戏自备）",
	7: "缘（th10替换）",
}

var difficultyNames = map[int]string{
	1: "低",
	2: "中",
	3: "高",
	4: "史",
	0: "随机",
}

var mainTitles = map[string]string{
	"6":  "红魔乡",
	"7":  "妖妖梦",
	"8":  "永夜抄",
	"10": "风神录",
	"11": "地灵殿",
	"12": "星莲船",
	"13": "神灵庙",
	"14": "辉针城",
	"15": "绀珠传",
	"16": "天空璋",
	"17": "鬼形兽",
	"18": "虹龙洞",
}

var pointOneTitles = map[string]string{
	"101": "东方文花帖",
	"102": "文花帖DS",
	"103": "弹幕天邪鬼",
	"104": "密封噩梦日记",
	"105": "妖精大战争",
}

var fanGameTitles = map[string]string{
	"1001": "东方雪莲华",
	"1002": "东方祈华梦",
	"1003": "东方栖霞园",
	"1004": "东方夏夜祭",
	"1005": "东方宝天京",
	"1006": "东方潮圣书",
	"1007": "铃集无名之丘",
	"1008": "东方远空界",
	"1009": "东方资志疏",
	"1010": "东方幕华祭春雪",
	"1011": "东方希莲船",
	"1012": "东方桃源宫",
	"1013": "东方实在相（后果自负）",
	"1014": "东方真珠岛",
}

// GameTypeName returns the display name of a game type.
func GameTypeName(t int) (string, bool) {
	name, ok := gameTypeNames[t]
	return name, ok
}

// SpellVersionName returns the display name of a spell pool.
func SpellVersionName(v int) (string, bool) {
	name, ok := spellVersionNames[v]
	return name, ok
}

// DifficultyName returns the display name of a board difficulty.
func DifficultyName(d int) (string, bool) {
	name, ok := difficultyNames[d]
	return name, ok
}

// TitleName returns the source title for a game code within a spell pool.
func TitleName(spellVersion int, code string) (string, bool) {
	titles := mainTitles
	switch spellVersion {
	case 6:
		titles = pointOneTitles
	case 8:
		titles = fanGameTitles
	}
	name, ok := titles[code]
	return name, ok
}
