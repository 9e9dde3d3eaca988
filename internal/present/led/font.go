package led

// font3x5 holds the glyphs the board can draw. Most are three pixels wide;
// M, W and # need five.
var font3x5 = map[rune][5]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'A': {"010", "101", "111", "101", "101"},
	'D': {"110", "101", "101", "101", "110"},
	'E': {"111", "100", "111", "100", "111"},
	'F': {"111", "100", "111", "100", "100"},
	'H': {"101", "101", "111", "101", "101"},
	'I': {"111", "010", "010", "010", "111"},
	'M': {"10001", "11011", "10101", "10001", "10001"},
	'N': {"101", "111", "111", "101", "101"},
	'O': {"010", "101", "101", "101", "010"},
	'R': {"110", "101", "110", "101", "101"},
	'S': {"111", "100", "111", "001", "111"},
	'T': {"111", "010", "010", "010", "010"},
	'U': {"101", "101", "101", "101", "111"},
	'W': {"10001", "10001", "10101", "11011", "10001"},
	'#': {"01010", "11111", "01010", "11111", "01010"},
	'/': {"001", "010", "010", "010", "100"},
	':': {"0", "1", "0", "1", "0"},
	'-': {"000", "000", "111", "000", "000"},
	'.': {"0", "0", "0", "0", "1"},
	' ': {"0", "0", "0", "0", "0"},
}

// GlyphHeight is the pixel height of every glyph
const GlyphHeight = 5

// TextWidth returns the pixels DrawText advances for text, including the
// one-pixel gap after each glyph. Unknown runes take no space.
func TextWidth(text string) int {
	w := 0
	for _, r := range text {
		if g, ok := font3x5[r]; ok {
			w += len(g[0]) + 1
		}
	}
	return w
}
