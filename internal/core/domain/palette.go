package domain

// DefaultColor is used when a habit is created without a colour.
const DefaultColor = "#4F7CAC"

// Palette holds the suggested habit colours.
var Palette = []string{
	"#FF6B6B", "#FFA94D", "#FFD43B", "#69DB7C",
	"#38D9A9", "#4DABF7", "#748FFC", "#B197FC",
	"#F783AC", "#FF8787", "#FCC419", "#63E6BE",
}

// PaletteColor picks a palette entry, wrapping around.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}
