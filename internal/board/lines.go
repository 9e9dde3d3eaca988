package board

// trainLines maps Train Tracker route codes to the names riders use
var trainLines = map[string]string{
	"Red":  "Red",
	"Blue": "Blue",
	"Brn":  "Brown",
	"G":    "Green",
	"Org":  "Orange",
	"P":    "Purple",
	"Pexp": "Purple",
	"Pink": "Pink",
	"Y":    "Yellow",
}

// LineName returns the display name for a Train Tracker route code. Unknown
// codes pass through unchanged.
func LineName(route string) string {
	if name, ok := trainLines[route]; ok {
		return name
	}
	return route
}
