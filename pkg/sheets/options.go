package sheets

// Value render options accepted by the values API.
const (
	RenderFormatted   = "FORMATTED_VALUE"
	RenderUnformatted = "UNFORMATTED_VALUE"
	RenderFormula     = "FORMULA"
)

const insertRows = "INSERT_ROWS"

func ValidRenderOption(s string) bool {
	switch s {
	case RenderFormatted, RenderUnformatted, RenderFormula:
		return true
	}
	return false
}
