package grid

import "strconv"

// ColumnLetters converts a zero-based column index into its spreadsheet
// label using bijective base-26: 0 -> "A", 25 -> "Z", 26 -> "AA". There is no
// letter for zero, which is what makes 26 become "AA" instead of a
// representation with a leading "A" meaning nothing.
func ColumnLetters(col int) string {
	letters := ""
	col++
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}

// CellID builds the identifier of the cell at the given zero-based column
// and row. Rows are 1-based in the identifier, so (0, 0) becomes "A1". The
// mapping is injective, no two (col, row) pairs share an identifier.
func CellID(col int, row int) string {
	return ColumnLetters(col) + strconv.Itoa(row+1)
}
