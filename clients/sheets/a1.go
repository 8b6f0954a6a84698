package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetters converts a zero-based column index to A1 letters (0 -> A, 26 -> AA)
func ColumnLetters(index int) string {
	if index < 0 {
		return ""
	}
	var letters []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return string(letters)
}

// QuoteSheetName quotes a tab name for use in an A1 range
func QuoteSheetName(sheetName string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
}

// CellRange addresses one cell; rowNumber is one-based as in the sheet UI
func CellRange(sheetName string, columnIndex, rowNumber int) string {
	return fmt.Sprintf("%s!%s%d", QuoteSheetName(sheetName), ColumnLetters(columnIndex), rowNumber)
}
