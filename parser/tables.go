package parser

import "strings"

type tableEvent int

const (
	tableNone tableEvent = iota
	tableOpened
	tableRow
	tableClosed
)

// tableScanner implements the table/row/cell boundary rules shared by the
// house and member attendance parsers:
//   - a table spans <table> .. </table>
//   - a row spans <tr> .. </tr> inside a table
//   - only <td> cells count; header-only rows produce no event
//   - a cell's value is all text inside it, normalized
type tableScanner struct {
	inTable bool
	inRow   bool
	inCell  bool
	cells   []string
	buf     strings.Builder
}

// feed advances the scanner by one token. For tableRow the returned cells
// belong to the caller.
func (ts *tableScanner) feed(tok Token) (tableEvent, []string) {
	switch tok.Kind {
	case OpenTag:
		switch tok.Tag {
		case "table":
			ts.inTable = true
			ts.inRow = false
			ts.inCell = false
			return tableOpened, nil
		case "tr":
			if ts.inTable {
				ts.inRow = true
				ts.cells = nil
			}
		case "td":
			if ts.inRow {
				ts.closeCell()
				ts.inCell = true
				ts.buf.Reset()
			}
		}
	case CloseTag:
		switch tok.Tag {
		case "td":
			if ts.inCell {
				ts.inCell = false
				ts.cells = append(ts.cells, NormalizeText(ts.buf.String()))
			}
		case "tr":
			if ts.inRow {
				ts.inRow = false
				ts.closeCell()
				cells := ts.cells
				ts.cells = nil
				if len(cells) > 0 {
					return tableRow, cells
				}
			}
		case "table":
			if ts.inTable {
				ts.inTable = false
				ts.inRow = false
				ts.inCell = false
				return tableClosed, nil
			}
		}
	case Text:
		if ts.inCell {
			ts.buf.WriteString(tok.Text)
		}
	}
	return tableNone, nil
}

// closeCell flushes a cell left open by markup that omits </td>.
func (ts *tableScanner) closeCell() {
	if ts.inCell {
		ts.inCell = false
		ts.cells = append(ts.cells, NormalizeText(ts.buf.String()))
	}
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
