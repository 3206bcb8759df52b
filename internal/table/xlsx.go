package table

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX parses an in-memory workbook. sheet selects a worksheet by name;
// empty means the first one. The first row of the sheet is the header.
// Date-formatted cells come back as RFC 3339 text so they parse the same way
// as dates typed into a CSV.
func ReadXLSX(data []byte, sheet string) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}

	ws, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(ws.Rows) == 0 {
		return nil, eris.New("xlsx: sheet has no header row")
	}

	header := cellTexts(ws.Rows[0], f.Date1904)
	rows := make([][]string, 0, len(ws.Rows)-1)
	for _, row := range ws.Rows[1:] {
		if row == nil {
			continue
		}
		cells := cellTexts(row, f.Date1904)
		if len(cells) > len(header) {
			cells = cells[:len(header)]
		}
		rows = append(rows, cells)
	}

	return clean(header, rows), nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name == "" {
		if len(f.Sheets) == 0 {
			return nil, eris.New("xlsx: workbook has no sheets")
		}
		return f.Sheets[0], nil
	}
	ws, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}
	return ws, nil
}

func cellTexts(row *xlsx.Row, date1904 bool) []string {
	out := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell.IsTime() {
			if ts, err := cell.GetTime(date1904); err == nil {
				out[j] = ts.Round(time.Second).UTC().Format(time.RFC3339)
				continue
			}
		}
		out[j] = cell.String()
	}
	return out
}
