package export

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

const sheetName = "Wireless"

// EncodeXLSX renders wireless rows as a single-sheet workbook with the
// same header and column order as the CSV export.
func EncodeXLSX(rows []model.OutputRow) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}

	addRow(sheet, model.OutputHeader)
	for _, r := range rows {
		addRow(sheet, r.Fields())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write workbook")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, fields []string) {
	row := sheet.AddRow()
	for _, v := range fields {
		// Phone numbers and zips must stay text.
		row.AddCell().SetString(v)
	}
}
