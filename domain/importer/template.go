package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateHeaders is the column order of the sample import file.
var TemplateHeaders = []string{
	FieldEmail, FieldFirstName, FieldLastName, FieldPassword, FieldRole,
	FieldIsActive, FieldBirthday, FieldAddress, FieldLocale, FieldSex,
}

var templateRows = [][]string{
	{"jane.doe@example.com", "Jane", "Doe", "ChangeMe123!", "user", "true", "1990-04-12", "12 Market Street, Springfield", "en", "female"},
	{"john.smith@example.com", "John", "Smith", "", "manager", "false", "1985-11-30", "", "fr", "male"},
}

// GenerateSampleCSV returns a template that passes validation as-is.
func GenerateSampleCSV() string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(TemplateHeaders)
	_ = w.WriteAll(templateRows)
	return buf.String()
}

const templateSheet = "Users"

// GenerateSampleXLSX renders the same template as a workbook.
func GenerateSampleXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := append([][]string{TemplateHeaders}, templateRows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(templateSheet, 1, 1, style)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
