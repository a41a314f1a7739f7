package reports

import (
	"fmt"

	"github.com/wellsitefocus/rigup_backend/models"
	"github.com/xuri/excelize/v2"
)

// RenderExcel is a models.ReportRenderer that writes the report lines and
// summary block to an xlsx workbook.
func RenderExcel(report *models.ReportDocument) ([]byte, string, error) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}

	f.SetCellValue(sheetName, "A1", report.Title)

	row := 3
	for _, line := range report.Lines {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(row), line)
		row++
	}

	row++
	f.SetCellValue(sheetName, "A"+fmt.Sprint(row), "Total Parts")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(row), report.TotalParts)
	row++
	f.SetCellValue(sheetName, "A"+fmt.Sprint(row), "Target Range")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(row), report.TargetRange)
	row++
	f.SetCellValue(sheetName, "A"+fmt.Sprint(row), "Pressure Classes")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(row), report.PressureClasses)

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buffer.Bytes(), "xlsx", nil
}
