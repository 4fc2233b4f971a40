package service

import (
	"fmt"

	"contract-intel/storage/postgres"
	"contract-intel/vars"

	"github.com/xuri/excelize/v2"
)

const (
	sheetClauses = "Clauses"
	sheetRisks   = "Risks"
	sheetAlerts  = "Alerts"
)

// buildWorkbook 每份合同一个 xlsx：条款、风险、提醒各一张表
func buildWorkbook(c *postgres.Contract) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetClauses); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetRisks, sheetAlerts} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	clauseRows := make([][]any, 0, len(c.Clauses))
	for _, cl := range c.Clauses {
		clauseRows = append(clauseRows, []any{cl.Category, cl.Text})
	}
	riskRows := make([][]any, 0, len(c.Risks))
	for _, r := range c.Risks {
		riskRows = append(riskRows, []any{r.Category, r.Level, r.Description, r.Recommendation})
	}
	alertRows := make([][]any, 0, len(c.Alerts))
	for _, a := range c.Alerts {
		alertRows = append(alertRows, []any{a.Type, a.DueDate.Format(vars.DateLayout), a.Status})
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{sheetClauses, []string{"Category", "Text"}, clauseRows},
		{sheetRisks, []string{"Category", "Level", "Description", "Recommendation"}, riskRows},
		{sheetAlerts, []string{"Type", "Due Date", "Status"}, alertRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.headers, s.rows); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	_ = f.SetColWidth(sheetClauses, "A", "A", 22)
	_ = f.SetColWidth(sheetClauses, "B", "B", 80)
	_ = f.SetColWidth(sheetRisks, "A", "B", 16)
	_ = f.SetColWidth(sheetRisks, "C", "D", 60)
	_ = f.SetColWidth(sheetAlerts, "A", "C", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
