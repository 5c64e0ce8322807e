package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var studentSheetColumns = []string{
	"Name", "Email", "Roll Number", "Department", "Year", "Contact Number", "Guardian Name", "Guardian Contact",
}

// writeSheet creates a single sheet workbook with a bold header row.
func writeSheet(sheet string, headers []string, rows [][]interface{}) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err = f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func roomReport(rooms []room) (*excelize.File, error) {
	rows := make([][]interface{}, 0, len(rooms))
	for _, r := range rooms {
		status := "Available"
		if !r.Available {
			status = "Full"
		}
		rows = append(rows, []interface{}{r.Number, r.Block, r.Floor, r.Capacity, r.OccupiedCount, status})
	}
	return writeSheet("Rooms", []string{"Number", "Block", "Floor", "Capacity", "Occupied", "Status"}, rows)
}

// attendanceReport resolves markedBy ids through names; unknown ids are
// written as they are.
func attendanceReport(records []attendance, names map[string]string) (*excelize.File, error) {
	rows := make([][]interface{}, 0, len(records))
	for _, a := range records {
		markedBy := ""
		if a.MarkedBy != nil {
			markedBy = *a.MarkedBy
			if name, ok := names[markedBy]; ok {
				markedBy = name
			}
		}
		rows = append(rows, []interface{}{a.Date.String(), a.RollNumber, a.StudentName, a.Status, markedBy})
	}
	return writeSheet("Attendance", []string{"Date", "Roll Number", "Name", "Status", "Marked By"}, rows)
}

type studentRow struct {
	Line    int
	Request createUserRequest
}

// readStudentSheet parses the first sheet of an uploaded workbook. The header
// row is skipped and blank lines are ignored. Rows that cannot be parsed are
// returned as errors next to the good ones.
func readStudentSheet(file io.Reader) ([]studentRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Error closing excel file")
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}

	var parsed []studentRow
	var rowErrs *multierror.Error
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}

		col := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}

		year, err := strconv.Atoi(col(4))
		if err != nil {
			rowErrs = multierror.Append(rowErrs, fmt.Errorf("row %d: year %q is not a number", i+1, col(4)))
			continue
		}

		parsed = append(parsed, studentRow{
			Line: i + 1,
			Request: createUserRequest{
				Name:            col(0),
				Email:           col(1),
				RollNumber:      col(2),
				Department:      col(3),
				Year:            year,
				ContactNumber:   col(5),
				GuardianName:    col(6),
				GuardianContact: col(7),
				Role:            roleStudent,
			},
		})
	}
	return parsed, rowErrs.ErrorOrNil()
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
