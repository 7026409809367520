package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spinify/internal/domain"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const usersSheet = "Users"

// Exporter renders the user roster as an xlsx workbook.
type Exporter struct {
	store  domain.Store
	path   string
	logger *zerolog.Logger
}

func NewExporter(store domain.Store, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		path:   path,
		logger: logger,
	}
}

// ExportUsers builds the workbook in memory and returns its bytes
// together with a timestamped file name.
func (e *Exporter) ExportUsers(ctx context.Context) ([]byte, string, error) {
	f, err := e.buildUsersWorkbook(ctx)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("error writing workbook: %v", err)
	}

	fileName := fmt.Sprintf("users_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	return buf.Bytes(), fileName, nil
}

// ExportUsersToFile saves the roster workbook under the exports path.
func (e *Exporter) ExportUsersToFile(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	data, fileName, err := e.ExportUsers(ctx)
	if err != nil {
		return "", err
	}

	filePath := filepath.Join(e.path, fileName)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("users export created")
	return filePath, nil
}

func (e *Exporter) buildUsersWorkbook(ctx context.Context) (*excelize.File, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting users: %v", err)
	}

	groupCounts, err := e.store.GroupCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting group counts: %v", err)
	}

	f := excelize.NewFile()

	index, err := f.NewSheet(usersSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"User ID", "Username", "Plan", "Interval (min)", "Joined",
		"Has Ad", "Session", "Groups", "Last Sent At",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(usersSheet, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(usersSheet, "A1", "I1", headerStyle)

	for i, user := range users {
		row := i + 2
		bound, err := e.store.HasSession(ctx, user.UserID)
		if err != nil {
			e.logger.Warn().Err(err).Int64("user_id", user.UserID).Msg("failed to check session")
		}

		lastSent := ""
		if t, ok := user.LastSentTime(); ok {
			lastSent = t.Format("02.01.2006 15:04")
		}

		_ = f.SetCellValue(usersSheet, fmt.Sprintf("A%d", row), user.UserID)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("B%d", row), user.Username.String)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("C%d", row), user.Plan)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("D%d", row), user.IntervalMinutes)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("E%d", row), boolToYesNo(user.JoinedOK))
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("F%d", row), boolToYesNo(user.HasAd()))
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("G%d", row), boolToYesNo(bound))
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("H%d", row), groupCounts[user.UserID])
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("I%d", row), lastSent)
	}

	_ = f.SetColWidth(usersSheet, "A", "A", 15)
	_ = f.SetColWidth(usersSheet, "B", "B", 20)
	_ = f.SetColWidth(usersSheet, "C", "C", 10)
	_ = f.SetColWidth(usersSheet, "D", "D", 14)
	_ = f.SetColWidth(usersSheet, "E", "G", 10)
	_ = f.SetColWidth(usersSheet, "H", "H", 10)
	_ = f.SetColWidth(usersSheet, "I", "I", 20)

	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

func boolToYesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
