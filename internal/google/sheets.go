package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"spinify/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const rosterSheet = "Roster"

// SheetsService mirrors the user roster to a Google spreadsheet.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	// Создаем JWT конфигурацию
	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rosterSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

func rosterRowValues(user *models.User, groupCount int64) []interface{} {
	lastSent := ""
	if t, ok := user.LastSentTime(); ok {
		lastSent = t.Format("2006-01-02 15:04:05")
	}

	return []interface{}{
		user.UserID,
		user.Username.String,
		user.Plan,
		user.IntervalMinutes,
		user.JoinedOK,
		user.HasAd(),
		groupCount,
		lastSent,
	}
}

// UpdateRosterSheet полностью перезаписывает лист с пользователями
func (s *SheetsService) UpdateRosterSheet(ctx context.Context, users []*models.User, groupCounts map[int64]int64) error {
	var values [][]interface{}

	headers := []interface{}{"User ID", "Username", "Plan", "Interval (min)", "Joined", "Has Ad", "Groups", "Last Sent At"}
	values = append(values, headers)

	for _, user := range users {
		values = append(values, rosterRowValues(user, groupCounts[user.UserID]))
	}

	rangeData := fmt.Sprintf("%s!A1:H%d", rosterSheet, len(values))
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	// Используем Overwrite для полной замены данных
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()

	return err
}
