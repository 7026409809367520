package google

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"spinify/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &SheetsService{
		service:       srv,
		spreadsheetID: "roster_tid",
	}
	return mux, server, s
}

func TestRosterRowValues(t *testing.T) {
	user := &models.User{
		UserID:          123,
		Username:        sql.NullString{String: "alice", Valid: true},
		AdMessage:       sql.NullString{String: "buy stuff", Valid: true},
		IntervalMinutes: 45,
		JoinedOK:        true,
		LastSentAt:      sql.NullString{String: "2024-12-25T10:30:00Z", Valid: true},
		Plan:            models.PlanPremium,
	}

	values := rosterRowValues(user, 7)

	expected := []interface{}{
		int64(123),
		"alice",
		"premium",
		45,
		true,
		true,
		int64(7),
		"2024-12-25 10:30:00",
	}

	if !reflect.DeepEqual(values, expected) {
		t.Errorf("rosterRowValues mismatch:\ngot:  %v\nwant: %v", values, expected)
	}
}

func TestRosterRowValuesEmptyUser(t *testing.T) {
	user := &models.User{UserID: 1, IntervalMinutes: 60, Plan: models.PlanFree}

	values := rosterRowValues(user, 0)

	if values[7] != "" {
		t.Errorf("Expected empty last sent for NULL column, got %v", values[7])
	}
	if values[5] != false {
		t.Errorf("Expected has-ad false, got %v", values[5])
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/roster_tid/values/Roster!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"test"}}})
	})
	err := s.TestConnection(ctx)
	if err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_UpdateRosterSheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/roster_tid/values/Roster!A1:H3", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{UpdatedRows: 3})
	})

	users := []*models.User{
		{UserID: 1, Username: sql.NullString{String: "alice", Valid: true}, IntervalMinutes: 60, Plan: models.PlanFree},
		{UserID: 2, Username: sql.NullString{String: "bob", Valid: true}, IntervalMinutes: 30, Plan: models.PlanPremium},
	}
	counts := map[int64]int64{1: 3, 2: 10}

	if err := s.UpdateRosterSheet(ctx, users, counts); err != nil {
		t.Fatalf("UpdateRosterSheet failed: %v", err)
	}

	if len(got.Values) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(got.Values))
	}
	if got.Values[0][0] != "User ID" {
		t.Errorf("Expected header row first, got %v", got.Values[0])
	}
}

func TestGetServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email":"svc@example.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	s := &SheetsService{}
	email, err := s.GetServiceAccountEmail(path)
	if err != nil {
		t.Fatalf("GetServiceAccountEmail failed: %v", err)
	}
	if email != "svc@example.iam.gserviceaccount.com" {
		t.Errorf("Unexpected email: %s", email)
	}
}
