package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/carlo/audit-trail/internal/config"
)

// TestAPI_LoginThenRecordAndList is an integration test: it builds the full
// router with a sqlmock-backed DB, logs in to get a JWT, records an entry,
// then lists the subject's entries with the token.
func TestAPI_LoginThenRecordAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// POST /entries: one INSERT returning the assigned id
	mock.ExpectQuery(`INSERT INTO audit_entries`).
		WithArgs("ticket", "42", "create", []byte(`{"status":"open"}`), "integration", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	// GET /subjects/ticket/42/entries
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, subject_type, subject_id, action, payload`).
		WithArgs("ticket", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_type", "subject_id", "action", "payload", "actor_label", "trace_id", "created_at"}).
			AddRow(1, "ticket", "42", "create", []byte(`{"status":"open"}`), "integration", "t-1", now))

	cfg := config.Config{
		APIToken:  "test-api-token",
		JWTSecret: "test-secret-for-integration",
	}
	r := newRouter(db, cfg)
	srv := httptest.NewServer(r)
	defer srv.Close()

	// 1) Login
	loginBody, _ := json.Marshal(map[string]string{"actor": "integration", "api_token": "test-api-token"})
	loginResp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200", loginResp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(loginResp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Token == "" {
		t.Fatal("login returned empty token")
	}

	// 2) Record an entry
	recordBody := []byte(`{"subject_type":"ticket","subject_id":"42","action":"create","payload":{"status":"open"}}`)
	req, _ := http.NewRequest("POST", srv.URL+"/entries", bytes.NewReader(recordBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	recordResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("record request: %v", err)
	}
	defer recordResp.Body.Close()
	if recordResp.StatusCode != http.StatusCreated {
		t.Fatalf("record status: got %d, want 201", recordResp.StatusCode)
	}

	// 3) List the subject's entries
	req, _ = http.NewRequest("GET", srv.URL+"/subjects/ticket/42/entries", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("list status: got %d, want 200", listResp.StatusCode)
	}
	var entries []struct {
		ID     int64  `json:"id"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 1 || entries[0].Action != "create" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// TestAPI_EntriesRequireToken verifies the audit routes reject missing tokens.
func TestAPI_EntriesRequireToken(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	r := newRouter(db, config.Config{APIToken: "t", JWTSecret: "s"})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/subjects/ticket/42/entries")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", resp.StatusCode)
	}
}
