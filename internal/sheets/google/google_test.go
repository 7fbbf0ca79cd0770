package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budget/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func record(desc, category string) core.ExportRecord {
	return core.ExportRecord{
		Transaction: core.Transaction{
			ID:          9,
			BudgetID:    1,
			Date:        core.NewDate(2024, 1, 15),
			Description: desc,
			Amount:      decimal.RequireFromString("-42.5"),
		},
		BudgetName:   "Home",
		CategoryName: category,
	}
}

func TestLedgerRow(t *testing.T) {
	tests := []struct {
		name string
		rec  core.ExportRecord
		want []any
	}{
		{
			name: "categorized",
			rec:  record("Groceries", "Food"),
			want: []any{"2024-01-15", "Home", "Food", "Groceries", "-42.50"},
		},
		{
			name: "uncategorized",
			rec:  record("Groceries", ""),
			want: []any{"2024-01-15", "Home", "Uncategorized", "Groceries", "-42.50"},
		},
		{
			name: "formula-looking description",
			rec:  record("=HYPERLINK(\"x\")", "Food"),
			want: []any{"2024-01-15", "Home", "Food", "'=HYPERLINK(\"x\")", "-42.50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledgerRow(tt.rec)
			if len(got) != len(Header) {
				t.Fatalf("row has %d cells, header has %d", len(got), len(Header))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("cell %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSanitizeCell(t *testing.T) {
	for in, want := range map[string]string{
		"":       "",
		"Rent":   "Rent",
		"+1 555": "'+1 555",
		"-dash":  "'-dash",
		"@home":  "'@home",
		"a=b":    "a=b",
	} {
		if got := sanitizeCell(in); got != want {
			t.Errorf("sanitizeCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppendRange(t *testing.T) {
	c := NewWithService(nil, "id", "Bob's Ledger")
	if got := c.appendRange(); got != "'Bob''s Ledger'!A:E" {
		t.Errorf("appendRange = %q", got)
	}
	if NewWithService(nil, "id", "").sheetName != "Transactions" {
		t.Error("empty sheet name should default to Transactions")
	}
}

func TestAppendTransaction_AgainstFakeAPI(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody gsheet.ValueRange

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Transactions!A7:E7","updatedRows":1}}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, "sheet-1", "Transactions")

	ref, err := c.AppendTransaction(ctx, record("Groceries", "Food"))
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if ref != "Transactions!A7:E7" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || gotBody.Values[0][4] != "-42.50" {
		t.Errorf("unexpected body %+v", gotBody.Values)
	}
}

func TestAppendTransaction_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range"}}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx, goption.WithEndpoint(srv.URL+"/"), goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, "sheet-1", "Transactions")
	if _, err := c.AppendTransaction(ctx, record("Groceries", "Food")); err == nil {
		t.Fatal("expected an error for a 400 response")
	}
}

func TestNew_MissingConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := New(ctx, Config{}); err == nil || !strings.Contains(err.Error(), "missing spreadsheet ID") {
		t.Errorf("err = %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("err = %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}); err == nil {
		t.Error("expected an error for a missing credentials file")
	}
}
