package reporting

import (
	"bytes"
	"testing"
)

func TestWriteSummaryCSV(t *testing.T) {
	k := KPIs{Income: dec("2000"), Expense: dec("-1150.5"), Net: dec("849.5")}
	breakdown := []CategoryTotal{
		{Category: "Food", Total: dec("250.5")},
		{Category: "Rent", Total: dec("900")},
	}

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, "Household", k, breakdown); err != nil {
		t.Fatal(err)
	}

	want := "Budget,Household\r\n" +
		"Income,2000.00\r\n" +
		"Expense,-1150.50\r\n" +
		"Net,849.50\r\n" +
		"\r\n" +
		"Category,Total Expense\r\n" +
		"Food,250.50\r\n" +
		"Rent,900.00\r\n"
	if buf.String() != want {
		t.Fatalf("csv mismatch:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriteSummaryCSV_EmptyBreakdownAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	k := KPIs{Income: dec("0"), Expense: dec("0"), Net: dec("0")}
	if err := WriteSummaryCSV(&buf, `Home, "main"`, k, nil); err != nil {
		t.Fatal(err)
	}
	want := "Budget,\"Home, \"\"main\"\"\"\r\n" +
		"Income,0.00\r\n" +
		"Expense,0.00\r\n" +
		"Net,0.00\r\n" +
		"\r\n" +
		"Category,Total Expense\r\n"
	if buf.String() != want {
		t.Fatalf("csv mismatch:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestSummaryFilename(t *testing.T) {
	if got := SummaryFilename(12); got != "budget_12_summary.csv" {
		t.Fatalf("SummaryFilename = %q", got)
	}
}
