package importer

import (
	"errors"
	"testing"
)

func TestNormalizeTextBasic(t *testing.T) {
	rows, err := NormalizeText("Date,Description,Amount\n2024-01-01,Coffee,4.50\n2024-01-02,\"Smith, Jones & Co\",100.00\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Values["Description"] != "Coffee" {
		t.Errorf("row 1 description = %q", rows[0].Values["Description"])
	}
	if rows[1].Values["Description"] != "Smith, Jones & Co" {
		t.Errorf("quoted field mangled: %q", rows[1].Values["Description"])
	}
	if rows[0].Line != 1 || rows[1].Line != 2 {
		t.Errorf("line numbers = %d, %d", rows[0].Line, rows[1].Line)
	}
}

func TestNormalizeTextSkipsBlankLines(t *testing.T) {
	rows, err := NormalizeText("Date,Amount\n\n2024-01-01,5.00\n,,\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestNormalizeTextTrimsHeadersAndFields(t *testing.T) {
	rows, err := NormalizeText(" Date , Amount \n 2024-01-01 , 5.00 \n")
	if err != nil {
		t.Fatal(err)
	}
	if v := rows[0].Values["Date"]; v != "2024-01-01" {
		t.Errorf("Date = %q", v)
	}
	if v := rows[0].Values["Amount"]; v != "5.00" {
		t.Errorf("Amount = %q", v)
	}
}

func TestNormalizeTextMalformed(t *testing.T) {
	for _, in := range []string{"", "Date,Amount\n", "\n\n"} {
		if _, err := NormalizeText(in); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("NormalizeText(%q) err = %v, want ErrMalformedInput", in, err)
		}
	}
}

func TestRowFirstAliasOrder(t *testing.T) {
	r := Row{Values: map[string]string{"Transaction Date": "2024-05-05", "Date": ""}}
	if got := r.First("Date", "Transaction Date"); got != "2024-05-05" {
		t.Errorf("First skipped empty alias wrongly: %q", got)
	}
	if got := r.First("Posted Date"); got != "" {
		t.Errorf("First on absent alias = %q", got)
	}
}

func TestNormalizeRecordsShortRows(t *testing.T) {
	rows, err := NormalizeRecords([][]string{
		{"Date", "Description", "Amount"},
		{"2024-01-01", "Coffee"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := rows[0].Values["Amount"]; !ok || v != "" {
		t.Errorf("missing trailing cell should be empty string, got %q (present=%v)", v, ok)
	}
}
