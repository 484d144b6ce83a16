package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("purchase_date", " 2025-03-01 ")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !d.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", d)
	}

	d, err = ParseDate("from", "")
	if err != nil || !d.IsZero() {
		t.Fatalf("empty date = %v, %v; want zero time", d, err)
	}

	_, err = ParseDate("production_date", "01/03/2025")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "production_date") {
		t.Fatalf("message %q should name the field", err.Error())
	}
}
