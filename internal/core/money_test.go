package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"42.50", 4250, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-3", -300, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1e30", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseLenientAmount(t *testing.T) {
	cases := []struct {
		in      string
		out     int64
		wantErr bool
	}{
		{"300", 30000, false},
		{"", 0, false},
		{"lots", 0, false},
		{"12.5", 1250, false},
		{"-1", 0, true},
		{"1e20", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseLenientAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			continue
		}
		if err != nil || got.Cents != tc.out {
			t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
	}
}

func TestAmountOutOfRange(t *testing.T) {
	for _, in := range []string{"1e30", "-1e30", "99999999999999999999"} {
		if _, err := ParseAmount(in); !errors.Is(err, ErrAmountRange) {
			t.Fatalf("%q expected ErrAmountRange, got %v", in, err)
		}
	}
	if _, err := ParseLenientAmount("1e20"); !errors.Is(err, ErrAmountRange) {
		t.Fatalf("lenient 1e20 expected ErrAmountRange, got %v", err)
	}
	if _, err := ParseAmount("abc"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("abc expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 4250}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":42.50}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 100, "b": "19.99"}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.A.Cents != 10000 || in.B.Cents != 1999 {
		t.Fatalf("unexpected decode %+v", in)
	}

	if err := json.Unmarshal([]byte(`{"a": "ten"}`), &in); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 4250: "42.50", -120: "-1.20"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("%d: got %s want %s", cents, got, want)
		}
	}
}
