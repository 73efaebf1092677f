package reports

import (
	"encoding/json"
	"testing"
)

func TestClampRating(t *testing.T) {
	cases := map[float64]Rating{
		-5:  0,
		0:   0,
		0.5: 1, // round half-up, uniformly
		3.4: 3,
		3.6: 4,
		4.5: 5,
		5:   5,
		9:   5,
	}
	for in, want := range cases {
		if got := ClampRating(in); got != want {
			t.Fatalf("ClampRating(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestRatingDecodeClampsWireValues(t *testing.T) {
	cases := map[string]Rating{
		`{"rating": -5}`:    0,
		`{"rating": 3.6}`:   4,
		`{"rating": 9}`:     5,
		`{"rating": "4"}`:   4,
		`{"rating": "abc"}`: 0,
		`{"rating": null}`:  0,
		`{}`:                0,
	}
	for raw, want := range cases {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if rec.Rating != want {
			t.Fatalf("decode %s: rating %d, want %d", raw, rec.Rating, want)
		}
	}
}

func TestScoreDecodeAcceptsDecimalStrings(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"cvss_score": "7.5"}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.CVSSScore != 7.5 {
		t.Fatalf("score = %v, want 7.5", rec.CVSSScore)
	}
	if err := json.Unmarshal([]byte(`{"cvss_score": 9.1}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.CVSSScore != 9.1 {
		t.Fatalf("score = %v, want 9.1", rec.CVSSScore)
	}
}

func TestStatusKnown(t *testing.T) {
	for _, s := range StatusOrder {
		if !s.Known() {
			t.Fatalf("%s must be known", s)
		}
	}
	if StatusAll.Known() {
		t.Fatalf("the all sentinel is not a record state")
	}
	if Status("open").Known() {
		t.Fatalf("unexpected status accepted")
	}
	if got := StatusInReview.Label(); got != "in review" {
		t.Fatalf("label: %q", got)
	}
}
