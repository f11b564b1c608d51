package handler

import "testing"

func TestParseISOTime(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-03-05T10:00:00Z", true},
		{"2024-03-05T10:00:00.123Z", true},
		{"2024-03-05T10:00:00+02:00", true},
		{"1000-01-01T00:00:00Z", true},
		{"9999-12-31T23:59:59Z", true},
		{"0999-12-31T23:59:59Z", false},
		{"1000-01-01T00:30:00+01:00", false}, // 0999 in UTC
		{"2024-03-05", false},
		{"yesterday", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := parseISOTime(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("parseISOTime(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
	}
}

func TestWorkoutBoundsValidation(t *testing.T) {
	v := NewValidator()
	big := 2147483648
	one := 1
	zero := 0.0
	id := int64(1)
	req := createWorkoutReq{ExerciseID: &id, Date: "2024-03-05T10:00:00Z", Sets: &big, Reps: &one, Weight: &zero}
	if err := v.Validate(&req); err == nil {
		t.Fatalf("sets beyond INT range accepted")
	}
	maxInt := 2147483647
	req.Sets = &maxInt
	if err := v.Validate(&req); err != nil {
		t.Fatalf("max INT sets rejected: %v", err)
	}
}
