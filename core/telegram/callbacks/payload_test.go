package callbacks

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"\fdelete_user|42", "delete_user", "42"},
		{`\fdelete_video|7`, "delete_video", "7"},
		{"refresh", "refresh", ""},
		{"\fpair|1|2", "pair", "1|2"},
	}
	for _, c := range cases {
		key, payload := Parse(c.data)
		if key != c.key || payload != c.payload {
			t.Errorf("Parse(%q) = %q, %q", c.data, key, payload)
		}
	}
}

func TestNumericPayloads(t *testing.T) {
	if v, err := Int64(" 12 "); err != nil || v != 12 {
		t.Fatalf("Int64 = %d %v", v, err)
	}
	if _, err := Int64("abc"); err == nil {
		t.Fatal("expected error for non-numeric payload")
	}
}
