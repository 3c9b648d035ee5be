package ipc

import "testing"

func TestParseEvent(t *testing.T) {
	cases := []struct {
		line string
		want Event
	}{
		{"down>>chart,move", Event{Kind: EventDown, Target: "chart", Mode: ModeMove}},
		{"down>>feed,resize", Event{Kind: EventDown, Target: "feed", Mode: ModeResize}},
		{"delta>>12.5,-3", Event{Kind: EventDelta, DX: 12.5, DY: -3}},
		{"up>>", Event{Kind: EventUp}},
		{"up", Event{Kind: EventUp}},
		{"leave>>", Event{Kind: EventLeave}},
	}
	for _, tc := range cases {
		got, err := ParseEvent(tc.line)
		if err != nil {
			t.Fatalf("ParseEvent(%q): unexpected error: %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("ParseEvent(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseEventRejectsMalformedLines(t *testing.T) {
	lines := []string{
		"down>>chart",
		"down>>,move",
		"down>>chart,drag",
		"delta>>12",
		"delta>>a,b",
		"hover>>1,2",
		"",
	}
	for _, line := range lines {
		if _, err := ParseEvent(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}
