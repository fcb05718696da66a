package reminder

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChallengeLegacyShapeUpgrades(t *testing.T) {
	t.Parallel()
	legacy := `{"name":"pushups","description":"50 a day","creator":7,"members":[7,8],
		"frequency":"daily","time":"21:30","day":null,"channel_id":100,"thread_id":null,"message":"go"}`
	current := `{"name":"pushups","description":"50 a day","creator":7,"members":[7,8],
		"frequency":"daily","time":"21:30","hour":21,"minute":30,"timezone":"UTC",
		"day":null,"channel_id":100,"thread_id":null,"message":"go"}`

	var fromLegacy, fromCurrent Challenge
	if err := json.Unmarshal([]byte(legacy), &fromLegacy); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if err := json.Unmarshal([]byte(current), &fromCurrent); err != nil {
		t.Fatalf("unmarshal current: %v", err)
	}
	if !fromLegacy.Decoded() {
		t.Fatal("legacy record was not decoded")
	}
	if fromLegacy.Rule != fromCurrent.Rule {
		t.Fatalf("legacy rule %+v != current rule %+v", fromLegacy.Rule, fromCurrent.Rule)
	}
	specLegacy, err := fromLegacy.Rule.CronSpec()
	if err != nil {
		t.Fatalf("legacy CronSpec: %v", err)
	}
	specCurrent, _ := fromCurrent.Rule.CronSpec()
	if specLegacy != specCurrent {
		t.Fatalf("spec %q != %q", specLegacy, specCurrent)
	}

	out, err := json.Marshal(fromLegacy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"hour":21`, `"minute":30`, `"timezone":"UTC"`} {
		if !strings.Contains(string(out), field) {
			t.Errorf("rewritten record %s lacks %s", out, field)
		}
	}
}

func TestLegacyWeeklyWithoutDayDefaultsToMonday(t *testing.T) {
	t.Parallel()
	var c Challenge
	doc := `{"name":"x","frequency":"weekly","time":"08:00","channel_id":1,"members":[1],"creator":1}`
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Rule.Day != "monday" || !c.Rule.Schedulable() {
		t.Fatalf("rule = %+v", c.Rule)
	}
}

func TestStoredTimezoneIsCanonicalized(t *testing.T) {
	t.Parallel()
	var c Challenge
	doc := `{"name":"x","frequency":"daily","time":"9:00 utc","hour":9,"minute":0,"timezone":"utc",
		"channel_id":1,"members":[1],"creator":1}`
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !c.Decoded() || !c.Rule.Schedulable() {
		t.Fatalf("record not scheduled: decoded=%v rule=%+v", c.Decoded(), c.Rule)
	}
	if c.Rule.At.Timezone != "UTC" {
		t.Fatalf("Timezone = %q, want UTC", c.Rule.At.Timezone)
	}
	spec, err := c.Rule.CronSpec()
	if err != nil {
		t.Fatalf("CronSpec: %v", err)
	}
	if !strings.HasPrefix(spec, "CRON_TZ=UTC ") {
		t.Fatalf("spec = %q", spec)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"timezone":"UTC"`, `"time":"9:00 utc"`} {
		if !strings.Contains(string(out), field) {
			t.Errorf("rewritten record %s lacks %s", out, field)
		}
	}
}

func TestUnknownFrequencyIsKeptButNotSchedulable(t *testing.T) {
	t.Parallel()
	var e Event
	doc := `{"name":"x","frequency":"monthly","time":"08:00","hour":8,"minute":0,"timezone":"UTC","channel_id":1,"user_ids":[3]}`
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Rule.Schedulable() {
		t.Fatal("monthly rule must not be schedulable")
	}
	out, _ := json.Marshal(e)
	if !strings.Contains(string(out), `"frequency":"monthly"`) {
		t.Fatalf("frequency lost on rewrite: %s", out)
	}
}

func TestUndecodableScheduleRoundTripsVerbatim(t *testing.T) {
	t.Parallel()
	var e Event
	doc := `{"name":"x","frequency":"daily","time":"quarter past nine","channel_id":1,"user_ids":[3],"message":"m"}`
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Decoded() {
		t.Fatal("expected record to be undecoded")
	}
	out, _ := json.Marshal(e)
	if strings.Contains(string(out), `"hour"`) {
		t.Fatalf("undecoded record gained hour: %s", out)
	}
	if !strings.Contains(string(out), `"time":"quarter past nine"`) {
		t.Fatalf("time lost: %s", out)
	}
}

func TestTargetThreadRoundTrip(t *testing.T) {
	t.Parallel()
	e := Event{Reminder: Reminder{
		Name:     "standup",
		TimeText: "10:00",
		Rule:     Rule{Frequency: FrequencyDaily, At: TimeOfDay{Hour: 10, Timezone: "UTC"}},
		Target:   Target{ChatID: -100123, ThreadID: 42},
		Message:  "standup time",
	}, UserIDs: []int64{1, 2}}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"thread_id":42`) || !strings.Contains(string(b), `"channel_id":-100123`) {
		t.Fatalf("target fields missing: %s", b)
	}
	var back Event
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Target != e.Target || back.Rule != e.Rule {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestParseMentions(t *testing.T) {
	t.Parallel()
	got := ParseMentions([]string{"<@12>", "hello", "<@!34>", "<@12>", "<@abc>", "x<@56>", FormatMention(78)})
	want := []int64{12, 34, 78}
	if len(got) != len(want) {
		t.Fatalf("ParseMentions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseMentions = %v, want %v", got, want)
		}
	}
}
