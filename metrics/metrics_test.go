package metrics

import (
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
)

func TestCountersAreConcurrencySafe(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordEvent()
				m.RecordPoll()
			}
			m.RecordReconnect()
		}()
	}
	wg.Wait()

	r := m.GenerateReport()
	if r.EventsReceived != 1000 {
		t.Errorf("EventsReceived = %d, want 1000", r.EventsReceived)
	}
	if r.PollsIssued != 1000 {
		t.Errorf("PollsIssued = %d, want 1000", r.PollsIssued)
	}
	if r.Reconnects != 10 {
		t.Errorf("Reconnects = %d, want 10", r.Reconnects)
	}
}

func TestReportJSONDuration(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent()
	m.RecordStreamFollowed()

	data, err := json.Marshal(m.GenerateReport())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := decoded["duration"].(string); !ok {
		t.Error("duration should be rendered as a string")
	}
	if decoded["operationId"] == "" {
		t.Error("operationId missing from report")
	}
}

func TestReportString(t *testing.T) {
	m := NewMetrics()
	m.RecordEvent()
	m.RecordStreamFollowed()
	m.RecordStreamFailed()

	s := m.GenerateReport().String()
	for _, want := range []string{"1 forwarded", "1 followed", "1 failed", m.OperationID()} {
		if !strings.Contains(s, want) {
			t.Errorf("report string missing %q:\n%s", want, s)
		}
	}
}
