package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/pkg/oracle"
)

// mockOracle implements oracle.Client with scripted responses.
type mockOracle struct {
	mu       sync.Mutex
	calls    int
	requests []oracle.MessageRequest

	// respond decides each call's outcome. The call counter is 1-based.
	respond func(call int, req oracle.MessageRequest) (*oracle.MessageResponse, error)
}

func (m *mockOracle) CreateMessage(_ context.Context, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.respond(call, req)
}

func (m *mockOracle) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// textResponse wraps raw text in a single-block message response.
func textResponse(text string) *oracle.MessageResponse {
	return &oracle.MessageResponse{
		ID:         "msg-test",
		Content:    []oracle.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      oracle.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// allValidResponse builds a results payload marking n batch entries valid.
func allValidResponse(n int) *oracle.MessageResponse {
	entries := make([]string, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"index":%d,"status":"valid","issues":[],"recommendations":[],"explanation":"ok"}`, i))
	}
	return textResponse(`{"results":[` + strings.Join(entries, ",") + `]}`)
}

// countEntries counts batch entries embedded in a prompt. The response-shape
// example at the end of every prompt carries one extra "index" key.
func countEntries(req oracle.MessageRequest) int {
	if len(req.Messages) == 0 {
		return 0
	}
	return strings.Count(req.Messages[0].Content, `"index"`) - 1
}

// medicalRecords builds minimal medical records from codes.
func medicalRecords(codes ...string) []model.Record {
	records := make([]model.Record, 0, len(codes))
	for _, code := range codes {
		records = append(records, model.NewRecord(model.FileTypeMedical, map[string]any{
			"medical_code": code,
			"description":  "test entry",
		}))
	}
	return records
}
