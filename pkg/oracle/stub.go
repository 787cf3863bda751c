package oracle

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var _ Client = (*StubClient)(nil)

var stubIndexPat = regexp.MustCompile(`"index":\s*(\d+)`)

// StubClient implements Client with canned responses for offline runs. Every
// entry found in the prompt comes back valid so downstream formatting and
// persistence can be exercised without an API key.
type StubClient struct{}

// CreateMessage implements Client.
func (s *StubClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	content := ""
	for _, m := range req.Messages {
		content += m.Content
	}

	// The prompt's response-shape example repeats index 0, so dedupe.
	indexes := stubIndexPat.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(indexes))
	entries := make([]string, 0, len(indexes))
	for _, m := range indexes {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		entries = append(entries, fmt.Sprintf(
			`{"index":%s,"status":"valid","issues":[],"recommendations":[],"explanation":"Offline stub response","compliance_notes":[],"duplicateOf":null}`,
			m[1]))
	}

	responseText := `{"results":[` + strings.Join(entries, ",") + `]}`

	return &MessageResponse{
		ID:         "stub-msg-001",
		Model:      req.Model,
		Content:    []ContentBlock{{Type: "text", Text: responseText}},
		StopReason: "end_turn",
		Usage: TokenUsage{
			InputTokens:  150,
			OutputTokens: 50,
		},
	}, nil
}
