package oracle

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubClient_EchoesEveryIndex(t *testing.T) {
	prompt := `Analyze these entries:
[
  {"index": 0, "record": {"code": "A01.1"}},
  {"index": 1, "record": {"code": "B02.2"}},
  {"index": 2, "record": {"code": "C03.3"}}
]
Return JSON of this shape:
{"results": [{"index": 0, "status": "valid"}]}`

	stub := &StubClient{}
	resp, err := stub.CreateMessage(context.Background(), MessageRequest{
		Model:    "test-model",
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)

	var parsed struct {
		Results []struct {
			Index  int    `json:"index"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Content[0].Text), &parsed))

	// The shape example repeats index 0; it must not produce a fourth entry.
	require.Len(t, parsed.Results, 3)
	for i, r := range parsed.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "valid", r.Status)
	}
}

func TestStubClient_EmptyPrompt(t *testing.T) {
	stub := &StubClient{}
	resp, err := stub.CreateMessage(context.Background(), MessageRequest{})
	require.NoError(t, err)

	assert.Equal(t, `{"results":[]}`, resp.Content[0].Text)
	assert.Equal(t, "stub-msg-001", resp.ID)
}
