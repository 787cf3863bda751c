package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/carelane/medcheck/internal/config"
	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/resilience"
	"github.com/carelane/medcheck/pkg/oracle"
)

func fastValidatorConfig() config.ValidatorConfig {
	return config.ValidatorConfig{
		BatchSize:      10,
		MaxAttempts:    3,
		InitialDelayMS: 1,
		RequestsPerSec: 10000,
	}
}

func TestValidateAll_LengthOrderIdentity(t *testing.T) {
	codes := make([]string, 12)
	for i := range codes {
		codes[i] = fmt.Sprintf("A%02d.1", i)
	}
	records := medicalRecords(codes...)

	mock := &mockOracle{
		respond: func(_ int, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return allValidResponse(countEntries(req)), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{Model: "test-model", MaxTokens: 4096})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, mock.callCount(), "12 records at batch size 10 should take 2 calls")
	require.Len(t, results, len(records))
	for i, r := range results {
		assert.Equal(t, codes[i], r.Code, "result %d must carry its input's code", i)
		assert.Equal(t, codes[i], records[i].Key())
		assert.Equal(t, records[i].Key(), r.OriginalData.Key())
	}
}

func TestValidateAll_EmptyInput(t *testing.T) {
	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			t.Fatal("oracle must not be called for empty input")
			return nil, nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, mock.callCount())
}

func TestValidateAll_DuplicatesMarked(t *testing.T) {
	records := medicalRecords("A01.1", "B02.2", "A01.1", "C03.3", "A01.1")

	mock := &mockOracle{
		respond: func(_ int, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return allValidResponse(countEntries(req)), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Empty(t, results[0].DuplicateOf, "first occurrence is not a duplicate")
	assert.Equal(t, model.StatusValid, results[0].Status)

	for _, i := range []int{2, 4} {
		assert.Equal(t, "A01.1", results[i].DuplicateOf, "result %d", i)
		assert.Equal(t, model.StatusWarning, results[i].Status,
			"valid duplicate must be downgraded to warning")
	}
	assert.Empty(t, results[1].DuplicateOf)
	assert.Empty(t, results[3].DuplicateOf)
}

func TestValidateAll_DuplicateKeepsInvalidStatus(t *testing.T) {
	records := medicalRecords("A01.1", "A01.1")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return textResponse(`{"results":[
				{"index":0,"status":"invalid","issues":["bad code"],"recommendations":[],"explanation":""},
				{"index":1,"status":"invalid","issues":["bad code"],"recommendations":[],"explanation":""}
			]}`), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)

	assert.Equal(t, "A01.1", results[1].DuplicateOf)
	assert.Equal(t, model.StatusInvalid, results[1].Status,
		"duplicate marking must not upgrade an invalid result")
}

func TestValidateAll_RetriesRateLimitThenSucceeds(t *testing.T) {
	records := medicalRecords("A01.1", "B02.2")

	mock := &mockOracle{
		respond: func(call int, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
			if call == 1 {
				return nil, resilience.NewOracleError(resilience.KindRateLimited, errors.New("429"))
			}
			return allValidResponse(countEntries(req)), nil
		},
	}

	cfg := fastValidatorConfig()
	cfg.InitialDelayMS = 50
	v := NewValidator(mock, cfg, config.OracleConfig{})

	start := time.Now()
	results, err := v.ValidateAll(context.Background(), records, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 2, mock.callCount(), "one retry after the rate limit")
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond, "retry must wait the initial delay")
	for _, r := range results {
		assert.Equal(t, model.StatusValid, r.Status)
	}
}

func TestValidateAll_RateLimitExhaustsRetries(t *testing.T) {
	records := medicalRecords("A01.1")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return nil, resilience.NewOracleError(resilience.KindRateLimited, errors.New("429"))
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err, "batch failure must not become a pipeline error")

	assert.Equal(t, 3, mock.callCount(), "three attempts total")
	require.Len(t, results, 1)
	assert.Equal(t, model.StatusInvalid, results[0].Status)
	assert.Contains(t, results[0].Explanation, "Rate limit reached")
}

func TestValidateAll_AuthFailureNotRetried(t *testing.T) {
	records := medicalRecords("A01.1")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return nil, resilience.NewOracleError(resilience.KindAuthFailure, errors.New("401"))
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.callCount(), "auth failures are terminal")
	assert.Equal(t, model.StatusInvalid, results[0].Status)
	assert.Contains(t, results[0].Explanation, "authentication failed")
}

func TestValidateAll_BatchFailureIsolated(t *testing.T) {
	codes := make([]string, 25)
	for i := range codes {
		codes[i] = fmt.Sprintf("A%02d.1", i)
	}
	records := medicalRecords(codes...)

	mock := &mockOracle{
		respond: func(call int, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
			if call == 2 {
				return nil, resilience.NewOracleError(resilience.KindTimeout, errors.New("deadline"))
			}
			return allValidResponse(countEntries(req)), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)
	require.Len(t, results, 25)

	for i, r := range results {
		if i >= 10 && i < 20 {
			assert.Equal(t, model.StatusInvalid, r.Status, "record %d in the failed batch", i)
			assert.Contains(t, r.Issues[0], "timeout")
		} else {
			assert.Equal(t, model.StatusValid, r.Status, "record %d outside the failed batch", i)
		}
		assert.Equal(t, codes[i], r.Code)
	}
}

func TestValidateAll_MalformedResponseFailsBatch(t *testing.T) {
	records := medicalRecords("A01.1", "B02.2")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return textResponse("I could not process this request."), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, model.StatusInvalid, r.Status)
		assert.Contains(t, r.Issues, "Invalid response format")
	}
}

func TestValidateAll_MissingIndexSynthesized(t *testing.T) {
	records := medicalRecords("A01.1", "B02.2", "C03.3")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return textResponse(`{"results":[
				{"index":0,"status":"valid","issues":[],"recommendations":[],"explanation":"ok"},
				{"index":2,"status":"valid","issues":[],"recommendations":[],"explanation":"ok"}
			]}`), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, model.StatusValid, results[0].Status)
	assert.Equal(t, model.StatusValid, results[2].Status)
	assert.Equal(t, model.StatusInvalid, results[1].Status)
	assert.Contains(t, results[1].Issues, "No result returned for this entry")
	assert.Equal(t, "B02.2", results[1].Code)
}

func TestValidateAll_UnknownStatusBecomesWarning(t *testing.T) {
	records := medicalRecords("A01.1")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return textResponse(`{"results":[
				{"index":0,"status":"uncertain","issues":[],"recommendations":[],"explanation":"hmm"}
			]}`), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(context.Background(), records, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusWarning, results[0].Status)
	assert.Contains(t, results[0].Issues[0], "Unrecognized status")
}

func TestValidateAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &mockOracle{
		respond: func(_ int, req oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return allValidResponse(countEntries(req)), nil
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	results, err := v.ValidateAll(ctx, medicalRecords("A01.1"), nil)
	require.Error(t, err)
	assert.Nil(t, results, "no partial results on cancellation")
}

func TestValidateAll_FailureHookReceivesBatch(t *testing.T) {
	records := medicalRecords("A01.1", "B02.2")

	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return nil, resilience.NewOracleError(resilience.KindAuthFailure, errors.New("401"))
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	var hookBatches [][]model.Record
	var hookErr error
	_, err := v.ValidateAll(context.Background(), records, func(batch []model.Record, err error) {
		hookBatches = append(hookBatches, batch)
		hookErr = err
	})
	require.NoError(t, err)

	require.Len(t, hookBatches, 1)
	assert.Len(t, hookBatches[0], 2)
	assert.Equal(t, resilience.KindAuthFailure, resilience.Classify(hookErr))
}

func TestValidateAll_ConcurrentCallsKeepHooksSeparate(t *testing.T) {
	mock := &mockOracle{
		respond: func(_ int, _ oracle.MessageRequest) (*oracle.MessageResponse, error) {
			return nil, resilience.NewOracleError(resilience.KindTimeout, errors.New("deadline"))
		},
	}
	v := NewValidator(mock, fastValidatorConfig(), config.OracleConfig{})

	// One shared Validator, two in-flight calls with their own hooks. Each
	// hook must see only its own call's failed batches.
	codes := []struct {
		name  string
		codes []string
	}{
		{"run-a", []string{"A01.1", "A02.2"}},
		{"run-b", []string{"B01.1", "B02.2", "B03.3"}},
	}

	type capture struct {
		mu      sync.Mutex
		batches [][]model.Record
	}
	captures := make([]*capture, len(codes))

	g, ctx := errgroup.WithContext(context.Background())
	for i, c := range codes {
		got := &capture{}
		captures[i] = got
		records := medicalRecords(c.codes...)
		g.Go(func() error {
			_, err := v.ValidateAll(ctx, records, func(batch []model.Record, err error) {
				got.mu.Lock()
				got.batches = append(got.batches, batch)
				got.mu.Unlock()
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, c := range codes {
		require.Len(t, captures[i].batches, 1, "%s should fail exactly one batch", c.name)
		batch := captures[i].batches[0]
		require.Len(t, batch, len(c.codes))
		for j, rec := range batch {
			assert.Equal(t, c.codes[j], rec.Key(), "%s hook must only see its own records", c.name)
		}
	}
}

func TestParseBatchResponse_FencedJSON(t *testing.T) {
	text := "```json\n{\"results\":[{\"index\":0,\"status\":\"valid\",\"issues\":[],\"recommendations\":[],\"explanation\":\"ok\"}]}\n```"

	parsed, err := parseBatchResponse(text)
	require.NoError(t, err)
	require.Contains(t, parsed, 0)
	assert.Equal(t, "valid", parsed[0].Status)
}

func TestParseBatchResponse_MissingResultsArray(t *testing.T) {
	_, err := parseBatchResponse(`{"status":"ok"}`)
	assert.Error(t, err)
}

func TestParseBatchResponse_NotJSON(t *testing.T) {
	_, err := parseBatchResponse("sorry, I can't help with that")
	assert.Error(t, err)
}
