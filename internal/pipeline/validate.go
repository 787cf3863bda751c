package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/carelane/medcheck/internal/config"
	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/resilience"
	"github.com/carelane/medcheck/pkg/oracle"
)

// Validator orchestrates batch validation against the oracle: it partitions
// records into fixed-size batches, calls the oracle per batch under a
// retry-with-backoff policy, reconciles indexed responses, and folds in the
// duplicate override. All oracle-facing failures become per-record results;
// they never propagate to the caller.
type Validator struct {
	client    oracle.Client
	cfg       config.ValidatorConfig
	oracleCfg config.OracleConfig
	limiter   *rate.Limiter
}

// BatchFailureHook observes each terminally failed batch after its records
// have been converted to failure results. Used to feed the DLQ. A hook is
// scoped to a single ValidateAll call; the Validator itself stays stateless
// so one instance can serve concurrent runs.
type BatchFailureHook func(batch []model.Record, err error)

// NewValidator creates a Validator. The rate limiter is shared across all
// batches of a run so one batch's backoff never starves the others.
func NewValidator(client oracle.Client, vCfg config.ValidatorConfig, oCfg config.OracleConfig) *Validator {
	if vCfg.BatchSize <= 0 {
		vCfg.BatchSize = 10
	}
	if vCfg.MaxAttempts <= 0 {
		vCfg.MaxAttempts = 3
	}
	if vCfg.InitialDelayMS <= 0 {
		vCfg.InitialDelayMS = 1000
	}
	rps := vCfg.RequestsPerSec
	if rps <= 0 {
		rps = 2.0
	}
	return &Validator{
		client:    client,
		cfg:       vCfg,
		oracleCfg: oCfg,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// ValidateAll validates every record and returns one result per input, same
// length and order: results[i] always carries records[i] as OriginalData.
// The only error condition is context cancellation between batches; partial
// results are never returned. onFailure may be nil.
func (v *Validator) ValidateAll(ctx context.Context, records []model.Record, onFailure BatchFailureHook) ([]model.ValidationResult, error) {
	if len(records) == 0 {
		return []model.ValidationResult{}, nil
	}

	duplicates := FindDuplicates(records)
	transformed := TransformAll(records)
	results := make([]model.ValidationResult, len(records))

	concurrency := v.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	batches := 0
	for start := 0; start < len(transformed); start += v.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			// Cooperative cancellation point between batches.
			return nil, eris.Wrap(err, "validator: cancelled")
		}

		end := start + v.cfg.BatchSize
		if end > len(transformed) {
			end = len(transformed)
		}
		batch := transformed[start:end]
		slot := results[start:end]
		batches++

		g.Go(func() error {
			// Batch failures become results, so the group never errors; the
			// group exists for the concurrency limit and ctx propagation.
			v.validateBatch(gCtx, batch, slot, onFailure)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "validator: cancelled")
	}

	// Duplicate override is applied once per result, immediately after
	// assembly, before anything is surfaced.
	for i := range results {
		duplicates.Override(i, records[i], &results[i])
	}

	zap.L().Info("validation complete",
		zap.Int("records", len(records)),
		zap.Int("batches", batches),
	)

	return results, nil
}

// validateBatch runs one batch through the oracle and fills slot with one
// result per batch record. Terminal failures produce taxonomy results for
// the whole batch; other batches are unaffected.
func (v *Validator) validateBatch(ctx context.Context, batch []model.Record, slot []model.ValidationResult, onFailure BatchFailureHook) {
	prompt, err := buildBatchPrompt(batch)
	if err != nil {
		failBatch(batch, slot, resilience.NewOracleError(resilience.KindOracle, err), onFailure)
		return
	}

	req := oracle.MessageRequest{
		Model:     v.oracleCfg.Model,
		MaxTokens: v.oracleCfg.MaxTokens,
		System:    systemPromptFor(batch[0].Type),
		Messages:  []oracle.Message{{Role: "user", Content: prompt}},
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:  v.cfg.MaxAttempts,
		InitialDelay: time.Duration(v.cfg.InitialDelayMS) * time.Millisecond,
		Multiplier:   2.0,
		ShouldRetry:  resilience.IsRateLimited,
		OnRetry:      resilience.RetryLogger("oracle", "validate batch"),
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*oracle.MessageResponse, error) {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return v.client.CreateMessage(ctx, req)
	})
	if err != nil {
		zap.L().Warn("batch validation failed",
			zap.Int("batch_size", len(batch)),
			zap.String("kind", string(resilience.Classify(err))),
			zap.Error(err),
		)
		failBatch(batch, slot, err, onFailure)
		return
	}

	resp.Usage.LogCost(v.oracleCfg.Model, "validate")

	parsed, err := parseBatchResponse(extractText(resp))
	if err != nil {
		zap.L().Warn("batch response unparseable",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		failBatch(batch, slot, resilience.NewOracleError(resilience.KindMalformed, err), onFailure)
		return
	}

	// Reconcile by batch-local index; a missing index synthesizes a fallback
	// so output length always matches input length.
	for i, rec := range batch {
		if r, ok := parsed[i]; ok {
			slot[i] = buildResult(rec, r)
			continue
		}
		slot[i] = model.ValidationResult{
			Code:            rec.Key(),
			Status:          model.StatusInvalid,
			CodingSystem:    rec.Str("coding_system"),
			Issues:          []string{"No result returned for this entry"},
			Recommendations: []string{"Try validating again or check the entry manually"},
			Explanation:     "The validation service did not return a result for this entry.",
			OriginalData:    rec,
		}
	}
}

// failBatch converts a terminal batch error into per-record failure results
// and notifies the failure hook.
func failBatch(batch []model.Record, slot []model.ValidationResult, err error, onFailure BatchFailureHook) {
	fillFailure(batch, slot, err)
	if onFailure != nil {
		onFailure(batch, err)
	}
}

// oracleResult mirrors one element of the oracle's results array.
type oracleResult struct {
	Index           int      `json:"index"`
	Status          string   `json:"status"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Explanation     string   `json:"explanation"`
	ComplianceNotes []string `json:"compliance_notes"`
	DuplicateOf     *string  `json:"duplicateOf"`
}

// parseBatchResponse validates the oracle's structured response. Any
// structural mismatch is a malformed-response error, never a crash.
func parseBatchResponse(text string) (map[int]oracleResult, error) {
	text = cleanJSON(text)

	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, eris.Wrap(err, "validator: parse response")
	}
	if payload.Results == nil {
		return nil, eris.New("validator: response missing results array")
	}

	out := make(map[int]oracleResult, len(payload.Results))
	for _, raw := range payload.Results {
		var r oracleResult
		if err := json.Unmarshal(raw, &r); err != nil {
			// Structural mismatch (e.g. non-numeric index) fails the batch.
			return nil, eris.Wrap(err, "validator: malformed result element")
		}
		out[r.Index] = r
	}
	return out, nil
}

func buildResult(rec model.Record, r oracleResult) model.ValidationResult {
	status := model.Status(strings.ToLower(r.Status))
	issues := r.Issues
	switch status {
	case model.StatusValid, model.StatusWarning, model.StatusInvalid:
	default:
		status = model.StatusWarning
		issues = append(issues, fmt.Sprintf("Unrecognized status %q from validation service", r.Status))
	}

	if issues == nil {
		issues = []string{}
	}
	recs := r.Recommendations
	if recs == nil {
		recs = []string{}
	}

	return model.ValidationResult{
		Code:            rec.Key(),
		Status:          status,
		CodingSystem:    rec.Str("coding_system"),
		Issues:          issues,
		Recommendations: recs,
		Explanation:     r.Explanation,
		ComplianceNotes: r.ComplianceNotes,
		OriginalData:    rec,
	}
}

// failureText maps each taxonomy kind to its user-visible explanation and
// issue line.
var failureText = map[resilience.ErrorKind]struct {
	explanation string
	issue       string
}{
	resilience.KindRateLimited: {
		explanation: "Rate limit reached. Please try again in a few moments.",
		issue:       "Rate limit exceeded - please wait before trying again",
	},
	resilience.KindAuthFailure: {
		explanation: "API authentication failed. Please check your API key configuration.",
		issue:       "API authentication error",
	},
	resilience.KindConnection: {
		explanation: "Unable to connect to the validation service. Please check your network connection.",
		issue:       "Connection error - please check your network connection",
	},
	resilience.KindTimeout: {
		explanation: "The validation request timed out. Please try again.",
		issue:       "Request timeout - please try again",
	},
	resilience.KindMalformed: {
		explanation: "The validation service returned a response that could not be parsed.",
		issue:       "Invalid response format",
	},
}

// fillFailure writes one taxonomy result per batch record. Failure is
// per-batch, not global.
func fillFailure(batch []model.Record, slot []model.ValidationResult, err error) {
	kind := resilience.Classify(err)
	text, ok := failureText[kind]
	if !ok {
		text.explanation = fmt.Sprintf("Validation service error: %v", eris.Cause(err))
		text.issue = fmt.Sprintf("API error: %v", eris.Cause(err))
	}

	for i, rec := range batch {
		slot[i] = model.ValidationResult{
			Code:            rec.Key(),
			Status:          model.StatusInvalid,
			CodingSystem:    rec.Str("coding_system"),
			Issues:          []string{text.issue},
			Recommendations: []string{"Try validating again or check the entry manually"},
			Explanation:     text.explanation,
			OriginalData:    rec,
		}
	}
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *oracle.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
