// Package engine drives the external policy decision engine, in either
// embedded (local subprocess) or server (HTTP) mode, normalizing its raw
// output into a uniform PolicyResult shape.
package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/xeipuuv/gojsonschema"

	"github.com/aicertify/aicertify-go/src/apperrors"
)

// Mode selects how the driver reaches the policy engine.
type Mode string

const (
	// ModeEmbedded invokes a local policy-decision binary via subprocess.
	ModeEmbedded Mode = "embedded"
	// ModeServer POSTs to a long-running policy HTTP endpoint.
	ModeServer Mode = "server"
)

// Environment selects how much detail the engine returns.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// DefaultCallTimeout bounds a single policy engine invocation, per §5's 30s
// per-policy-call default.
const DefaultCallTimeout = 30 * time.Second

// Config configures a Driver.
type Config struct {
	Mode Mode

	// Embedded mode.
	BinaryPath string // defaults to "opa" on PATH.
	PolicyRoot string

	// Server mode.
	ServerURL string
	APIKey    string

	Environment Environment
	CallTimeout time.Duration

	// SkipReachabilityCheck disables the construction-time reachability
	// probe, set via the CI/skip_opa_check environment flags per §4.6.
	SkipReachabilityCheck bool

	// RedisAddr, when set, enables an optional result cache for server-mode
	// calls, keyed by a sha256 hash of query+input.
	RedisAddr string
}

// FromEnv builds a Config from the environment variables documented in §6:
// POLICY_ENGINE_PATH, POLICY_ENGINE_SERVER_URL,
// POLICY_ENGINE_USE_EXTERNAL_SERVER, POLICY_ENGINE_DEBUG, CI.
func FromEnv() Config {
	cfg := Config{
		Mode:        ModeEmbedded,
		BinaryPath:  envOr("POLICY_ENGINE_PATH", "opa"),
		Environment: EnvironmentProduction,
		CallTimeout: DefaultCallTimeout,
	}
	if os.Getenv("POLICY_ENGINE_USE_EXTERNAL_SERVER") == "true" {
		cfg.Mode = ModeServer
		cfg.ServerURL = os.Getenv("POLICY_ENGINE_SERVER_URL")
	}
	if os.Getenv("POLICY_ENGINE_DEBUG") == "true" {
		cfg.Environment = EnvironmentDevelopment
	}
	if os.Getenv("CI") == "true" || os.Getenv("skip_opa_check") == "true" {
		cfg.SkipReachabilityCheck = true
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PolicyResult is the normalized, uniform shape every raw engine payload is
// transformed into.
type PolicyResult struct {
	PolicyName      string         `json:"policy_name"`
	Version         string         `json:"version"`
	OverallResult   bool           `json:"overall_result"`
	Status          string         `json:"status"`
	Details         map[string]any `json:"details"`
	Recommendations []string       `json:"recommendations"`
	Raw             any            `json:"raw"`
}

// Driver evaluates a policy category against input_data, normalizing the
// engine's raw response.
type Driver struct {
	cfg Config

	httpClient *http.Client
	cache      *redis.Client

	reachableOnce sync.Once
	reachable     bool
	reachableErr  error
}

// New builds a Driver from cfg, validating the reachability of the
// configured engine unless cfg.SkipReachabilityCheck is set.
func New(cfg Config) (*Driver, error) {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "opa"
	}
	d := &Driver{cfg: cfg, httpClient: &http.Client{Timeout: cfg.CallTimeout}}
	if cfg.RedisAddr != "" {
		d.cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	if !cfg.SkipReachabilityCheck {
		if err := d.checkReachable(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// checkReachable verifies the engine is reachable, caching the result for
// the lifetime of the Driver.
func (d *Driver) checkReachable() error {
	d.reachableOnce.Do(func() {
		switch d.cfg.Mode {
		case ModeEmbedded:
			_, err := exec.LookPath(d.cfg.BinaryPath)
			d.reachable = err == nil
			d.reachableErr = err
		case ModeServer:
			req, err := http.NewRequest(http.MethodGet, strings.TrimRight(d.cfg.ServerURL, "/")+"/health", nil)
			if err != nil {
				d.reachableErr = err
				return
			}
			resp, err := d.httpClient.Do(req)
			if err != nil {
				d.reachableErr = err
				return
			}
			defer resp.Body.Close()
			d.reachable = resp.StatusCode == http.StatusOK
			if !d.reachable {
				d.reachableErr = fmt.Errorf("policy engine health check returned status %d", resp.StatusCode)
			}
		}
	})
	if !d.reachable {
		return &apperrors.PolicyEngineError{Cause: d.reachableErr}
	}
	return nil
}

// EvaluatePolicyCategory is the driver's main entry point: it invokes the
// engine for queryPath against input, returning the normalized result. A
// normalization or transport failure is reported as an Error-status
// PolicyResult rather than aborting the batch, per §4.6.
func (d *Driver) EvaluatePolicyCategory(ctx context.Context, queryPath string, input map[string]any) *PolicyResult {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	var raw any
	var err error
	switch d.cfg.Mode {
	case ModeEmbedded:
		raw, err = d.evalEmbedded(ctx, queryPath, input)
	case ModeServer:
		raw, err = d.evalServer(ctx, queryPath, input)
	default:
		err = fmt.Errorf("policy engine: unknown mode %q", d.cfg.Mode)
	}
	if err != nil {
		return errorResult(queryPath, err)
	}

	result, err := normalize(queryPath, raw)
	if err != nil {
		return errorResult(queryPath, err)
	}
	return result
}

func errorResult(policyName string, err error) *PolicyResult {
	return &PolicyResult{
		PolicyName:    policyName,
		OverallResult: false,
		Status:        "Error",
		Details:       map[string]any{"message": err.Error()},
		Recommendations: []string{
			"verify the policy engine is reachable and the policy path is correct",
		},
	}
}

// evalEmbedded invokes a local `opa eval` subprocess, grounded in the
// temp-input-file + exec.CommandContext + JSON-stdout-decode pattern used by
// the pack's kustomization policy evaluators.
func (d *Driver) evalEmbedded(ctx context.Context, queryPath string, input map[string]any) (any, error) {
	inputFile, err := os.CreateTemp("", "policy-input-*.json")
	if err != nil {
		return nil, fmt.Errorf("create policy input temp file: %w", err)
	}
	defer os.Remove(inputFile.Name())

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal policy input: %w", err)
	}
	if _, err := inputFile.Write(body); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("write policy input: %w", err)
	}
	if err := inputFile.Close(); err != nil {
		return nil, fmt.Errorf("close policy input: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.cfg.BinaryPath, "eval",
		"-f", "json",
		"-d", d.cfg.PolicyRoot,
		"-i", inputFile.Name(),
		queryPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("opa eval: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(out, &decoded); err != nil {
		return nil, fmt.Errorf("decode opa eval output: %w", err)
	}
	return decoded, nil
}

// evalServer POSTs input to cfg.ServerURL, optionally consulting a redis
// result cache keyed by a sha256 hash of queryPath+input.
func (d *Driver) evalServer(ctx context.Context, queryPath string, input map[string]any) (any, error) {
	body, err := json.Marshal(map[string]any{
		"query":       queryPath,
		"input":       input,
		"environment": d.cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal policy request: %w", err)
	}

	cacheKey := cacheKeyFor(queryPath, body)
	if d.cache != nil {
		if cached, err := d.cache.Get(ctx, cacheKey).Result(); err == nil {
			var decoded any
			if json.Unmarshal([]byte(cached), &decoded) == nil {
				return decoded, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(d.cfg.ServerURL, "/")+"/v1/data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build policy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("policy server request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy server returned status %d", resp.StatusCode)
	}

	respBody := new(bytes.Buffer)
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read policy server response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(respBody.Bytes(), &decoded); err != nil {
		return nil, fmt.Errorf("decode policy server response: %w", err)
	}

	if d.cache != nil {
		d.cache.Set(ctx, cacheKey, respBody.String(), time.Hour)
	}
	return decoded, nil
}

func cacheKeyFor(queryPath string, body []byte) string {
	h := sha256.Sum256(append([]byte(queryPath), body...))
	return "aicertify:policy:" + hex.EncodeToString(h[:])
}

// resultSchema validates a synthesized {allow, reason, recommendations}
// payload before it is accepted as the normalized result's basis.
var resultSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"properties": {
		"allow": {"type": "boolean"},
		"reason": {"type": "string"},
		"recommendations": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["allow"]
}`)

// normalize transforms raw OPA eval output into the uniform PolicyResult
// shape, walking result[0].expressions[0].value.<versions>.<policy> and
// synthesizing a compliance_report when the payload is a flat
// {allow, reason, recommendations} shape.
func normalize(policyName string, raw any) (*PolicyResult, error) {
	value, err := extractValue(raw)
	if err != nil {
		return nil, err
	}

	flat, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("policy engine: unexpected result shape for %q", policyName)
	}

	if report, ok := flat["compliance_report"].(map[string]any); ok {
		return fromComplianceReport(policyName, report, raw)
	}
	return synthesizeFromFlat(policyName, flat, raw)
}

// extractValue walks result[0].expressions[0].value, the standard `opa eval
// -f json` envelope.
func extractValue(raw any) (any, error) {
	top, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("policy engine: result is not an object")
	}
	results, ok := top["result"].([]any)
	if !ok || len(results) == 0 {
		return nil, fmt.Errorf("policy engine: empty result")
	}
	first, ok := results[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("policy engine: malformed result entry")
	}
	expressions, ok := first["expressions"].([]any)
	if !ok || len(expressions) == 0 {
		return nil, fmt.Errorf("policy engine: missing expressions")
	}
	expr, ok := expressions[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("policy engine: malformed expression")
	}
	value, ok := expr["value"]
	if !ok {
		return nil, fmt.Errorf("policy engine: missing value")
	}
	return descendVersionedPath(value), nil
}

// descendVersionedPath descends through any single-key nesting levels (the
// <versions>.<policy> segments of the documented path) until it reaches a
// map that itself looks like a terminal policy payload (contains "allow" or
// "compliance_report"), or has more than one key (ambiguous; returned
// as-is for the caller to reject).
func descendVersionedPath(value any) any {
	for {
		m, ok := value.(map[string]any)
		if !ok {
			return value
		}
		if _, hasAllow := m["allow"]; hasAllow {
			return value
		}
		if _, hasReport := m["compliance_report"]; hasReport {
			return value
		}
		if len(m) != 1 {
			return value
		}
		for _, v := range m {
			value = v
		}
	}
}

func fromComplianceReport(policyName string, report map[string]any, raw any) (*PolicyResult, error) {
	overall, _ := report["overall_result"].(bool)
	message, _ := report["message"].(string)
	recommendations := toStringSlice(report["recommendations"])
	details, _ := report["details"].(map[string]any)
	if details == nil {
		details = map[string]any{"message": message}
	}
	return &PolicyResult{
		PolicyName:      policyName,
		OverallResult:   overall,
		Status:          "Active",
		Details:         details,
		Recommendations: recommendations,
		Raw:             raw,
	}, nil
}

func synthesizeFromFlat(policyName string, flat map[string]any, raw any) (*PolicyResult, error) {
	body, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("marshal flat policy payload: %w", err)
	}
	result, err := gojsonschema.Validate(resultSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate flat policy payload: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("policy engine: payload for %q failed schema validation: %v", policyName, result.Errors())
	}

	allow, _ := flat["allow"].(bool)
	reason, _ := flat["reason"].(string)
	recommendations := toStringSlice(flat["recommendations"])

	return &PolicyResult{
		PolicyName:    policyName,
		OverallResult: allow,
		Status:        "Active",
		Details: map[string]any{
			"message": reason,
		},
		Recommendations: recommendations,
		Raw:             raw,
	}, nil
}

func toStringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
