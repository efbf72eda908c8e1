// Package contract defines the canonical, immutable input record submitted
// to the compliance pipeline: an AI application's interactions plus its
// domain and compliance context.
package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aicertify/aicertify-go/src/apperrors"
)

// ModelInfo describes the AI model under evaluation.
type ModelInfo struct {
	ModelName    string         `json:"model_name" validate:"required"`
	ModelVersion string         `json:"model_version,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Interaction is a single input/output exchange with the AI application.
type Interaction struct {
	InteractionID uuid.UUID      `json:"interaction_id"`
	Timestamp     time.Time      `json:"timestamp"`
	InputText     string         `json:"input_text"`
	OutputText    string         `json:"output_text"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Contract is the immutable input record describing an AI application's
// interactions and domain context submitted for evaluation.
type Contract struct {
	ContractID        uuid.UUID         `json:"contract_id"`
	ApplicationName   string            `json:"application_name" validate:"required"`
	ModelInfo         ModelInfo         `json:"model_info" validate:"required"`
	Interactions      []Interaction     `json:"interactions" validate:"required,min=1"`
	FinalOutput       string            `json:"final_output,omitempty"`
	Context           map[string]any    `json:"context"`
	ComplianceContext map[string]any    `json:"compliance_context"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(domainValidation, Contract{})
	return v
}

// domainValidation enforces the healthcare/finance domain invariants from §3:
// both domains require risk_documentation, and healthcare additionally
// requires patient_data while finance requires customer_data.
func domainValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Contract)
	domain, _ := c.Context["domain"].(string)

	switch domain {
	case "healthcare":
		if _, ok := c.Context["risk_documentation"]; !ok {
			sl.ReportError(c.Context, "Context", "Context", "healthcare_risk_documentation", "")
		}
		if _, ok := c.Context["patient_data"]; !ok {
			sl.ReportError(c.Context, "Context", "Context", "healthcare_patient_data", "")
		}
	case "finance":
		if _, ok := c.Context["risk_documentation"]; !ok {
			sl.ReportError(c.Context, "Context", "Context", "finance_risk_documentation", "")
		}
		if _, ok := c.Context["customer_data"]; !ok {
			sl.ReportError(c.Context, "Context", "Context", "finance_customer_data", "")
		}
	}
}

// New constructs a Contract and validates every invariant from §3, returning
// an *apperrors.ValidationError on the first violation encountered.
func New(applicationName string, modelInfo ModelInfo, interactions []Interaction, opts ...Option) (*Contract, error) {
	c := &Contract{
		ContractID:        uuid.New(),
		ApplicationName:   applicationName,
		ModelInfo:         modelInfo,
		Interactions:      interactions,
		Context:           map[string]any{},
		ComplianceContext: map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Option configures optional Contract fields at construction time.
type Option func(*Contract)

// WithFinalOutput sets the contract's final_output summary.
func WithFinalOutput(finalOutput string) Option {
	return func(c *Contract) { c.FinalOutput = finalOutput }
}

// WithContext sets the contract's domain context map.
func WithContext(context map[string]any) Option {
	return func(c *Contract) { c.Context = context }
}

// WithComplianceContext sets the contract's compliance context map.
func WithComplianceContext(complianceContext map[string]any) Option {
	return func(c *Contract) { c.ComplianceContext = complianceContext }
}

// Validate checks every invariant from §3 and returns an
// *apperrors.ValidationError describing the first violation found.
func (c *Contract) Validate() error {
	if c.ApplicationName == "" {
		return apperrors.NewValidation("application_name", "must not be empty")
	}
	if len(c.Interactions) == 0 {
		return apperrors.NewValidation("interactions", "must be non-empty")
	}
	if err := validate.Struct(c); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return apperrors.NewValidation(ve[0].Namespace(), describeTag(ve[0].Tag()))
		}
		return apperrors.NewValidation("", err.Error())
	}
	return nil
}

func describeTag(tag string) string {
	switch tag {
	case "healthcare_risk_documentation":
		return "healthcare contracts must include context.risk_documentation"
	case "healthcare_patient_data":
		return "healthcare contracts must include context.patient_data"
	case "finance_risk_documentation":
		return "finance contracts must include context.risk_documentation"
	case "finance_customer_data":
		return "finance contracts must include context.customer_data"
	default:
		return fmt.Sprintf("failed validation %q", tag)
	}
}

// Domain returns the contract's declared domain, or "" if unset.
func (c *Contract) Domain() string {
	domain, _ := c.Context["domain"].(string)
	return domain
}

// Get retrieves a value from the contract by key, checking struct-level
// fields first and falling back to Context then ComplianceContext — mirroring
// the dict-like access the original Python contract model offered.
func (c *Contract) Get(key string, fallback any) any {
	switch key {
	case "contract_id":
		return c.ContractID
	case "application_name":
		return c.ApplicationName
	case "model_info":
		return c.ModelInfo
	case "interactions":
		return c.Interactions
	case "final_output":
		return c.FinalOutput
	}
	if v, ok := c.Context[key]; ok {
		return v
	}
	if v, ok := c.ComplianceContext[key]; ok {
		return v
	}
	return fallback
}

// ToJSON serializes the contract to its wire representation (§6).
func (c *Contract) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// FromJSON deserializes a contract from its wire representation, accepting
// any superset of fields: unrecognized top-level keys are preserved by
// re-homing them into Context so round-tripping never silently drops data.
func FromJSON(data []byte) (*Contract, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("contract: decode: %w", err)
	}

	var c Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("contract: decode: %w", err)
	}
	if c.Context == nil {
		c.Context = map[string]any{}
	}
	if c.ComplianceContext == nil {
		c.ComplianceContext = map[string]any{}
	}

	known := map[string]bool{
		"contract_id": true, "application_name": true, "model_info": true,
		"interactions": true, "final_output": true, "context": true,
		"compliance_context": true,
	}
	for key, value := range raw {
		if known[key] {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err == nil {
			c.Context[key] = decoded
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Equal reports whether two contracts are equal under model equality (used
// by the JSON round-trip property in §8): same ContractID, ApplicationName,
// model name and version, and the same interactions (ID, input and output
// text) in the same order. Context, ComplianceContext, FinalOutput,
// interaction metadata and timestamps are not compared.
func (c *Contract) Equal(other *Contract) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.ContractID != other.ContractID || c.ApplicationName != other.ApplicationName {
		return false
	}
	if c.ModelInfo.ModelName != other.ModelInfo.ModelName || c.ModelInfo.ModelVersion != other.ModelInfo.ModelVersion {
		return false
	}
	if len(c.Interactions) != len(other.Interactions) {
		return false
	}
	for i := range c.Interactions {
		a, b := c.Interactions[i], other.Interactions[i]
		if a.InteractionID != b.InteractionID || a.InputText != b.InputText || a.OutputText != b.OutputText {
			return false
		}
	}
	return true
}
