package registry

import (
	"github.com/aicertify/aicertify-go/src/evaluators/accuracy"
	"github.com/aicertify/aicertify-go/src/evaluators/biometric"
	"github.com/aicertify/aicertify-go/src/evaluators/contentsafety"
	"github.com/aicertify/aicertify-go/src/evaluators/emotion"
	"github.com/aicertify/aicertify-go/src/evaluators/fairness"
	"github.com/aicertify/aicertify-go/src/evaluators/manipulation"
	"github.com/aicertify/aicertify-go/src/evaluators/modelcard"
	"github.com/aicertify/aicertify-go/src/evaluators/riskmanagement"
	"github.com/aicertify/aicertify-go/src/evaluators/socialscoring"
	"github.com/aicertify/aicertify-go/src/evaluators/vulnerability"
)

// registerBuiltins registers the ten concrete evaluators from spec §4.2,
// each a Factory wrapping its package's New constructor.
func registerBuiltins(r *Registry) {
	builtins := map[string]Factory{
		"fairness":                   fairness.New,
		"content_safety":             contentsafety.New,
		"risk_management":            riskmanagement.New,
		"accuracy":                   accuracy.New,
		"biometric_categorization":   biometric.New,
		"manipulation":               manipulation.New,
		"vulnerability_exploitation": vulnerability.New,
		"social_scoring":             socialscoring.New,
		"emotion_recognition":        emotion.New,
		"model_card":                 modelcard.New,
	}
	for name, factory := range builtins {
		if err := r.Register(name, factory); err != nil {
			panic("registry: builtin evaluator " + name + " failed to register: " + err.Error())
		}
	}
}
