package domain

import (
	"github.com/go-playground/validator/v10"
)

type ActionType string

const (
	ActionTypeTool ActionType = "tool"
	ActionTypePlan ActionType = "plan"
	ActionTypeAsk  ActionType = "ask"
	ActionTypeStop ActionType = "stop"
)

func ValidActionType(t string) bool {
	switch ActionType(t) {
	case ActionTypeTool, ActionTypePlan, ActionTypeAsk, ActionTypeStop:
		return true
	}
	return false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type ActionDecision struct {
	ActionType ActionType `json:"action_type" mapstructure:"action_type" validate:"required,oneof=tool plan ask stop"`
	ActionName string     `json:"action_name" mapstructure:"action_name"`
	Reasoning  string     `json:"reasoning" mapstructure:"reasoning"`
	Confidence float64    `json:"confidence" mapstructure:"confidence" validate:"gte=0,lte=1"`
}

func (d ActionDecision) Validate() error {
	return validate.Struct(d)
}

type CompletionDecision struct {
	IsComplete     bool     `json:"is_complete" mapstructure:"is_complete"`
	Answer         string   `json:"answer" mapstructure:"answer"`
	Confidence     float64  `json:"confidence" mapstructure:"confidence" validate:"gte=0,lte=1"`
	Reasoning      string   `json:"reasoning" mapstructure:"reasoning"`
	RemainingTasks []string `json:"remaining_tasks" mapstructure:"remaining_tasks"`
}

func (d CompletionDecision) Validate() error {
	return validate.Struct(d)
}

type SynthesizedAnswer struct {
	Answer         string   `json:"answer" mapstructure:"answer" validate:"required"`
	ReasoningSteps []string `json:"reasoning_steps" mapstructure:"reasoning_steps"`
	Confidence     float64  `json:"confidence" mapstructure:"confidence" validate:"gte=0,lte=1"`
}

func (a SynthesizedAnswer) Validate() error {
	return validate.Struct(a)
}
