package domain

// ContextDelimiter separates retrieved chunks inside the prompt context.
const ContextDelimiter = "\n\n---\n\n"

// PromptTemplates is the versioned grounding configuration.
// Grounding is a text/template whose only slots are {{.Question}} and {{.Context}}.
type PromptTemplates struct {
	Version        string `yaml:"version" json:"version"`
	Grounding      string `yaml:"grounding" json:"grounding"`
	Refusal        string `yaml:"refusal" json:"refusal"`
	NoContextError string `yaml:"no_context_error" json:"no_context_error"`
}

// PromptVars are the variable slots of the grounding template.
type PromptVars struct {
	Question string
	Context  string
}

// PromptDecision is the grounding policy's verdict: either a refusal or a
// prompt ready for generation. Exactly one of Refusal/Prompt is set.
type PromptDecision struct {
	Refuse  bool
	Refusal string // user-facing refusal answer
	Reason  string // error message reported alongside a refusal
	Prompt  string
	Context string
	Version string // template version that produced the decision
}
