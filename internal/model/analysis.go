package model

// Entity is a named entity extracted from filing text.
type Entity struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required"` // company, facility, location, regulatory_reference
	Role string `json:"role,omitempty"`           // applicant, intervener, regulator, contractor, ...
}

// Relationship is a subject-predicate-object triple connecting entities.
type Relationship struct {
	Subject   string `json:"subject" validate:"required"`
	Predicate string `json:"predicate" validate:"required"`
	Object    string `json:"object" validate:"required"`
	Context   string `json:"context,omitempty"`
}

// Classification is the document-type classification for a filing.
type Classification struct {
	PrimaryType   string   `json:"primary_type" validate:"required"`
	Tags          []string `json:"tags,omitempty"`
	Confidence    int      `json:"confidence" validate:"gte=0,lte=100"`
	Justification string   `json:"justification,omitempty"`
}

// AnalysisRecord is the structured analysis produced for one filing. A filing
// has at most one live record; re-analysis overwrites.
//
// Summary, entities, relationships, classification, and key facts come from
// the LLM and must pass schema validation before acceptance. The remaining
// fields are invocation metadata recorded by the analysis engine.
type AnalysisRecord struct {
	Summary        string         `json:"summary" validate:"required"`
	Entities       []Entity       `json:"entities" validate:"dive"`
	Relationships  []Relationship `json:"relationships" validate:"dive"`
	Classification Classification `json:"classification"`
	KeyFacts       []string       `json:"key_facts"`

	Model          string     `json:"model,omitempty"`
	PromptVersion  string     `json:"prompt_version,omitempty"`
	ChunkCount     int        `json:"chunk_count"`
	CostUSD        float64    `json:"cost_usd"`
	Usage          TokenUsage `json:"usage"`
	ProcessingSecs float64    `json:"processing_seconds"`
}

// TokenUsage tracks LLM token consumption across one or more invocations.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates usage from another invocation.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
