package triage

import "time"

// AnalysisID identifier type
type AnalysisID string

// Urgency label derived from the analysis text
type Urgency string

const (
	UrgencyUnknown  Urgency = ""
	UrgencyNormal   Urgency = "Normal"
	UrgencyCritical Urgency = "Critical"
)

func (u Urgency) String() string {
	if u == UrgencyUnknown {
		return "Unknown"
	}
	return string(u)
}

// Mode selects the shape of the pipeline
type Mode string

const (
	// ModeDirect runs a single completion call.
	ModeDirect Mode = "direct"
	// ModeAgents runs a research persona followed by a triage persona.
	ModeAgents Mode = "agents"
)

// ParseMode accepts "", "direct" and "agents". Empty falls back to def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch Mode(s) {
	case "":
		return def, nil
	case ModeDirect, ModeAgents:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// AnalysisRequest is the caller-supplied input. Mode and Temperature are
// optional; a nil Temperature selects the configured default.
type AnalysisRequest struct {
	Symptoms    string   `json:"symptoms"`
	Mode        string   `json:"mode,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

// Instruction is one structured request to the model channel
type Instruction struct {
	Persona     string
	Guidelines  string
	Prompt      string
	Temperature float32
}

// StepOutput is the transcript of one pipeline step
type StepOutput struct {
	Step   string `json:"step"`
	Output string `json:"output"`
}

// AnalysisResult is the outcome of one request. Urgency is always Classify(Analysis).
type AnalysisResult struct {
	ID        AnalysisID   `json:"id"`
	Analysis  string       `json:"analysis"`
	Urgency   Urgency      `json:"urgency"`
	Mode      Mode         `json:"mode"`
	Model     string       `json:"model,omitempty"`
	Steps     []StepOutput `json:"steps,omitempty"`
	ReportURL string       `json:"report_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewResult builds a result whose urgency is derived from the analysis text.
func NewResult(id AnalysisID, analysis string, mode Mode, model string, steps []StepOutput, at time.Time) *AnalysisResult {
	return &AnalysisResult{
		ID:        id,
		Analysis:  analysis,
		Urgency:   Classify(analysis),
		Mode:      mode,
		Model:     model,
		Steps:     steps,
		CreatedAt: at,
	}
}
