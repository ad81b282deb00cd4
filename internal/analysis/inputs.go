package analysis

import "strings"

const (
	defaultReportFormat  = "markdown"
	defaultPriorityLevel = "medium"
)

// MissingFieldsError lists required request fields that were empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// Inputs are the crew kickoff inputs for one strategic analysis.
type Inputs struct {
	StrategicQuestion string `json:"strategic_question"`
	ProjectID         string `json:"project_id"`
	ProjectContext    string `json:"project_context"`
	TargetSources     string `json:"target_sources"`
	ReportFormat      string `json:"report_format"`
	ProjectDeadline   string `json:"project_deadline"`
	PriorityLevel     string `json:"priority_level"`
	SessionID         string `json:"session_id,omitempty"`
}

// Normalize trims fields, applies defaults and checks required fields.
func (in *Inputs) Normalize() error {
	in.StrategicQuestion = strings.TrimSpace(in.StrategicQuestion)
	in.ProjectID = strings.TrimSpace(in.ProjectID)

	var missing []string
	if in.StrategicQuestion == "" {
		missing = append(missing, "strategic_question")
	}
	if in.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	if in.ReportFormat == "" {
		in.ReportFormat = defaultReportFormat
	}
	if in.PriorityLevel == "" {
		in.PriorityLevel = defaultPriorityLevel
	}
	return nil
}

// Map renders the inputs as the loosely-typed map the crew runtime expects.
func (in Inputs) Map() map[string]any {
	m := map[string]any{
		"strategic_question": in.StrategicQuestion,
		"project_id":         in.ProjectID,
		"project_context":    in.ProjectContext,
		"target_sources":     in.TargetSources,
		"report_format":      in.ReportFormat,
		"project_deadline":   in.ProjectDeadline,
		"priority_level":     in.PriorityLevel,
	}
	if in.SessionID != "" {
		m["session_id"] = in.SessionID
	}
	return m
}
