package gemini

// promptData is the input handed to the prompt template.
type promptData struct {
	UnitName          string
	UnitPath          string
	PositionName      string
	PositionCategory  string
	PositionSeniority int
	ContextDocumentID string
}

// ProfileSchema is the JSON structure the model is instructed to return.
// The application core never sees this type; validated responses are
// re-marshalled and stored as opaque JSON on the task.
type ProfileSchema struct {
	Title            string   `json:"title"`
	Mission          string   `json:"mission"`
	Responsibilities []string `json:"responsibilities"`
	KPIs             []string `json:"kpis"`
	Requirements     []string `json:"requirements"`
	Competencies     []string `json:"competencies"`
}
