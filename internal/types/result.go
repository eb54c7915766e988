package types

// Result is the uniform outcome handed back to callers.
type Result struct {
	DeploymentID     string            `json:"deployment_id,omitempty"`
	Success          bool              `json:"success"`
	Output           string            `json:"output,omitempty"`
	Error            string            `json:"error,omitempty"`
	Endpoint         string            `json:"endpoint,omitempty"`
	TransportLabel   string            `json:"transport_label,omitempty"`
	Warning          string            `json:"warning,omitempty"`
	Stage            string            `json:"stage,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	Program          []string          `json:"program,omitempty"`
}

// Failed builds an unsuccessful result.
func Failed(msg string) Result {
	return Result{Success: false, Error: msg}
}
