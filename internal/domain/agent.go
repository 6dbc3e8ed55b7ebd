package domain

// DispatchRequest routes an operator command to one persona
type DispatchRequest struct {
	Persona string `json:"persona"`
	Command string `json:"command" binding:"required"`
}

// GroupRequest starts a sequential multi-persona session
type GroupRequest struct {
	Command string `json:"command" binding:"required"`
}

// CronGenerateRequest optionally overrides the configured topics
type CronGenerateRequest struct {
	Topics []string `json:"topics"`
}
