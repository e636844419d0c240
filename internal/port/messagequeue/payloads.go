package messagequeue

// SpawnPayload is the request schema for sessions.{provider}.spawn.
type SpawnPayload struct {
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	WorkDir      string   `json:"work_dir,omitempty"`
}

// SpawnReply is the reply schema for sessions.{provider}.spawn.
type SpawnReply struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Model     string `json:"model,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExecPayload is the request schema for sessions.{provider}.exec.
type ExecPayload struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
}

// ExecReply is the reply schema for sessions.{provider}.exec.
type ExecReply struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	NotFound   bool   `json:"not_found,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusPayload is the request schema for sessions.{provider}.status.
type StatusPayload struct {
	SessionID string `json:"session_id"`
}

// StatusReply is the reply schema for sessions.{provider}.status.
type StatusReply struct {
	Status   string `json:"status"`
	NotFound bool   `json:"not_found,omitempty"`
	Error    string `json:"error,omitempty"`
}

// KillPayload is the request schema for sessions.{provider}.kill.
type KillPayload struct {
	SessionID string `json:"session_id"`
}

// KillReply is the reply schema for sessions.{provider}.kill.
type KillReply struct {
	NotFound bool   `json:"not_found,omitempty"`
	Error    string `json:"error,omitempty"`
}
