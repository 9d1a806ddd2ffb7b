package handler

type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SetPasswordParams struct {
	OldPassword     string `json:"old_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type UserParams struct {
	UserID   int64  `param:"user_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type PatchUserPasswordParams struct {
	UserID          int64  `param:"user_id"`
	OldPassword     string `json:"old_password"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type PatchUserRoleParams struct {
	UserID int64  `param:"user_id"`
	Role   string `json:"role"`
}

type APIKeyParams struct {
	ID          int64  `param:"id"`
	Description string `json:"description"`
}

type SecretParams struct {
	SecretID    int64  `param:"secret_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
}

type WorkflowParams struct {
	WorkflowID  int64  `param:"workflow_id"`
	Repository  string `json:"repository"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

type ValidateManifestParams struct {
	Source string `json:"source"`
}

type DispatchParams struct {
	WorkflowID int64   `param:"workflow_id"`
	Branch     *string `json:"branch"`
}

type NextRunsParams struct {
	WorkflowID int64 `param:"workflow_id"`
	Count      int   `query:"count"`
}

type ListEventsParams struct {
	WorkflowID int64 `param:"workflow_id"`
	Page       int64 `query:"page"`
}

type EventParams struct {
	EventID int64 `param:"event_id"`
}

// HookEventParams is the payload a repository forwarder posts for a
// push or pull request. Schedule events never arrive over the hook.
type HookEventParams struct {
	WorkflowID    int64   `param:"workflow_id"`
	Kind          string  `json:"kind"`
	Branch        *string `json:"branch"`
	CommitSHA     *string `json:"commit_sha"`
	CommitMessage *string `json:"commit_message"`
}

type SSEParams struct {
	WorkflowID int64 `param:"workflow_id"`
}

type ConfigParams struct {
	SessionExpiresHours int64    `json:"session_expires_hours"`
	QueueSize           int64    `json:"queue_size"`
	SkipMarkers         []string `json:"skip_markers"`
}
