package tracker

// User is the authenticated account or an assignable project member.
type User struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email,omitempty"`
	Status    string  `json:"status,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
	UpdatedAt *string `json:"updatedAt,omitempty"`
}

// Project is a project as returned by the detail and listing endpoints.
type Project struct {
	ID          string              `json:"id"`
	Key         string              `json:"key"`
	Name        string              `json:"name"`
	Preferences *ProjectPreferences `json:"preferences,omitempty"`
	CreatedAt   *string             `json:"createdAt,omitempty"`
	UpdatedAt   *string             `json:"updatedAt,omitempty"`
}

// ProjectPreferences holds the project defaults used for issue creation.
type ProjectPreferences struct {
	IssueType     string        `json:"issueType"`
	EstimateType  string        `json:"estimateType"`
	IssueStatuses []IssueStatus `json:"issueStatuses,omitempty"`
	Labels        []Label       `json:"labels,omitempty"`
}

// Estimate types understood by the synthesizer.
const (
	EstimateHours  = "hours"
	EstimatePoints = "points"
)

type Label struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// IssueStatus is one workflow column. The API lists them in board order, so
// the last one is the terminal "done" column.
type IssueStatus struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Issue struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	ProjectID    string   `json:"projectId"`
	InitiativeID *string  `json:"initiativeId,omitempty"`
	EpicID       *string  `json:"epicId,omitempty"`
	ParentID     *string  `json:"parentId,omitempty"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	Estimate     *int     `json:"estimate,omitempty"`
	EstimateType *string  `json:"estimateType,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	CreatedAt    *string  `json:"createdAt,omitempty"`
	UpdatedAt    *string  `json:"updatedAt,omitempty"`
}

// ProjectMember links a membership record to an optional user account.
type ProjectMember struct {
	ID   string `json:"id"`
	User *User  `json:"user,omitempty"`
}

// CreateIssueRequest is the body of POST /projects/{id}/issues.
type CreateIssueRequest struct {
	Type         string   `json:"type"`
	InitiativeID *string  `json:"initiativeId,omitempty"`
	EpicID       *string  `json:"epicId,omitempty"`
	ParentID     *string  `json:"parentId,omitempty"`
	AssigneeID   *string  `json:"assigneeId,omitempty"`
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	EstimateType *string  `json:"estimateType,omitempty"`
	Estimate     *int     `json:"estimate,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Labels       []string `json:"labels"`
}
