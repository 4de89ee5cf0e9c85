package entity

import "time"

// Incident はGitLab上のインシデントIssueを表す。
// IIDはプロジェクトスコープの連番で、グローバルIDとは別物。
type Incident struct {
	IID         int    `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Labels      string `json:"labels"`
	AssigneeID  int    `json:"assignee_id"`
	WebURL      string `json:"web_url,omitempty"`
}

type Correlation struct {
	MonitorID string    `json:"monitor_id" dynamo:"monitor_id,hash"`
	IssueIID  int       `json:"issue_iid" dynamo:"issue_iid"`
	CreatedAt time.Time `json:"created_at" dynamo:"created_at"`
}
