package repository

import (
	"context"

	"github.com/pyama86/YAIR/domain/entity"
)

// CorrelationRepository はモニターと未解決Issueの対応表。
// 未解決Issueの唯一の情報源で、GitLab側の状態とは突き合わせない。
type CorrelationRepository interface {
	FindCorrelation(context.Context, string) (*entity.Correlation, error)
	SaveCorrelation(context.Context, *entity.Correlation) error
	DeleteCorrelation(context.Context, string) error
}

type OnCallRepository interface {
	OnCallUsername(context.Context) (string, error)
}

type TrackerRepository interface {
	FindUserID(context.Context, string) (int, error)
	CreateIssue(context.Context, *entity.Incident) (*entity.Incident, error)
	AddIssueNote(context.Context, int, string) error
	CloseIssue(context.Context, int) error
}

type Announcer interface {
	AnnounceIncidentOpened(incident *entity.Incident, monitorName, username string)
	AnnounceIncidentClosed(issueIID int, monitorID string)
}
