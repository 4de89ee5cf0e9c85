package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pyama86/YAIR/domain/entity"
	"github.com/pyama86/YAIR/domain/repository"
	"github.com/pyama86/YAIR/presentation/messages"
)

var (
	ErrAssigneeResolution = errors.New("failed to fetch assignee")
	ErrIncidentCreation   = errors.New("failed to create incident")
	ErrIncidentClose      = errors.New("failed to close issue")
)

type AlertResult struct {
	Message  string           `json:"message"`
	Incident *entity.Incident `json:"incident_response,omitempty"`
}

// Correlator はモニターごとの状態遷移を司る。状態は対応表のエントリ
// 有無そのもので、エントリなし=未解決Issueなし。
type Correlator struct {
	store     repository.CorrelationRepository
	onCall    repository.OnCallRepository
	tracker   repository.TrackerRepository
	announcer repository.Announcer
	// trueで旧来どおりDown多重受信のたびにIssueを作り直す
	duplicateDownCreatesNew bool
	now                     func() time.Time
}

func NewCorrelator(store repository.CorrelationRepository, onCall repository.OnCallRepository, tracker repository.TrackerRepository, announcer repository.Announcer, duplicateDownCreatesNew bool) *Correlator {
	return &Correlator{
		store:                   store,
		onCall:                  onCall,
		tracker:                 tracker,
		announcer:               announcer,
		duplicateDownCreatesNew: duplicateDownCreatesNew,
		now:                     time.Now,
	}
}

func (c *Correlator) HandleAlert(ctx context.Context, alert *entity.AlertEvent) (*AlertResult, error) {
	switch alert.Type {
	case entity.AlertTypeDown:
		return c.handleDown(ctx, alert)
	case entity.AlertTypeUp:
		return c.handleUp(ctx, alert)
	}
	slog.Info("Alert type is neither 'Down' nor 'Up'. Ignoring webhook.", slog.String("monitor_id", alert.MonitorID))
	return &AlertResult{Message: "Alert type not recognized."}, nil
}

func (c *Correlator) handleDown(ctx context.Context, alert *entity.AlertEvent) (*AlertResult, error) {
	if !c.duplicateDownCreatesNew {
		existing, err := c.store.FindCorrelation(ctx, alert.MonitorID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up correlation for monitor %s: %w", alert.MonitorID, err)
		}
		if existing != nil {
			slog.Info("Incident already open for monitor",
				slog.String("monitor_id", alert.MonitorID), slog.Int("issue_iid", existing.IssueIID))
			return &AlertResult{
				Message:  fmt.Sprintf("Incident already open as issue %d.", existing.IssueIID),
				Incident: &entity.Incident{IID: existing.IssueIID},
			}, nil
		}
	}

	incident, username, err := c.createIncident(ctx, alert)
	if err != nil {
		return nil, err
	}

	correlation := &entity.Correlation{
		MonitorID: alert.MonitorID,
		IssueIID:  incident.IID,
		CreatedAt: c.now().UTC(),
	}
	if err := c.store.SaveCorrelation(ctx, correlation); err != nil {
		return nil, fmt.Errorf("failed to save correlation for monitor %s: %w", alert.MonitorID, err)
	}

	incidentsOpenedTotal.Inc()
	openIncidents.Inc()
	if c.announcer != nil {
		c.announcer.AnnounceIncidentOpened(incident, alert.FriendlyName, username)
	}

	slog.Info("Incident created for monitor",
		slog.String("monitor_id", alert.MonitorID), slog.Int("issue_iid", incident.IID))
	return &AlertResult{Message: "Incident created successfully!", Incident: incident}, nil
}

// createIncident は担当者を解決できた場合にのみIssueを起こす。
// 担当者不在のインシデントは作らない。
func (c *Correlator) createIncident(ctx context.Context, alert *entity.AlertEvent) (*entity.Incident, string, error) {
	username, err := c.onCall.OnCallUsername(ctx)
	if err != nil {
		slog.Error("Failed to resolve on-call user. Incident will not be created.", slog.Any("err", err))
		return nil, "", fmt.Errorf("%w: %v", ErrAssigneeResolution, err)
	}

	assigneeID, err := c.tracker.FindUserID(ctx, username)
	if err != nil {
		slog.Error("Failed to fetch assignee ID. Incident will not be created.", slog.Any("err", err))
		return nil, "", fmt.Errorf("%w: %v", ErrAssigneeResolution, err)
	}

	incident := &entity.Incident{
		Title:       messages.IncidentTitle(alert),
		Description: messages.IncidentDescription(alert),
		Labels:      messages.IncidentLabels,
		AssigneeID:  assigneeID,
	}

	created, err := c.tracker.CreateIssue(ctx, incident)
	if err != nil {
		slog.Error("Failed to create incident issue", slog.Any("err", err))
		return nil, "", fmt.Errorf("%w: %v", ErrIncidentCreation, err)
	}

	// コメントはベストエフォート。失敗してもIssue作成は成立している
	if err := c.tracker.AddIssueNote(ctx, created.IID, messages.InvestigateComment(username)); err != nil {
		slog.Error("Failed to add comment", slog.Int("issue_iid", created.IID), slog.Any("err", err))
	}

	return created, username, nil
}

func (c *Correlator) handleUp(ctx context.Context, alert *entity.AlertEvent) (*AlertResult, error) {
	existing, err := c.store.FindCorrelation(ctx, alert.MonitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up correlation for monitor %s: %w", alert.MonitorID, err)
	}
	if existing == nil {
		slog.Info("No open issue found for monitor", slog.String("monitor_id", alert.MonitorID))
		return &AlertResult{Message: "No open issue found."}, nil
	}

	if err := c.tracker.CloseIssue(ctx, existing.IssueIID); err != nil {
		// クローズに失敗したIssueを見失わないよう対応表は保持する
		slog.Error("Failed to close issue",
			slog.Int("issue_iid", existing.IssueIID), slog.String("monitor_id", alert.MonitorID), slog.Any("err", err))
		return nil, fmt.Errorf("%w %d: %v", ErrIncidentClose, existing.IssueIID, err)
	}

	if err := c.store.DeleteCorrelation(ctx, alert.MonitorID); err != nil {
		return nil, fmt.Errorf("failed to delete correlation for monitor %s: %w", alert.MonitorID, err)
	}

	incidentsClosedTotal.Inc()
	openIncidents.Dec()
	if c.announcer != nil {
		c.announcer.AnnounceIncidentClosed(existing.IssueIID, alert.MonitorID)
	}

	slog.Info("Issue closed for monitor",
		slog.Int("issue_iid", existing.IssueIID), slog.String("monitor_id", alert.MonitorID))
	return &AlertResult{Message: fmt.Sprintf("Issue %d closed successfully.", existing.IssueIID)}, nil
}
