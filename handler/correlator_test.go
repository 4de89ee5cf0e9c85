package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pyama86/YAIR/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------------------
// Mock repositories
// ------------------------
type mockCorrelationRepo struct {
	data      map[string]*entity.Correlation
	findErr   error
	saveErr   error
	deleteErr error
}

func newMockCorrelationRepo() *mockCorrelationRepo {
	return &mockCorrelationRepo{data: map[string]*entity.Correlation{}}
}

func (m *mockCorrelationRepo) FindCorrelation(_ context.Context, monitorID string) (*entity.Correlation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if c, ok := m.data[monitorID]; ok {
		return c, nil
	}
	return nil, nil
}

func (m *mockCorrelationRepo) SaveCorrelation(_ context.Context, c *entity.Correlation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[c.MonitorID] = c
	return nil
}

func (m *mockCorrelationRepo) DeleteCorrelation(_ context.Context, monitorID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.data, monitorID)
	return nil
}

type mockOnCallRepo struct {
	username string
	err      error
}

func (m *mockOnCallRepo) OnCallUsername(_ context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.username, nil
}

type mockTrackerRepo struct {
	userID    int
	userIDErr error
	nextIID   int
	createErr error
	created   []*entity.Incident
	noteErr   error
	notes     map[int]string
	closeErr  error
	closed    []int
}

func newMockTrackerRepo() *mockTrackerRepo {
	return &mockTrackerRepo{userID: 10, nextIID: 42, notes: map[int]string{}}
}

func (m *mockTrackerRepo) FindUserID(_ context.Context, username string) (int, error) {
	if m.userIDErr != nil {
		return 0, m.userIDErr
	}
	return m.userID, nil
}

func (m *mockTrackerRepo) CreateIssue(_ context.Context, incident *entity.Incident) (*entity.Incident, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	created := *incident
	created.IID = m.nextIID
	created.WebURL = fmt.Sprintf("https://gitlab.example.com/ops/infra/-/issues/%d", m.nextIID)
	m.nextIID++
	m.created = append(m.created, &created)
	return &created, nil
}

func (m *mockTrackerRepo) AddIssueNote(_ context.Context, issueIID int, body string) error {
	if m.noteErr != nil {
		return m.noteErr
	}
	m.notes[issueIID] = body
	return nil
}

func (m *mockTrackerRepo) CloseIssue(_ context.Context, issueIID int) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = append(m.closed, issueIID)
	return nil
}

type mockAnnouncer struct {
	opened int
	closed int
}

func (m *mockAnnouncer) AnnounceIncidentOpened(_ *entity.Incident, _, _ string) { m.opened++ }
func (m *mockAnnouncer) AnnounceIncidentClosed(_ int, _ string)                 { m.closed++ }

func downAlert(monitorID string) *entity.AlertEvent {
	return &entity.AlertEvent{
		MonitorID:    monitorID,
		Type:         entity.AlertTypeDown,
		FriendlyName: "API",
		URL:          "https://api.example.com",
		Details:      "Connection timeout",
	}
}

func upAlert(monitorID string) *entity.AlertEvent {
	return &entity.AlertEvent{MonitorID: monitorID, Type: entity.AlertTypeUp}
}

func TestHandleAlertDownCreatesIncident(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	announcer := &mockAnnouncer{}
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, announcer, false)

	result, err := c.HandleAlert(context.Background(), downAlert("7"))
	require.NoError(t, err)

	assert.Equal(t, "Incident created successfully!", result.Message)
	require.NotNil(t, result.Incident)
	assert.Equal(t, 42, result.Incident.IID)

	require.Contains(t, store.data, "7")
	assert.Equal(t, 42, store.data["7"].IssueIID)

	require.Len(t, tracker.created, 1)
	assert.Equal(t, "Incident: API", tracker.created[0].Title)
	assert.Equal(t, 10, tracker.created[0].AssigneeID)
	assert.Contains(t, tracker.created[0].Description, "- **URL**: https://api.example.com")

	assert.Contains(t, tracker.notes[42], "Hey @taro")
	assert.Equal(t, 1, announcer.opened)
}

func TestHandleAlertDownAssigneeAbsent(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	c := NewCorrelator(store, &mockOnCallRepo{err: errors.New("no shifts found")}, tracker, nil, false)

	_, err := c.HandleAlert(context.Background(), downAlert("7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssigneeResolution)

	// 担当者が決まらない場合はIssueを作らず、対応表も変えない
	assert.Empty(t, tracker.created)
	assert.Empty(t, store.data)
}

func TestHandleAlertDownAssigneeIDLookupFails(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	tracker.userIDErr = errors.New("503 from gitlab")
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	_, err := c.HandleAlert(context.Background(), downAlert("7"))
	assert.ErrorIs(t, err, ErrAssigneeResolution)
	assert.Empty(t, tracker.created)
	assert.Empty(t, store.data)
}

func TestHandleAlertDownCreateFails(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	tracker.createErr = errors.New("status 400: title missing")
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	_, err := c.HandleAlert(context.Background(), downAlert("7"))
	assert.ErrorIs(t, err, ErrIncidentCreation)
	assert.Empty(t, store.data)
}

func TestHandleAlertDownNoteFailureStillSucceeds(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	tracker.noteErr = errors.New("notes api is down")
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	result, err := c.HandleAlert(context.Background(), downAlert("7"))
	require.NoError(t, err)
	assert.Equal(t, "Incident created successfully!", result.Message)
	assert.Contains(t, store.data, "7")
}

func TestHandleAlertDownWhileOpenIsNoOp(t *testing.T) {
	store := newMockCorrelationRepo()
	store.data["7"] = &entity.Correlation{MonitorID: "7", IssueIID: 41}
	tracker := newMockTrackerRepo()
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	result, err := c.HandleAlert(context.Background(), downAlert("7"))
	require.NoError(t, err)
	assert.Equal(t, "Incident already open as issue 41.", result.Message)
	assert.Equal(t, 41, result.Incident.IID)
	assert.Empty(t, tracker.created)
	assert.Equal(t, 41, store.data["7"].IssueIID)
}

func TestHandleAlertDownWhileOpenWithDuplicatePolicy(t *testing.T) {
	store := newMockCorrelationRepo()
	store.data["7"] = &entity.Correlation{MonitorID: "7", IssueIID: 41}
	tracker := newMockTrackerRepo()
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, true)

	result, err := c.HandleAlert(context.Background(), downAlert("7"))
	require.NoError(t, err)

	// 旧来挙動では新しいIssueで対応表を上書きする
	require.Len(t, tracker.created, 1)
	assert.Equal(t, 42, result.Incident.IID)
	assert.Equal(t, 42, store.data["7"].IssueIID)
}

func TestHandleAlertUpClosesIncident(t *testing.T) {
	store := newMockCorrelationRepo()
	store.data["7"] = &entity.Correlation{MonitorID: "7", IssueIID: 42}
	tracker := newMockTrackerRepo()
	announcer := &mockAnnouncer{}
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, announcer, false)

	result, err := c.HandleAlert(context.Background(), upAlert("7"))
	require.NoError(t, err)
	assert.Equal(t, "Issue 42 closed successfully.", result.Message)
	assert.Equal(t, []int{42}, tracker.closed)
	assert.NotContains(t, store.data, "7")
	assert.Equal(t, 1, announcer.closed)
}

func TestHandleAlertUpCloseFailureRetainsMapping(t *testing.T) {
	store := newMockCorrelationRepo()
	store.data["7"] = &entity.Correlation{MonitorID: "7", IssueIID: 42}
	tracker := newMockTrackerRepo()
	tracker.closeErr = errors.New("status 500")
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	_, err := c.HandleAlert(context.Background(), upAlert("7"))
	assert.ErrorIs(t, err, ErrIncidentClose)

	// クローズできなかったIssueを対応表から消してはいけない
	require.Contains(t, store.data, "7")
	assert.Equal(t, 42, store.data["7"].IssueIID)
}

func TestHandleAlertUpWithoutOpenIncident(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	result, err := c.HandleAlert(context.Background(), upAlert("9"))
	require.NoError(t, err)
	assert.Equal(t, "No open issue found.", result.Message)
	assert.Empty(t, tracker.closed)
	assert.Empty(t, store.data)
}

func TestHandleAlertOtherTypeIgnored(t *testing.T) {
	store := newMockCorrelationRepo()
	tracker := newMockTrackerRepo()
	c := NewCorrelator(store, &mockOnCallRepo{username: "taro"}, tracker, nil, false)

	result, err := c.HandleAlert(context.Background(), &entity.AlertEvent{MonitorID: "7", Type: entity.AlertTypeOther})
	require.NoError(t, err)
	assert.Equal(t, "Alert type not recognized.", result.Message)
	assert.Empty(t, tracker.created)
	assert.Empty(t, tracker.closed)
}
