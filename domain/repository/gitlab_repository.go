package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ttlcache "github.com/jellydator/ttlcache/v3"
	"github.com/pyama86/YAIR/domain/entity"
)

var ErrGitLabUserNotFound = fmt.Errorf("gitlab user not found")

type GitLabRepository struct {
	baseURL    string
	token      string
	projectID  string
	httpClient *http.Client
	// ユーザー名とIDの対応はめったに変わらないので1時間キャッシュする
	userIDCache *ttlcache.Cache[string, int]
}

func NewGitLabRepository(cfg *GitLabConfig) *GitLabRepository {
	r := &GitLabRepository{
		baseURL:     strings.TrimSuffix(cfg.URL, "/"),
		token:       cfg.Token,
		projectID:   cfg.ProjectID,
		httpClient:  &http.Client{},
		userIDCache: ttlcache.New(ttlcache.WithTTL[string, int](time.Hour)),
	}
	go r.userIDCache.Start()
	return r
}

// FindUserID はユーザー名からGitLabの数値IDを引く。
// 複数ヒットした場合は先頭を採用する。
func (r *GitLabRepository) FindUserID(ctx context.Context, username string) (int, error) {
	if item := r.userIDCache.Get(username); item != nil {
		return item.Value(), nil
	}

	endpoint := fmt.Sprintf("%s/api/v4/users?%s", r.baseURL,
		url.Values{"username": {username}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build users request: %w", err)
	}
	req.Header.Set("Private-Token", r.token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to fetch users: status %d: %s", resp.StatusCode, body)
	}

	var users []struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return 0, fmt.Errorf("failed to decode users response: %w", err)
	}
	if len(users) == 0 {
		slog.Error("No user found with username", slog.String("username", username))
		return 0, ErrGitLabUserNotFound
	}

	r.userIDCache.Set(username, users[0].ID, ttlcache.DefaultTTL)
	return users[0].ID, nil
}

// CreateIssue はインシデントIssueを作成し、採番されたiidを埋めて返す。
// 201以外はレスポンスボディごとエラーにする。
func (r *GitLabRepository) CreateIssue(ctx context.Context, incident *entity.Incident) (*entity.Incident, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/issues", r.baseURL, url.PathEscape(r.projectID))
	payload := map[string]any{
		"title":       incident.Title,
		"description": incident.Description,
		"labels":      incident.Labels,
		"issue_type":  "incident",
		"assignee_id": incident.AssigneeID,
	}

	slog.Info("Sending issue create request to GitLab", slog.String("title", incident.Title), slog.Int("assignee_id", incident.AssigneeID))

	body, code, err := r.doJSON(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusCreated {
		return nil, fmt.Errorf("failed to create issue: status %d: %s", code, body)
	}

	created := *incident
	var issue struct {
		IID    int    `json:"iid"`
		WebURL string `json:"web_url"`
	}
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("failed to decode issue response: %w", err)
	}
	created.IID = issue.IID
	created.WebURL = issue.WebURL

	slog.Info("Incident issue created", slog.Int("iid", created.IID))
	return &created, nil
}

func (r *GitLabRepository) AddIssueNote(ctx context.Context, issueIID int, body string) error {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/issues/%d/notes", r.baseURL, url.PathEscape(r.projectID), issueIID)
	respBody, code, err := r.doJSON(ctx, http.MethodPost, endpoint, map[string]any{"body": body})
	if err != nil {
		return err
	}
	if code != http.StatusCreated {
		return fmt.Errorf("failed to add note: status %d: %s", code, respBody)
	}
	return nil
}

// CloseIssue はstate_event=closeでIssueを閉じ、resolvedラベルを付ける。
func (r *GitLabRepository) CloseIssue(ctx context.Context, issueIID int) error {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/issues/%d", r.baseURL, url.PathEscape(r.projectID), issueIID)
	payload := map[string]any{
		"state_event": "close",
		"labels":      "resolved",
	}
	body, code, err := r.doJSON(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return err
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("failed to close issue %d: status %d: %s", issueIID, code, body)
	}
	return nil
}

func (r *GitLabRepository) doJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Private-Token", r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request to gitlab failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read gitlab response: %w", err)
	}
	return body, resp.StatusCode, nil
}
