package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrOnCallNotFound = fmt.Errorf("on-call user not found")

// GraphRepository はMicrosoft Graphからシフト中のユーザーを引く。
// トークンは呼び出しごとに取り直す。キャッシュすると失効処理が必要になるが、
// webhookの頻度では取得コストのほうが安い。
type GraphRepository struct {
	clientID     string
	clientSecret string
	tenantID     string
	actsAs       string
	teamID       string
	loginURL     string
	graphURL     string
	httpClient   *http.Client
	now          func() time.Time
}

func NewGraphRepository(cfg *GraphConfig) *GraphRepository {
	return &GraphRepository{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tenantID:     cfg.TenantID,
		actsAs:       cfg.ActsAs,
		teamID:       cfg.TeamID,
		loginURL:     strings.TrimSuffix(cfg.LoginURL, "/"),
		graphURL:     strings.TrimSuffix(cfg.GraphURL, "/"),
		httpClient:   &http.Client{},
		now:          time.Now,
	}
}

// OnCallUsername は現在のシフト担当者のメールアドレスから
// `@`より前の部分をユーザー名として返す。
func (r *GraphRepository) OnCallUsername(ctx context.Context) (string, error) {
	userID, err := r.activeShiftUserID(ctx)
	if err != nil {
		return "", err
	}

	mail, err := r.userMail(ctx, userID)
	if err != nil {
		return "", err
	}

	username, _, _ := strings.Cut(mail, "@")
	return username, nil
}

func (r *GraphRepository) accessToken(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", r.loginURL, r.tenantID)
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {r.clientID},
		"client_secret": {r.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to acquire access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to acquire access token: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}
	return payload.AccessToken, nil
}

// activeShiftUserID は今日の0時UTCから2日先までの窓にかかるシフトを検索し、
// 返却順の先頭のuserIdを返す。
func (r *GraphRepository) activeShiftUserID(ctx context.Context) (string, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return "", err
	}

	now := r.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	filter := fmt.Sprintf("sharedShift/startDateTime ge %s and sharedShift/endDateTime le %s",
		start.Format("2006-01-02T15:04:05Z"),
		end.Format("2006-01-02T15:04:05Z"),
	)

	endpoint := fmt.Sprintf("%s/teams/%s/schedule/shifts?%s", r.graphURL, r.teamID,
		url.Values{"$filter": {filter}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build shifts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("MS-APP-ACTS-AS", r.actsAs)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch shifts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to fetch shifts: status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Value []struct {
			UserID string `json:"userId"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode shifts response: %w", err)
	}
	if len(payload.Value) == 0 {
		slog.Warn("No shifts found in the current window")
		return "", ErrOnCallNotFound
	}
	return payload.Value[0].UserID, nil
}

func (r *GraphRepository) userMail(ctx context.Context, userID string) (string, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/users/%s", r.graphURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to fetch user %s: status %d: %s", userID, resp.StatusCode, body)
	}

	var payload struct {
		Mail string `json:"mail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	// mailが空のアカウントはuserPrincipalNameを持つが、ここではmailのみを見る
	if payload.Mail == "" {
		return "", ErrOnCallNotFound
	}
	return payload.Mail, nil
}
