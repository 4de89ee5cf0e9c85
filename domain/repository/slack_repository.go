package repository

import (
	"log/slog"
	"time"

	"github.com/Songmu/retry"
	"github.com/pyama86/YAIR/domain/entity"
	"github.com/pyama86/YAIR/presentation/messages"
	"github.com/slack-go/slack"
)

// SlackRepository はインシデントの発生と復旧をチャンネルにアナウンスする。
// 投稿は非同期のベストエフォートで、webhook応答を遅らせない。
type SlackRepository struct {
	client    *slack.Client
	channelID string
}

func NewSlackRepository(client *slack.Client, channelID string) *SlackRepository {
	return &SlackRepository{
		client:    client,
		channelID: channelID,
	}
}

func (r *SlackRepository) AnnounceIncidentOpened(incident *entity.Incident, monitorName, username string) {
	r.postMessage(slack.MsgOptionBlocks(messages.IncidentOpenedBlocks(incident, monitorName, username)...))
}

func (r *SlackRepository) AnnounceIncidentClosed(issueIID int, monitorID string) {
	r.postMessage(slack.MsgOptionBlocks(messages.IncidentClosedBlocks(issueIID, monitorID)...))
}

func (r *SlackRepository) postMessage(opts ...slack.MsgOption) {
	go func() {
		err := retry.Retry(3, 3*time.Second, func() error {
			_, _, err := r.client.PostMessage(r.channelID, opts...)
			if err != nil {
				slog.Warn("PostMessage", slog.Any("channelID", r.channelID), slog.Any("err", err))
			}
			return err
		})
		if err != nil {
			slog.Error("Failed to PostMessage", slog.Any("err", err))
		}
	}()
}
