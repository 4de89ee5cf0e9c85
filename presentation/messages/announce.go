package messages

import (
	"fmt"

	"github.com/pyama86/YAIR/domain/entity"
	"github.com/slack-go/slack"
)

func IncidentOpenedBlocks(incident *entity.Incident, monitorName, username string) []slack.Block {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Monitor:* %s", monitorName), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Assignee:* @%s", username), false, false),
	}
	if incident.WebURL != "" {
		fields = append(fields,
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Issue:* <%s|#%d>", incident.WebURL, incident.IID), false, false),
		)
	} else {
		fields = append(fields,
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Issue:* #%d", incident.IID), false, false),
		)
	}

	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "🚨 インシデントが発生しました", false, false),
			fields,
			nil,
		),
	}
}

func IncidentClosedBlocks(issueIID int, monitorID string) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "✅ インシデントが復旧しました", false, false),
			[]*slack.TextBlockObject{
				slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Monitor:* %s", monitorID), false, false),
				slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Issue:* #%d", issueIID), false, false),
			},
			nil,
		),
	}
}
