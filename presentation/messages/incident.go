package messages

import (
	"fmt"

	"github.com/pyama86/YAIR/domain/entity"
)

const IncidentLabels = "incident,prio:urgent,uptime"

func IncidentTitle(alert *entity.AlertEvent) string {
	return fmt.Sprintf("Incident: %s", alert.FriendlyName)
}

// IncidentDescription はUptimeRobotのアラートをIssue本文に展開する
func IncidentDescription(alert *entity.AlertEvent) string {
	return fmt.Sprintf(
		"UptimeRobot reported an alert:\n\n"+
			"- **Status**: %s\n"+
			"- **Monitor**: %s\n"+
			"- **URL**: %s\n"+
			"- **Time**: %s\n"+
			"- **Alert Details**: %s\n",
		alert.Type,
		alert.FriendlyName,
		alert.URL,
		alert.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
		alert.Details,
	)
}

func InvestigateComment(username string) string {
	return fmt.Sprintf("Hey @%s, Please fetch logs from the server, investigate the root cause, and update your timeline accordingly. Let us know your findings.", username)
}
