package entity

import (
	"strconv"
	"time"
)

type AlertType int

const (
	AlertTypeOther AlertType = iota
	AlertTypeDown
	AlertTypeUp
)

// ParseAlertType はUptimeRobotのalertTypeFriendlyNameを分類する。
// 比較は大文字小文字を区別する。
func ParseAlertType(s string) AlertType {
	switch s {
	case "Down":
		return AlertTypeDown
	case "Up":
		return AlertTypeUp
	}
	return AlertTypeOther
}

func (t AlertType) String() string {
	switch t {
	case AlertTypeDown:
		return "Down"
	case AlertTypeUp:
		return "Up"
	}
	return "Other"
}

type AlertEvent struct {
	MonitorID    string
	Type         AlertType
	FriendlyName string
	URL          string
	OccurredAt   time.Time
	Details      string
	Contacts     string
}

// ParseAlertTime はUnixエポック秒を解釈する。欠落や不正な値は
// リクエストを落とさず現在時刻にフォールバックする。
func ParseAlertTime(s string, now func() time.Time) time.Time {
	if s != "" {
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(epoch, 0).UTC()
		}
	}
	return now().UTC()
}
