package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pyama86/YAIR/domain/entity"
)

type webhookParams struct {
	MonitorID     string `form:"monitorID"`
	AlertType     string `form:"alertTypeFriendlyName"`
	FriendlyName  string `form:"monitorFriendlyName"`
	MonitorURL    string `form:"monitorURL"`
	AlertDateTime string `form:"alertDateTime"`
	AlertDetails  string `form:"alertDetails"`
	AlertContacts string `form:"monitorAlertContacts"`
}

type WebhookHandler struct {
	correlator *Correlator
	now        func() time.Time
}

func NewWebhookHandler(correlator *Correlator) *WebhookHandler {
	return &WebhookHandler{
		correlator: correlator,
		now:        time.Now,
	}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	var params webhookParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Received webhook",
		slog.String("monitor_id", params.MonitorID), slog.String("alert_type", params.AlertType))

	if params.MonitorID == "" {
		slog.Error("Monitor ID not found in webhook data.")
		webhooksTotal.WithLabelValues(entity.ParseAlertType(params.AlertType).String(), "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monitor ID not found"})
		return
	}

	alert := h.alertFromParams(&params)

	result, err := h.correlator.HandleAlert(c.Request.Context(), alert)
	if err != nil {
		webhooksTotal.WithLabelValues(alert.Type.String(), "error").Inc()
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}

	webhooksTotal.WithLabelValues(alert.Type.String(), "ok").Inc()
	body := gin.H{"message": result.Message}
	if result.Incident != nil {
		body["incident_response"] = result.Incident
	}
	c.JSON(http.StatusOK, body)
}

func (h *WebhookHandler) alertFromParams(params *webhookParams) *entity.AlertEvent {
	return &entity.AlertEvent{
		MonitorID:    params.MonitorID,
		Type:         entity.ParseAlertType(params.AlertType),
		FriendlyName: orDefault(params.FriendlyName, "Unknown Monitor"),
		URL:          orDefault(params.MonitorURL, "Unknown URL"),
		OccurredAt:   entity.ParseAlertTime(params.AlertDateTime, h.now),
		Details:      orDefault(params.AlertDetails, "N/A"),
		Contacts:     orDefault(params.AlertContacts, "N/A"),
	}
}

func errorBody(err error) gin.H {
	switch {
	case errors.Is(err, ErrAssigneeResolution):
		return gin.H{"error": "Failed to fetch assignee ID"}
	case errors.Is(err, ErrIncidentCreation):
		return gin.H{"error": "Failed to create incident", "details": err.Error()}
	case errors.Is(err, ErrIncidentClose):
		return gin.H{"error": "Failed to close issue", "details": err.Error()}
	}
	return gin.H{"error": err.Error()}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
