package ops

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hpungsan/stalker/internal/errors"
)

// Zoom webhook event names.
const (
	ZoomPresenceUpdated = "user.presence_status_updated"
	ZoomURLValidation   = "endpoint.url_validation"
)

// zoomInCallStatuses are presence statuses that mean the user is in a call.
var zoomInCallStatuses = map[string]bool{
	"In_Meeting":    true,
	"Presenting":    true,
	"On_Phone_Call": true,
}

// ReportPresenceInput contains parameters for the ReportPresence operation.
type ReportPresenceInput struct {
	UserID string `json:"user_id"`
	InCall bool   `json:"in_call"`
}

// ReportPresence records whether a user is in a call.
func ReportPresence(ctx context.Context, eng Engine, input ReportPresenceInput) (*ActivityOutput, error) {
	userID := strings.ToLower(strings.TrimSpace(input.UserID))
	if userID == "" {
		return nil, errors.NewInvalidRequest("user_id is required")
	}
	a, err := eng.ReportPresence(ctx, userID, input.InCall)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Activity: a}, nil
}

// ZoomEvent is the webhook envelope.
type ZoomEvent struct {
	Event   string `json:"event"`
	EventTS int64  `json:"event_ts"`
	Payload struct {
		AccountID  string `json:"account_id"`
		PlainToken string `json:"plainToken"`
		Object     struct {
			ID             string `json:"id"`
			PresenceStatus string `json:"presence_status"`
		} `json:"object"`
	} `json:"payload"`
}

// ZoomValidationOutput answers an endpoint.url_validation challenge.
type ZoomValidationOutput struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// ZoomEventOutput is the result of ReportZoomEvent. At most one field is set.
type ZoomEventOutput struct {
	Activity   *ActivityOutput
	Validation *ZoomValidationOutput
}

// ReportZoomEvent maps a Zoom webhook onto a presence report. Unknown
// events are accepted and ignored.
func ReportZoomEvent(ctx context.Context, eng Engine, secretToken string, ev ZoomEvent) (*ZoomEventOutput, error) {
	switch ev.Event {
	case ZoomURLValidation:
		if ev.Payload.PlainToken == "" {
			return nil, errors.NewInvalidRequest("plainToken is required")
		}
		if secretToken == "" {
			return nil, errors.NewInvalidRequest("webhook secret token is not configured")
		}
		return &ZoomEventOutput{Validation: &ZoomValidationOutput{
			PlainToken:     ev.Payload.PlainToken,
			EncryptedToken: SignZoomToken(secretToken, ev.Payload.PlainToken),
		}}, nil

	case ZoomPresenceUpdated:
		out, err := ReportPresence(ctx, eng, ReportPresenceInput{
			UserID: ev.Payload.Object.ID,
			InCall: zoomInCallStatuses[ev.Payload.Object.PresenceStatus],
		})
		if err != nil {
			return nil, err
		}
		return &ZoomEventOutput{Activity: out}, nil
	}
	return &ZoomEventOutput{}, nil
}

// SignZoomToken returns the hex HMAC-SHA256 of plainToken keyed by secret.
func SignZoomToken(secret, plainToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return hex.EncodeToString(mac.Sum(nil))
}
