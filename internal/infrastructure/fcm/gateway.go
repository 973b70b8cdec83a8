package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-push-scheduler/internal/domain"
)

// Gateway sends single-token messages through the FCM HTTP v1 API using a
// bearer token minted by the caller.
type Gateway struct {
	endpoint  string
	projectID string
	client    *http.Client
}

func NewGateway(endpoint, projectID string, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{endpoint: strings.TrimRight(endpoint, "/"), projectID: projectID, client: client}
}

type sendRequest struct {
	Message *messaging.Message `json:"message"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// Send delivers msg to one device. A nil error means the gateway accepted the
// message; otherwise the error wraps domain.ErrPermanentDelivery or
// domain.ErrTransientDelivery.
func (g *Gateway) Send(ctx context.Context, bearer domain.BearerToken, token domain.DeviceToken, msg domain.Message) error {
	payload, err := json.Marshal(sendRequest{Message: BuildMessage(token, msg)})
	if err != nil {
		// Our own payload cannot be encoded; the token is not at fault.
		return fmt.Errorf("%w: marshal message: %w", domain.ErrTransientDelivery, err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", g.endpoint, g.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrTransientDelivery, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer.Value)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts and connection failures are never the token's fault.
		return fmt.Errorf("%w: %w", domain.ErrTransientDelivery, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var er errorResponse
	_ = json.Unmarshal(body, &er)
	code := errorCode(er)
	status := er.Error.Status
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	class := Classify(resp.StatusCode, status, code)
	return fmt.Errorf("%w: fcm %d %s %s: %s", class, resp.StatusCode, status, code, er.Error.Message)
}

func errorCode(er errorResponse) string {
	for _, d := range er.Error.Details {
		if d.ErrorCode != "" {
			return d.ErrorCode
		}
	}
	return ""
}

// permanentCodes are FCM error codes meaning the token itself is unusable.
var permanentCodes = map[string]bool{
	"UNREGISTERED":       true,
	"INVALID_ARGUMENT":   true,
	"SENDER_ID_MISMATCH": true,
}

// Classify maps an FCM failure to the permanent or transient sentinel.
// Unrecognised-token and malformed-argument classes are permanent; everything
// else (quota, unavailability, auth, 5xx) may succeed on a later run.
func Classify(httpStatus int, status, code string) error {
	if permanentCodes[code] {
		return domain.ErrPermanentDelivery
	}
	if code == "" {
		switch {
		case status == "NOT_FOUND", status == "INVALID_ARGUMENT":
			return domain.ErrPermanentDelivery
		case httpStatus == http.StatusNotFound:
			return domain.ErrPermanentDelivery
		}
	}
	return domain.ErrTransientDelivery
}
