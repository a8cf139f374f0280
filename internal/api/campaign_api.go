// Package api exposes the callable surface of the push service: the
// admin-only "send now" operation and authenticated topic subscription.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

// DispatchEngine runs one campaign dispatch.
type DispatchEngine interface {
	Send(ctx context.Context, campaignID string) (*campaign.Result, error)
}

// TopicSubscriber subscribes device tokens to a provider topic.
type TopicSubscriber interface {
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
}

type CampaignAPI struct {
	Engine     DispatchEngine
	Subscriber TopicSubscriber
	Logger     *slog.Logger
}

func NewCampaignAPI(engine DispatchEngine, subscriber TopicSubscriber, logger *slog.Logger) *CampaignAPI {
	return &CampaignAPI{
		Engine:     engine,
		Subscriber: subscriber,
		Logger:     logger,
	}
}

// SendResponse is the admin caller's view of a dispatch outcome.
type SendResponse struct {
	OK     bool             `json:"ok"`
	Result *campaign.Result `json:"result"`
}

// SendNow dispatches the campaign named in the path. Authorization is
// enforced by the admin middleware before this handler runs.
func (api *CampaignAPI) SendNow(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "campaignId required")
		return
	}

	result, err := api.Engine.Send(r.Context(), campaignID)
	if err != nil {
		api.Logger.Error("Send failed", "campaign_id", campaignID, "err", err)
		response.WriteJSONError(w, httpStatus(err), status.Convert(err).Message())
		return
	}

	writeJSON(w, SendResponse{OK: result.OK(), Result: result})
}

type SubscribeRequest struct {
	Token string `json:"token"`
	Topic string `json:"topic"`
}

// Subscribe registers one device token on a topic. Any authenticated caller
// may subscribe; the topic defaults to the broadcast topic.
func (api *CampaignAPI) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "token required")
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = campaign.DefaultTopic
	}

	if err := api.Subscriber.SubscribeToTopic(r.Context(), []string{req.Token}, topic); err != nil {
		api.Logger.Error("Topic subscribe failed", "topic", topic, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}

	writeJSON(w, map[string]bool{"ok": true})
}

// httpStatus maps the dispatch error taxonomy onto HTTP statuses.
func httpStatus(err error) int {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
