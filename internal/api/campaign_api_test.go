package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdulrabbbi/friend2go-admin-panel/internal/api"
	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Send(ctx context.Context, campaignID string) (*campaign.Result, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*campaign.Result), args.Error(1)
}

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	return m.Called(ctx, tokens, topic).Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(a *api.CampaignAPI) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/campaigns/{id}/send", a.SendNow)
	mux.HandleFunc("POST /api/v1/topics/subscribe", a.Subscribe)
	return mux
}

func TestSendNow(t *testing.T) {
	t.Run("success returns ok with counts", func(t *testing.T) {
		engine := new(mockEngine)
		a := api.NewCampaignAPI(engine, new(mockSubscriber), newTestLogger())
		engine.On("Send", mock.Anything, "c1").
			Return(&campaign.Result{Success: 2, Failure: 1, Cleaned: 1}, nil)

		rec := httptest.NewRecorder()
		newMux(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/c1/send", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp api.SendResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, 2, resp.Result.Success)
	})

	t.Run("NoTokens failure reports ok false", func(t *testing.T) {
		engine := new(mockEngine)
		a := api.NewCampaignAPI(engine, new(mockSubscriber), newTestLogger())
		engine.On("Send", mock.Anything, "c1").Return(&campaign.Result{Error: "No tokens"}, nil)

		rec := httptest.NewRecorder()
		newMux(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/c1/send", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp api.SendResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
		assert.Equal(t, "No tokens", resp.Result.Error)
	})

	t.Run("error taxonomy maps onto HTTP statuses", func(t *testing.T) {
		cases := map[codes.Code]int{
			codes.NotFound:           http.StatusNotFound,
			codes.InvalidArgument:    http.StatusBadRequest,
			codes.FailedPrecondition: http.StatusConflict,
			codes.Internal:           http.StatusInternalServerError,
		}
		for code, want := range cases {
			engine := new(mockEngine)
			a := api.NewCampaignAPI(engine, new(mockSubscriber), newTestLogger())
			engine.On("Send", mock.Anything, "c1").Return(nil, status.Error(code, "boom"))

			rec := httptest.NewRecorder()
			newMux(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/c1/send", nil))
			assert.Equal(t, want, rec.Code, "code %s", code)
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("missing token rejected", func(t *testing.T) {
		sub := new(mockSubscriber)
		a := api.NewCampaignAPI(new(mockEngine), sub, newTestLogger())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/subscribe", strings.NewReader(`{"topic":"promo"}`))
		newMux(a).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		sub.AssertNotCalled(t, "SubscribeToTopic")
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		a := api.NewCampaignAPI(new(mockEngine), new(mockSubscriber), newTestLogger())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/subscribe", strings.NewReader(`{`))
		newMux(a).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("topic defaults to broadcast", func(t *testing.T) {
		sub := new(mockSubscriber)
		a := api.NewCampaignAPI(new(mockEngine), sub, newTestLogger())
		sub.On("SubscribeToTopic", mock.Anything, []string{"tok-1"}, "all").Return(nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/subscribe", strings.NewReader(`{"token":"tok-1","topic":"  "}`))
		newMux(a).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		sub.AssertExpectations(t)
	})

	t.Run("explicit topic is used", func(t *testing.T) {
		sub := new(mockSubscriber)
		a := api.NewCampaignAPI(new(mockEngine), sub, newTestLogger())
		sub.On("SubscribeToTopic", mock.Anything, []string{"tok-1"}, "promo").Return(nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/subscribe", strings.NewReader(`{"token":"tok-1","topic":"promo"}`))
		newMux(a).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		sub.AssertExpectations(t)
	})
}
