package draft

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/FACorreiaa/go-trekly-itineraries/app/middleware"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Generate(ctx context.Context, owner uuid.UUID, req Request) (*Result, error) {
	args := m.Called(ctx, owner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func draftRequest(userID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(body))
	if userID != uuid.Nil {
		req = req.WithContext(appMiddleware.WithUserID(req.Context(), userID.String()))
	}
	return req
}

func TestHandlerCreateDraft(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := uuid.New()
	body := `{"name":"Porto","destination":"Porto, Portugal","from_date":"2025-06-01T00:00:00Z","to_date":"2025-06-02T00:00:00Z","transportation":"Walk","preferences":"wine"}`

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "no recommendations", serviceErr: types.ErrNoRecommendations, wantStatus: http.StatusBadGateway},
		{name: "unparseable", serviceErr: types.ErrUnparseableRecommendations, wantStatus: http.StatusUnprocessableEntity},
		{name: "invalid input", serviceErr: types.ErrInvalidInput, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Generate", mock.Anything, user, mock.Anything).Return(nil, tt.serviceErr).Once()
			rr := httptest.NewRecorder()

			NewHandler(svc, logger).CreateDraft(rr, draftRequest(user, body))

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	t.Run("created", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Generate", mock.Anything, user, mock.MatchedBy(func(r Request) bool {
			return r.Transportation == types.TransportationWalk && r.Preferences == "wine"
		})).Return(&Result{Itinerary: &types.Itinerary{ID: 3}, Activities: 2}, nil).Once()
		rr := httptest.NewRecorder()

		NewHandler(svc, logger).CreateDraft(rr, draftRequest(user, body))

		require.Equal(t, http.StatusCreated, rr.Code)
		var result Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, int64(3), result.Itinerary.ID)
		assert.Equal(t, 2, result.Activities)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc := new(MockService)
		rr := httptest.NewRecorder()

		NewHandler(svc, logger).CreateDraft(rr, draftRequest(uuid.Nil, body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})
}
