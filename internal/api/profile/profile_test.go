package profile

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store/storemock"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

func ptr(s string) *string { return &s }

func setupProfileTest() (*ServiceImpl, *storemock.MockRepository) {
	repo := new(storemock.MockRepository)
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestSavePreferences(t *testing.T) {
	user := uuid.New()

	t.Run("trims values and drops blanks", func(t *testing.T) {
		svc, repo := setupProfileTest()
		repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p types.Profile) bool {
			return p.ID == user && *p.TravelPace == "relaxed" && p.TravelBudget == nil && p.FirstName == nil
		})).Return(nil).Once()
		stored := &types.Profile{ID: user, TravelPace: ptr("relaxed")}
		repo.On("GetProfile", mock.Anything, user).Return(stored, nil).Once()

		got, err := svc.SavePreferences(context.Background(), user, Preferences{
			TravelPace:   ptr("  relaxed "),
			TravelBudget: ptr("   "),
		})

		require.NoError(t, err)
		assert.Same(t, stored, got)
		repo.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo := setupProfileTest()
		repo.On("UpsertProfile", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := svc.SavePreferences(context.Background(), user, Preferences{})

		assert.Error(t, err)
		repo.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})
}

func TestHandlerGetProfile(t *testing.T) {
	user := uuid.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("missing profile", func(t *testing.T) {
		svc, repo := setupProfileTest()
		repo.On("GetProfile", mock.Anything, user).Return(nil, types.ErrNotFound).Once()
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req = req.WithContext(appMiddleware.WithUserID(req.Context(), user.String()))
		rr := httptest.NewRecorder()

		NewHandler(svc, logger).GetProfile(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("save then return", func(t *testing.T) {
		svc, repo := setupProfileTest()
		repo.On("UpsertProfile", mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("GetProfile", mock.Anything, user).Return(&types.Profile{ID: user, LanguagesSpoken: ptr("English")}, nil).Once()
		req := httptest.NewRequest(http.MethodPut, "/profile/preferences", strings.NewReader(`{"languages_spoken":"English"}`))
		req = req.WithContext(appMiddleware.WithUserID(req.Context(), user.String()))
		rr := httptest.NewRecorder()

		NewHandler(svc, logger).SavePreferences(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var p types.Profile
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
		assert.Equal(t, "English", *p.LanguagesSpoken)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		svc, _ := setupProfileTest()
		rr := httptest.NewRecorder()
		NewHandler(svc, logger).GetProfile(rr, httptest.NewRequest(http.MethodGet, "/profile", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
