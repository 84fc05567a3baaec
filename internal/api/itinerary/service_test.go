package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/provider/providermock"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/routing"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/api/store/storemock"
	"github.com/FACorreiaa/go-trekly-itineraries/internal/types"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) CoverImageURL(ctx context.Context, query string) *string {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*string)
}

func setupServiceTest() (*ServiceImpl, *storemock.MockRepository, *providermock.MockProvider, *MockSearcher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := new(storemock.MockRepository)
	places := new(providermock.MockProvider)
	images := new(MockSearcher)
	engine := routing.NewEngine(places, 2, logger)
	return NewService(repo, places, engine, images, time.Minute, "https://trekly.example", logger), repo, places, images
}

// expectEmptyLoad stubs the four fetches of Session.Load for an itinerary with no children.
func expectEmptyLoad(repo *storemock.MockRepository, it *types.Itinerary) {
	repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil)
	repo.On("SelectAccommodations", mock.Anything, it.ID, true).Return([]types.Accommodation{}, nil)
	repo.On("SelectTransportations", mock.Anything, it.ID).Return([]types.Transportation{}, nil)
	repo.On("SelectActivities", mock.Anything, it.ID, true).Return([]types.Activity{}, nil)
}

func TestCreateItinerary(t *testing.T) {
	owner := uuid.New()
	params := CreateItineraryParams{
		Name:        "Spring in Japan",
		Destination: "Tokyo, Japan",
		FromDate:    day("2023-04-01"),
		ToDate:      day("2023-04-07"),
		IsPublic:    true,
	}

	t.Run("sets owner, share code and thumbnail", func(t *testing.T) {
		svc, repo, _, images := setupServiceTest()
		thumb := "https://images.example/tokyo.jpg"
		images.On("CoverImageURL", mock.Anything, "Tokyo").Return(&thumb).Once()
		repo.On("InsertItinerary", mock.Anything, mock.MatchedBy(func(it types.Itinerary) bool {
			return it.Owner != nil && *it.Owner == owner &&
				it.ShareCode != nil && len(*it.ShareCode) == 5 &&
				it.Thumbnail != nil && *it.Thumbnail == thumb &&
				it.IsPublic && it.Destination == "Tokyo, Japan"
		})).Return(int64(42), nil).Once()

		it, err := svc.CreateItinerary(context.Background(), owner, params)

		require.NoError(t, err)
		assert.Equal(t, int64(42), it.ID)
		repo.AssertExpectations(t)
		images.AssertExpectations(t)
	})

	t.Run("missing cover image is tolerated", func(t *testing.T) {
		svc, repo, _, images := setupServiceTest()
		images.On("CoverImageURL", mock.Anything, "Tokyo").Return(nil).Once()
		repo.On("InsertItinerary", mock.Anything, mock.MatchedBy(func(it types.Itinerary) bool {
			return it.Thumbnail == nil
		})).Return(int64(43), nil).Once()

		_, err := svc.CreateItinerary(context.Background(), owner, params)
		require.NoError(t, err)
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		bad := params
		bad.FromDate, bad.ToDate = bad.ToDate, bad.FromDate

		_, err := svc.CreateItinerary(context.Background(), owner, bad)

		assert.ErrorIs(t, err, types.ErrInvalidInput)
		repo.AssertNotCalled(t, "InsertItinerary", mock.Anything, mock.Anything)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		svc, _, _, _ := setupServiceTest()
		bad := params
		bad.Name = "  "
		_, err := svc.CreateItinerary(context.Background(), owner, bad)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo, _, images := setupServiceTest()
		images.On("CoverImageURL", mock.Anything, "Tokyo").Return(nil).Once()
		repo.On("InsertItinerary", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()

		_, err := svc.CreateItinerary(context.Background(), owner, params)
		assert.Error(t, err)
	})
}

func TestItineraryAccess(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()
	private := &types.Itinerary{ID: 5, Owner: &owner}
	public := &types.Itinerary{ID: 6, Owner: &owner, IsPublic: true}

	t.Run("owner reads a private itinerary", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		repo.On("GetItinerary", mock.Anything, int64(5)).Return(private, nil).Once()
		it, err := svc.GetItinerary(context.Background(), owner, 5)
		require.NoError(t, err)
		assert.Equal(t, private, it)
	})

	t.Run("private itinerary is hidden from others", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		repo.On("GetItinerary", mock.Anything, int64(5)).Return(private, nil).Once()
		_, err := svc.GetItinerary(context.Background(), stranger, 5)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("public itinerary is read-only for others", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		repo.On("GetItinerary", mock.Anything, int64(6)).Return(public, nil)
		name := "Mine now"

		_, err := svc.GetItinerary(context.Background(), stranger, 6)
		require.NoError(t, err)
		err = svc.UpdateItinerary(context.Background(), stranger, 6, types.UpdateItineraryParams{Name: &name})
		assert.ErrorIs(t, err, types.ErrForbidden)
		err = svc.DeleteItinerary(context.Background(), stranger, 6)
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "UpdateItinerary", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "DeleteItinerary", mock.Anything, mock.Anything)
	})

	t.Run("share code lookup honours visibility", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		repo.On("GetItineraryByShareCode", mock.Anything, "AbC12").Return(private, nil)

		_, err := svc.GetItineraryByShareCode(context.Background(), stranger, "AbC12")
		assert.ErrorIs(t, err, types.ErrNotFound)
		it, err := svc.GetItineraryByShareCode(context.Background(), owner, "AbC12")
		require.NoError(t, err)
		assert.Equal(t, int64(5), it.ID)
	})

	t.Run("update rejects a range inverted against stored dates", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		stored := &types.Itinerary{ID: 7, Owner: &owner, FromDate: day("2023-04-05"), ToDate: day("2023-04-09")}
		repo.On("GetItinerary", mock.Anything, int64(7)).Return(stored, nil).Once()
		to := day("2023-04-01")

		err := svc.UpdateItinerary(context.Background(), owner, 7, types.UpdateItineraryParams{ToDate: &to})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})
}

func TestShareQRCode(t *testing.T) {
	owner := uuid.New()
	code := "Xy9Zq"
	svc, repo, _, _ := setupServiceTest()
	repo.On("GetItinerary", mock.Anything, int64(8)).Return(&types.Itinerary{ID: 8, Owner: &owner, ShareCode: &code}, nil).Once()

	png, err := svc.ShareQRCode(context.Background(), owner, 8)

	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestSessions(t *testing.T) {
	owner := uuid.New()
	it := &types.Itinerary{ID: 9, Owner: &owner, FromDate: day("2023-04-01"), ToDate: day("2023-04-01")}

	t.Run("sessions are cached per user and itinerary", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		expectEmptyLoad(repo, it)

		first, err := svc.OpenSession(context.Background(), owner, 9)
		require.NoError(t, err)
		second, err := svc.EditSession(context.Background(), owner, 9)
		require.NoError(t, err)

		assert.Same(t, first, second)
		repo.AssertNumberOfCalls(t, "SelectActivities", 1)
	})

	t.Run("concurrent first opens share one load", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		entered, release := make(chan struct{}), make(chan struct{})
		var once sync.Once
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil)
		repo.On("SelectAccommodations", mock.Anything, it.ID, true).Return([]types.Accommodation{}, nil)
		repo.On("SelectTransportations", mock.Anything, it.ID).Return([]types.Transportation{}, nil)
		repo.On("SelectActivities", mock.Anything, it.ID, true).Run(func(mock.Arguments) {
			once.Do(func() { close(entered) })
			<-release
		}).Return([]types.Activity{}, nil)

		const callers = 5
		got := make([]*Session, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sess, err := svc.OpenSession(context.Background(), owner, 9)
				assert.NoError(t, err)
				got[i] = sess
			}()
		}
		<-entered
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for _, sess := range got[1:] {
			assert.Same(t, got[0], sess)
		}
		repo.AssertNumberOfCalls(t, "SelectActivities", 1)
	})

	t.Run("reload replaces the cached session", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		expectEmptyLoad(repo, it)

		first, err := svc.OpenSession(context.Background(), owner, 9)
		require.NoError(t, err)
		reloaded, err := svc.Reload(context.Background(), owner, 9)
		require.NoError(t, err)
		again, err := svc.OpenSession(context.Background(), owner, 9)
		require.NoError(t, err)

		assert.NotSame(t, first, reloaded)
		assert.Same(t, reloaded, again)
		repo.AssertNumberOfCalls(t, "SelectActivities", 2)
	})

	t.Run("edit session requires ownership", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		shared := *it
		shared.IsPublic = true
		repo.On("GetItinerary", mock.Anything, int64(9)).Return(&shared, nil)

		_, err := svc.EditSession(context.Background(), uuid.New(), 9)
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("delete evicts the session", func(t *testing.T) {
		svc, repo, _, _ := setupServiceTest()
		expectEmptyLoad(repo, it)
		repo.On("DeleteItinerary", mock.Anything, int64(9)).Return(nil).Once()

		_, err := svc.OpenSession(context.Background(), owner, 9)
		require.NoError(t, err)
		require.NoError(t, svc.DeleteItinerary(context.Background(), owner, 9))

		_, cached := svc.sessions.Get(sessionKey(owner, 9))
		assert.False(t, cached)
	})
}
