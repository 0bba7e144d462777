package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	"github.com/ignatzorin/servicehub-backend/internal/http/router"
	"github.com/ignatzorin/servicehub-backend/internal/infrastructure/cache"
	newHandler "github.com/ignatzorin/servicehub-backend/internal/interface/http/handler"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/retry"
	"github.com/ignatzorin/servicehub-backend/internal/service"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/booking"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/completion"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/review"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/usecasetest"
	"github.com/ignatzorin/servicehub-backend/internal/ws"
)

type userStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newUserStore() *userStore {
	return &userStore{byEmail: map[string]*models.User{}, byID: map[uuid.UUID]*models.User{}}
}

func (s *userStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return apperror.ErrEmailTaken
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.byEmail[u.Email] = u
	s.byID[u.ID] = u
	return nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (s *userStore) IsProvider(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	return ok && u.IsProvider(), nil
}

type notificationStore struct {
	mu    sync.Mutex
	items []models.Notification
}

func (s *notificationStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	s.items = append(s.items, *n)
	return nil
}

func (s *notificationStore) List(_ context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for i := len(s.items) - 1; i >= 0; i-- {
		n := s.items[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	if offset >= len(out) {
		return []models.Notification{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *notificationStore) MarkAsRead(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			return nil
		}
	}
	return apperror.ErrNotificationNotFound
}

func (s *notificationStore) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *notificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

// persistingNotifier пишет уведомления в хранилище без realtime доставки.
type persistingNotifier struct {
	notifications *service.NotificationService
}

func (n persistingNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	_, err := n.notifications.CreateNotification(ctx, userID, event, data)
	return err
}

type testServer struct {
	engine   *gin.Engine
	bookings *usecasetest.BookingRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:             "test",
		RateLimitLimit:  100,
		RateLimitPeriod: time.Minute,
	}

	users := newUserStore()
	tokens := service.NewTokenManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	authService := service.NewAuthService(users, tokens)
	notificationService := service.NewNotificationService(&notificationStore{})
	notifier := persistingNotifier{notifications: notificationService}

	bookingRepo := usecasetest.NewBookingRepository()
	reviewRepo := usecasetest.NewReviewRepository()
	statusLog := statuslog.New(usecasetest.NewStatusLogRepository())

	suppressed := cache.NewMemorySet(time.Minute)
	t.Cleanup(func() { _ = suppressed.Close() })

	coordinator := completion.NewCoordinator(bookingRepo, statusLog, reviewRepo, suppressed, notifier, nil, completion.Options{
		StatusUpdate: retry.Strategy{Attempts: 1},
	})
	poller := completion.NewConfirmationPoller(bookingRepo, coordinator, suppressed, nil, nil, completion.PollerOptions{
		PromptTTL: time.Minute,
	})

	engine := router.SetupRouter(cfg, router.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Notification: handlers.NewNotificationHandler(notificationService),
		WS:           handlers.NewWSHandler(ws.NewHub(), tokens, nil),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(context.Context) error { return nil }),
		}),
		Booking: newHandler.NewBookingHandler(
			booking.NewCreateBookingUseCase(bookingRepo, statusLog, users, notifier),
			booking.NewConfirmBookingUseCase(bookingRepo, statusLog, notifier, nil),
			booking.NewCancelBookingUseCase(bookingRepo, statusLog, notifier, nil),
			booking.NewGetBookingUseCase(bookingRepo),
			booking.NewListMyBookingsUseCase(bookingRepo),
			booking.NewStatusHistoryUseCase(bookingRepo, statusLog),
		),
		Completion: newHandler.NewCompletionHandler(coordinator, poller),
		Review: newHandler.NewReviewHandler(
			review.NewListProviderReviewsUseCase(reviewRepo),
			review.NewGetBookingReviewUseCase(bookingRepo, reviewRepo),
			review.NewRespondToReviewUseCase(reviewRepo, notifier),
		),
	}, tokens)

	return &testServer{engine: engine, bookings: bookingRepo}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

type account struct {
	ID    uuid.UUID
	Token string
}

func (s *testServer) register(t *testing.T, email, role string) account {
	t.Helper()

	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	var data struct {
		User   models.User        `json:"user"`
		Tokens service.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Tokens.AccessToken)
	return account{ID: data.User.ID, Token: data.Tokens.AccessToken}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/no-such-route", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	acc := s.register(t, "Anna@Example.com", "")

	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "anna@example.com",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "anna@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "anna@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, code)
	login := decode[struct {
		Tokens service.TokenPair `json:"tokens"`
	}](t, env.Data)

	code, env = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": login.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/auth/me", acc.Token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[models.User](t, env.Data)
	assert.Equal(t, acc.ID, me.ID)
	assert.Equal(t, models.RoleConsumer, me.Role)
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	consumer := s.register(t, "consumer@example.com", models.RoleConsumer)

	code, env := s.do(t, http.MethodGet, "/api/bookings/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/my", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/not-a-uuid", consumer.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/api/bookings/"+uuid.NewString()+"/complete", consumer.Token, map[string]interface{}{
		"actual_price": 10,
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/"+uuid.NewString(), consumer.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBookingCompletionFlow(t *testing.T) {
	s := newTestServer(t)
	consumer := s.register(t, "consumer@example.com", models.RoleConsumer)
	provider := s.register(t, "provider@example.com", models.RoleProvider)

	code, env := s.do(t, http.MethodPost, "/api/bookings", consumer.Token, map[string]interface{}{
		"provider_id":     provider.ID,
		"service_id":      uuid.New(),
		"estimated_price": 100,
		"scheduled_at":    time.Now().Add(48 * time.Hour),
		"location":        "Lenina 1",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decode[struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}](t, env.Data)
	assert.Equal(t, "pending", created.Status)
	base := "/api/bookings/" + created.ID.String()

	code, _ = s.do(t, http.MethodPost, base+"/confirm-completion", consumer.Token, map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusConflict, code, "booking is not awaiting confirmation yet")

	code, _ = s.do(t, http.MethodPost, base+"/confirm", provider.Token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPost, base+"/complete", provider.Token, map[string]interface{}{
		"actual_price": 120,
		"notes":        "replaced two valves",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "pending_confirmation", decode[struct {
		Status string `json:"status"`
	}](t, env.Data).Status)

	require.Eventually(t, func() bool {
		code, env := s.do(t, http.MethodGet, "/api/bookings/pending-confirmation", consumer.Token, nil)
		if code != http.StatusOK {
			return false
		}
		pending := decode[struct {
			Prompt *completion.Prompt `json:"prompt"`
		}](t, env.Data)
		return pending.Prompt != nil && pending.Prompt.BookingID == created.ID
	}, 2*time.Second, 20*time.Millisecond)

	code, _ = s.do(t, http.MethodPost, base+"/confirm-completion", consumer.Token, map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, base+"/confirm-completion", consumer.Token, map[string]interface{}{
		"rating":      5,
		"review_text": "fast and tidy",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	confirmed := decode[struct {
		Booking struct {
			Status string `json:"status"`
		} `json:"booking"`
		Review struct {
			ID uuid.UUID `json:"id"`
		} `json:"review"`
		ReviewCreated bool `json:"review_created"`
	}](t, env.Data)
	assert.Equal(t, "completed", confirmed.Booking.Status)
	assert.True(t, confirmed.ReviewCreated)

	code, env = s.do(t, http.MethodPost, base+"/confirm-completion", consumer.Token, map[string]interface{}{"rating": 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/api/bookings/pending-confirmation", consumer.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, decode[struct {
		Prompt *completion.Prompt `json:"prompt"`
	}](t, env.Data).Prompt)

	code, env = s.do(t, http.MethodGet, base+"/history", consumer.Token, nil)
	require.Equal(t, http.StatusOK, code)
	history := decode[[]struct {
		Status string `json:"status"`
	}](t, env.Data)
	require.Len(t, history, 4)
	assert.Equal(t, "completed", history[3].Status)

	code, _ = s.do(t, http.MethodGet, base+"/review", consumer.Token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/reviews/"+confirmed.Review.ID.String()+"/response", provider.Token, map[string]string{
		"response": "thank you",
	})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/providers/"+provider.ID.String()+"/reviews", consumer.Token, nil)
	require.Equal(t, http.StatusOK, code)
	reviews := decode[struct {
		TotalReviews  int     `json:"total_reviews"`
		AverageRating float64 `json:"average_rating"`
	}](t, env.Data)
	assert.Equal(t, 1, reviews.TotalReviews)
	assert.Equal(t, 5.0, reviews.AverageRating)

	code, env = s.do(t, http.MethodPost, "/api/bookings/reconcile", consumer.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, decode[struct {
		Scanned int `json:"scanned"`
	}](t, env.Data).Scanned)
}

func TestNotificationsRoutes(t *testing.T) {
	s := newTestServer(t)
	consumer := s.register(t, "consumer@example.com", models.RoleConsumer)
	provider := s.register(t, "provider@example.com", models.RoleProvider)

	code, _ := s.do(t, http.MethodPost, "/api/bookings", consumer.Token, map[string]interface{}{
		"provider_id":     provider.ID,
		"service_id":      uuid.New(),
		"estimated_price": 50,
		"scheduled_at":    time.Now().Add(time.Hour),
		"location":        "Pushkina 10",
	})
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, http.MethodGet, "/api/notifications/unread-count", provider.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, env.Data).Count)

	code, env = s.do(t, http.MethodGet, "/api/notifications", provider.Token, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[[]models.Notification](t, env.Data)
	require.Len(t, list, 1)
	assert.Contains(t, string(list[0].Payload), booking.EventBookingCreated)

	code, _ = s.do(t, http.MethodPut, "/api/notifications/"+list[0].ID.String()+"/read", consumer.Token, nil)
	assert.Equal(t, http.StatusNotFound, code, "other user's notification")

	code, _ = s.do(t, http.MethodPut, "/api/notifications/"+list[0].ID.String()+"/read", provider.Token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodPut, "/api/notifications/read-all", provider.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), decode[struct {
		Updated int64 `json:"updated"`
	}](t, env.Data).Updated)
}
