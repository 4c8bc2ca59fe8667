package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parcelhop/internal/app"
	intconfig "parcelhop/internal/config"
	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/http/middleware"
	"parcelhop/internal/payments"
	"parcelhop/internal/store/memory"
)

const testSecret = "router-test-secret"

type server struct {
	engine   *gin.Engine
	provider *payments.Sandbox
	shipper  string
	traveler string
	admin    string
	system   string
	stranger string
	ids      map[string]domain.ID
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	repos := memory.New().Repositories()
	provider := payments.NewSandbox()
	a := app.New(repos, app.Options{
		FeeRate:         0.12,
		MaxAttempts:     5,
		DeliveryCodeKey: "router-test-delivery-code-key-0123456789",
		Provider:        provider,
		Now:             func() time.Time { return now },
		HashCost:        bcrypt.MinCost,
	})

	s := &server{provider: provider, ids: map[string]domain.ID{}}
	for _, name := range []string{"shipper", "traveler", "stranger"} {
		id := uuid.New()
		s.ids[name] = id
		require.NoError(t, repos.Users.Upsert(context.Background(), models.User{
			ID: id, Name: name, KYCVerified: true, CreatedAt: now, UpdatedAt: now,
		}))
	}
	s.shipper = token(t, s.ids["shipper"], domain.RoleUser)
	s.traveler = token(t, s.ids["traveler"], domain.RoleUser)
	s.stranger = token(t, s.ids["stranger"], domain.RoleUser)
	s.admin = token(t, uuid.New(), domain.RoleAdmin)
	s.system = token(t, uuid.Nil, domain.RoleSystem)

	env := intconfig.Env{JWTSecret: testSecret}
	s.engine = NewRouter(env, a.API(nil))
	return s
}

func token(t *testing.T, id domain.ID, role string) string {
	t.Helper()
	tok, err := middleware.IssueToken([]byte(testSecret), id, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type tripBody struct {
	ID          string  `json:"id"`
	RemainingKg float64 `json:"remaining_weight_kg"`
	Status      string  `json:"status"`
}

type txBody struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	AgreedPrice    float64 `json:"agreed_price"`
	PlatformFee    float64 `json:"platform_fee"`
	TravelerPayout float64 `json:"traveler_payout"`
	ProcessorRef   string  `json:"processor_ref"`
	TransferRef    string  `json:"transfer_ref"`
}

type created struct {
	Transaction  txBody `json:"transaction"`
	DeliveryCode string `json:"delivery_code"`
}

type errBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

func (s *server) createTrip(t *testing.T, kg float64) tripBody {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/trips", s.traveler, map[string]any{
		"departure_city":      "Paris",
		"departure_country":   "FR",
		"arrival_city":        "Casablanca",
		"arrival_country":     "MA",
		"departure_at":        "2025-06-04T09:00:00Z",
		"available_weight_kg": kg,
		"price_per_kg":        8.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tripBody](t, rec)
}

func (s *server) createPackage(t *testing.T, kg float64) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/packages", s.shipper, map[string]any{
		"weight_kg":           kg,
		"contents":            "books",
		"budget":              100.0,
		"origin_city":         "paris",
		"origin_country":      "FR",
		"destination_city":    "Casablanca",
		"destination_country": "MA",
		"earliest_departure":  "2025-06-01",
		"latest_departure":    "2025-06-08",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](t, rec).ID
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/trips/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/trips/"+uuid.NewString(), "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliveryLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	trip := s.createTrip(t, 15)
	assert.InDelta(t, 15.0, trip.RemainingKg, 1e-9)
	pkgID := s.createPackage(t, 8)

	rec := s.do(t, http.MethodGet, "/api/packages/"+pkgID+"/matches", s.shipper, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	matches := decode[struct {
		Data []struct {
			Trip           tripBody `json:"trip"`
			SuggestedPrice float64  `json:"suggested_price"`
		} `json:"data"`
	}](t, rec)
	require.Len(t, matches.Data, 1)
	assert.Equal(t, trip.ID, matches.Data[0].Trip.ID)
	assert.InDelta(t, 64.0, matches.Data[0].SuggestedPrice, 1e-9)

	rec = s.do(t, http.MethodPost, "/api/matches", s.shipper, map[string]any{
		"package_id": pkgID, "trip_id": trip.ID, "proposed_price": 64.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[created](t, rec)
	assert.Equal(t, "PENDING", c.Transaction.Status)
	assert.InDelta(t, 7.68, c.Transaction.PlatformFee, 1e-9)
	assert.InDelta(t, 56.32, c.Transaction.TravelerPayout, 1e-9)
	require.Len(t, c.DeliveryCode, 6)
	txPath := "/api/transactions/" + c.Transaction.ID

	rec = s.do(t, http.MethodGet, "/api/trips/"+trip.ID, s.traveler, nil)
	assert.InDelta(t, 7.0, decode[tripBody](t, rec).RemainingKg, 1e-9)

	rec = s.do(t, http.MethodPost, txPath+"/pay", s.shipper, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ref := decode[txBody](t, rec).ProcessorRef
	require.NotEmpty(t, ref)

	rec = s.do(t, http.MethodPost, txPath+"/confirm-payment", s.shipper, map[string]string{"processor_ref": ref})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the webhook role may confirm")

	rec = s.do(t, http.MethodPost, txPath+"/confirm-payment", s.system, map[string]string{"processor_ref": ref})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PAID", decode[txBody](t, rec).Status)

	rec = s.do(t, http.MethodPost, txPath+"/pickup", s.traveler, map[string]string{"photo_ref": "pickup.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, txPath+"/in-transit", s.traveler, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	wrong := "000000"
	if c.DeliveryCode == wrong {
		wrong = "111111"
	}
	rec = s.do(t, http.MethodPost, txPath+"/deliver", s.traveler, map[string]string{"code": wrong, "photo_ref": "door.jpg"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_delivery_code", decode[errBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, txPath+"/deliver", s.traveler, map[string]string{"code": c.DeliveryCode, "photo_ref": "door.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DELIVERED", decode[txBody](t, rec).Status)

	rec = s.do(t, http.MethodPost, txPath+"/complete", s.traveler, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, txPath+"/complete", s.shipper, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[txBody](t, rec)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.NotEmpty(t, done.TransferRef)

	rec = s.do(t, http.MethodGet, txPath+"/receipt", s.shipper, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "RECEIPT_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(t, http.MethodGet, txPath+"/receipt", s.stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, txPath+"/reviews", s.shipper, map[string]any{
		"reviewed_id": s.ids["traveler"].String(),
		"ratings":     map[string]int{"overall": 5, "communication": 4, "punctuality": 5, "care": 5},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, txPath+"/reviews", s.shipper, map[string]any{
		"reviewed_id": s.ids["traveler"].String(),
		"ratings":     map[string]int{"overall": 1, "communication": 1, "punctuality": 1, "care": 1},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/"+s.ids["traveler"].String(), s.stranger, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[struct {
		Rating       float64 `json:"rating"`
		ReviewsCount int     `json:"reviews_count"`
		Email        string  `json:"email"`
	}](t, rec)
	assert.InDelta(t, 5.0, profile.Rating, 1e-9)
	assert.Equal(t, 1, profile.ReviewsCount)

	movements := s.provider.Movements()
	require.Len(t, movements, 2)
	assert.Equal(t, models.Cents(5632), movements[1].Amount)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	trip := s.createTrip(t, 5)
	pkgID := s.createPackage(t, 8)

	rec := s.do(t, http.MethodPost, "/api/matches", s.shipper, map[string]any{
		"package_id": pkgID, "trip_id": trip.ID, "proposed_price": 40.0,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errBody](t, rec)
	assert.Equal(t, "insufficient_capacity", body.Code)
	assert.NotEmpty(t, body.RequestID)

	rec = s.do(t, http.MethodGet, "/api/trips/not-a-uuid", s.shipper, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/trips/"+uuid.NewString(), s.shipper, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/trips", s.traveler, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/trips/"+trip.ID+"/cancel", s.shipper, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/admin/users/"+uuid.NewString(), s.shipper, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestKYCGateOverHTTP(t *testing.T) {
	s := newServer(t)
	trip := s.createTrip(t, 15)
	pkgID := s.createPackage(t, 2)

	rec := s.do(t, http.MethodPut, "/api/admin/users/"+s.ids["shipper"].String(), s.admin, map[string]any{
		"name": "Sam Shipper", "email": "Sam@Example.com", "kyc_verified": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/transactions", s.shipper, map[string]any{
		"package_id": pkgID, "trip_id": trip.ID, "agreed_price": 16.0,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "kyc_not_verified", decode[errBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/users/"+s.ids["shipper"].String(), s.shipper, nil)
	assert.Equal(t, "sam@example.com", decode[struct {
		Email string `json:"email"`
	}](t, rec).Email, "users see their own email")

	rec = s.do(t, http.MethodGet, "/api/users/"+s.ids["shipper"].String(), s.traveler, nil)
	assert.Empty(t, decode[struct {
		Email string `json:"email"`
	}](t, rec).Email)
}

func TestTravelerSeesMatchingPackages(t *testing.T) {
	s := newServer(t)
	trip := s.createTrip(t, 10)
	small := s.createPackage(t, 3)
	s.createPackage(t, 12)

	rec := s.do(t, http.MethodGet, "/api/trips/"+trip.ID+"/packages", s.traveler, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}](t, rec)
	require.Len(t, out.Data, 1)
	assert.Equal(t, small, out.Data[0].ID)
}
