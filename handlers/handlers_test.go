package handlers_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"
	"golang.org/x/crypto/bcrypt"

	availabilityRepo "gigcal/database/repository/availability"
	"gigcal/handlers"
	"gigcal/models"
	"gigcal/routes"
	"gigcal/services/availability"
	"gigcal/utils"
)

const (
	jwtSecret     = "handler-test-secret"
	adminKey      = "handler-admin-key"
	webhookSecret = "whsec_test"
)

type testServer struct {
	router *gin.Engine
	user   string
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := availability.NewAvailabilityService(availabilityRepo.NewMemoryAvailabilityRepo(), availability.Settings{
		DefaultTTL:   15 * time.Minute,
		MinTTL:       time.Second,
		MaxTTL:       time.Hour,
		MaxRangeDays: 366,
	}, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	ah := handlers.NewAvailabilityHandler(svc)
	adm := handlers.NewAdminHandler(svc)
	wh := handlers.NewWebhookHandler(svc, webhookSecret)
	cal := handlers.NewCalendarHandler(svc, "Test Band")
	hb := &handlers.HandlerBundle{
		JWTSecret:            jwtSecret,
		AdminKeyHash:         string(hash),
		GetStatusHandler:     ah.GetStatus,
		HoldHandler:          ah.Hold,
		ConfirmHandler:       ah.Confirm,
		CancelHoldHandler:    ah.CancelHold,
		CalendarHandler:      cal.Feed,
		AdminBlockHandler:    adm.Block,
		AdminReleaseHandler:  adm.Release,
		AdminRangeHandler:    adm.Range,
		StripeWebhookHandler: wh.Stripe,
	}

	r := gin.New()
	r.Use(utils.ErrorHandler())
	routes.RegisterRoutes(r, hb)

	user, _ := utils.GenerateToken("user-1", "", jwtSecret, time.Hour)
	admin, _ := utils.GenerateToken("ops-1", utils.RoleAdmin, jwtSecret, time.Hour)
	return &testServer{router: r, user: user, admin: admin}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body %s", w.Code, want, w.Body.String())
	}
}

func expectErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if got := decode[utils.ErrorResponse](t, w).ErrorCode; got != code {
		t.Fatalf("error_code = %q, want %q", got, code)
	}
}

func TestHoldConfirmScenario(t *testing.T) {
	s := newTestServer(t)
	const day = "2025-12-24"

	w := s.do(t, http.MethodPost, "/api/availability/hold", s.user, models.HoldRequest{Date: day, TTLSeconds: 600})
	expectStatus(t, w, http.StatusOK)
	hold := decode[models.HoldResult](t, w)
	if hold.Token == "" || hold.HoldUntil.IsZero() {
		t.Fatalf("unexpected hold %+v", hold)
	}

	w = s.do(t, http.MethodPost, "/api/availability/hold", s.user, models.HoldRequest{Date: day, TTLSeconds: 600})
	expectErrorCode(t, w, http.StatusConflict, "date_held")

	w = s.do(t, http.MethodPost, "/api/availability/confirm", s.user, models.ConfirmRequest{Date: day, Token: hold.Token})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, "/api/availability/hold", s.user, models.HoldRequest{Date: day})
	expectErrorCode(t, w, http.StatusConflict, "date_busy")

	w = s.do(t, http.MethodGet, "/api/availability/status?date="+day, "", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[models.DayStatus](t, w).Status; got != models.StatusBusy {
		t.Fatalf("status = %s", got)
	}
}

func TestSingleStatusShowsHoldDetails(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/availability/hold", s.user,
		models.HoldRequest{Date: "2026-03-01", Note: "wedding", TTLSeconds: 300})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/availability/status?date=2026-03-01", "", nil)
	expectStatus(t, w, http.StatusOK)
	day := decode[models.DayStatus](t, w)
	if day.Status != models.StatusHold || day.HoldUntil == nil || day.Note != "wedding" {
		t.Fatalf("unexpected day %+v", day)
	}
}

func TestRangeStatusPublicAndAdmin(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/availability/hold", s.user,
		models.HoldRequest{Date: "2026-04-02", Note: "private", TTLSeconds: 300})
	w := s.do(t, http.MethodPost, "/api/admin/availability/block", s.admin,
		models.ConfirmRequest{Date: "2026-04-03", Note: "maintenance"})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/availability/status?from=2026-04-01&to=2026-04-05", "", nil)
	expectStatus(t, w, http.StatusOK)
	public := decode[models.RangeResponse](t, w)
	if len(public.Days) != 5 {
		t.Fatalf("got %d days", len(public.Days))
	}
	if public.Days[1].Status != models.StatusHold || public.Days[1].Note != "" || public.Days[1].HoldUntil != nil {
		t.Fatalf("public range leaked hold details: %+v", public.Days[1])
	}
	if public.Days[2].Status != models.StatusBusy {
		t.Fatalf("day 3 = %+v", public.Days[2])
	}

	w = s.do(t, http.MethodGet, "/api/admin/availability?from=2026-04-01&to=2026-04-05", s.admin, nil)
	expectStatus(t, w, http.StatusOK)
	admin := decode[models.RangeResponse](t, w)
	if admin.Days[1].Note != "private" || admin.Days[1].HoldUntil == nil {
		t.Fatalf("admin range missing hold details: %+v", admin.Days[1])
	}
	if admin.Days[2].Note != "maintenance" {
		t.Fatalf("admin range missing busy note: %+v", admin.Days[2])
	}
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"bad date", http.MethodGet, "/api/availability/status?date=2026-13-01", "", nil, http.StatusBadRequest, "invalid_date"},
		{"reversed range", http.MethodGet, "/api/availability/status?from=2026-02-10&to=2026-02-01", "", nil, http.StatusBadRequest, "invalid_range"},
		{"no query", http.MethodGet, "/api/availability/status", "", nil, http.StatusBadRequest, "invalid_request"},
		{"half range", http.MethodGet, "/api/availability/status?from=2026-02-01", "", nil, http.StatusBadRequest, "invalid_request"},
		{"missing hold date", http.MethodPost, "/api/availability/hold", s.user, map[string]any{"ttlSeconds": 60}, http.StatusBadRequest, "invalid_request"},
		{"hold bad date", http.MethodPost, "/api/availability/hold", s.user, models.HoldRequest{Date: "24/12/2025"}, http.StatusBadRequest, "invalid_date"},
		{"long note", http.MethodPost, "/api/availability/confirm", s.user,
			models.ConfirmRequest{Date: "2026-01-01", Note: string(bytes.Repeat([]byte("x"), models.MaxNoteLength+1))},
			http.StatusBadRequest, "invalid_note"},
		{"cancel without token", http.MethodDelete, "/api/availability/hold", s.user, models.ReleaseRequest{Date: "2026-01-01"}, http.StatusBadRequest, "missing_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectErrorCode(t, s.do(t, tt.method, tt.path, tt.token, tt.body), tt.status, tt.code)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/availability/hold", "", models.HoldRequest{Date: "2026-01-01"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/api/availability/release", s.user, models.ReleaseRequest{Date: "2026-01-01"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, http.MethodPost, "/api/availability/release", adminKey, models.ReleaseRequest{Date: "2026-01-01"})
	expectStatus(t, w, http.StatusOK)
}

func TestCancelHoldAndAdminRelease(t *testing.T) {
	s := newTestServer(t)
	const day = "2026-05-05"

	hold := decode[models.HoldResult](t, s.do(t, http.MethodPost, "/api/availability/hold", s.user,
		models.HoldRequest{Date: day, TTLSeconds: 300}))

	w := s.do(t, http.MethodDelete, "/api/availability/hold", s.user, models.ReleaseRequest{Date: day, Token: "someone-else"})
	expectStatus(t, w, http.StatusOK)
	if decode[map[string]any](t, w)["released"] != false {
		t.Fatal("foreign token released the hold")
	}

	w = s.do(t, http.MethodDelete, "/api/availability/hold", s.user, models.ReleaseRequest{Date: day, Token: hold.Token})
	expectStatus(t, w, http.StatusOK)
	if decode[map[string]any](t, w)["released"] != true {
		t.Fatal("owner could not release the hold")
	}

	s.do(t, http.MethodPost, "/api/availability/confirm", s.user, models.ConfirmRequest{Date: day})
	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, "/api/availability/release", s.admin, models.ReleaseRequest{Date: day})
		expectStatus(t, w, http.StatusOK)
	}
	w = s.do(t, http.MethodGet, "/api/availability/status?date="+day, "", nil)
	if got := decode[models.DayStatus](t, w).Status; got != models.StatusFree {
		t.Fatalf("status after release = %s", got)
	}
}

func stripeRequest(t *testing.T, s *testServer, eventType string, metadata map[string]string, secret string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_test",
		"object": "event",
		"type":   eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":       "pi_test",
				"object":   "payment_intent",
				"metadata": metadata,
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t)

	paid := decode[models.HoldResult](t, s.do(t, http.MethodPost, "/api/availability/hold", s.user,
		models.HoldRequest{Date: "2026-06-01", TTLSeconds: 300}))
	failed := decode[models.HoldResult](t, s.do(t, http.MethodPost, "/api/availability/hold", s.user,
		models.HoldRequest{Date: "2026-06-02", TTLSeconds: 300}))

	w := stripeRequest(t, s, "payment_intent.succeeded",
		map[string]string{handlers.MetadataDate: "2026-06-01", handlers.MetadataToken: paid.Token}, webhookSecret)
	expectStatus(t, w, http.StatusOK)

	w = stripeRequest(t, s, "payment_intent.payment_failed",
		map[string]string{handlers.MetadataDate: "2026-06-02", handlers.MetadataToken: failed.Token}, webhookSecret)
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodGet, "/api/availability/status?from=2026-06-01&to=2026-06-02", "", nil)
	days := decode[models.RangeResponse](t, w).Days
	if days[0].Status != models.StatusBusy || days[1].Status != models.StatusFree {
		t.Fatalf("unexpected days after webhooks: %+v", days)
	}

	w = stripeRequest(t, s, "payment_intent.succeeded",
		map[string]string{handlers.MetadataDate: "2026-06-03"}, "whsec_wrong")
	expectStatus(t, w, http.StatusBadRequest)

	w = stripeRequest(t, s, "charge.refunded", nil, webhookSecret)
	expectStatus(t, w, http.StatusOK)
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)
	expectStatus(t, s.do(t, http.MethodGet, "/health", "", nil), http.StatusOK)
}

func TestCalendarFeed(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/availability/hold", s.user, models.HoldRequest{Date: "2026-07-01", Note: "secret", TTLSeconds: 300})
	s.do(t, http.MethodPost, "/api/availability/confirm", s.user, models.ConfirmRequest{Date: "2026-07-03"})

	w := s.do(t, http.MethodGet, "/api/availability/calendar.ics?from=2026-07-01&to=2026-07-05", "", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %s", ct)
	}
	body := w.Body.String()
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Fatalf("want 2 events, got %d:\n%s", n, body)
	}
	for _, want := range []string{
		"DTSTART;VALUE=DATE:20260701",
		"STATUS:TENTATIVE",
		"DTSTART;VALUE=DATE:20260703",
		"STATUS:CONFIRMED",
		"Test Band",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %q", want)
		}
	}
	if strings.Contains(body, "secret") {
		t.Fatal("feed leaked a hold note")
	}

	w = s.do(t, http.MethodGet, "/api/availability/calendar.ics?from=2026-07-10&to=2026-07-01", "", nil)
	expectErrorCode(t, w, http.StatusBadRequest, "invalid_range")
}
