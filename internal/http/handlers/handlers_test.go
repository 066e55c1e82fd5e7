package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatmatch/internal/domain"
	"chatmatch/internal/entitlement"
	"chatmatch/internal/infra"
	"chatmatch/internal/middleware"
	"chatmatch/internal/payments"
	"chatmatch/internal/providers/replies"
)

type fakeUserRepo struct {
	users        map[string]*domain.User
	commits      int
	subscription *struct {
		userID string
		active bool
	}
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) UpsertByTelegramID(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range f.users {
		if u.TelegramID == user.TelegramID {
			return u, nil
		}
	}
	user.ID = "user-" + user.TelegramID
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) SetStripeCustomerID(_ context.Context, userID, customerID string) error {
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.StripeCustomerID = customerID
	return nil
}

func (f *fakeUserRepo) SetSubscription(_ context.Context, userID string, subType domain.SubscriptionType, active bool, expiresAt *time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.SubscriptionType = subType
	u.SubscriptionActive = active
	u.SubscriptionExpiresAt = expiresAt
	f.subscription = &struct {
		userID string
		active bool
	}{userID, active}
	return nil
}

func (f *fakeUserRepo) CommitUsage(_ context.Context, userID string, now time.Time) (*domain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	f.commits++
	u.DailyGenerations++
	u.MonthlyGenerations++
	return u, nil
}

type fakeGenRepo struct {
	created  []*domain.Generation
	selected map[string]string
}

func (f *fakeGenRepo) Create(_ context.Context, gen *domain.Generation) error {
	gen.ID = fmt.Sprintf("gen-%d", len(f.created)+1)
	gen.CreatedAt = time.Now()
	f.created = append(f.created, gen)
	return nil
}

func (f *fakeGenRepo) GetForUser(_ context.Context, id, userID string) (*domain.Generation, error) {
	for _, g := range f.created {
		if g.ID == id && g.UserID == userID {
			return g, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Generation, error) {
	var out []domain.Generation
	for _, g := range f.created {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGenRepo) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, g := range f.created {
		if g.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeGenRepo) SelectResponse(_ context.Context, id, userID, response string) error {
	for _, g := range f.created {
		if g.ID == id && g.UserID == userID {
			if f.selected == nil {
				f.selected = make(map[string]string)
			}
			f.selected[id] = response
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakePaymentRepo struct {
	payments map[string]*domain.Payment
}

func newFakePaymentRepo(list ...*domain.Payment) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: make(map[string]*domain.Payment)}
	for _, p := range list {
		repo.payments[p.ID] = p
	}
	return repo
}

func (f *fakePaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	if p.ID == "" {
		p.ID = fmt.Sprintf("pay-%d", len(f.payments)+1)
	}
	p.CreatedAt = time.Now()
	f.payments[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	if p, ok := f.payments[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) MarkSucceeded(_ context.Context, id, chargeID string) error {
	p, ok := f.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.PaymentSucceeded
	p.TelegramChargeID = chargeID
	return nil
}

func (f *fakePaymentRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	list, _ := f.ListByUser(ctx, userID, 0, 0)
	return len(list), nil
}

type fakeGenerator struct {
	result *replies.Result
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, msgs []replies.Message, tone replies.Tone) (*replies.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBot struct {
	answered []bool
	reasons  []string
}

func (f *fakeBot) AnswerPreCheckoutQuery(_ context.Context, queryID string, ok bool, errorMessage string) error {
	f.answered = append(f.answered, ok)
	f.reasons = append(f.reasons, errorMessage)
	return nil
}

func testApp(users *fakeUserRepo, gens *fakeGenRepo, pays *fakePaymentRepo) *App {
	return &App{
		Cfg: &infra.Config{
			JWTSecret:                "test-secret",
			TelegramBotToken:         "123:abc",
			ProPriceRub:              499,
			SubscriptionPeriodMonths: 1,
			StarsInvoiceLink:         "https://t.me/$inv?start=x",
		},
		Logger:      zerolog.Nop(),
		Users:       users,
		Generations: gens,
		Payments:    pays,
		Engine:      entitlement.NewEngine(5, 300, time.UTC),
		Replies:     &fakeGenerator{},
		Stripe:      payments.NewStripeService("", "", "", ""),
		Bot:         &fakeBot{},
	}
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func freeUser(id string) *domain.User {
	return &domain.User{
		ID:               id,
		TelegramID:       "42",
		SubscriptionType: domain.SubscriptionFree,
		LastResetAt:      time.Now(),
	}
}

func TestGenerateSuccessCommitsUsage(t *testing.T) {
	users := newFakeUserRepo(freeUser("u1"))
	gens := &fakeGenRepo{}
	app := testApp(users, gens, newFakePaymentRepo())
	gen := &fakeGenerator{result: &replies.Result{
		Suggestions: []replies.Suggestion{{Text: "a"}, {Text: "b"}, {Text: "c"}},
		TokensUsed:  120,
		Model:       "gpt-3.5-turbo",
	}}
	app.Replies = gen

	body, _ := json.Marshal(generateRequest{
		Messages: []replies.Message{{Sender: "them", Text: "Привет!"}},
		Tone:     "flirt",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/chat/generate", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
	if len(gens.created) != 1 {
		t.Fatalf("stored generations = %d, want 1", len(gens.created))
	}
	if users.commits != 1 {
		t.Fatalf("usage commits = %d, want 1", users.commits)
	}

	var resp struct {
		Usage entitlement.Usage `json:"usage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Usage.Used != 1 || resp.Usage.Remaining != 4 {
		t.Fatalf("usage = %+v, want used 1 remaining 4", resp.Usage)
	}
}

func TestGenerateQuotaExceeded(t *testing.T) {
	user := freeUser("u1")
	user.DailyGenerations = 5
	users := newFakeUserRepo(user)
	gens := &fakeGenRepo{}
	app := testApp(users, gens, newFakePaymentRepo())
	gen := &fakeGenerator{result: &replies.Result{Suggestions: []replies.Suggestion{{Text: "a"}}}}
	app.Replies = gen

	body, _ := json.Marshal(generateRequest{
		Messages: []replies.Message{{Sender: "them", Text: "hi"}},
		Tone:     "friendly",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/chat/generate", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.Generate(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator was called despite exhausted quota")
	}
	if users.commits != 0 {
		t.Fatalf("usage was committed despite rejection")
	}
}

func TestGenerateProviderFailureDoesNotCharge(t *testing.T) {
	users := newFakeUserRepo(freeUser("u1"))
	gens := &fakeGenRepo{}
	app := testApp(users, gens, newFakePaymentRepo())
	app.Replies = &fakeGenerator{err: errors.New("upstream down")}

	body, _ := json.Marshal(generateRequest{
		Messages: []replies.Message{{Sender: "them", Text: "hi"}},
		Tone:     "serious",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/chat/generate", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.Generate(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if users.commits != 0 {
		t.Fatalf("usage was committed for a failed generation")
	}
	if len(gens.created) != 0 {
		t.Fatalf("generation was stored for a failed call")
	}
}

func TestGenerateRejectsUnknownTone(t *testing.T) {
	app := testApp(newFakeUserRepo(freeUser("u1")), &fakeGenRepo{}, newFakePaymentRepo())
	body, _ := json.Marshal(generateRequest{
		Messages: []replies.Message{{Sender: "them", Text: "hi"}},
		Tone:     "sarcastic",
	})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/chat/generate", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.Generate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSelectUnknownGeneration(t *testing.T) {
	app := testApp(newFakeUserRepo(freeUser("u1")), &fakeGenRepo{}, newFakePaymentRepo())
	body, _ := json.Marshal(selectRequest{GenerationID: "missing", Response: "ok"})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/chat/select", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	app.Select(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMeReturnsUsage(t *testing.T) {
	user := freeUser("u1")
	user.DailyGenerations = 2
	app := testApp(newFakeUserRepo(user), &fakeGenRepo{}, newFakePaymentRepo())

	req := authed(httptest.NewRequest(http.MethodGet, "/api/user/me", nil), "u1")
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var dto userDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.Usage.Tier != entitlement.TierFree || dto.Usage.Used != 2 || dto.Usage.Remaining != 3 {
		t.Fatalf("usage = %+v, want free 2/5", dto.Usage)
	}
}

func TestMeUnauthorized(t *testing.T) {
	app := testApp(newFakeUserRepo(), &fakeGenRepo{}, newFakePaymentRepo())
	rec := httptest.NewRecorder()
	app.Me(rec, httptest.NewRequest(http.MethodGet, "/api/user/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStarsCreateInvoice(t *testing.T) {
	pays := newFakePaymentRepo()
	app := testApp(newFakeUserRepo(freeUser("u1")), &fakeGenRepo{}, pays)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/subscription/telegram-stars/create-invoice", nil), "u1")
	rec := httptest.NewRecorder()
	app.StarsCreateInvoice(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(pays.payments) != 1 {
		t.Fatalf("pending payments = %d, want 1", len(pays.payments))
	}
	var resp struct {
		InvoiceLink string `json:"invoice_link"`
		PaymentID   string `json:"payment_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PaymentID == "" || resp.InvoiceLink == "" {
		t.Fatalf("response = %+v, want link and payment id", resp)
	}
}

func TestTelegramWebhookStarsPayment(t *testing.T) {
	user := freeUser("u1")
	pending := &domain.Payment{
		ID:               "pay-1",
		UserID:           "u1",
		Status:           domain.PaymentPending,
		SubscriptionType: domain.SubscriptionPro,
		ExpiresAt:        time.Now().AddDate(0, 1, 0),
	}
	users := newFakeUserRepo(user)
	pays := newFakePaymentRepo(pending)
	app := testApp(users, &fakeGenRepo{}, pays)
	bot := &fakeBot{}
	app.Bot = bot

	precheckout := []byte(`{"pre_checkout_query":{"id":"q1","invoice_payload":"pay_pay-1","total_amount":499,"currency":"XTR"}}`)
	rec := httptest.NewRecorder()
	app.TelegramWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/telegram", bytes.NewReader(precheckout)))
	if rec.Code != http.StatusOK {
		t.Fatalf("pre-checkout status = %d", rec.Code)
	}
	if len(bot.answered) != 1 || !bot.answered[0] {
		t.Fatalf("pre-checkout answers = %v, want one approval", bot.answered)
	}

	success := []byte(`{"message":{"successful_payment":{"invoice_payload":"pay_pay-1","telegram_payment_charge_id":"ch-9","total_amount":499,"currency":"XTR"}}}`)
	rec = httptest.NewRecorder()
	app.TelegramWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/telegram", bytes.NewReader(success)))
	if rec.Code != http.StatusOK {
		t.Fatalf("successful_payment status = %d", rec.Code)
	}
	if pending.Status != domain.PaymentSucceeded || pending.TelegramChargeID != "ch-9" {
		t.Fatalf("payment = %+v, want succeeded with charge id", pending)
	}
	if !user.SubscriptionActive || user.SubscriptionType != domain.SubscriptionPro {
		t.Fatalf("user subscription not activated: %+v", user)
	}
}

func TestTelegramWebhookRejectsUnknownPayment(t *testing.T) {
	app := testApp(newFakeUserRepo(), &fakeGenRepo{}, newFakePaymentRepo())
	bot := &fakeBot{}
	app.Bot = bot

	body := []byte(`{"pre_checkout_query":{"id":"q1","invoice_payload":"pay_ghost"}}`)
	rec := httptest.NewRecorder()
	app.TelegramWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/telegram", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bot.answered) != 1 || bot.answered[0] {
		t.Fatalf("answers = %v, want one rejection", bot.answered)
	}
}

func TestQuizAnalyze(t *testing.T) {
	app := testApp(newFakeUserRepo(), &fakeGenRepo{}, newFakePaymentRepo())

	answers := make([]map[string]any, 0, 7)
	texts := map[int]string{1: "Любовь превыше всего", 2: "Всегда стремлюсь к близости", 4: "Абсолютно верю"}
	for q := 1; q <= 7; q++ {
		answers = append(answers, map[string]any{"question_id": q, "answer": texts[q]})
	}
	body, _ := json.Marshal(map[string]any{"answers": answers})
	rec := httptest.NewRecorder()
	app.QuizAnalyze(rec, httptest.NewRequest(http.MethodPost, "/api/quiz/analyze", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Dominant string `json:"dominant"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Dominant != "romantic" {
		t.Fatalf("dominant = %q, want romantic", resp.Dominant)
	}

	rec = httptest.NewRecorder()
	short, _ := json.Marshal(map[string]any{"answers": answers[:2]})
	app.QuizAnalyze(rec, httptest.NewRequest(http.MethodPost, "/api/quiz/analyze", bytes.NewReader(short)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short quiz status = %d, want 400", rec.Code)
	}
}

func TestSubscriptionInfoPlans(t *testing.T) {
	app := testApp(newFakeUserRepo(freeUser("u1")), &fakeGenRepo{}, newFakePaymentRepo())
	req := authed(httptest.NewRequest(http.MethodGet, "/api/subscription/info", nil), "u1")
	rec := httptest.NewRecorder()
	app.SubscriptionInfo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Plans map[string]planDTO `json:"plans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Plans["pro"].Price != 499 || resp.Plans["pro"].Generations != 300 {
		t.Fatalf("pro plan = %+v", resp.Plans["pro"])
	}
	if resp.Plans["free"].Generations != 5 {
		t.Fatalf("free plan = %+v", resp.Plans["free"])
	}
}

func TestStripeCheckoutUnavailableWithoutKeys(t *testing.T) {
	app := testApp(newFakeUserRepo(freeUser("u1")), &fakeGenRepo{}, newFakePaymentRepo())
	req := authed(httptest.NewRequest(http.MethodPost, "/api/subscription/stripe/create-checkout", nil), "u1")
	rec := httptest.NewRecorder()
	app.StripeCreateCheckout(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
