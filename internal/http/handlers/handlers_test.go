package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/http/middleware"
	"github.com/cobaltline/assistly-backend/internal/services"
)

//
// Fakes for the service interfaces. Each records its inputs and returns
// canned values so handler behavior can be asserted in isolation.
//

type fakeAccounts struct {
	user  *domain.User
	token string
	err   error
}

func (f *fakeAccounts) Register(_ context.Context, name, email, _ string) (*domain.User, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if f.user == nil {
		f.user = &domain.User{ID: "u1", Name: name, Email: email}
	}
	return f.user, f.token, nil
}

func (f *fakeAccounts) Login(context.Context, string, string) (*domain.User, string, error) {
	return f.user, f.token, f.err
}

type fakeCompanies struct {
	company *domain.Company
	err     error
	gotDesc string
}

func (f *fakeCompanies) Create(context.Context, string, services.CompanyInput) (*domain.Company, error) {
	return f.company, f.err
}

func (f *fakeCompanies) GetMine(context.Context, string) (*domain.Company, error) {
	return f.company, f.err
}

func (f *fakeCompanies) UpdateProfile(context.Context, string, services.CompanyInput) (*domain.Company, error) {
	return f.company, f.err
}

func (f *fakeCompanies) UpdateDescription(_ context.Context, _ string, desc string) (*domain.Company, error) {
	f.gotDesc = desc
	return f.company, f.err
}

type fakeChat struct {
	reply   *services.ChatReply
	logs    []domain.ChatLog
	total   int64
	err     error
	gotSlug string
	gotUser string
	gotMsg  string
}

func (f *fakeChat) PublicChat(_ context.Context, slug, _, message string) (*services.ChatReply, error) {
	f.gotSlug, f.gotMsg = slug, message
	return f.reply, f.err
}

func (f *fakeChat) AuthChat(_ context.Context, userID, message string) (*services.ChatReply, error) {
	f.gotUser, f.gotMsg = userID, message
	return f.reply, f.err
}

func (f *fakeChat) ListLogs(context.Context, string, int, int) ([]domain.ChatLog, int64, error) {
	return f.logs, f.total, f.err
}

type fakeLeads struct {
	leads []domain.Lead
	total int64
	err   error
}

func (f *fakeLeads) ListPage(context.Context, string, int, int) ([]domain.Lead, int64, error) {
	return f.leads, f.total, f.err
}

type fakePlans struct {
	plan *domain.Plan
	list []domain.Plan
	err  error
}

func (f *fakePlans) Create(context.Context, services.PlanInput) (*domain.Plan, error) {
	return f.plan, f.err
}
func (f *fakePlans) List(context.Context, bool) ([]domain.Plan, error) { return f.list, f.err }
func (f *fakePlans) Get(context.Context, string) (*domain.Plan, error) { return f.plan, f.err }
func (f *fakePlans) Update(context.Context, string, string, []string) (*domain.Plan, error) {
	return f.plan, f.err
}
func (f *fakePlans) Deactivate(context.Context, string) error { return f.err }

type fakeSubs struct {
	sub  *domain.Subscription
	list []domain.Subscription
	err  error
}

func (f *fakeSubs) Complete(context.Context, string, string, string) (*domain.Subscription, error) {
	return f.sub, f.err
}
func (f *fakeSubs) List(context.Context, string) ([]domain.Subscription, error) {
	return f.list, f.err
}
func (f *fakeSubs) Cancel(context.Context, string, string, string) (*domain.Subscription, error) {
	return f.sub, f.err
}

// deps bundles one fake of each service for a test router.
type deps struct {
	accounts  *fakeAccounts
	companies *fakeCompanies
	chat      *fakeChat
	leads     *fakeLeads
	plans     *fakePlans
	subs      *fakeSubs
}

func newDeps() *deps {
	return &deps{
		accounts:  &fakeAccounts{token: "tok"},
		companies: &fakeCompanies{},
		chat:      &fakeChat{},
		leads:     &fakeLeads{},
		plans:     &fakePlans{},
		subs:      &fakeSubs{},
	}
}

// testRouter mounts every handler the way the real router does, with a stub
// auth middleware that injects a fixed user id.
func testRouter(d *deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(d.accounts, d.companies, d.chat, d.leads, d.plans, d.subs)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/public-chat/:slug", h.PublicChat)

	authed := r.Group("", func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "u1")
		c.Next()
	})
	authed.POST("/companies", h.CreateCompany)
	authed.GET("/companies/me", h.GetMyCompany)
	authed.PUT("/companies/me", h.UpdateMyCompany)
	authed.PUT("/companies/me/description", h.UpdateMyDescription)
	authed.POST("/chat", h.PostChat)
	authed.GET("/chat/logs", h.ListChatLogs)
	authed.GET("/leads", h.ListLeads)
	authed.POST("/plans", h.CreatePlan)
	authed.GET("/plans", h.ListPlans)
	authed.GET("/plans/:id", h.GetPlan)
	authed.PUT("/plans/:id", h.UpdatePlan)
	authed.DELETE("/plans/:id", h.DeletePlan)
	authed.POST("/subscriptions/complete", h.CompleteSubscription)
	authed.GET("/subscriptions", h.ListSubscriptions)
	authed.POST("/subscriptions/:id/cancel", h.CancelSubscription)
	return r
}

// routerWithIdemKey mounts only the subscription completion endpoint behind
// the real idempotency validator, injecting the given key on every request.
func routerWithIdemKey(h *Handlers, key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/subscriptions/complete",
		func(c *gin.Context) {
			c.Set(middleware.CtxUserID, "u1")
			c.Request.Header.Set(middleware.HeaderIdempotencyKey, key)
			c.Next()
		},
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: "subscription.complete"}, nil),
		h.CompleteSubscription,
	)
	return r
}

// doJSON performs a request with a JSON body and returns the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decode unmarshals a response body, failing the test on bad JSON.
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return v
}
