package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"syscatalog/internal/auth"
	"syscatalog/internal/catalog"
	"syscatalog/internal/health"
	"syscatalog/internal/platform/config"
	"syscatalog/internal/transport/http/mocks"
	"syscatalog/pkg/catalogerrors"
)

var handlerNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type stubVerifier struct {
	identity auth.Identity
	err      error
}

func (s stubVerifier) Verify(context.Context, string) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	return s.identity, nil
}

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	limiter  *mocks.MockRateLimiter
	checker  *mocks.MockHealthChecker
	access   *mocks.MockAccessLog
	verifier stubVerifier
	cfg      config.Config
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.limiter = mocks.NewMockRateLimiter(s.ctrl)
	s.checker = mocks.NewMockHealthChecker(s.ctrl)
	s.access = mocks.NewMockAccessLog(s.ctrl)
	s.verifier = stubVerifier{identity: auth.Identity{Email: "ops@example.com"}}
	s.cfg = config.Config{
		MaxPayloadBytes: 1 << 10,
		RequiredTables:  []string{"systems", "documents", "requirements"},
	}
}

func (s *HandlerSuite) newHandler() *Handler {
	return New(s.cfg, s.service, s.verifier, s.limiter, s.checker, s.access, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return handlerNow }))
}

func (s *HandlerSuite) postAPI(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.newHandler().HandleAPI(rec, req)
	return rec
}

func (s *HandlerSuite) decodeError(rec *httptest.ResponseRecorder) ErrorResponse {
	s.Equal(http.StatusOK, rec.Code, "errors are conveyed in the envelope, not the HTTP status")
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("error", resp.Status)
	s.Equal("2026-03-14T09:30:00Z", resp.Timestamp)
	return resp
}

func (s *HandlerSuite) decodeSuccess(rec *httptest.ResponseRecorder) SuccessResponse {
	s.Equal(http.StatusOK, rec.Code)
	var resp SuccessResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("success", resp.Status)
	s.Equal("2026-03-14T09:30:00Z", resp.Timestamp)
	return resp
}

func (s *HandlerSuite) expectAccess(action, status string) {
	s.access.EXPECT().Access(gomock.Any(), gomock.Any(), action, status, gomock.Any())
}

func (s *HandlerSuite) TestHealthBypassesAuthAndAccessLog() {
	snap := health.Snapshot{Status: health.StatusHealthy, Version: config.Version}
	s.checker.EXPECT().Check(gomock.Any()).Return(snap).Times(2)
	s.verifier = stubVerifier{err: catalogerrors.New(catalogerrors.CodeAuthenticationError, "must not be called")}

	for _, body := range []string{`{"action":"health"}`, `{"method":"HEALTH"}`} {
		rec := s.postAPI(body)
		s.Equal(http.StatusOK, rec.Code)
		var got health.Snapshot
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.Equal(health.StatusHealthy, got.Status)
	}
}

func (s *HandlerSuite) TestPayloadTooLarge() {
	s.expectAccess("error", "request payload too large")
	rec := s.postAPI(`{"data":"` + strings.Repeat("x", 2<<10) + `"}`)
	resp := s.decodeError(rec)
	s.Equal("request payload too large", resp.Message)
	s.Equal("payload_too_large", resp.ErrorType)
}

func (s *HandlerSuite) TestEmptyBody() {
	s.expectAccess("error", "no request body provided")
	resp := s.decodeError(s.postAPI(""))
	s.Equal("no request body provided", resp.Message)
	s.Equal("invalid_json", resp.ErrorType)
}

func (s *HandlerSuite) TestMalformedJSON() {
	s.expectAccess("error", "invalid JSON in request body")
	resp := s.decodeError(s.postAPI(`{"method":`))
	s.Equal("invalid_json", resp.ErrorType)
}

func (s *HandlerSuite) TestAuthenticationFailure() {
	s.verifier = stubVerifier{err: catalogerrors.New(catalogerrors.CodeAuthenticationError, "invalid token audience")}
	s.expectAccess("error", "invalid token audience")

	resp := s.decodeError(s.postAPI(`{"method":"GET","sheet":"systems","idToken":"bad"}`))
	s.Equal("invalid token audience", resp.Message)
	s.Equal("authentication_failure", resp.ErrorType)
}

func (s *HandlerSuite) TestRateLimited() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").
		Return(catalogerrors.New(catalogerrors.CodeRateLimitExceeded, "rate limit exceeded, try again in 42 seconds"))
	s.expectAccess("error", "rate limit exceeded, try again in 42 seconds")

	resp := s.decodeError(s.postAPI(`{"method":"GET","sheet":"systems","idToken":"t"}`))
	s.Equal("rate_limit_exceeded", resp.ErrorType)
}

func (s *HandlerSuite) TestMissingMethodAndSheet() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil).Times(2)
	s.expectAccess("error", "missing 'method' field")
	s.expectAccess("error", "missing 'sheet' field")

	resp := s.decodeError(s.postAPI(`{"sheet":"systems","idToken":"t"}`))
	s.Equal("missing_field", resp.ErrorType)
	s.Equal("missing 'method' field", resp.Message)

	resp = s.decodeError(s.postAPI(`{"method":"GET","idToken":"t"}`))
	s.Equal("missing_field", resp.ErrorType)
	s.Equal("missing 'sheet' field", resp.Message)
}

func (s *HandlerSuite) TestUnknownSheet() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil)
	s.expectAccess("error", "invalid sheet name: payroll")

	resp := s.decodeError(s.postAPI(`{"method":"GET","sheet":"payroll","idToken":"t"}`))
	s.Equal("unknown_table", resp.ErrorType)
}

func (s *HandlerSuite) TestGetDispatch() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil)
	s.service.EXPECT().Get(gomock.Any(), "systems", gomock.Any()).
		Return(&catalog.QueryResult{
			Data:      []map[string]string{{"ID": "INT-0001", "Name": "Billing"}},
			Total:     1,
			Timestamp: "2026-03-14T09:30:00Z",
		}, nil)
	s.expectAccess("GET_systems", "success")

	resp := s.decodeSuccess(s.postAPI(`{"method":"GET","sheet":"systems","idToken":"t"}`))
	data := resp.Data.(map[string]any)
	s.Equal(float64(1), data["total"])
	rows := data["data"].([]any)
	s.Equal("INT-0001", rows[0].(map[string]any)["ID"])
}

func (s *HandlerSuite) TestCreateDispatchSanitizesData() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil)
	s.service.EXPECT().
		Create(gomock.Any(), "systems", gomock.Cond(func(data map[string]any) bool {
			name, _ := data["Name"].(string)
			return !strings.Contains(strings.ToLower(name), "javascript:")
		}), "ops@example.com").
		Return(&catalog.MutationResult{Success: true, Action: "created", ID: "INT-0001"}, nil)
	s.expectAccess("POST_systems", "success")

	resp := s.decodeSuccess(s.postAPI(
		`{"method":"POST","sheet":"systems","idToken":"t","data":{"Name":"javascript:alert(1)Billing"}}`))
	data := resp.Data.(map[string]any)
	s.Equal(true, data["success"])
	s.Equal("created", data["action"])
	s.Equal("INT-0001", data["id"])
}

func (s *HandlerSuite) TestUpdateAndDeleteDispatch() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil).Times(2)
	s.service.EXPECT().Update(gomock.Any(), "requirements", gomock.Any(), "ops@example.com").
		Return(&catalog.MutationResult{Success: true, Action: "updated", ID: "REQ-0002"}, nil)
	s.service.EXPECT().Delete(gomock.Any(), "systems", gomock.Any(), "ops@example.com").
		Return(&catalog.MutationResult{Success: true, Action: "deleted", ID: "INT-0001"}, nil)
	s.expectAccess("PUT_requirements", "success")
	s.expectAccess("DELETE_systems", "success")

	s.decodeSuccess(s.postAPI(`{"method":"put","sheet":"requirements","idToken":"t","data":{"ID":"REQ-0002"}}`))
	s.decodeSuccess(s.postAPI(`{"method":"DELETE","sheet":"systems","idToken":"t","data":{"ID":"INT-0001"}}`))
}

func (s *HandlerSuite) TestUnsupportedMethod() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil)
	s.expectAccess("error", "unsupported HTTP method: PATCH")

	resp := s.decodeError(s.postAPI(`{"method":"PATCH","sheet":"systems","idToken":"t"}`))
	s.Equal("validation_failure", resp.ErrorType)
}

func (s *HandlerSuite) TestServiceErrorMessageDoesNotLeakCause() {
	s.limiter.EXPECT().Check(gomock.Any(), "ops@example.com").Return(nil)
	cause := catalogerrors.Wrap(
		io.ErrUnexpectedEOF, catalogerrors.CodeStoreWriteError, "failed to create record")
	s.service.EXPECT().Create(gomock.Any(), "systems", gomock.Any(), "ops@example.com").
		Return(nil, cause)
	s.expectAccess("error", "failed to create record")

	resp := s.decodeError(s.postAPI(`{"method":"POST","sheet":"systems","idToken":"t","data":{"Name":"x"}}`))
	s.Equal("failed to create record", resp.Message)
	s.Equal("store_write_failure", resp.ErrorType)
	s.NotContains(resp.Message, io.ErrUnexpectedEOF.Error())
}

func (s *HandlerSuite) TestHandleInfoReadyDocument() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.newHandler().HandleInfo(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	var resp ReadyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("ready", resp.Status)
	s.Equal("System Catalog API is running", resp.Message)
	s.Equal(config.Version, resp.Version)
	s.Contains(resp.Endpoints, "health")
}

func (s *HandlerSuite) TestHandleInfoHealthQuery() {
	s.checker.EXPECT().Check(gomock.Any()).Return(health.Snapshot{Status: health.StatusDegraded})

	req := httptest.NewRequest(http.MethodGet, "/?action=health", nil)
	rec := httptest.NewRecorder()
	s.newHandler().HandleInfo(rec, req)

	var got health.Snapshot
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	s.Equal(health.StatusDegraded, got.Status)
}

func (s *HandlerSuite) TestHandleOptions() {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	s.newHandler().HandleOptions(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("text/plain", rec.Header().Get("Content-Type"))
	s.Equal("OK", rec.Body.String())
}
