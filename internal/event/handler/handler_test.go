package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"solmeet/internal/audit"
	"solmeet/internal/credential"
	"solmeet/internal/event/service"
	"solmeet/internal/event/store"
	jwttoken "solmeet/internal/jwt_token"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/httputil"
	authmw "solmeet/pkg/platform/middleware/auth"
)

type HandlerSuite struct {
	suite.Suite
	router    http.Handler
	tokens    *jwttoken.JWTService
	organizer string
	stranger  string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	keyring, err := credential.NewKeyring(bytes.Repeat([]byte{3}, credential.MinMasterSeedSize))
	s.Require().NoError(err)
	publisher := audit.NewPublisher(audit.NewInMemoryStore())
	svc := service.New(store.NewInMemory(), keyring,
		service.WithAuditPublisher(publisher),
		service.WithAuditReader(publisher),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.tokens = jwttoken.NewJWTService("handler-test-signing-key", "solmeet", "solmeet-api", time.Hour)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireCaller(s.tokens, logger))
		h.Register(r)
	})
	s.router = r

	s.organizer = s.token("wallet", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	s.stranger = s.token("anonymous", "tg-user-5")
}

func (s *HandlerSuite) token(kind, value string) string {
	k, err := domain.ParseIdentityKind(kind)
	s.Require().NoError(err)
	id, err := domain.NewIdentity(k, value)
	s.Require().NoError(err)
	tok, err := s.tokens.GenerateCallerToken(context.Background(), id)
	s.Require().NoError(err)
	return tok
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createEvent() EventResponse {
	now := time.Now().UTC()
	rec := s.do(http.MethodPost, "/events", s.organizer, map[string]any{
		"title":        "Solana Builders Meetup",
		"venue":        "Hall B",
		"window_start": now.Add(-time.Minute),
		"window_end":   now.Add(time.Hour),
		"capacity":     2,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp EventResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func errorCode(rec *httptest.ResponseRecorder) string {
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	code, _ := body["error"].(string)
	return code
}

func (s *HandlerSuite) TestCallerRequired() {
	rec := s.do(http.MethodPost, "/events", "", map[string]any{"title": "x"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestCreateAndGetEvent() {
	created := s.createEvent()
	s.Equal("open", created.Status)
	s.Equal("wallet:9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", created.Organizer)

	rec := s.do(http.MethodGet, "/events/"+created.ID, "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var status EventStatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.Equal(created.ID, status.ID)
	s.Equal(0, status.Claimed)
	s.Equal(2, status.Remaining)
}

func (s *HandlerSuite) TestCreateEvent_Rejections() {
	now := time.Now().UTC()
	s.Run("invalid window", func() {
		rec := s.do(http.MethodPost, "/events", s.organizer, map[string]any{
			"title":        "Meetup",
			"window_start": now.Add(time.Hour),
			"window_end":   now,
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("invalid_window", errorCode(rec))
	})

	s.Run("missing title", func() {
		rec := s.do(http.MethodPost, "/events", s.organizer, map[string]any{
			"window_start": now,
			"window_end":   now.Add(time.Hour),
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", errorCode(rec))
	})
}

func (s *HandlerSuite) TestGetEvent_NotFoundAndBadID() {
	rec := s.do(http.MethodGet, "/events/"+uuid.NewString(), "", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/events/not-a-uuid", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCloseEvent() {
	created := s.createEvent()

	rec := s.do(http.MethodPost, "/events/"+created.ID+"/close", s.stranger, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("unauthorized", errorCode(rec))

	rec = s.do(http.MethodPost, "/events/"+created.ID+"/close", s.organizer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/events/"+created.ID+"/close", s.organizer, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("event_closed", errorCode(rec))
}

func (s *HandlerSuite) TestIssueCredentials() {
	created := s.createEvent()

	rec := s.do(http.MethodPost, "/events/"+created.ID+"/credentials", s.organizer, map[string]any{"count": 2})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp IssueCredentialsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Credentials, 2)
	s.Contains(resp.Credentials[0].URI, credential.URIPrefix)

	decoded, err := credential.DecodeText(resp.Credentials[0].URI)
	s.Require().NoError(err)
	s.Equal(created.ID, decoded.EventID.String())

	s.Run("subject hints", func() {
		rec := s.do(http.MethodPost, "/events/"+created.ID+"/credentials", s.organizer, map[string]any{
			"subject_hints": []string{"anonymous:tg-user-5"},
		})
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
		var resp IssueCredentialsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Credentials, 1)
		s.Equal("anonymous:tg-user-5", resp.Credentials[0].SubjectHint)
	})

	s.Run("malformed hint", func() {
		rec := s.do(http.MethodPost, "/events/"+created.ID+"/credentials", s.organizer, map[string]any{
			"subject_hints": []string{"email:someone"},
		})
		s.Require().Equal(http.StatusBadRequest, rec.Code)
		var body httputil.ErrorResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(string(dErrors.CodeValidation), body.Error)
	})
}

func (s *HandlerSuite) TestListAudit() {
	created := s.createEvent()
	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/events/"+created.ID+"/close", s.organizer, nil).Code)

	s.Run("organizer sees lifecycle", func() {
		rec := s.do(http.MethodGet, "/events/"+created.ID+"/audit", s.organizer, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var resp AuditTrailResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(created.ID, resp.EventID)
		s.Require().Len(resp.Entries, 2)
		s.Equal("event_created", resp.Entries[0].Action)
		s.Equal("event_closed", resp.Entries[1].Action)
		s.Equal(created.Organizer, resp.Entries[1].Actor)
	})

	s.Run("limit", func() {
		rec := s.do(http.MethodGet, "/events/"+created.ID+"/audit?limit=1", s.organizer, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp AuditTrailResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Entries, 1)
		s.Equal("event_closed", resp.Entries[0].Action)
	})

	s.Run("bad limit", func() {
		rec := s.do(http.MethodGet, "/events/"+created.ID+"/audit?limit=-2", s.organizer, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("stranger refused", func() {
		rec := s.do(http.MethodGet, "/events/"+created.ID+"/audit", s.stranger, nil)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal(string(dErrors.CodeUnauthorized), errorCode(rec))
	})

	s.Run("anonymous request", func() {
		rec := s.do(http.MethodGet, "/events/"+created.ID+"/audit", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *HandlerSuite) TestListMyEvents() {
	created := s.createEvent()

	rec := s.do(http.MethodGet, "/me/events", s.organizer, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list EventListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Events, 1)
	s.Equal(created.ID, list.Events[0].ID)

	rec = s.do(http.MethodGet, "/me/events", s.stranger, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Empty(list.Events)
}
