package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/middleware"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/service"
)

type commentStoreMock struct {
	thread []models.Comment
}

func (m *commentStoreMock) Create(ctx context.Context, comment *models.Comment) error {
	comment.ID = "cmt-1"
	return nil
}

func (m *commentStoreMock) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	return nil, sql.ErrNoRows
}

func (m *commentStoreMock) ListByRequest(ctx context.Context, requestID string, since *time.Time) ([]models.Comment, error) {
	return m.thread, nil
}

func (m *commentStoreMock) SetResolved(ctx context.Context, id string, resolved bool, resolvedAt *time.Time) error {
	return sql.ErrNoRows
}

func (m *commentStoreMock) Delete(ctx context.Context, id string) error {
	return sql.ErrNoRows
}

type requestLookupMock struct{}

func (requestLookupMock) GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error) {
	return &models.ClearanceRequest{ID: id, StudentID: "student-1"}, nil
}

func newCommentHandler(store *commentStoreMock) *CommentHandler {
	svc := service.NewCommentService(store, requestLookupMock{}, nil, nil, nil, 0, nil)
	return NewCommentHandler(svc)
}

func TestCommentHandlerListRequiresRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCommentHandler(&commentStoreMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/comments", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor})

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentHandlerListRejectsBadCursor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCommentHandler(&commentStoreMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/comments?request_id=req-1&since=yesterday", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor})

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCommentHandler(&commentStoreMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/comments", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentHandlerCreateHappyPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCommentHandler(&commentStoreMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`{"request_id":"req-1","text":"please attach the fee receipt"}`)
	req, _ := http.NewRequest(http.MethodPost, "/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "cmt-1")
}

func TestCommentHandlerResolveUnknownComment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCommentHandler(&commentStoreMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/comments/missing/resolve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor})

	handler.Resolve(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
