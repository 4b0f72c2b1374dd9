package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type commentStoreStub struct {
	comments map[string]*models.Comment
	thread   []models.Comment
	deleted  []string
}

func (s *commentStoreStub) Create(ctx context.Context, comment *models.Comment) error {
	comment.ID = "cmt-1"
	if s.comments == nil {
		s.comments = map[string]*models.Comment{}
	}
	s.comments[comment.ID] = comment
	return nil
}

func (s *commentStoreStub) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	if comment, ok := s.comments[id]; ok {
		cp := *comment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *commentStoreStub) ListByRequest(ctx context.Context, requestID string, since *time.Time) ([]models.Comment, error) {
	if since == nil {
		return s.thread, nil
	}
	var out []models.Comment
	for _, c := range s.thread {
		if c.CreatedAt.After(*since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *commentStoreStub) SetResolved(ctx context.Context, id string, resolved bool, resolvedAt *time.Time) error {
	comment, ok := s.comments[id]
	if !ok {
		return sql.ErrNoRows
	}
	comment.IsResolved = resolved
	comment.ResolvedAt = resolvedAt
	return nil
}

func (s *commentStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.comments, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestCommentService(store *commentStoreStub) *CommentService {
	requests := &clearanceStoreStub{request: pendingRequest("req-1")}
	return NewCommentService(store, requests, nil, nil, nil, 0, nil)
}

func TestCommentCreateForbidsStudents(t *testing.T) {
	svc := newTestCommentService(&commentStoreStub{})

	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{RequestID: "req-1", Text: "hi"}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommentCreateDefaultsVisibility(t *testing.T) {
	store := &commentStoreStub{}
	svc := newTestCommentService(store)

	professor := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}
	comment, err := svc.Create(context.Background(), dto.CreateCommentRequest{RequestID: "req-1", Text: "missing fee receipt"}, professor)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityAll, comment.Visibility)
	assert.Equal(t, models.RoleProfessor, comment.CommenterRole)
}

func TestCommentCreateRejectsUnknownVisibility(t *testing.T) {
	svc := newTestCommentService(&commentStoreStub{})

	professor := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}
	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{
		RequestID:  "req-1",
		Text:       "hello",
		Visibility: models.CommentVisibility("EVERYONE"),
	}, professor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommentCreateUnknownRequest(t *testing.T) {
	svc := NewCommentService(&commentStoreStub{}, &clearanceStoreStub{}, nil, nil, nil, 0, nil)

	professor := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}
	_, err := svc.Create(context.Background(), dto.CreateCommentRequest{RequestID: "missing", Text: "hi"}, professor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCommentListFiltersByVisibility(t *testing.T) {
	store := &commentStoreStub{thread: []models.Comment{
		{ID: "c1", Visibility: models.VisibilityAll},
		{ID: "c2", Visibility: models.VisibilityAdminsOnly},
		{ID: "c3", Visibility: models.VisibilityProfessorsOnly},
	}}
	svc := newTestCommentService(store)
	query := dto.CommentQuery{RequestID: "req-1"}

	cases := []struct {
		role models.UserRole
		want []string
	}{
		{models.RoleStudent, []string{"c1"}},
		{models.RoleProfessor, []string{"c1", "c3"}},
		{models.RoleDepartmentHead, []string{"c1", "c3"}},
		{models.RoleLibraryAdmin, []string{"c1", "c2"}},
		{models.RoleSuperAdmin, []string{"c1", "c2"}},
	}
	for _, tc := range cases {
		visible, err := svc.List(context.Background(), query, &models.JWTClaims{UserID: "u", Role: tc.role})
		require.NoError(t, err)
		ids := make([]string, 0, len(visible))
		for _, c := range visible {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, tc.want, ids, "role %s", tc.role)
	}
}

func TestCommentListSinceCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &commentStoreStub{thread: []models.Comment{
		{ID: "c1", Visibility: models.VisibilityAll, CreatedAt: base},
		{ID: "c2", Visibility: models.VisibilityAll, CreatedAt: base.Add(time.Minute)},
	}}
	svc := newTestCommentService(store)

	since := base.Add(30 * time.Second)
	visible, err := svc.List(context.Background(), dto.CommentQuery{RequestID: "req-1", Since: &since},
		&models.JWTClaims{UserID: "u", Role: models.RoleProfessor})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "c2", visible[0].ID)
}

func TestCommentDeleteWindow(t *testing.T) {
	posted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	author := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}

	newStore := func() *commentStoreStub {
		return &commentStoreStub{comments: map[string]*models.Comment{
			"cmt-1": {ID: "cmt-1", RequestID: "req-1", CommenterID: "p1", CreatedAt: posted},
		}}
	}

	svc := newTestCommentService(newStore())
	svc.now = func() time.Time { return posted.Add(4*time.Minute + 59*time.Second) }
	require.NoError(t, svc.Delete(context.Background(), "cmt-1", author))

	svc = newTestCommentService(newStore())
	svc.now = func() time.Time { return posted.Add(5*time.Minute + 1*time.Second) }
	err := svc.Delete(context.Background(), "cmt-1", author)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Contains(t, appErrors.FromError(err).Message, "delete window")
}

func TestCommentDeleteSuperadminBypassesWindow(t *testing.T) {
	posted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &commentStoreStub{comments: map[string]*models.Comment{
		"cmt-1": {ID: "cmt-1", RequestID: "req-1", CommenterID: "p1", CreatedAt: posted},
	}}
	svc := newTestCommentService(store)
	svc.now = func() time.Time { return posted.Add(48 * time.Hour) }

	admin := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
	require.NoError(t, svc.Delete(context.Background(), "cmt-1", admin))
}

func TestCommentDeleteForbidsNonAuthor(t *testing.T) {
	store := &commentStoreStub{comments: map[string]*models.Comment{
		"cmt-1": {ID: "cmt-1", RequestID: "req-1", CommenterID: "p1", CreatedAt: time.Now().UTC()},
	}}
	svc := newTestCommentService(store)

	other := &models.JWTClaims{UserID: "p2", Role: models.RoleProfessor}
	err := svc.Delete(context.Background(), "cmt-1", other)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommentResolvePermissions(t *testing.T) {
	store := &commentStoreStub{comments: map[string]*models.Comment{
		"cmt-1": {ID: "cmt-1", RequestID: "req-1", CommenterID: "p1"},
	}}
	svc := newTestCommentService(store)

	other := &models.JWTClaims{UserID: "p2", Role: models.RoleProfessor}
	_, err := svc.Resolve(context.Background(), "cmt-1", other)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	author := &models.JWTClaims{UserID: "p1", Role: models.RoleProfessor}
	resolved, err := svc.Resolve(context.Background(), "cmt-1", author)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
}

func TestCommentResolveToggleRoundTrip(t *testing.T) {
	store := &commentStoreStub{comments: map[string]*models.Comment{
		"cmt-1": {ID: "cmt-1", RequestID: "req-1", CommenterID: "p1"},
	}}
	svc := newTestCommentService(store)

	registrar := &models.JWTClaims{UserID: "reg-1", Role: models.RoleRegistrarAdmin}
	resolved, err := svc.Resolve(context.Background(), "cmt-1", registrar)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.ResolvedAt)

	reopened, err := svc.Resolve(context.Background(), "cmt-1", registrar)
	require.NoError(t, err)
	assert.False(t, reopened.IsResolved, "second call must restore the original state")
	assert.Nil(t, reopened.ResolvedAt)

	again, err := svc.Resolve(context.Background(), "cmt-1", registrar)
	require.NoError(t, err)
	assert.True(t, again.IsResolved)
}
