package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-clearance-api/internal/dto"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

// deleteWindow is how long a comment author may delete their own comment.
// After this, only a superadmin can remove it.
const deleteWindow = 5 * time.Minute

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByRequest(ctx context.Context, requestID string, since *time.Time) ([]models.Comment, error)
	SetResolved(ctx context.Context, id string, resolved bool, resolvedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type requestLookup interface {
	GetByID(ctx context.Context, id string) (*models.ClearanceRequest, error)
}

type commentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// CommentService manages clearance discussion threads: posting, visibility
// scoping, resolution, and the author delete window.
type CommentService struct {
	repo     commentStore
	requests requestLookup
	cache    commentCache
	metrics  cacheMetrics
	validate *validator.Validate
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCommentService constructs the service. The cache is optional; a nil
// cache simply makes every listing hit the database.
func NewCommentService(repo commentStore, requests requestLookup, cache commentCache, metrics cacheMetrics, validate *validator.Validate, cacheTTL time.Duration, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &CommentService{
		repo:     repo,
		requests: requests,
		cache:    cache,
		metrics:  metrics,
		validate: validate,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Create posts a comment on a request thread. Students cannot comment; the
// thread is a reviewer channel. Visibility defaults to ALL.
func (s *CommentService) Create(ctx context.Context, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.Comment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !models.RoleHas(actor.Role, models.CapPostComment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot post clearance comments")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text is required")
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityAll
	}
	if !models.ValidVisibility(visibility) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visibility %q", visibility))
	}

	if _, err := s.requests.GetByID(ctx, req.RequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clearance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	comment := &models.Comment{
		RequestID:     req.RequestID,
		CommenterID:   actor.UserID,
		CommenterRole: actor.Role,
		CommentText:   text,
		Visibility:    visibility,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	s.invalidateThread(ctx, req.RequestID)
	return comment, nil
}

// List returns the thread entries the viewer is allowed to see, oldest first.
// Full-thread reads are cached briefly to absorb dashboard polling.
func (s *CommentService) List(ctx context.Context, query dto.CommentQuery, actor *models.JWTClaims) ([]models.Comment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	comments, err := s.loadThread(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}

	visible := make([]models.Comment, 0, len(comments))
	for i := range comments {
		if comments[i].VisibleTo(actor.Role) {
			visible = append(visible, comments[i])
		}
	}
	return visible, nil
}

// Resolve flips a comment's resolved flag. Allowed for the author, a
// superadmin, or the registrar admin. Calling twice returns the comment to
// its original state rather than erroring.
func (s *CommentService) Resolve(ctx context.Context, commentID string, actor *models.JWTClaims) (*models.Comment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.CommenterID != actor.UserID &&
		actor.Role != models.RoleSuperAdmin &&
		actor.Role != models.RoleRegistrarAdmin {
		return nil, appErrors.ErrForbidden
	}

	resolved := !comment.IsResolved
	var resolvedAt *time.Time
	if resolved {
		now := s.now().UTC()
		resolvedAt = &now
	}
	if err := s.repo.SetResolved(ctx, commentID, resolved, resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment")
	}
	comment.IsResolved = resolved
	comment.ResolvedAt = resolvedAt
	s.invalidateThread(ctx, comment.RequestID)
	return comment, nil
}

// Delete removes a comment. The author may delete within the window after
// posting; a superadmin may delete at any time.
func (s *CommentService) Delete(ctx context.Context, commentID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleSuperAdmin {
		if comment.CommenterID != actor.UserID {
			return appErrors.ErrForbidden
		}
		if s.now().Sub(comment.CreatedAt) > deleteWindow {
			return appErrors.Clone(appErrors.ErrForbidden, "delete window expired")
		}
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	s.invalidateThread(ctx, comment.RequestID)
	return nil
}

func (s *CommentService) loadComment(ctx context.Context, commentID string) (*models.Comment, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	return comment, nil
}

// loadThread caches only full-thread reads. Cursor reads are already cheap
// and caching them would multiply keys for no benefit.
func (s *CommentService) loadThread(ctx context.Context, query dto.CommentQuery) ([]models.Comment, error) {
	if s.cache == nil || query.Since != nil {
		return s.repo.ListByRequest(ctx, query.RequestID, query.Since)
	}

	key := threadCacheKey(query.RequestID)
	var cached []models.Comment
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.recordCache(true)
		return cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("comment cache read failed", zap.String("key", key), zap.Error(err))
	}
	s.recordCache(false)

	comments, err := s.repo.ListByRequest(ctx, query.RequestID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, comments, s.cacheTTL); err != nil {
		s.logger.Warn("comment cache write failed", zap.String("key", key), zap.Error(err))
	}
	return comments, nil
}

func (s *CommentService) invalidateThread(ctx context.Context, requestID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, threadCacheKey(requestID)); err != nil {
		s.logger.Warn("comment cache invalidation failed", zap.String("request_id", requestID), zap.Error(err))
	}
}

func (s *CommentService) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit)
}

func threadCacheKey(requestID string) string {
	return "comments:" + requestID
}
