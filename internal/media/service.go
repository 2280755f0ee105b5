package media

import (
	"context"
	"path/filepath"
	"strings"

	"vinylstore-be/internal/identity"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/product"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxUploadBytes = 20 << 20

type Service interface {
	Upload(ctx context.Context, who identity.Identity, productID int64, input UploadInput) (*Media, error)
	SetPrimary(ctx context.Context, who identity.Identity, mediaID int64) error
	Delete(ctx context.Context, who identity.Identity, mediaID int64) error
	List(ctx context.Context, productID int64) ([]Media, error)
}

type service struct {
	repo     Repository
	blobs    BlobStore
	products product.Service
}

func NewService(repo Repository, blobs BlobStore, products product.Service) Service {
	return &service{repo: repo, blobs: blobs, products: products}
}

func typeOf(contentType string) (Type, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return TypeImage, true
	case strings.HasPrefix(contentType, "video/"):
		return TypeVideo, true
	default:
		return "", false
	}
}

func (s *service) Upload(
	ctx context.Context,
	who identity.Identity,
	productID int64,
	input UploadInput,
) (*Media, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Upload"),
		zap.Int64("product_id", productID),
	)

	if len(input.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(input.Data) > MaxUploadBytes {
		return nil, ErrUploadTooLarge
	}
	mediaType, ok := typeOf(input.ContentType)
	if !ok {
		return nil, ErrUnsupportedType
	}

	if _, err := s.products.OwnedBy(ctx, who, productID); err != nil {
		return nil, err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(input.Filename))
	url, err := s.blobs.Put(ctx, name, input.ContentType, input.Data)
	if err != nil {
		log.Error("failed to store blob", zap.Error(err))
		return nil, err
	}

	m := &Media{
		ProductID: productID,
		URL:       url,
		MediaType: mediaType,
		IsPrimary: input.IsPrimary,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		log.Error("failed to save media", zap.Error(err))
		if delErr := s.blobs.Delete(ctx, url); delErr != nil {
			log.Warn("failed to remove orphan blob", zap.String("url", url), zap.Error(delErr))
		}
		return nil, err
	}

	log.Info("media uploaded", zap.Int64("media_id", m.ID), zap.Int("sort_order", m.SortOrder))
	return m, nil
}

func (s *service) SetPrimary(ctx context.Context, who identity.Identity, mediaID int64) error {
	m, err := s.owned(ctx, who, mediaID)
	if err != nil {
		return err
	}
	return s.repo.SetPrimary(ctx, m.ProductID, m.ID)
}

func (s *service) Delete(ctx context.Context, who identity.Identity, mediaID int64) error {
	m, err := s.owned(ctx, who, mediaID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, m.ID); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, m.URL); err != nil {
		logger.FromCtx(ctx).Warn("failed to remove blob",
			zap.Int64("media_id", m.ID),
			zap.String("url", m.URL),
			zap.Error(err),
		)
	}
	return nil
}

func (s *service) List(ctx context.Context, productID int64) ([]Media, error) {
	return s.repo.ListByProduct(ctx, productID)
}

func (s *service) owned(ctx context.Context, who identity.Identity, mediaID int64) (*Media, error) {
	if _, err := who.RequireVendor(); err != nil {
		return nil, err
	}

	m, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.OwnedBy(ctx, who, m.ProductID); err != nil {
		return nil, err
	}
	return m, nil
}
