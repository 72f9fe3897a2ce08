package implementations

import (
	"context"
	"fmt"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
)

const defaultCustomOrderLimit = 50

// CustomOrderService records custom design requests
type CustomOrderService struct {
	repo   catalog.CustomOrderRepository
	logger *observability.Logger
}

// NewCustomOrderService creates a new custom order service
func NewCustomOrderService(repo catalog.CustomOrderRepository, logger *observability.Logger) *CustomOrderService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CustomOrderService{repo: repo, logger: logger}
}

// Submit validates and stores a request
func (s *CustomOrderService) Submit(ctx context.Context, req *catalog.CustomOrderRequest) error {
	if req == nil {
		return fmt.Errorf("custom order cannot be nil")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return err
	}

	s.logger.Info(ctx).Int("custom_order_id", req.ID).Msg("custom order received")
	return nil
}

// List returns the latest requests; limit <= 0 uses the default
func (s *CustomOrderService) List(ctx context.Context, limit int) ([]*catalog.CustomOrderRequest, error) {
	if limit <= 0 {
		limit = defaultCustomOrderLimit
	}
	return s.repo.List(ctx, limit)
}
