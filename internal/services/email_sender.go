package services

import (
	"context"
	"fmt"

	"github.com/User-Emin/kattenbak-sub003/internal/email"
	"github.com/User-Emin/kattenbak-sub003/internal/models"
)

// OrderEmailSender sends the customer emails triggered by order and return
// changes.
type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendOrderShipped(ctx context.Context, order *models.Order) error
	SendOrderDelivered(ctx context.Context, order *models.Order) error
	SendReturnUpdate(ctx context.Context, ret *models.Return, order *models.Order) error
}

type ProviderEmailSender struct {
	provider email.Provider
	renderer *email.Renderer
	shop     ShopInfo
}

func NewProviderEmailSender(provider email.Provider, shop ShopInfo) (*ProviderEmailSender, error) {
	if provider == nil {
		return nil, fmt.Errorf("email provider is required")
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &ProviderEmailSender{
		provider: provider,
		renderer: renderer,
		shop:     shop,
	}, nil
}

func (s *ProviderEmailSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return s.renderer.SendOrderConfirmation(ctx, s.provider, BuildOrderInfo(s.shop, order, OrderInfoOverrides{}))
}

func (s *ProviderEmailSender) SendOrderShipped(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return s.renderer.SendOrderShipped(ctx, s.provider, BuildOrderInfo(s.shop, order, OrderInfoOverrides{}))
}

func (s *ProviderEmailSender) SendOrderDelivered(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return s.renderer.SendOrderDelivered(ctx, s.provider, BuildOrderInfo(s.shop, order, OrderInfoOverrides{}))
}

func (s *ProviderEmailSender) SendReturnUpdate(ctx context.Context, ret *models.Return, order *models.Order) error {
	if ret == nil || order == nil {
		return fmt.Errorf("return and order are required")
	}
	return s.renderer.SendReturnUpdate(ctx, s.provider, BuildReturnInfo(s.shop, ret, order))
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *models.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderShipped(context.Context, *models.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderDelivered(context.Context, *models.Order) error {
	return nil
}

func (noopOrderEmailSender) SendReturnUpdate(context.Context, *models.Return, *models.Order) error {
	return nil
}
