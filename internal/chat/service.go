package chat

import (
	"context"

	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/product"

	"go.uber.org/zap"
)

// CatalogSource lists the products the assistant may talk about.
type CatalogSource interface {
	Catalog(ctx context.Context) ([]product.Product, error)
}

type Service struct {
	catalog   CatalogSource
	completer Completer
}

func NewService(catalog CatalogSource, completer Completer) *Service {
	return &Service{catalog: catalog, completer: completer}
}

// Reply validates req and asks the completion API for the next assistant
// message. A catalog failure is logged and the prompt is built without it.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ChatReply"),
	)

	products, err := s.catalog.Catalog(ctx)
	if err != nil {
		log.Error("error fetching products", zap.Error(err))
		products = nil
	}

	reply, err := s.completer.Complete(ctx, buildMessages(BuildSystemPrompt(products), req))
	if err != nil {
		log.Error("chat completion failed", zap.Error(err))
		return "", err
	}
	return reply, nil
}
