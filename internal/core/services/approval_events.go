package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
)

// approvalEventBus fans approval events out to listeners synchronously, in
// subscription order. Every listener runs even if an earlier one fails.
type approvalEventBus struct {
	BaseService
	mu        sync.RWMutex
	listeners []portssvc.ApprovalListener
}

// NewApprovalEventBus creates an empty in-process bus.
func NewApprovalEventBus() portssvc.ApprovalPublisher {
	return &approvalEventBus{}
}

var _ portssvc.ApprovalPublisher = (*approvalEventBus)(nil)

func (b *approvalEventBus) Subscribe(listener portssvc.ApprovalListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *approvalEventBus) Publish(ctx context.Context, event domain.ApprovalEvent) error {
	b.mu.RLock()
	listeners := make([]portssvc.ApprovalListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := l.OnMappingApproved(ctx, event); err != nil {
			b.LogError(ctx, err, "Approval listener failed",
				slog.String("mapping_id", event.MappingID),
				slog.String("transaction_id", event.TransactionID),
				slog.String("listener", fmt.Sprintf("%T", l)))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
