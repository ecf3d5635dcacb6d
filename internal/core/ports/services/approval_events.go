package services

import (
	"context"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// ApprovalListener reacts to a mapping reaching approved.
type ApprovalListener interface {
	OnMappingApproved(ctx context.Context, event domain.ApprovalEvent) error
}

// ApprovalPublisher delivers approval events to every subscribed listener.
type ApprovalPublisher interface {
	Subscribe(listener ApprovalListener)
	Publish(ctx context.Context, event domain.ApprovalEvent) error
}
