package event

import (
	"github.com/erp/shopcore/internal/domain/ledger"
	"github.com/erp/shopcore/internal/domain/sales"
)

// RegisterAllEvents registers every domain event the outbox may hold, so the
// processor can rebuild them from their payloads
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(ledger.EventTypeAccountOpened, &ledger.AccountOpenedEvent{})
	serializer.Register(ledger.EventTypePostingRecorded, &ledger.PostingRecordedEvent{})
	serializer.Register(ledger.EventTypeAccountStatusChanged, &ledger.AccountStatusChangedEvent{})

	serializer.Register(sales.EventTypeSaleCreated, &sales.SaleCreatedEvent{})
	serializer.Register(sales.EventTypeLineItemReturned, &sales.LineItemReturnedEvent{})
}
