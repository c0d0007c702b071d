package consent

import (
	"context"
	"time"

	"guardian/pkg/domain"
)

// Store persists consent records. Append-only by contract: implementations
// never delete; MarkRevoked stamps the revocation time on matching active
// records and leaves them in history.
type Store interface {
	Append(ctx context.Context, record *Record) error
	ListByChild(ctx context.Context, childID domain.ChildID) ([]*Record, error)
	MarkRevoked(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope, revokedAt time.Time) (int, error)
}

// TicketOpener schedules data deletion after a revocation. Implemented by
// the retention scheduler; the ledger never deletes data itself.
type TicketOpener interface {
	OpenForRevocation(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope, now time.Time) error
}
