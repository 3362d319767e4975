package storage

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/observability"
)

// MirroredTransactionStore writes to a primary store and copies every
// successful insert to a secondary analytics store. Reads use the primary only.
// Secondary failures are logged and never surface to callers.
type MirroredTransactionStore struct {
	primary   TransactionStore
	secondary TransactionStore
	log       logrus.FieldLogger
}

// NewMirroredTransactionStore creates a mirror. A nil log discards secondary errors.
func NewMirroredTransactionStore(primary, secondary TransactionStore, log logrus.FieldLogger) *MirroredTransactionStore {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &MirroredTransactionStore{primary: primary, secondary: secondary, log: log}
}

var _ TransactionStore = (*MirroredTransactionStore)(nil)

// Insert adds a record to the primary, then the secondary.
func (m *MirroredTransactionStore) Insert(ctx context.Context, t *domain.TransactionRecord) error {
	start := time.Now()
	err := m.primary.Insert(ctx, t)
	observability.RecordDBQuery("primary", "insert_transaction", time.Since(start).Seconds(), err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = m.secondary.Insert(ctx, t)
	observability.RecordDBQuery("mirror", "insert_transaction", time.Since(start).Seconds(), err)
	if err != nil {
		m.log.WithError(err).WithField("transaction_id", t.ID).Warn("mirror insert failed")
	}
	return nil
}

func (m *MirroredTransactionStore) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	return m.primary.GetByID(ctx, id)
}

func (m *MirroredTransactionStore) GetByMatchID(ctx context.Context, matchID string) ([]*domain.TransactionRecord, error) {
	return m.primary.GetByMatchID(ctx, matchID)
}

func (m *MirroredTransactionStore) GetByMint(ctx context.Context, mint string) ([]*domain.TransactionRecord, error) {
	return m.primary.GetByMint(ctx, mint)
}

func (m *MirroredTransactionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	return m.primary.GetByTimeRange(ctx, start, end)
}

func (m *MirroredTransactionStore) ListRecent(ctx context.Context, limit int) ([]*domain.TransactionRecord, error) {
	return m.primary.ListRecent(ctx, limit)
}
