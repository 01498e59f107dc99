package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// subscription edges. The unique constraint on (channel_id, subscriber_id)
// keeps the toggle race-free.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle flips the subscription edge between subscriber and channel. It
// reports the created edge and true when the subscription was added, or
// false when an existing edge was removed.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, channelID, subscriberID string) (models.Subscription, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Subscription{}, false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	subscription := models.Subscription{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		SubscriberID: subscriberID,
		CreatedAt:    time.Now().UTC(),
	}

	tag, err := conn.Exec(ctx, `
        INSERT INTO subscriptions (id, channel_id, subscriber_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (channel_id, subscriber_id) DO NOTHING
    `, subscription.ID, channelID, subscriberID, subscription.CreatedAt)
	if err != nil {
		return models.Subscription{}, false, fmt.Errorf("insert subscription: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return subscription, true, nil
	}

	if _, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE channel_id = $1 AND subscriber_id = $2
    `, channelID, subscriberID); err != nil {
		return models.Subscription{}, false, fmt.Errorf("delete subscription: %w", err)
	}

	return models.Subscription{}, false, nil
}
