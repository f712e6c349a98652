package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

func TestRepositoryInboxIsScopedAndPaged(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	inbox := Recipient{Type: enums.NotificationRecipientUser, ID: uuid.New()}
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			RecipientType: inbox.Type,
			RecipientID:   inbox.ID,
			Destination:   "+919811111111",
			Type:          enums.NotificationTypeDelivered,
			Channel:       enums.NotificationChannelSMS,
			Message:       "delivered",
			Status:        enums.NotificationStatusSent,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Same id under the shop audience must not leak into the user inbox.
	require.NoError(t, repo.Create(ctx, &models.Notification{
		RecipientType: enums.NotificationRecipientShop,
		RecipientID:   inbox.ID,
		Destination:   "+919822222222",
		Type:          enums.NotificationTypeNewOrder,
		Channel:       enums.NotificationChannelWhatsApp,
		Message:       "new order",
		Status:        enums.NotificationStatusSent,
	}))

	page, next, err := repo.List(ctx, inboxPage{Recipient: inbox, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, next, err := repo.List(ctx, inboxPage{Recipient: inbox, Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Nil(t, next)

	mark, err := repo.MarkRead(ctx, inbox, page[0].ID, base)
	require.NoError(t, err)
	assert.True(t, mark.Updated)

	mark, err = repo.MarkRead(ctx, inbox, page[0].ID, base)
	require.NoError(t, err)
	assert.False(t, mark.Updated)
	assert.True(t, mark.Found)

	count, err := repo.MarkAllRead(ctx, inbox, base)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRepositoryContacts(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	shop := testutil.SeedShop(t, conn, 30)
	user := testutil.SeedUser(t, conn)

	userContact, err := repo.UserContact(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", userContact.Name)
	assert.Equal(t, user.PhoneNumber, userContact.Phone)

	shopContact, err := repo.ShopContact(context.Background(), shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aqua Pure", shopContact.Name)

	_, err = repo.UserContact(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestRepositoryDeleteReadBeforeKeepsUnread(t *testing.T) {
	conn, mock := testutil.NewMockDB(t)
	repo := NewRepository(conn)
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM "notifications" WHERE id IN \(SELECT .?id.? FROM "notifications" WHERE read_at IS NOT NULL AND created_at < \$1 ORDER BY created_at LIMIT`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteReadBefore(context.Background(), cutoff, 500)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDeleteReadBeforeWorksInBatches(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)
	readAt := old.Add(time.Hour)
	seed := func(created time.Time, read *time.Time) {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			RecipientType: enums.NotificationRecipientUser,
			RecipientID:   uuid.New(),
			Destination:   "+919811111111",
			Type:          enums.NotificationTypeDelivered,
			Channel:       enums.NotificationChannelSMS,
			Message:       "delivered",
			Status:        enums.NotificationStatusSent,
			ReadAt:        read,
			CreatedAt:     created,
		}))
	}
	for i := 0; i < 3; i++ {
		seed(old.Add(time.Duration(i)*time.Minute), &readAt)
	}
	seed(old, nil)
	seed(cutoff.Add(time.Hour), &readAt)

	first, err := repo.DeleteReadBefore(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, first)

	second, err := repo.DeleteReadBefore(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, second)

	var remaining int64
	require.NoError(t, conn.Model(&models.Notification{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestRepositoryCountUnreadIsScopedToInbox(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	mine := Recipient{Type: enums.NotificationRecipientUser, ID: uuid.New()}
	readAt := time.Now().UTC()
	add := func(owner Recipient, read *time.Time) {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			RecipientType: owner.Type,
			RecipientID:   owner.ID,
			Destination:   "+919811111111",
			Type:          enums.NotificationTypeDelivered,
			Channel:       enums.NotificationChannelSMS,
			Message:       "delivered",
			Status:        enums.NotificationStatusSent,
			ReadAt:        read,
		}))
	}
	add(mine, nil)
	add(mine, nil)
	add(mine, &readAt)
	add(Recipient{Type: enums.NotificationRecipientShop, ID: mine.ID}, nil)

	n, err := repo.CountUnread(ctx, mine)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.MarkAllRead(ctx, mine, time.Now().UTC())
	require.NoError(t, err)
	n, err = repo.CountUnread(ctx, mine)
	require.NoError(t, err)
	assert.Zero(t, n)
}
