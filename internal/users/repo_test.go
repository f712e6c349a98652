package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

func TestFindOrCreateByPhoneDefaultsPincode(t *testing.T) {
	repo := NewRepository(testutil.NewDB(t))
	ctx := context.Background()

	user, created, err := repo.FindOrCreateByPhone(ctx, "+919876543210", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.DefaultPincode, user.Pincode)
	assert.True(t, user.IsActive)

	again, created, err := repo.FindOrCreateByPhone(ctx, "+919876543210", "411001")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, models.DefaultPincode, again.Pincode)
}

func TestRecordOTPFailureBlocksAtThreshold(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := testutil.SeedUser(t, conn)
	now := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Minute)

	for i := 1; i <= 4; i++ {
		attempts, err := repo.RecordOTPFailure(ctx, user.ID, 5, until)
		require.NoError(t, err)
		assert.Equal(t, i, attempts)
	}
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.BlockedAt(now))

	attempts, err := repo.RecordOTPFailure(ctx, user.ID, 5, until)
	require.NoError(t, err)
	assert.Equal(t, 5, attempts)

	reloaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.BlockedAt(now))
	assert.False(t, reloaded.BlockedAt(until.Add(time.Second)))

	require.NoError(t, repo.RecordLogin(ctx, user.ID, until.Add(time.Minute)))
	reloaded, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.OTPFailedAttempts)
	assert.Nil(t, reloaded.OTPBlockedUntil)
	require.NotNil(t, reloaded.LastLoginAt)
}

func TestAddressBookKeepsSingleDefault(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := testutil.SeedUser(t, conn)

	home := &models.UserAddress{UserID: user.ID, Address: "12 MG Road", IsDefault: true}
	require.NoError(t, repo.AddAddress(ctx, home))
	office := &models.UserAddress{UserID: user.ID, Type: enums.AddressTypeOffice, Address: "4 Tech Park", IsDefault: true}
	require.NoError(t, repo.AddAddress(ctx, office))

	addresses, err := repo.ListAddresses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.Equal(t, office.ID, addresses[0].ID)
	assert.True(t, addresses[0].IsDefault)
	assert.False(t, addresses[1].IsDefault)
	assert.Equal(t, enums.AddressTypeHome, addresses[1].Type)

	require.NoError(t, repo.SetDefaultAddress(ctx, user.ID, home.ID))
	def, err := repo.DefaultAddress(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, home.ID, def.ID)

	found, err := repo.HasAddress(ctx, user.ID, "4 Tech Park")
	require.NoError(t, err)
	assert.True(t, found)

	other := testutil.SeedUser(t, conn)
	assert.Error(t, repo.SetDefaultAddress(ctx, other.ID, home.ID))
	assert.Error(t, repo.DeleteAddress(ctx, other.ID, home.ID))
	require.NoError(t, repo.DeleteAddress(ctx, user.ID, home.ID))
}

func TestUpdateProfileSkipsBlankFields(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := testutil.SeedUser(t, conn)

	blank := "  "
	email := " Asha@Example.com "
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, UpdateProfileDTO{Name: &blank, Email: &email}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Name)
	assert.Equal(t, "Asha", *reloaded.Name)
	require.NotNil(t, reloaded.Email)
	assert.Equal(t, "asha@example.com", *reloaded.Email)
}
