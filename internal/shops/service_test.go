package shops

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
)

var noon = time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Logger:     testutil.Logger(),
		Clock:      func() time.Time { return noon },
	})
	require.NoError(t, err)
	return svc
}

func placeShop(t *testing.T, conn *gorm.DB, city, pincode string, lat, lng float64) *models.Shop {
	t.Helper()
	shop := testutil.SeedShop(t, conn, 30)
	require.NoError(t, conn.Model(&models.Shop{}).Where("id = ?", shop.ID).Updates(map[string]any{
		"city":      city,
		"pincode":   pincode,
		"latitude":  lat,
		"longitude": lng,
	}).Error)
	shop.City, shop.Pincode, shop.Latitude, shop.Longitude = city, pincode, lat, lng
	return shop
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: testutil.Logger()}); err == nil {
		t.Fatal("expected error creating service without repo")
	}
}

func TestSearchPrefersPincodeOverCity(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	inPin := placeShop(t, conn, "Pune", "411001", 18.52, 73.85)
	placeShop(t, conn, "Pune", "411038", 18.50, 73.80)

	result, err := svc.Search(context.Background(), SearchParams{Pincode: "411001", City: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, SearchByPincode, result.SearchType)
	require.Len(t, result.Shops, 1)
	assert.Equal(t, inPin.ID, result.Shops[0].ID)
	assert.Nil(t, result.Shops[0].DistanceKM)
	assert.True(t, result.Shops[0].IsOpen)

	byCity, err := svc.Search(context.Background(), SearchParams{City: "pune"})
	require.NoError(t, err)
	assert.Equal(t, SearchByCity, byCity.SearchType)
	assert.Equal(t, 2, byCity.Total)
}

func TestSearchByCoordinatesReportsDistance(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	far := placeShop(t, conn, "Pune", "411001", 18.60, 73.85)
	near := placeShop(t, conn, "Pune", "411001", 18.53, 73.85)
	placeShop(t, conn, "Mumbai", "400001", 19.07, 72.87)

	lat, lng := 18.52, 73.85
	result, err := svc.Search(context.Background(), SearchParams{Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	assert.Equal(t, SearchByCoordinates, result.SearchType)
	require.Len(t, result.Shops, 2)
	assert.Equal(t, near.ID, result.Shops[0].ID)
	assert.Equal(t, far.ID, result.Shops[1].ID)
	require.NotNil(t, result.Shops[0].DistanceKM)
	assert.InDelta(t, 1.11, *result.Shops[0].DistanceKM, 0.05)
}

func TestSearchSkipsUnavailableShops(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	shop := placeShop(t, conn, "Pune", "411001", 18.52, 73.85)
	require.NoError(t, conn.Model(&models.Shop{}).Where("id = ?", shop.ID).Update("is_verified", false).Error)

	result, err := svc.ByPincode(context.Background(), "411001")
	require.NoError(t, err)
	assert.Empty(t, result.Shops)

	_, err = svc.GetBySlug(context.Background(), shop.Slug)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSearchValidation(t *testing.T) {
	svc := newTestService(t, testutil.NewDB(t))
	lat := 18.5

	_, err := svc.Search(context.Background(), SearchParams{Pincode: "4110"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Search(context.Background(), SearchParams{Latitude: &lat})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.ByPincode(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOpeningHoursUseShopZone(t *testing.T) {
	conn := testutil.NewDB(t)
	shop := placeShop(t, conn, "Pune", "411001", 18.52, 73.85)
	ist := time.FixedZone("IST", 5*3600+1800)
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Logger:     testutil.Logger(),
		Location:   ist,
		// 17:00 UTC is 22:30 IST, after the default 22:00 close.
		Clock: func() time.Time { return time.Date(2024, 7, 15, 17, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	dto, err := svc.GetBySlug(context.Background(), shop.Slug)
	require.NoError(t, err)
	assert.False(t, dto.IsOpen)
}

func TestUniqueSlugAddsSuffixOnCollision(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first, err := repo.UniqueSlug(ctx, "Shree Ganesh Water Supply")
	require.NoError(t, err)
	assert.Equal(t, "shree-ganesh-water-supply", first)

	shop := testutil.SeedShop(t, conn, 30)
	require.NoError(t, conn.Model(&models.Shop{}).Where("id = ?", shop.ID).Update("slug", first).Error)

	second, err := repo.UniqueSlug(ctx, "Shree Ganesh Water Supply")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^shree-ganesh-water-supply-[0-9a-f]{6}$`, second)

	fallback, err := repo.UniqueSlug(ctx, "!!!")
	require.NoError(t, err)
	assert.Equal(t, "shop", fallback)
}

func TestUpdateShopFields(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	shop := testutil.SeedShop(t, conn, 30)

	price := decimal.RequireFromString("35.50")
	name := "  Aqua Fresh  "
	opens := "07:00"
	profile, err := svc.Update(context.Background(), shop.ID, UpdateInput{
		ShopName:    &name,
		PricePerJar: &price,
		OpensAt:     &opens,
	})
	require.NoError(t, err)
	assert.Equal(t, "Aqua Fresh", profile.Shop.ShopName)
	assert.True(t, price.Equal(profile.Shop.PricePerJar))
	assert.Equal(t, "07:00", profile.Shop.OpensAt)
	assert.Equal(t, "Ravi Kumar", profile.Shopkeeper.OwnerName)
	assert.Equal(t, shop.Slug, profile.Shop.Slug)
}

func TestUpdateShopValidation(t *testing.T) {
	conn := testutil.NewDB(t)
	svc := newTestService(t, conn)
	shop := testutil.SeedShop(t, conn, 30)

	tooHigh := decimal.NewFromInt(250)
	late := "23:00"
	badClock := "7am"
	empty := " "
	lat := 10.0
	cases := map[string]UpdateInput{
		"price":        {PricePerJar: &tooHigh},
		"window":       {OpensAt: &late},
		"clock format": {ClosesAt: &badClock},
		"empty name":   {ShopName: &empty},
		"half coords":  {Latitude: &lat},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), shop.ID, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCountersAccumulate(t *testing.T) {
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	shop := testutil.SeedShop(t, conn, 30)
	ctx := context.Background()

	require.NoError(t, repo.RecordDelivered(ctx, shop.ID, decimal.NewFromInt(90)))
	require.NoError(t, repo.RecordDelivered(ctx, shop.ID, decimal.NewFromInt(60)))
	require.NoError(t, repo.ApplyRating(ctx, shop.ID, 4))
	require.NoError(t, repo.ApplyRating(ctx, shop.ID, 5))

	stored, err := repo.FindByID(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalOrders)
	assert.True(t, decimal.NewFromInt(150).Equal(stored.MonthlyRevenue), "revenue %s", stored.MonthlyRevenue)
	assert.Equal(t, 2, stored.TotalReviews)
	assert.True(t, decimal.RequireFromString("4.5").Equal(stored.Rating), "rating %s", stored.Rating)
}
