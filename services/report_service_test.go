package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Adnan2208/EcoTech/models"
)

func geoFilter(lat, lng float64, radius int) ListFilter {
	return ListFilter{Latitude: &lat, Longitude: &lng, RadiusMeters: &radius}
}

func TestBuildListFilterEquality(t *testing.T) {
	q := buildListFilter(ListFilter{Status: "resolved", Category: "plastic"})
	require.Equal(t, "resolved", q["status"])
	require.Equal(t, "plastic", q["category"])
	require.NotContains(t, q, "severity")
	require.NotContains(t, q, "location")
}

func TestBuildListFilterEmpty(t *testing.T) {
	q := buildListFilter(ListFilter{})
	require.Empty(t, q)
}

func TestBuildListFilterGeo(t *testing.T) {
	q := buildListFilter(geoFilter(12.9, 77.6, 2000))

	loc, ok := q["location"].(bson.M)
	require.True(t, ok)
	near, ok := loc["$near"].(bson.M)
	require.True(t, ok)
	require.Equal(t, 2000, near["$maxDistance"])

	point, ok := near["$geometry"].(models.GeoPoint)
	require.True(t, ok)
	// longitude first
	require.Equal(t, []float64{77.6, 12.9}, point.Coordinates)
}

func TestBuildListFilterGeoRequiresAllThree(t *testing.T) {
	lat := 12.9
	q := buildListFilter(ListFilter{Latitude: &lat})
	require.NotContains(t, q, "location")
}

func TestBuildCountFilterUsesCenterSphere(t *testing.T) {
	// CountDocuments rejects $near; the count query must use an
	// equivalent $geoWithin with the radius converted to radians.
	q := buildCountFilter(geoFilter(12.9, 77.6, 2000))

	loc := q["location"].(bson.M)
	require.NotContains(t, loc, "$near")
	within := loc["$geoWithin"].(bson.M)
	sphere := within["$centerSphere"].(bson.A)
	require.Equal(t, bson.A{77.6, 12.9}, sphere[0])
	require.InEpsilon(t, 2000/earthRadiusMeters, sphere[1].(float64), 1e-12)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
		wantSkip            int64
	}{
		{0, 0, 1, 10, 0},
		{1, 10, 1, 10, 0},
		{3, 10, 3, 10, 20},
		{-5, 25, 1, 25, 0},
		{2, 1, 2, 1, 1},
	}
	for _, tt := range tests {
		page, limit, skip := normalizePage(tt.page, tt.limit)
		require.Equal(t, tt.wantPage, page)
		require.Equal(t, tt.wantLimit, limit)
		require.Equal(t, tt.wantSkip, skip)
	}
}

func TestTotalPages(t *testing.T) {
	require.EqualValues(t, 0, totalPages(0, 10))
	require.EqualValues(t, 1, totalPages(1, 10))
	require.EqualValues(t, 1, totalPages(10, 10))
	require.EqualValues(t, 2, totalPages(11, 10))
	require.EqualValues(t, 5, totalPages(42, 10))
}

func TestCanDelete(t *testing.T) {
	owner := primitive.NewObjectID()
	other := primitive.NewObjectID()
	report := &models.Report{UserID: owner}

	tests := []struct {
		name   string
		caller *models.User
		want   bool
	}{
		{"citizen owner", &models.User{ID: owner, Role: models.RoleCitizen}, true},
		{"citizen other", &models.User{ID: other, Role: models.RoleCitizen}, false},
		{"authority other", &models.User{ID: other, Role: models.RoleAuthority}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, canDelete(tt.caller, report))
		})
	}
}

func TestBuildStatusUpdateResolved(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	resolver := primitive.NewObjectID()
	imgs := []models.Image{{URL: "/uploads/a.jpg", PublicID: "a.jpg"}}

	update := buildStatusUpdate(UpdateStatusInput{
		Status:           models.StatusResolved,
		ResolutionNotes:  "cleaned",
		ResolutionImages: imgs,
		ResolvedBy:       resolver,
	}, now)

	set := update["$set"].(bson.M)
	require.Equal(t, models.StatusResolved, set["status"])
	require.Equal(t, now, set["resolvedAt"])
	require.Equal(t, resolver, set["resolvedBy"])
	require.Equal(t, "cleaned", set["resolutionNotes"])

	push := update["$push"].(bson.M)
	each := push["resolutionImages"].(bson.M)
	require.Equal(t, imgs, each["$each"])
}

func TestBuildStatusUpdateResolvedDefaultsNotes(t *testing.T) {
	update := buildStatusUpdate(UpdateStatusInput{
		Status:     models.StatusResolved,
		ResolvedBy: primitive.NewObjectID(),
	}, time.Now().UTC())

	set := update["$set"].(bson.M)
	require.Equal(t, "", set["resolutionNotes"])
	require.NotContains(t, update, "$push")
}

func TestBuildStatusUpdateReopenKeepsResolutionFields(t *testing.T) {
	// Transitioning away from resolved must not clear the resolution
	// fields; they stay as a history record.
	update := buildStatusUpdate(UpdateStatusInput{Status: models.StatusOpen}, time.Now().UTC())

	set := update["$set"].(bson.M)
	require.Equal(t, models.StatusOpen, set["status"])
	require.NotContains(t, set, "resolvedAt")
	require.NotContains(t, set, "resolvedBy")
	require.NotContains(t, set, "resolutionNotes")
	require.NotContains(t, update, "$unset")
	require.NotContains(t, update, "$push")
}
