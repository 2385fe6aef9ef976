package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Adnan2208/EcoTech/database"
	"github.com/Adnan2208/EcoTech/models"
)

// Broadcaster publishes lifecycle events to connected clients. Delivery is
// best-effort; a failed broadcast never fails the mutation that caused it.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// ImageRemover deletes a stored upload by its public id.
type ImageRemover interface {
	Remove(publicID string) error
}

// Fan-out event names, matching what map and dashboard clients subscribe to.
const (
	EventNewReport         = "newReport"
	EventReportUpdated     = "reportUpdated"
	EventReportDeleted     = "reportDeleted"
	EventDetectionComplete = "detectionComplete"
)

// earthRadiusMeters converts a $maxDistance radius into the radians
// $centerSphere expects when counting geo-filtered results.
const earthRadiusMeters = 6378100.0

const (
	defaultPage  = 1
	defaultLimit = 10
)

// ReportService implements the report lifecycle: create, list, get,
// status update, delete. The database handle, image store and event
// channel are injected.
type ReportService struct {
	db     *database.DB
	images ImageRemover
	events Broadcaster
}

func NewReportService(db *database.DB, images ImageRemover, events Broadcaster) *ReportService {
	return &ReportService{db: db, images: images, events: events}
}

type CreateReportInput struct {
	UserID      primitive.ObjectID
	Title       string
	Description string
	Address     string
	Category    models.Category
	Severity    models.Severity
	Latitude    float64
	Longitude   float64
	Images      []models.Image
}

// Create inserts a new open report owned by the calling user and emits
// a newReport event. Coordinates are stored [longitude, latitude].
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	now := time.Now().UTC()
	r := models.Report{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		Images:      in.Images,
		Location:    models.NewGeoPoint(in.Longitude, in.Latitude),
		Address:     in.Address,
		Category:    in.Category,
		Severity:    in.Severity,
		Status:      models.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Images == nil {
		r.Images = []models.Image{}
	}
	if r.Category == "" {
		r.Category = models.CategoryOther
	}
	if r.Severity == "" {
		r.Severity = models.SeverityMedium
	}
	if err := r.Validate(); err != nil {
		return nil, ValidationError{Err: err}
	}

	res, err := s.db.Reports().InsertOne(ctx, r)
	if err != nil {
		return nil, err
	}
	r.ID = res.InsertedID.(primitive.ObjectID)

	if err := populateReports(ctx, s.db.Users(), []*models.Report{&r}); err != nil {
		log.Printf("reports: populate after create: %v", err)
	}
	s.events.Broadcast(EventNewReport, r)
	return &r, nil
}

// ListFilter narrows a report listing. Geo filtering is active only when
// latitude, longitude and radius are all present.
type ListFilter struct {
	Status   string
	Category string
	Severity string

	Latitude     *float64
	Longitude    *float64
	RadiusMeters *int

	Page  int
	Limit int
}

func (f ListFilter) hasGeo() bool {
	return f.Latitude != nil && f.Longitude != nil && f.RadiusMeters != nil
}

// buildListFilter translates a ListFilter into the Find query. With a geo
// filter the database returns documents ordered by increasing distance,
// so no explicit sort is applied in that case.
func buildListFilter(f ListFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	if f.hasGeo() {
		q["location"] = bson.M{
			"$near": bson.M{
				"$geometry":    models.NewGeoPoint(*f.Longitude, *f.Latitude),
				"$maxDistance": *f.RadiusMeters,
			},
		}
	}
	return q
}

// buildCountFilter mirrors buildListFilter for CountDocuments, which
// rejects $near; the radius becomes an equivalent $centerSphere.
func buildCountFilter(f ListFilter) bson.M {
	q := buildListFilter(f)
	if f.hasGeo() {
		q["location"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{*f.Longitude, *f.Latitude},
					float64(*f.RadiusMeters) / earthRadiusMeters,
				},
			},
		}
	}
	return q
}

// normalizePage applies the page/limit defaults and returns the skip offset.
func normalizePage(page, limit int) (int, int, int64) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit, int64((page - 1) * limit)
}

// totalPages is the ceiling of total/limit.
func totalPages(total int64, limit int) int64 {
	if limit < 1 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// List returns one page of reports matching the filter, newest first, or
// nearest first when a geo filter is active. Reporter and resolver
// identity are populated.
func (s *ReportService) List(ctx context.Context, f ListFilter) (*models.Page, error) {
	page, limit, skip := normalizePage(f.Page, f.Limit)

	opts := options.Find().SetSkip(skip).SetLimit(int64(limit))
	if !f.hasGeo() {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}

	cur, err := s.db.Reports().Find(ctx, buildListFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := []models.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}

	total, err := s.db.Reports().CountDocuments(ctx, buildCountFilter(f))
	if err != nil {
		return nil, err
	}

	if err := populateReportSlice(ctx, s.db.Users(), reports); err != nil {
		return nil, err
	}

	return &models.Page{
		Count:       len(reports),
		Total:       total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		Data:        reports,
	}, nil
}

// Get returns a single report by id with identity populated.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReportNotFound
	}

	var r models.Report
	if err := s.db.Reports().FindOne(ctx, bson.M{"_id": oid}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	if err := populateReports(ctx, s.db.Users(), []*models.Report{&r}); err != nil {
		return nil, err
	}
	return &r, nil
}

type UpdateStatusInput struct {
	Status           models.Status
	ResolutionNotes  string
	ResolutionImages []models.Image
	ResolvedBy       primitive.ObjectID
}

// buildStatusUpdate assembles the atomic update document. Only a resolved
// transition stamps the resolution fields; transitions away from resolved
// leave them in place as a history record.
func buildStatusUpdate(in UpdateStatusInput, now time.Time) bson.M {
	set := bson.M{
		"status":    in.Status,
		"updatedAt": now,
	}
	update := bson.M{"$set": set}
	if in.Status == models.StatusResolved {
		set["resolvedAt"] = now
		set["resolvedBy"] = in.ResolvedBy
		set["resolutionNotes"] = in.ResolutionNotes
		if len(in.ResolutionImages) > 0 {
			update["$push"] = bson.M{
				"resolutionImages": bson.M{"$each": in.ResolutionImages},
			}
		}
	}
	return update
}

// UpdateStatus sets a report's status in a single atomic update and emits
// reportUpdated. Role enforcement happens in the route middleware; the
// service assumes the caller is an authority.
func (s *ReportService) UpdateStatus(ctx context.Context, id string, in UpdateStatusInput) (*models.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	if !models.ValidStatus(in.Status) {
		return nil, ValidationError{Err: fmt.Errorf("invalid status %q", in.Status)}
	}

	update := buildStatusUpdate(in, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var r models.Report
	err = s.db.Reports().FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	if err := populateReports(ctx, s.db.Users(), []*models.Report{&r}); err != nil {
		return nil, err
	}
	s.events.Broadcast(EventReportUpdated, r)
	return &r, nil
}

// canDelete applies the ownership rule: a citizen may delete only their
// own reports, an authority may delete any.
func canDelete(caller *models.User, r *models.Report) bool {
	if caller.Role == models.RoleAuthority {
		return true
	}
	return r.UserID == caller.ID
}

// Delete removes a report and, best-effort, its stored images. A citizen
// may delete only their own reports; an authority may delete any.
func (s *ReportService) Delete(ctx context.Context, id string, caller *models.User) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrReportNotFound
	}

	var r models.Report
	if err := s.db.Reports().FindOne(ctx, bson.M{"_id": oid}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrReportNotFound
		}
		return err
	}

	if !canDelete(caller, &r) {
		return ErrNotAuthorized
	}

	// Orphaned files are acceptable; a half-deleted report is not. The
	// document is the source of truth, so file errors only get logged.
	for _, img := range append(r.Images, r.ResolutionImages...) {
		if err := s.images.Remove(img.PublicID); err != nil {
			log.Printf("reports: delete image %s: %v", img.PublicID, err)
		}
	}

	if _, err := s.db.Reports().DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return err
	}

	s.events.Broadcast(EventReportDeleted, id)
	return nil
}

// ListMine returns the caller's own reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, userID primitive.ObjectID, page, limit int) (*models.Page, error) {
	page, limit, skip := normalizePage(page, limit)
	filter := bson.M{"userId": userID}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cur, err := s.db.Reports().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := []models.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}

	total, err := s.db.Reports().CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.Page{
		Count:       len(reports),
		Total:       total,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		Data:        reports,
	}, nil
}

// populateReports fills the reporter and resolver identity on each report
// from the users collection.
func populateReports(ctx context.Context, users *mongo.Collection, reports []*models.Report) error {
	idSet := map[primitive.ObjectID]struct{}{}
	for _, r := range reports {
		idSet[r.UserID] = struct{}{}
		if r.ResolvedBy != nil {
			idSet[*r.ResolvedBy] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cur, err := users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var infos []models.UserInfo
	if err := cur.All(ctx, &infos); err != nil {
		return err
	}
	byID := map[primitive.ObjectID]*models.UserInfo{}
	for i := range infos {
		byID[infos[i].ID] = &infos[i]
	}

	for _, r := range reports {
		r.Reporter = byID[r.UserID]
		if r.ResolvedBy != nil {
			r.Resolver = byID[*r.ResolvedBy]
		}
	}
	return nil
}

func populateReportSlice(ctx context.Context, users *mongo.Collection, reports []models.Report) error {
	ptrs := make([]*models.Report, len(reports))
	for i := range reports {
		ptrs[i] = &reports[i]
	}
	return populateReports(ctx, users, ptrs)
}
