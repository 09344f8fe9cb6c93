package expensestore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrNotFound is returned when no expense matches.
	ErrNotFound = fmt.Errorf("expense %w", apperr.ErrNotFound)
	// ErrStatusChanged is returned when a transition's expected status no
	// longer holds, typically because another reviewer decided first.
	ErrStatusChanged = fmt.Errorf("expense status changed: %w", apperr.ErrConflict)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("expenses")}
}

// EnsureIndexes creates the indexes expense queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_project_status"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "department", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_project_department_status"),
		},
		{
			Keys:    bson.D{{Key: "submitter_id", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_submitter"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "expense_date", Value: 1}},
			Options: options.Index().SetName("idx_project_expense_date"),
		},
	})
	return err
}

// Create inserts e and assigns its id and timestamps.
func (s *Store) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	e.ID = primitive.NewObjectID()
	if e.Status == "" {
		e.Status = models.ExpenseDraft
	}
	if !e.Status.Valid() {
		return models.Expense{}, apperr.Invalid("unknown expense status " + string(e.Status))
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// GetByID loads an expense by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Expense, error) {
	var e models.Expense
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Transition moves an expense from status from to ch.To. The update only
// applies while the stored status still equals from; otherwise it returns
// ErrStatusChanged and nothing is written.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from models.ExpenseStatus, ch models.StatusChange) (*models.Expense, error) {
	at := ch.At.UTC()
	set := bson.M{"status": ch.To, "updated_at": at}
	switch ch.To {
	case models.ExpensePending:
		set["submitted_at"] = at
	case models.ExpenseApproved, models.ExpenseRejected:
		set["reviewed_at"] = at
		if ch.ReviewerID != nil {
			set["reviewer_id"] = *ch.ReviewerID
			set["reviewer_name"] = ch.ReviewerName
		}
		if ch.Comment != "" {
			set["review_comment"] = ch.Comment
		}
	}

	var e models.Expense
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SetComment stores the reviewer's or the submitter's comment.
func (s *Store) SetComment(ctx context.Context, id primitive.ObjectID, byReviewer bool, text string) (*models.Expense, error) {
	field := "submitter_comment"
	if byReviewer {
		field = "review_comment"
	}
	var e models.Expense
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{field: text, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type totalRow struct {
	Key    string `bson:"_id"`
	Count  int64  `bson:"count"`
	Amount int64  `bson:"amount"`
}

// Summarize counts and sums a project's expenses per status, and its
// approved expenses per department and per category.
func (s *Store) Summarize(ctx context.Context, projectID primitive.ObjectID) (models.ExpenseSummary, error) {
	sum := bson.M{"count": bson.M{"$sum": 1}, "amount": bson.M{"$sum": "$amount"}}
	group := func(key string) bson.M {
		g := bson.M{"_id": key}
		maps.Copy(g, sum)
		return bson.M{"$group": g}
	}
	approved := bson.M{"$match": bson.M{"status": models.ExpenseApproved}}

	pipeline := []bson.M{
		{"$match": bson.M{"project_id": projectID}},
		{"$facet": bson.M{
			"by_status":     []bson.M{group("$status")},
			"by_department": []bson.M{approved, group("$department")},
			"by_category":   []bson.M{approved, group("$category")},
		}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.ExpenseSummary{}, err
	}
	defer cur.Close(ctx)

	var facets []struct {
		ByStatus     []totalRow `bson:"by_status"`
		ByDepartment []totalRow `bson:"by_department"`
		ByCategory   []totalRow `bson:"by_category"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return models.ExpenseSummary{}, err
	}

	out := models.ExpenseSummary{
		ProjectID:    projectID,
		ByStatus:     make(map[models.ExpenseStatus]models.Total, len(models.ExpenseStatuses)),
		ByDepartment: map[string]models.Total{},
		ByCategory:   map[string]models.Total{},
	}
	for _, st := range models.ExpenseStatuses {
		out.ByStatus[st] = models.Total{}
	}
	if len(facets) == 0 {
		return out, nil
	}
	for _, r := range facets[0].ByStatus {
		out.ByStatus[models.ExpenseStatus(r.Key)] = models.Total{Count: r.Count, Amount: r.Amount}
	}
	for _, r := range facets[0].ByDepartment {
		out.ByDepartment[r.Key] = models.Total{Count: r.Count, Amount: r.Amount}
	}
	for _, r := range facets[0].ByCategory {
		out.ByCategory[r.Key] = models.Total{Count: r.Count, Amount: r.Amount}
	}
	return out, nil
}

// ApprovedTotal sums approved amounts on a project, restricted to one
// department when department is non-empty.
func (s *Store) ApprovedTotal(ctx context.Context, projectID primitive.ObjectID, department string) (int64, error) {
	match := bson.M{"project_id": projectID, "status": models.ExpenseApproved}
	if department != "" {
		match["department"] = department
	}
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": nil, "amount": bson.M{"$sum": "$amount"}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Amount int64 `bson:"amount"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Amount, cur.Err()
}

// ListFilter narrows List and Export.
type ListFilter struct {
	ProjectID   primitive.ObjectID
	Status      models.ExpenseStatus
	SubmitterID *primitive.ObjectID
	Department  string
	From, To    *time.Time // inclusive range on expense_date
}

func (f ListFilter) bson() bson.M {
	filter := bson.M{"project_id": f.ProjectID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.SubmitterID != nil {
		filter["submitter_id"] = *f.SubmitterID
	}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = f.From.UTC()
		}
		if f.To != nil {
			rng["$lte"] = f.To.UTC()
		}
		filter["expense_date"] = rng
	}
	return filter
}

// List returns matching expenses newest first. after is the id of the last
// expense on the previous page.
func (s *Store) List(ctx context.Context, f ListFilter, after string, limit int) ([]models.Expense, string, error) {
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	filter := f.bson()
	find := options.Find()
	if ks := paging.NewestFirst(find, after, limit); ks != nil {
		maps.Copy(filter, ks)
	}

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.Expense{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}

	next := ""
	if paging.TrimPage(&rows, limit) {
		next = rows[len(rows)-1].ID.Hex()
	}
	return rows, next, nil
}

// Each streams every matching expense ordered by expense date to fn,
// stopping at the first error fn returns.
func (s *Store) Each(ctx context.Context, f ListFilter, fn func(models.Expense) error) error {
	find := options.Find().SetSort(bson.D{{Key: "expense_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, f.bson(), find)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var e models.Expense
		if err := cur.Decode(&e); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return cur.Err()
}
