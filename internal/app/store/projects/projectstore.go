package projectstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/apperr"
	"github.com/dalemusser/expensehub/internal/app/system/normalize"
	"github.com/dalemusser/expensehub/internal/app/system/paging"
	"github.com/dalemusser/expensehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrNotFound is returned when no project matches.
	ErrNotFound = fmt.Errorf("project %w", apperr.ErrNotFound)
	// ErrDuplicateName is returned when another project already uses the name.
	ErrDuplicateName = fmt.Errorf("a project with this name already exists: %w", apperr.ErrConflict)
	// ErrArchived is returned when modifying a project that is archived.
	ErrArchived = fmt.Errorf("project is archived: %w", apperr.ErrConflict)
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// EnsureIndexes creates the indexes project lookups rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_name_ci"),
		},
		{
			Keys:    bson.D{{Key: "team_members", Value: 1}},
			Options: options.Index().SetName("idx_team_members"),
		},
		{
			Keys:    bson.D{{Key: "approver_ids", Value: 1}},
			Options: options.Index().SetName("idx_approver_ids"),
		},
		{
			Keys:    bson.D{{Key: "production_head_ids", Value: 1}},
			Options: options.Index().SetName("idx_production_head_ids"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_status_name"),
		},
	})
	return err
}

// Create inserts a new active project after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)
	if p.Name == "" {
		return models.Project{}, apperr.Invalid("name is required")
	}
	if p.Budget < 0 {
		return models.Project{}, apperr.Invalid("budget cannot be negative")
	}
	p.Currency = normalize.Currency(p.Currency)
	if p.Currency == "" {
		p.Currency = "USD"
	}
	depts, err := normalizeDepartments(p.DepartmentBudgets)
	if err != nil {
		return models.Project{}, err
	}
	p.DepartmentBudgets = depts
	p.TeamMembers = dedupe(p.TeamMembers)
	p.ApproverIDs = dedupe(p.ApproverIDs)
	p.ProductionHeadIDs = dedupe(p.ProductionHeadIDs)
	p.Status = models.ProjectStatusActive
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Project{}, ErrDuplicateName
		}
		return models.Project{}, err
	}
	return p, nil
}

// GetByID loads a project by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListFilter narrows List.
type ListFilter struct {
	// MemberID restricts results to projects the user is on in any capacity.
	// Nil lists every project.
	MemberID        *primitive.ObjectID
	IncludeArchived bool
	After           string
	Limit           int
}

// List returns projects ordered by name with keyset paging.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Project, string, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	filter := bson.M{}
	if f.MemberID != nil {
		filter["$or"] = []bson.M{
			{"team_members": *f.MemberID},
			{"approver_ids": *f.MemberID},
			{"production_head_ids": *f.MemberID},
		}
	}
	if !f.IncludeArchived {
		filter["status"] = models.ProjectStatusActive
	}

	find := options.Find()
	cfg := paging.ConfigureKeyset(f.After)
	cfg.ApplyToFind(find, "name_ci", limit)
	if ks := cfg.KeysetWindow("name_ci"); ks != nil {
		if or, ok := filter["$or"]; ok {
			filter["$and"] = []bson.M{{"$or": or}, ks}
			delete(filter, "$or")
		} else {
			maps.Copy(filter, ks)
		}
	}

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)
	rows := []models.Project{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, "", err
	}

	next := ""
	if paging.TrimPage(&rows, limit) {
		next = paging.BuildCursor(rows,
			func(p models.Project) string { return p.NameCI },
			func(p models.Project) primitive.ObjectID { return p.ID })
	}
	return rows, next, nil
}

// SetBudget replaces the overall and per-department budgets of an active project.
func (s *Store) SetBudget(ctx context.Context, id primitive.ObjectID, budget int64, departments map[string]int64) (*models.Project, error) {
	if budget < 0 {
		return nil, apperr.Invalid("budget cannot be negative")
	}
	depts, err := normalizeDepartments(departments)
	if err != nil {
		return nil, err
	}
	return s.updateActive(ctx, id, bson.M{
		"budget":             budget,
		"department_budgets": depts,
	})
}

// Crew is the full set of people on a project.
type Crew struct {
	Members         []primitive.ObjectID
	Approvers       []primitive.ObjectID
	ProductionHeads []primitive.ObjectID
}

// SetMembers replaces a project's crew and returns the project before and
// after the change so callers can diff assignments.
func (s *Store) SetMembers(ctx context.Context, id primitive.ObjectID, crew Crew) (before, after *models.Project, err error) {
	var prev models.Project
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.ProjectStatusActive},
		bson.M{"$set": bson.M{
			"team_members":        dedupe(crew.Members),
			"approver_ids":        dedupe(crew.Approvers),
			"production_head_ids": dedupe(crew.ProductionHeads),
			"updated_at":          time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, s.missOrArchived(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}
	next := prev
	next.TeamMembers = dedupe(crew.Members)
	next.ApproverIDs = dedupe(crew.Approvers)
	next.ProductionHeadIDs = dedupe(crew.ProductionHeads)
	return &prev, &next, nil
}

// Archive flips an active project to archived.
func (s *Store) Archive(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return s.updateActive(ctx, id, bson.M{"status": models.ProjectStatusArchived})
}

// SetTemporaryApproverPhone records the phone of the current delegate.
// An empty phone clears it.
func (s *Store) SetTemporaryApproverPhone(ctx context.Context, id primitive.ObjectID, phone string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	update := bson.M{"$set": set}
	if phone = normalize.Phone(phone); phone == "" {
		update["$unset"] = bson.M{"temporary_approver_phone": ""}
	} else {
		set["temporary_approver_phone"] = phone
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) updateActive(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Project, error) {
	set["updated_at"] = time.Now().UTC()
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.ProjectStatusActive},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missOrArchived(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// missOrArchived explains why a conditional update on an active project matched nothing.
func (s *Store) missOrArchived(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrArchived
}

func normalizeDepartments(in map[string]int64) (map[string]int64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		name := normalize.Department(k)
		if name == "" {
			return nil, apperr.Invalid("department name is required")
		}
		if v < 0 {
			return nil, apperr.Invalid("budget for " + name + " cannot be negative")
		}
		out[name] = v
	}
	return out, nil
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
