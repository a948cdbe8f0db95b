package repository

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowhow/services/catalog-service/internal/domain"
)

type Condition struct {
	Field  string
	Op     string
	Values []string
}

type OrderBy struct {
	Field string
	Desc  bool
}

type Query struct {
	Filters   []Condition
	AnyOf     []Condition
	Order     []OrderBy
	Limit     int
	CountOnly bool
	Embed     []string
	// Owner restricts a user-scoped collection to one user's rows.
	Owner *uuid.UUID
}

type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Select returns the matching rows as JSON records, or just their count when q.CountOnly is set.
func (r *CollectionRepository) Select(ctx context.Context, c *Collection, q Query) ([]json.RawMessage, int64, error) {
	query, err := r.scoped(r.db.WithContext(ctx).Model(c.newModel()), c, q.Filters, q.Owner)
	if err != nil {
		return nil, 0, err
	}
	if len(q.AnyOf) > 0 {
		exprs := make([]clause.Expression, 0, len(q.AnyOf))
		for _, cond := range q.AnyOf {
			e, err := c.expr(cond)
			if err != nil {
				return nil, 0, err
			}
			exprs = append(exprs, e)
		}
		query = query.Where(clause.Or(exprs...))
	}

	if q.CountOnly {
		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, errors.Wrapf(err, "count %s", c.Name)
		}
		return nil, total, nil
	}

	for _, name := range q.Embed {
		assoc, ok := c.embeds[name]
		if !ok {
			return nil, 0, errors.Wrapf(ErrInvalidFilter, "%s cannot embed %q", c.Name, name)
		}
		query = query.Preload(assoc)
	}
	for _, o := range q.Order {
		if _, ok := c.fields[o.Field]; !ok {
			return nil, 0, errors.Wrapf(ErrUnknownField, "%s.%s", c.Name, o.Field)
		}
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	rows := c.newSlice()
	if err := query.Find(rows).Error; err != nil {
		return nil, 0, errors.Wrapf(err, "select %s", c.Name)
	}
	records, err := toRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, int64(len(records)), nil
}

// Insert stores one record. For user-scoped collections owner is stamped on the row;
// a nil owner means the service role and the record is taken as is.
func (r *CollectionRepository) Insert(ctx context.Context, c *Collection, record json.RawMessage, owner *uuid.UUID) (json.RawMessage, error) {
	model := c.newModel()
	if err := json.Unmarshal(record, model); err != nil {
		return nil, errors.Wrapf(ErrInvalidFilter, "decode %s record: %v", c.Name, err)
	}
	if o, ok := model.(owned); ok && owner != nil {
		if o.Owner() != uuid.Nil && o.Owner() != *owner {
			return nil, ErrOwnerMismatch
		}
		o.SetOwner(*owner)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u, ok := model.(uniqueKeyed); ok {
			var n int64
			if err := tx.Model(c.newModel()).Where(u.UniqueKey()).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicate
			}
		}
		if c.validate != nil {
			if err := c.validate(tx, model); err != nil {
				return err
			}
		}
		if err := tx.Create(model).Error; err != nil {
			return translate(err)
		}
		if counted, ok := model.(courseCounted); ok && c.counter != "" {
			return bumpCounter(tx, c.counter, counted.CountedCourse(), 1)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "insert %s", c.Name)
	}
	out, err := json.Marshal(model)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	return out, nil
}

// Delete removes the matching rows and reports how many went away.
func (r *CollectionRepository) Delete(ctx context.Context, c *Collection, filters []Condition, owner *uuid.UUID) (int64, error) {
	if len(filters) == 0 {
		return 0, errors.Wrapf(ErrInvalidFilter, "delete from %s needs a filter", c.Name)
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query, err := r.scoped(tx.Model(c.newModel()), c, filters, owner)
		if err != nil {
			return err
		}
		rows := c.newSlice()
		if err := query.Find(rows).Error; err != nil {
			return err
		}
		list := reflect.ValueOf(rows).Elem()
		if list.Len() == 0 {
			return nil
		}
		res := tx.Delete(rows)
		if res.Error != nil {
			return translate(res.Error)
		}
		deleted = res.RowsAffected
		if c.counter == "" {
			return nil
		}
		for i := 0; i < list.Len(); i++ {
			if counted, ok := list.Index(i).Addr().Interface().(courseCounted); ok {
				if err := bumpCounter(tx, c.counter, counted.CountedCourse(), -1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", c.Name)
	}
	return deleted, nil
}

func (r *CollectionRepository) scoped(query *gorm.DB, c *Collection, filters []Condition, owner *uuid.UUID) (*gorm.DB, error) {
	for _, cond := range filters {
		e, err := c.expr(cond)
		if err != nil {
			return nil, err
		}
		query = query.Where(e)
	}
	if c.UserScoped && owner != nil {
		query = query.Where(clause.Eq{Column: clause.Column{Name: "user_id"}, Value: *owner})
	}
	return query, nil
}

// bumpCounter adjusts an aggregate counter on course; decrements never go below zero.
func bumpCounter(tx *gorm.DB, column string, courseID int64, delta int) error {
	q := tx.Model(&domain.Course{}).Where("id = ?", courseID)
	if delta < 0 {
		q = q.Where(clause.Gt{Column: clause.Column{Name: column}, Value: 0})
	}
	res := q.UpdateColumn(column, gorm.Expr("? + ?", clause.Column{Name: column}, delta))
	if res.Error != nil {
		return res.Error
	}
	if delta > 0 && res.RowsAffected == 0 {
		return errors.Wrapf(ErrConstraint, "course %d does not exist", courseID)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return errors.Wrap(ErrConstraint, err.Error())
	default:
		return err
	}
}

func toRecords(rows interface{}) ([]json.RawMessage, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, errors.Wrap(err, "encode rows")
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "split rows")
	}
	return records, nil
}
