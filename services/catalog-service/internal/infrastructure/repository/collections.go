package repository

import (
	"strconv"
	"strings"

	"knowhow/services/catalog-service/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownField      = errors.New("unknown field")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrDuplicate         = errors.New("duplicate record")
	ErrConstraint        = errors.New("constraint violation")
	ErrOwnerMismatch     = errors.New("record belongs to another user")
)

const (
	OpEq    = "eq"
	OpILike = "ilike"
	OpIn    = "in"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindUUID
	kindTime
)

// Writer says who may insert and delete rows of a collection.
type Writer int

const (
	// WriterService: only the service role (the generation pipeline).
	WriterService Writer = iota
	// WriterOwner: signed-in users, for their own rows only.
	WriterOwner
)

// Collection describes one table exposed through the collection API.
type Collection struct {
	Name string
	// UserScoped rows carry user_id and are visible only to their owner.
	UserScoped bool
	Writer     Writer

	fields   map[string]fieldKind
	embeds   map[string]string
	counter  string
	newModel func() interface{}
	newSlice func() interface{}
	validate func(tx *gorm.DB, model interface{}) error
}

type owned interface {
	Owner() uuid.UUID
	SetOwner(uuid.UUID)
}

type uniqueKeyed interface {
	UniqueKey() map[string]interface{}
}

type courseCounted interface {
	CountedCourse() int64
}

var collections = map[string]*Collection{
	"course": {
		Name:   "course",
		Writer: WriterService,
		fields: map[string]fieldKind{
			"id": kindInt, "topic": kindString, "description": kindString, "is_ready": kindBool,
			"saved_count": kindInt, "completed_count": kindInt, "creator_id": kindUUID, "created_at": kindTime,
		},
		newModel: func() interface{} { return &domain.Course{} },
		newSlice: func() interface{} { return &[]domain.Course{} },
	},
	"class": {
		Name:   "class",
		Writer: WriterService,
		fields: map[string]fieldKind{
			"id": kindInt, "course_id": kindInt, "index": kindInt, "name": kindString,
			"description": kindString, "created_at": kindTime,
		},
		newModel: func() interface{} { return &domain.Class{} },
		newSlice: func() interface{} { return &[]domain.Class{} },
	},
	"course_completed": {
		Name:       "course_completed",
		UserScoped: true,
		Writer:     WriterOwner,
		fields: map[string]fieldKind{
			"id": kindInt, "user_id": kindUUID, "course_id": kindInt, "created_at": kindTime,
		},
		embeds:   map[string]string{"course": "Course"},
		counter:  "completed_count",
		newModel: func() interface{} { return &domain.CourseCompletion{} },
		newSlice: func() interface{} { return &[]domain.CourseCompletion{} },
	},
	"class_completed": {
		Name:       "class_completed",
		UserScoped: true,
		Writer:     WriterOwner,
		fields: map[string]fieldKind{
			"id": kindInt, "user_id": kindUUID, "class_id": kindInt, "course_id": kindInt, "created_at": kindTime,
		},
		newModel: func() interface{} { return &domain.ClassCompletion{} },
		newSlice: func() interface{} { return &[]domain.ClassCompletion{} },
		validate: func(tx *gorm.DB, model interface{}) error {
			cc := model.(*domain.ClassCompletion)
			var n int64
			if err := tx.Model(&domain.Class{}).Where("id = ? AND course_id = ?", cc.ClassID, cc.CourseID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return errors.Wrapf(ErrConstraint, "class %d is not part of course %d", cc.ClassID, cc.CourseID)
			}
			return nil
		},
	},
	"saved_course": {
		Name:       "saved_course",
		UserScoped: true,
		Writer:     WriterOwner,
		fields: map[string]fieldKind{
			"id": kindInt, "user_id": kindUUID, "course_id": kindInt, "created_at": kindTime,
		},
		embeds:   map[string]string{"course": "Course"},
		counter:  "saved_count",
		newModel: func() interface{} { return &domain.SavedCourse{} },
		newSlice: func() interface{} { return &[]domain.SavedCourse{} },
	},
	"profiles": {
		Name:   "profiles",
		Writer: WriterService,
		fields: map[string]fieldKind{
			"id": kindUUID, "username": kindString, "created_at": kindTime,
		},
		newModel: func() interface{} { return &domain.Profile{} },
		newSlice: func() interface{} { return &[]domain.Profile{} },
	},
}

// Lookup returns the collection registered under name.
func Lookup(name string) (*Collection, error) {
	c, ok := collections[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCollection, "%q", name)
	}
	return c, nil
}

// Models lists every model the collections are stored in, for migrations.
func Models() []interface{} {
	return []interface{}{
		&domain.Course{}, &domain.Class{},
		&domain.CourseCompletion{}, &domain.ClassCompletion{}, &domain.SavedCourse{},
		&domain.Profile{}, &domain.Account{},
	}
}

func (c *Collection) expr(cond Condition) (clause.Expression, error) {
	kind, ok := c.fields[cond.Field]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownField, "%s.%s", c.Name, cond.Field)
	}
	col := clause.Column{Name: cond.Field}

	switch cond.Op {
	case OpEq:
		if len(cond.Values) != 1 {
			return nil, errors.Wrapf(ErrInvalidFilter, "%s: eq takes one value", cond.Field)
		}
		v, err := convert(kind, cond.Values[0])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidFilter, "%s: %v", cond.Field, err)
		}
		return clause.Eq{Column: col, Value: v}, nil
	case OpILike:
		if kind != kindString || len(cond.Values) != 1 {
			return nil, errors.Wrapf(ErrInvalidFilter, "%s: ilike takes one text value", cond.Field)
		}
		return clause.Expr{SQL: "LOWER(?) LIKE ?", Vars: []interface{}{col, strings.ToLower(cond.Values[0])}}, nil
	case OpIn:
		if len(cond.Values) == 0 {
			return nil, errors.Wrapf(ErrInvalidFilter, "%s: in needs values", cond.Field)
		}
		vals := make([]interface{}, 0, len(cond.Values))
		for _, raw := range cond.Values {
			v, err := convert(kind, raw)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidFilter, "%s: %v", cond.Field, err)
			}
			vals = append(vals, v)
		}
		return clause.IN{Column: col, Values: vals}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidFilter, "%s: unsupported operator %q", cond.Field, cond.Op)
	}
}

func convert(kind fieldKind, raw string) (interface{}, error) {
	switch kind {
	case kindInt:
		return strconv.ParseInt(raw, 10, 64)
	case kindBool:
		return strconv.ParseBool(raw)
	case kindUUID:
		return uuid.Parse(raw)
	default:
		return raw, nil
	}
}
