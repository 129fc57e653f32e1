package store

import (
	"context"
	"errors"
	"time"

	"ms-invoicing/internal/models"

	"github.com/uptrace/bun"
)

const (
	CollectionStudents             = "students"
	CollectionEvents               = "events"
	CollectionSegments             = "segments"
	CollectionRegistrations        = "registrations"
	CollectionRegistrationSegments = "registration_segments"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnknownField     = errors.New("unknown field")
)

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }

// Document is implemented by every stored entity; the store assigns the id.
type Document interface {
	DocumentID() string
	SetDocumentID(id string)
}

// Timestamped documents get their creation time stamped by the store.
type Timestamped interface {
	SetCreatedAt(t time.Time)
}

// Fields maps column names to new values for Update.
type Fields map[string]any

type Filter struct {
	Field string
	Value any
}

type Sort struct {
	Field string
	Desc  bool
}

// Query selects documents by equality filters with an optional single-field sort.
type Query struct {
	Filters []Filter
	Sort    *Sort
}

func Where(field string, value any) Query {
	return Query{}.Where(field, value)
}

func OrderBy(field string, desc bool) Query {
	return Query{}.OrderBy(field, desc)
}

func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) OrderBy(field string, desc bool) Query {
	q.Sort = &Sort{Field: field, Desc: desc}
	return q
}

// Getter is the read-one half of a collection.
type Getter[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
}

type Collection[T any] interface {
	Getter[T]
	Name() string
	Insert(ctx context.Context, doc *T) (string, error)
	List(ctx context.Context, q Query) ([]T, error)
	Update(ctx context.Context, id string, fields Fields) error
	Count(ctx context.Context, filters ...Filter) (int, error)
}

// Store groups the collections the application works with.
type Store struct {
	DB                   *bun.DB
	Rules                *Rules
	Students             Collection[models.Student]
	Events               Collection[models.Event]
	Segments             Collection[models.Segment]
	Registrations        Collection[models.Registration]
	RegistrationSegments Collection[models.RegistrationSegment]
}

func New(db *bun.DB, rules *Rules) *Store {
	return &Store{
		DB:                   db,
		Rules:                rules,
		Students:             NewCollection[models.Student](db, rules),
		Events:               NewCollection[models.Event](db, rules),
		Segments:             NewCollection[models.Segment](db, rules),
		Registrations:        NewCollection[models.Registration](db, rules),
		RegistrationSegments: NewCollection[models.RegistrationSegment](db, rules),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.DB.Close()
}
