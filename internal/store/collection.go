package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// BunCollection is a Collection backed by one bun table.
type BunCollection[T any, PT interface {
	*T
	Document
}] struct {
	db    bun.IDB
	table *schema.Table
	rules *Rules

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewCollection[T any, PT interface {
	*T
	Document
}](db *bun.DB, rules *Rules) *BunCollection[T, PT] {
	return &BunCollection[T, PT]{
		db:    db,
		table: db.Table(reflect.TypeOf((*T)(nil)).Elem()),
		rules: rules,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

func (c *BunCollection[T, PT]) Name() string {
	return c.table.Name
}

func (c *BunCollection[T, PT]) Insert(ctx context.Context, doc *T) (string, error) {
	if err := c.rules.Check(c.Name(), OpWrite); err != nil {
		return "", err
	}

	p := PT(doc)
	p.SetDocumentID(c.NewID())
	if ts, ok := any(doc).(Timestamped); ok {
		ts.SetCreatedAt(c.Now())
	}

	if _, err := c.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.Name(), err)
	}
	return p.DocumentID(), nil
}

func (c *BunCollection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	if err := c.rules.Check(c.Name(), OpRead); err != nil {
		return nil, err
	}

	doc := new(T)
	err := c.db.NewSelect().Model(doc).Where("? = ?", bun.Ident("id"), id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", c.Name(), id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.Name(), id, err)
	}
	return doc, nil
}

func (c *BunCollection[T, PT]) List(ctx context.Context, q Query) ([]T, error) {
	if err := c.rules.Check(c.Name(), OpRead); err != nil {
		return nil, err
	}

	docs := make([]T, 0)
	sel := c.db.NewSelect().Model(&docs)

	sel, err := c.applyFilters(sel, q.Filters)
	if err != nil {
		return nil, err
	}

	if q.Sort != nil {
		if err := c.checkField(q.Sort.Field); err != nil {
			return nil, err
		}
		if q.Sort.Desc {
			sel = sel.OrderExpr("? DESC", bun.Ident(q.Sort.Field))
		} else {
			sel = sel.OrderExpr("? ASC", bun.Ident(q.Sort.Field))
		}
	}

	if err := sel.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list %s: %w", c.Name(), err)
	}
	return docs, nil
}

// Update sets the given columns on one document. Missing documents yield ErrNotFound.
func (c *BunCollection[T, PT]) Update(ctx context.Context, id string, fields Fields) error {
	if err := c.rules.Check(c.Name(), OpWrite); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "id" {
			return fmt.Errorf("%s: id is immutable: %w", c.Name(), ErrUnknownField)
		}
		if err := c.checkField(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	upd := c.db.NewUpdate().Model((*T)(nil))
	for _, name := range names {
		upd = upd.Set("? = ?", bun.Ident(name), fields[name])
	}

	res, err := upd.Where("? = ?", bun.Ident("id"), id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", c.Name(), id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s/%s: %w", c.Name(), id, ErrNotFound)
	}
	return nil
}

func (c *BunCollection[T, PT]) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := c.rules.Check(c.Name(), OpRead); err != nil {
		return 0, err
	}

	sel, err := c.applyFilters(c.db.NewSelect().Model((*T)(nil)), filters)
	if err != nil {
		return 0, err
	}

	n, err := sel.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name(), err)
	}
	return n, nil
}

func (c *BunCollection[T, PT]) applyFilters(sel *bun.SelectQuery, filters []Filter) (*bun.SelectQuery, error) {
	for _, f := range filters {
		if err := c.checkField(f.Field); err != nil {
			return nil, err
		}
		sel = sel.Where("? = ?", bun.Ident(f.Field), f.Value)
	}
	return sel, nil
}

func (c *BunCollection[T, PT]) checkField(name string) error {
	if _, ok := c.table.FieldMap[name]; !ok {
		return fmt.Errorf("%s.%s: %w", c.Name(), name, ErrUnknownField)
	}
	return nil
}
