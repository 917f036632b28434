package repositories

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"blogfront/app/models"
	"blogfront/app/query"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore executes query plans against an embedded Badger database.
//
// Rows are stored as JSON under entityKey(prefix, id); post/tag membership is
// indexed in both directions. Each plan runs inside one read transaction.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open Badger database
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a Badger database at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewBadgerStore(db), nil
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is still open
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database is closed")
	}
	return ctx.Err()
}

// Backup writes a full backup of the database to w
func (s *BadgerStore) Backup(w io.Writer) error {
	_, err := s.db.Backup(w, 0)
	return err
}

// Restore loads a backup produced by Backup
func (s *BadgerStore) Restore(r io.Reader) error {
	return s.db.Load(r, 16)
}

// FindPosts executes a post plan
func (s *BadgerStore) FindPosts(ctx context.Context, plan query.Plan) ([]*models.Post, error) {
	if err := checkPlan(plan, query.EntityPost); err != nil {
		return nil, err
	}
	var result []*models.Post
	err := s.view(ctx, func(r *badgerReader) error {
		posts, err := scanRows[models.Post](r.txn, PostKeyPrefix)
		if err != nil {
			return err
		}
		for _, f := range plan.Filters {
			if posts, err = r.filterPosts(posts, f); err != nil {
				return err
			}
		}
		if plan.Annotates(query.CommentsCount) {
			counts, err := countByRows(r, CommentKeyPrefix, func(c *models.Comment) uint { return c.PostID })
			if err != nil {
				return err
			}
			for _, p := range posts {
				p.CommentsCount = counts[p.ID]
			}
		}
		if plan.Annotates(query.LikesCount) {
			counts, err := countByRows(r, LikeKeyPrefix, func(l *models.Like) uint { return l.PostID })
			if err != nil {
				return err
			}
			for _, p := range posts {
				p.LikesCount = counts[p.ID]
			}
		}
		sortRows(posts, plan.OrderBy, postField, func(p *models.Post) uint { return p.ID })
		posts = posts[:plan.Truncate(len(posts))]

		if _, ok := plan.Preloads(query.RelationAuthor); ok {
			for _, p := range posts {
				if p.Author, err = r.author(p.AuthorID); err != nil {
					return err
				}
			}
		}
		if w, ok := plan.Preloads(query.RelationTags); ok {
			for _, p := range posts {
				if p.Tags, err = r.tagsOf(p.ID, w.Annotate); err != nil {
					return err
				}
			}
		}
		result = posts
		return nil
	})
	return result, err
}

// FindTags executes a tag plan
func (s *BadgerStore) FindTags(ctx context.Context, plan query.Plan) ([]*models.Tag, error) {
	if err := checkPlan(plan, query.EntityTag); err != nil {
		return nil, err
	}
	var result []*models.Tag
	err := s.view(ctx, func(r *badgerReader) error {
		tags, err := scanRows[models.Tag](r.txn, TagKeyPrefix)
		if err != nil {
			return err
		}
		for _, f := range plan.Filters {
			tags = slices.DeleteFunc(tags, func(t *models.Tag) bool {
				switch f.Field {
				case query.FieldID:
					id, _ := asUint(f.Value)
					return t.ID != id
				default:
					return t.Title != fmt.Sprint(f.Value)
				}
			})
		}
		if plan.Annotates(query.PostsCount) {
			for _, t := range tags {
				if t.PostsCount, err = r.postsCount(t.ID); err != nil {
					return err
				}
			}
		}
		sortRows(tags, plan.OrderBy, tagField, func(t *models.Tag) uint { return t.ID })
		result = tags[:plan.Truncate(len(tags))]
		return nil
	})
	return result, err
}

// FindComments executes a comment plan
func (s *BadgerStore) FindComments(ctx context.Context, plan query.Plan) ([]*models.Comment, error) {
	if err := checkPlan(plan, query.EntityComment); err != nil {
		return nil, err
	}
	var result []*models.Comment
	err := s.view(ctx, func(r *badgerReader) error {
		comments, err := scanRows[models.Comment](r.txn, CommentKeyPrefix)
		if err != nil {
			return err
		}
		for _, f := range plan.Filters {
			id, _ := asUint(f.Value)
			comments = slices.DeleteFunc(comments, func(c *models.Comment) bool {
				if f.Field == query.FieldPostID {
					return c.PostID != id
				}
				return c.ID != id
			})
		}
		sortRows(comments, plan.OrderBy, commentField, func(c *models.Comment) uint { return c.ID })
		comments = comments[:plan.Truncate(len(comments))]
		if _, ok := plan.Preloads(query.RelationAuthor); ok {
			for _, c := range comments {
				if c.Author, err = r.author(c.AuthorID); err != nil {
					return err
				}
			}
		}
		result = comments
		return nil
	})
	return result, err
}

// Import writes a dataset in a single transaction
func (s *BadgerStore) Import(ctx context.Context, ds *Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return ds.writeTo(&badgerWriter{txn: txn})
	})
}

// Clear drops every key
func (s *BadgerStore) Clear() error {
	return s.db.DropAll()
}

func (s *BadgerStore) view(ctx context.Context, fn func(r *badgerReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(newBadgerReader(txn))
	})
}

func checkPlan(plan query.Plan, entity query.Entity) error {
	if plan.Entity != entity {
		return fmt.Errorf("invalid plan: expected %s, got %s", entity, plan.Entity)
	}
	return plan.Validate()
}

// badgerReader resolves related rows inside one transaction, memoizing
// lookups so each author or tag is decoded once per plan.
type badgerReader struct {
	txn        *badger.Txn
	authors    map[uint]*models.Author
	tags       map[uint]*models.Tag
	postCounts map[uint]int
}

func newBadgerReader(txn *badger.Txn) *badgerReader {
	return &badgerReader{
		txn:        txn,
		authors:    make(map[uint]*models.Author),
		tags:       make(map[uint]*models.Tag),
		postCounts: make(map[uint]int),
	}
}

func (r *badgerReader) filterPosts(posts []*models.Post, f query.Filter) ([]*models.Post, error) {
	switch f.Field {
	case query.FieldSlug:
		slug := fmt.Sprint(f.Value)
		return slices.DeleteFunc(posts, func(p *models.Post) bool { return p.Slug != slug }), nil
	case query.FieldID:
		id, _ := asUint(f.Value)
		return slices.DeleteFunc(posts, func(p *models.Post) bool { return p.ID != id }), nil
	case query.FieldTagID:
		id, ok := asUint(f.Value)
		if !ok {
			return nil, fmt.Errorf("invalid plan: tag_id must be an id, got %T", f.Value)
		}
		members, err := r.members(TagPostKeyPrefix, id)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(posts, func(p *models.Post) bool { return !slices.Contains(members, p.ID) }), nil
	}
	return nil, fmt.Errorf("invalid plan: cannot filter post by %s", f.Field)
}

func countByRows[T any](r *badgerReader, prefix string, key func(*T) uint) (map[uint]int, error) {
	rows, err := scanRows[T](r.txn, prefix)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int)
	for _, row := range rows {
		counts[key(row)]++
	}
	return counts, nil
}

func (r *badgerReader) author(id uint) (*models.Author, error) {
	if a, ok := r.authors[id]; ok {
		return a, nil
	}
	var a models.Author
	if err := getRow(r.txn, entityKey(AuthorKeyPrefix, id), &a); err != nil {
		return nil, fmt.Errorf("author %d: %w", id, err)
	}
	r.authors[id] = &a
	return &a, nil
}

func (r *badgerReader) tagsOf(postID uint, annotate []query.Annotation) ([]*models.Tag, error) {
	ids, err := r.members(PostTagKeyPrefix, postID)
	if err != nil {
		return nil, err
	}
	tags := make([]*models.Tag, 0, len(ids))
	for _, id := range ids {
		t, ok := r.tags[id]
		if !ok {
			t = &models.Tag{}
			if err := getRow(r.txn, entityKey(TagKeyPrefix, id), t); err != nil {
				return nil, fmt.Errorf("tag %d: %w", id, err)
			}
			r.tags[id] = t
		}
		// copy so annotated and plain preloads never share state
		tag := *t
		if slices.Contains(annotate, query.PostsCount) {
			if tag.PostsCount, err = r.postsCount(id); err != nil {
				return nil, err
			}
		}
		tags = append(tags, &tag)
	}
	return tags, nil
}

func (r *badgerReader) postsCount(tagID uint) (int, error) {
	if n, ok := r.postCounts[tagID]; ok {
		return n, nil
	}
	ids, err := r.members(TagPostKeyPrefix, tagID)
	if err != nil {
		return 0, err
	}
	r.postCounts[tagID] = len(ids)
	return len(ids), nil
}

// members lists the member ids stored under pairPrefix(prefix, owner), in id order.
func (r *badgerReader) members(prefix string, owner uint) ([]uint, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := r.txn.NewIterator(opts)
	defer it.Close()

	var ids []uint
	p := pairPrefix(prefix, owner)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		id, err := pairMember(it.Item().KeyCopy(nil), p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// scanRows decodes every row under prefix, in id order.
func scanRows[T any](txn *badger.Txn, prefix string) ([]*T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var rows []*T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		row := new(T)
		err := it.Item().Value(func(val []byte) error {
			return unmarshalEntity(val, row)
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %v", strings.TrimSuffix(prefix, ":"), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func getRow(txn *badger.Txn, key []byte, row any) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, row)
	})
}

// sortRows orders rows by the plan's orderings; ties keep ascending id order.
func sortRows[T any](rows []*T, orders []query.Order, field func(*T, string) any, id func(*T) uint) {
	slices.SortStableFunc(rows, func(a, b *T) int {
		for _, o := range orders {
			c := compareValues(field(a, o.Field), field(b, o.Field))
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(id(a), id(b))
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int:
		return cmp.Compare(av, b.(int))
	case uint:
		return cmp.Compare(av, b.(uint))
	case string:
		return cmp.Compare(av, b.(string))
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}

func postField(p *models.Post, name string) any {
	switch name {
	case string(query.FieldPublishedAt):
		return p.PublishedAt
	case string(query.CommentsCount):
		return p.CommentsCount
	case string(query.LikesCount):
		return p.LikesCount
	}
	return p.ID
}

func tagField(t *models.Tag, name string) any {
	switch name {
	case string(query.FieldTitle):
		return t.Title
	case string(query.PostsCount):
		return t.PostsCount
	}
	return t.ID
}

func commentField(c *models.Comment, name string) any {
	if name == string(query.FieldPublishedAt) {
		return c.PublishedAt
	}
	return c.ID
}

func asUint(v any) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, true
	case uint64:
		return uint(n), true
	case uint32:
		return uint(n), true
	case int:
		return uint(n), n >= 0
	case int64:
		return uint(n), n >= 0
	}
	return 0, false
}

// badgerWriter assigns ids from the per-entity sequences and maintains the
// membership and unique key indexes.
type badgerWriter struct {
	txn *badger.Txn
}

func (w *badgerWriter) put(prefix, seq string, id *uint, row any) error {
	next, err := getNextID(w.txn, seq)
	if err != nil {
		return err
	}
	*id = next
	data, err := marshalEntity(row)
	if err != nil {
		return err
	}
	return w.txn.Set(entityKey(prefix, next), data)
}

// claim reserves a unique key for id, failing if another row holds it.
func (w *badgerWriter) claim(key string, id uint) error {
	k := []byte(UniqueKeyPrefix + key)
	_, err := w.txn.Get(k)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", key, ErrDuplicate)
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	return w.txn.Set(k, []byte(strconv.FormatUint(uint64(id), 10)))
}

func (w *badgerWriter) insertAuthor(a *models.Author) error {
	if err := w.put(AuthorKeyPrefix, AuthorSeqKey, &a.ID, a); err != nil {
		return err
	}
	return w.claim("author:"+a.Username, a.ID)
}

func (w *badgerWriter) insertTag(t *models.Tag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := w.put(TagKeyPrefix, TagSeqKey, &t.ID, t); err != nil {
		return err
	}
	return w.claim("tag:"+t.Title, t.ID)
}

func (w *badgerWriter) insertPost(p *models.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := w.put(PostKeyPrefix, PostSeqKey, &p.ID, p); err != nil {
		return err
	}
	if err := w.claim("post:"+p.Slug, p.ID); err != nil {
		return err
	}
	for _, t := range p.Tags {
		if err := w.txn.Set(pairKey(PostTagKeyPrefix, p.ID, t.ID), nil); err != nil {
			return err
		}
		if err := w.txn.Set(pairKey(TagPostKeyPrefix, t.ID, p.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *badgerWriter) insertComment(c *models.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return w.put(CommentKeyPrefix, CommentSeqKey, &c.ID, c)
}

func (w *badgerWriter) insertLike(l *models.Like) error {
	if err := w.put(LikeKeyPrefix, LikeSeqKey, &l.ID, l); err != nil {
		return err
	}
	return w.claim(fmt.Sprintf("like:%d:%d", l.AuthorID, l.PostID), l.ID)
}
