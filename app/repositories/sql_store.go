package repositories

import (
	"context"
	"errors"
	"fmt"

	"blogfront/app/models"
	"blogfront/app/query"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Count annotations are correlated sub-selects so that several counts on the
// same row never multiply each other through joins.
var annotationSQL = map[query.Annotation]string{
	query.PostsCount:    "(SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id) AS posts_count",
	query.CommentsCount: "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count",
	query.LikesCount:    "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count",
}

var filterColumns = map[query.Field]string{
	query.FieldID:     "id",
	query.FieldSlug:   "slug",
	query.FieldTitle:  "title",
	query.FieldPostID: "post_id",
}

// SQLStore executes query plans through GORM.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open GORM connection
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore connects with the named driver ("postgres" or "sqlite").
func OpenSQLStore(driver, dsn string, debug bool) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewSQLStore(db), nil
}

// Migrate creates or updates the tables for development and tests.
func (s *SQLStore) Migrate() error {
	return s.db.AutoMigrate(&models.Author{}, &models.Tag{}, &models.Post{}, &models.Comment{}, &models.Like{})
}

// Close closes the underlying connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection to the database
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FindPosts executes a post plan
func (s *SQLStore) FindPosts(ctx context.Context, plan query.Plan) ([]*models.Post, error) {
	if err := checkPlan(plan, query.EntityPost); err != nil {
		return nil, err
	}
	posts := []*models.Post{}
	if plan.Limit == 0 {
		return posts, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Post{}).Select(selectList("posts", plan.Annotate))
	for _, f := range plan.Filters {
		if f.Field == query.FieldTagID {
			members := s.db.Table("post_tags").Select("post_tags.post_id").Where("post_tags.tag_id = ?", f.Value)
			tx = tx.Where("posts.id IN (?)", members)
			continue
		}
		tx = tx.Where(clause.Eq{Column: clause.Column{Table: "posts", Name: filterColumns[f.Field]}, Value: f.Value})
	}
	tx = s.order(tx, "posts", plan)
	if _, ok := plan.Preloads(query.RelationAuthor); ok {
		tx = tx.Preload("Author")
	}
	if w, ok := plan.Preloads(query.RelationTags); ok {
		tx = tx.Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Select(selectList("tags", w.Annotate)).Order("tags.id")
		})
	}

	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindTags executes a tag plan
func (s *SQLStore) FindTags(ctx context.Context, plan query.Plan) ([]*models.Tag, error) {
	if err := checkPlan(plan, query.EntityTag); err != nil {
		return nil, err
	}
	tags := []*models.Tag{}
	if plan.Limit == 0 {
		return tags, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Tag{}).Select(selectList("tags", plan.Annotate))
	for _, f := range plan.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Table: "tags", Name: filterColumns[f.Field]}, Value: f.Value})
	}
	tx = s.order(tx, "tags", plan)

	if err := tx.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// FindComments executes a comment plan
func (s *SQLStore) FindComments(ctx context.Context, plan query.Plan) ([]*models.Comment, error) {
	if err := checkPlan(plan, query.EntityComment); err != nil {
		return nil, err
	}
	comments := []*models.Comment{}
	if plan.Limit == 0 {
		return comments, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Comment{})
	for _, f := range plan.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Table: "comments", Name: filterColumns[f.Field]}, Value: f.Value})
	}
	tx = s.order(tx, "comments", plan)
	if _, ok := plan.Preloads(query.RelationAuthor); ok {
		tx = tx.Preload("Author")
	}

	if err := tx.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Import writes a dataset in a single transaction
func (s *SQLStore) Import(ctx context.Context, ds *Dataset) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ds.writeTo(&gormWriter{tx: tx})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

// order applies the plan's orderings, the id tie-break and the limit.
func (s *SQLStore) order(tx *gorm.DB, table string, plan query.Plan) *gorm.DB {
	for _, o := range plan.OrderBy {
		col := clause.Column{Table: table, Name: o.Field}
		if plan.Annotates(query.Annotation(o.Field)) {
			col = clause.Column{Name: o.Field, Raw: true}
		}
		tx = tx.Order(clause.OrderByColumn{Column: col, Desc: o.Desc})
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: table, Name: "id"}})
	if plan.Limit != query.Unlimited {
		tx = tx.Limit(plan.Limit)
	}
	return tx
}

func selectList(table string, annotate []query.Annotation) string {
	sel := table + ".*"
	for _, a := range annotate {
		sel += ", " + annotationSQL[a]
	}
	return sel
}

type gormWriter struct {
	tx *gorm.DB
}

func (w *gormWriter) insertAuthor(a *models.Author) error {
	return w.tx.Create(a).Error
}

func (w *gormWriter) insertTag(t *models.Tag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return w.tx.Create(t).Error
}

func (w *gormWriter) insertPost(p *models.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	// tags already exist; only the post_tags rows are written
	return w.tx.Omit("Tags.*").Create(p).Error
}

func (w *gormWriter) insertComment(c *models.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return w.tx.Create(c).Error
}

func (w *gormWriter) insertLike(l *models.Like) error {
	return w.tx.Create(l).Error
}
