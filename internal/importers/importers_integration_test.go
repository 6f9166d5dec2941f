package importers_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/yamdb-importer/internal/database"
	"github.com/mrlokans/yamdb-importer/internal/database/store"
	"github.com/mrlokans/yamdb-importer/internal/entities"
	"github.com/mrlokans/yamdb-importer/internal/importers"
)

var runClock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB opens a migrated SQLite store in a temporary directory.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "yamdb.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func writeCSV(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func runImport(t *testing.T, db *gorm.DB, dir string) *importers.Report {
	t.Helper()
	opts := importers.DefaultOptions(dir)
	logger, _ := test.NewNullLogger()
	opts.Logger = logger
	opts.Now = func() time.Time { return runClock }

	o, err := importers.NewOrchestrator(store.NewRepository(db), opts)
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, importers.StateCompleted, report.State)
	return report
}

func counts(s *importers.StageReport) [3]int {
	return [3]int{s.Created, s.Skipped, s.Failed}
}

func TestImport_EndToEnd(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "username,email", "alice,a@x.com")
	writeCSV(t, dir, "category.csv", "slug,name", "book,Book")
	writeCSV(t, dir, "titles.csv", "name,year,category", "Dune,1965,book")
	writeCSV(t, dir, "review.csv", "title,author,text,score", "1,alice,Spice must flow,9")

	report := runImport(t, db, dir)

	assert.Equal(t, [3]int{1, 0, 0}, counts(report.Stage(importers.EntityUser)))
	assert.Equal(t, [3]int{1, 0, 0}, counts(report.Stage(importers.EntityCategory)))
	assert.Equal(t, [3]int{1, 0, 0}, counts(report.Stage(importers.EntityTitle)))
	assert.Equal(t, [3]int{1, 0, 0}, counts(report.Stage(importers.EntityReview)))
	assert.Equal(t, importers.StageSourceMissing, report.Stage(importers.EntityGenre).Status)
	assert.Equal(t, importers.StageSourceMissing, report.Stage(importers.EntityComment).Status)

	var category entities.Category
	require.NoError(t, db.Where("slug = ?", "book").First(&category).Error)
	var title entities.Title
	require.NoError(t, db.Where("name = ?", "Dune").First(&title).Error)
	require.NotNil(t, title.CategoryID)
	assert.Equal(t, category.ID, *title.CategoryID)

	var user entities.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	assert.Equal(t, entities.RoleUser, user.Role)

	var review entities.Review
	require.NoError(t, db.First(&review).Error)
	assert.Equal(t, title.ID, review.TitleID)
	assert.Equal(t, user.ID, review.AuthorID)
	assert.Equal(t, 9, review.Score)
	assert.True(t, review.PubDate.Equal(runClock))
}

func TestImport_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv",
		"id,username,email,role,bio,first_name,last_name",
		"100,bingobongo,bingobongo@yamdb.fake,user,,,",
		"101,capt_obvious,capt_obvious@yamdb.fake,admin,,Капитан,",
	)
	writeCSV(t, dir, "category.csv", "id,name,slug", "1,Фильм,movie", "2,Книга,book")
	writeCSV(t, dir, "genre.csv", "id,name,slug", "1,Драма,drama", "2,Комедия,comedy")
	writeCSV(t, dir, "titles.csv",
		"id,name,year,category",
		"1,Побег из Шоушенка,1994,1",
		"2,Крестный отец,1972,1",
	)
	writeCSV(t, dir, "genre_title.csv", "id,title_id,genre_id", "1,1,1", "2,2,1", "3,2,2")
	writeCSV(t, dir, "review.csv",
		"id,title_id,text,author,score,pub_date",
		"1,1,Ставлю десять звёзд!,100,10,2019-09-24T21:08:21.567Z",
		"2,2,Не считаю этот фильм шедевром.,101,6,2019-09-24T21:08:21.567Z",
	)
	writeCSV(t, dir, "comments.csv",
		"id,review_id,text,author,pub_date",
		"1,1,Согласен.,101,2019-09-24T21:08:21.567Z",
	)

	first := runImport(t, db, dir)
	for _, stage := range first.Stages {
		assert.Equal(t, importers.StageCompleted, stage.Status, stage.Entity)
		assert.Zero(t, stage.Failed, "%s: %v", stage.Entity, stage.Failures)
	}
	created, _, _ := first.Totals()
	assert.Equal(t, 14, created)

	second := runImport(t, db, dir)
	for i, stage := range second.Stages {
		assert.Zero(t, stage.Created, stage.Entity)
		assert.Equal(t, first.Stages[i].Created, stage.Skipped, stage.Entity)
	}

	var users int64
	require.NoError(t, db.Model(&entities.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), users)

	var title entities.Title
	require.NoError(t, db.Preload("Genres").First(&title, 2).Error)
	assert.Len(t, title.Genres, 2)
}

func TestImport_OptionalCategory(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "category.csv", "slug,name", "book,Book")
	writeCSV(t, dir, "titles.csv",
		"name,year,category",
		"Dune,1965,film",
		"Solaris,1961,",
	)

	report := runImport(t, db, dir)
	stage := report.Stage(importers.EntityTitle)
	assert.Equal(t, [3]int{2, 0, 0}, counts(stage))
	assert.Empty(t, stage.Failures)

	// The dangling slug is reported; the empty cell is not.
	require.Len(t, stage.Warnings, 1)
	assert.Equal(t, 2, stage.Warnings[0].Line)
	assert.Equal(t, importers.FailureUnresolved, stage.Warnings[0].Kind)
	assert.Contains(t, stage.Warnings[0].Reason, `category="film": no such categories`)

	var titles []entities.Title
	require.NoError(t, db.Order("name").Find(&titles).Error)
	require.Len(t, titles, 2)
	for _, title := range titles {
		assert.Nil(t, title.CategoryID, title.Name)
	}
}

func TestImport_TitleRerunAfterCategoryAppears(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "titles.csv", "name,year,category", "Dune,1965,book")

	first := runImport(t, db, dir)
	assert.Equal(t, [3]int{1, 0, 0}, counts(first.Stage(importers.EntityTitle)))
	assert.Len(t, first.Stage(importers.EntityTitle).Warnings, 1)

	writeCSV(t, dir, "category.csv", "slug,name", "book,Book")

	second := runImport(t, db, dir)
	stage := second.Stage(importers.EntityTitle)
	assert.Equal(t, [3]int{0, 1, 0}, counts(stage))
	assert.Empty(t, stage.Warnings)

	var titles []entities.Title
	require.NoError(t, db.Where("name = ?", "Dune").Find(&titles).Error)
	require.Len(t, titles, 1)
	assert.Nil(t, titles[0].CategoryID, "existing records are never updated")
}

func TestImport_ReviewUniqueness(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "username,email", "alice,a@x.com")
	writeCSV(t, dir, "titles.csv", "id,name,year", "1,Dune,1965")
	writeCSV(t, dir, "review.csv",
		"title_id,author,text,score",
		"1,alice,first,9",
		"1,alice,second,3",
	)

	report := runImport(t, db, dir)
	assert.Equal(t, [3]int{1, 1, 0}, counts(report.Stage(importers.EntityReview)))

	var reviews []entities.Review
	require.NoError(t, db.Find(&reviews).Error)
	require.Len(t, reviews, 1)
	assert.Equal(t, 9, reviews[0].Score)
}

func TestImport_ScoreRange(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "username,email", "alice,a@x.com", "bob,b@x.com")
	writeCSV(t, dir, "titles.csv", "id,name,year", "1,Dune,1965")
	writeCSV(t, dir, "review.csv",
		"title_id,author,text,score",
		"1,alice,too much,11",
		"1,bob,perfect,10",
	)

	report := runImport(t, db, dir)
	stage := report.Stage(importers.EntityReview)
	assert.Equal(t, [3]int{1, 0, 1}, counts(stage))
	require.Len(t, stage.Failures, 1)
	assert.Equal(t, 2, stage.Failures[0].Line)
	assert.Equal(t, importers.FailureConstraint, stage.Failures[0].Kind)
	assert.Contains(t, stage.Failures[0].Reason, "score")
}

func TestImport_LinkIntegrity(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "genre.csv", "slug,name", "drama,Drama")
	writeCSV(t, dir, "titles.csv", "id,name,year", "1,Dune,1965")
	writeCSV(t, dir, "genre_title.csv",
		"title_id,genre_id",
		"1,horror",
		"1,drama",
		"7,drama",
	)

	report := runImport(t, db, dir)
	stage := report.Stage(importers.EntityTitleGenre)
	assert.Equal(t, [3]int{1, 0, 2}, counts(stage))
	require.Len(t, stage.Failures, 2)
	assert.Equal(t, importers.FailureUnresolved, stage.Failures[0].Kind)
	assert.Contains(t, stage.Failures[0].Reason, `genre_id="horror"`)
	assert.Contains(t, stage.Failures[1].Reason, `title_id="7"`)

	var links int64
	require.NoError(t, db.Model(&entities.TitleGenre{}).Count(&links).Error)
	assert.Equal(t, int64(1), links)

	again := runImport(t, db, dir)
	assert.Equal(t, [3]int{0, 1, 2}, counts(again.Stage(importers.EntityTitleGenre)))
	require.NoError(t, db.Model(&entities.TitleGenre{}).Count(&links).Error)
	assert.Equal(t, int64(1), links)
}

func TestImport_MissingDependency(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "titles.csv", "id,name,year", "1,Dune,1965")
	writeCSV(t, dir, "review.csv", "title_id,author,text,score", "1,alice,great,9")

	report := runImport(t, db, dir)
	assert.Equal(t, importers.StageSourceMissing, report.Stage(importers.EntityUser).Status)

	stage := report.Stage(importers.EntityReview)
	assert.Equal(t, [3]int{0, 0, 1}, counts(stage))
	assert.Equal(t, importers.FailureUnresolved, stage.Failures[0].Kind)
	assert.Contains(t, stage.Failures[0].Reason, `author="alice": no such users`)
}

func TestImport_AmbiguousNumericAuthor(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "id,username,email", "2,alice,a@x.com", "7,2,two@x.com")
	writeCSV(t, dir, "titles.csv", "id,name,year", "1,Dune,1965")
	writeCSV(t, dir, "review.csv", "title_id,author,text,score", "1,2,hmm,5", "1,alice,fine,7")

	report := runImport(t, db, dir)
	stage := report.Stage(importers.EntityReview)
	assert.Equal(t, [3]int{1, 0, 1}, counts(stage))
	require.Len(t, stage.Failures, 1)
	assert.Equal(t, 2, stage.Failures[0].Line)
	assert.Equal(t, importers.FailureUnresolved, stage.Failures[0].Kind)
	assert.Contains(t, stage.Failures[0].Reason, `author="2": ambiguous users, matches ids 2, 7`)

	var reviews []entities.Review
	require.NoError(t, db.Find(&reviews).Error)
	require.Len(t, reviews, 1)
	assert.Equal(t, uint(2), reviews[0].AuthorID)
}

func TestImport_RowFailuresDoNotStopStage(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv",
		"username,email,role",
		"alice,a@x.com,user",
		"bob,b@x.com,overlord",
		"me,me@x.com,user",
		"broken-row",
		"carol,c@x.com,moderator",
		"alice,other@x.com,user",
		"dave,d@x.com,",
	)
	writeCSV(t, dir, "titles.csv", "name,year", "Future,2999", "Past,1900")
	writeCSV(t, dir, "category.csv", "slug", "books")

	report := runImport(t, db, dir)

	users := report.Stage(importers.EntityUser)
	assert.Equal(t, [3]int{2, 1, 4}, counts(users))
	kinds := make([]importers.FailureKind, 0, len(users.Failures))
	lines := make([]int, 0, len(users.Failures))
	for _, f := range users.Failures {
		kinds = append(kinds, f.Kind)
		lines = append(lines, f.Line)
	}
	assert.Equal(t, []importers.FailureKind{
		importers.FailureCoercion,
		importers.FailureConstraint,
		importers.FailureParse,
		importers.FailureCoercion,
	}, kinds)
	assert.Equal(t, []int{3, 4, 5, 8}, lines)
	assert.Contains(t, users.Failures[3].Reason, "role: must be one of")

	titles := report.Stage(importers.EntityTitle)
	assert.Equal(t, [3]int{1, 0, 1}, counts(titles))
	assert.Contains(t, titles.Failures[0].Reason, "in the future")

	categories := report.Stage(importers.EntityCategory)
	assert.Equal(t, importers.StageSourceInvalid, categories.Status)
	assert.Contains(t, categories.Error, "name")
}

func TestImport_PreservesIDsAcrossFiles(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	writeCSV(t, dir, "users.csv", "id,username,email", "100,alice,a@x.com")
	writeCSV(t, dir, "titles.csv", "id,name,year", "42,Dune,1965")
	writeCSV(t, dir, "review.csv", "id,title_id,author,text,score", "7,42,100,ok,8")
	writeCSV(t, dir, "comments.csv", "review_id,author,text", "7,alice,agreed")

	report := runImport(t, db, dir)
	assert.Equal(t, 1, report.Stage(importers.EntityComment).Created)

	var comment entities.Comment
	require.NoError(t, db.First(&comment).Error)
	assert.Equal(t, uint(7), comment.ReviewID)
	assert.Equal(t, uint(100), comment.AuthorID)
}
