package postgres_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-service/internal/models"
	repo "blog-service/internal/repository/postgres"
)

var feedCols = []string{"blog_id", "photo", "description", "user_id", "username", "image",
	"likes", "dislikes", "comments", "create_at"}

func TestBlogGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBlogRepository(mock)
	ctx := context.Background()
	now := time.Now().UTC()
	cols := []string{"blog_id", "user_id", "photo", "description", "likes", "dislikes", "comments", "create_at", "update_at"}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT blog_id, user_id").
			WithArgs("b-1").
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow("b-1", "u-1", "https://cdn/blog/x.png", "text", []string{"u-2"}, []string{}, []models.Comment{}, now, now))

		b, err := r.GetByID(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", b.UserID)
		assert.Equal(t, []string{"u-2"}, b.Likes)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT blog_id, user_id").
			WithArgs("b-404").
			WillReturnError(pgx.ErrNoRows)

		_, err := r.GetByID(ctx, "b-404")
		assert.ErrorIs(t, err, repo.ErrBlogNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogFeed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBlogRepository(mock)
	now := time.Now().UTC()
	comment := models.Comment{CommentID: "c-1", UserID: "u-2", Username: "bob", Comment: "nice", Timestamp: now}

	mock.ExpectQuery("SELECT b.blog_id").
		WillReturnRows(pgxmock.NewRows(feedCols).
			AddRow("b-1", "", "first", "u-1", "jane doe", "", []string{"u-2", "u-3"}, []string{"u-4"}, []models.Comment{comment}, now).
			AddRow("b-2", "", "second", "u-1", "jane doe", "", []string(nil), []string(nil), []models.Comment(nil), now))

	feed, err := r.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, 2, feed[0].LikeCount)
	assert.Equal(t, 1, feed[0].DislikeCount)
	assert.Equal(t, "nice", feed[0].Comments[0].Comment)
	assert.NotNil(t, feed[1].Likes)
	assert.NotNil(t, feed[1].Comments)
	assert.Zero(t, feed[1].LikeCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogFeedByIDsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	feed, err := repo.NewBlogRepository(mock).FeedByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, feed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogSummaries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT blog_id, COALESCE").
		WillReturnRows(pgxmock.NewRows([]string{"blog_id", "photo", "description"}).
			AddRow("b-1", "p", "d"))

	out, err := repo.NewBlogRepository(mock).Summaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.BlogSummary{{BlogID: "b-1", Photo: "p", Description: "d"}}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogReact(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBlogRepository(mock)
	ctx := context.Background()
	exists := regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM blogs")

	t.Run("like applied", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("SET likes = array_append(likes, $2), dislikes = array_remove(dislikes, $2)")).
			WithArgs("b-1", "u-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		applied, err := r.React(ctx, "b-1", "u-1", models.ReactionLike)
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("already disliked", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("SET dislikes = array_append(dislikes, $2), likes = array_remove(likes, $2)")).
			WithArgs("b-1", "u-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(exists).WithArgs("b-1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		applied, err := r.React(ctx, "b-1", "u-1", models.ReactionDislike)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("missing blog", func(t *testing.T) {
		mock.ExpectExec("UPDATE blogs").
			WithArgs("b-404", "u-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(exists).WithArgs("b-404").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := r.React(ctx, "b-404", "u-1", models.ReactionLike)
		assert.ErrorIs(t, err, repo.ErrBlogNotFound)
	})

	t.Run("unknown reaction", func(t *testing.T) {
		_, err := r.React(ctx, "b-1", "u-1", models.Reaction("love"))
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogAddComment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBlogRepository(mock)
	ctx := context.Background()
	c := models.Comment{CommentID: "c-1", UserID: "u-1", Username: "jane", Comment: "hello", Timestamp: time.Now().UTC()}

	mock.ExpectExec(regexp.QuoteMeta("comments || jsonb_build_array($2::jsonb)")).
		WithArgs("b-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE blogs").
		WithArgs("b-404", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE blogs").
		WithArgs("b-1", pgxmock.AnyArg()).
		WillReturnError(fmt.Errorf("db error"))

	require.NoError(t, r.AddComment(ctx, "b-1", c))
	assert.ErrorIs(t, r.AddComment(ctx, "b-404", c), repo.ErrBlogNotFound)
	assert.Error(t, r.AddComment(ctx, "b-1", c))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlogUpdateAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewBlogRepository(mock)
	ctx := context.Background()

	mock.ExpectExec("UPDATE blogs").
		WithArgs("b-1", "u-2", "new text", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE blogs SET delete_status = TRUE").
		WithArgs("b-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := r.Update(ctx, "b-1", "u-2", "new text", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.SoftDelete(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
