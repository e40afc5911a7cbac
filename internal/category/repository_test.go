package category

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		rows := sqlmock.NewRows([]string{"name", "count"}).
			AddRow("Electronics", 4).
			AddRow("Fashion", 2)

		mock.ExpectQuery(`(?s)SELECT TRIM\(category\) AS name, COUNT\(\*\) FROM products .* GROUP BY TRIM\(category\)`).
			WillReturnRows(rows)

		res, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Category{
			{Name: "Electronics", ProductCount: 4},
			{Name: "Fashion", ProductCount: 2},
		}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)FROM products`).
			WillReturnRows(sqlmock.NewRows([]string{"name", "count"}))

		res, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectQuery(`(?s)FROM products`).WillReturnError(errors.New("db down"))

		_, err = repo.List(ctx)
		assert.ErrorIs(t, err, ErrFailedGetCategories)
		assert.ErrorContains(t, err, "db down")
	})
}
