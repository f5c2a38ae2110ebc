package profile

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-couple-connect/internal/api"
)

func newMockRepo(t *testing.T) (*PostgresProfileRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresProfileRepo(pool, slog.New(slog.DiscardHandler)), pool
}

func TestPostgresProfileRepo_PrimaryPhotoWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("promotion issues the set then the unset", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectExec("UPDATE profile_photos SET is_primary = TRUE WHERE id = $1 AND user_id = $2").
			WithArgs("p2", "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		pool.ExpectExec("UPDATE profile_photos SET is_primary = FALSE WHERE user_id = $1 AND id <> $2 AND is_primary = TRUE").
			WithArgs("u1", "p2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetPrimaryPhoto(ctx, "u1", "p2"))
		require.NoError(t, repo.UnsetOtherPrimaryPhotos(ctx, "u1", "p2"))
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("unknown photo stops before the unset", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectExec("UPDATE profile_photos SET is_primary = TRUE WHERE id = $1 AND user_id = $2").
			WithArgs("ghost", "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetPrimaryPhoto(ctx, "u1", "ghost")
		require.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("repeated promotion converges on one primary", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		for _, id := range []string{"p1", "p2"} {
			pool.ExpectExec("UPDATE profile_photos SET is_primary = TRUE WHERE id = $1 AND user_id = $2").
				WithArgs(id, "u1").
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			pool.ExpectExec("UPDATE profile_photos SET is_primary = FALSE WHERE user_id = $1 AND id <> $2 AND is_primary = TRUE").
				WithArgs("u1", id).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		}

		for _, id := range []string{"p1", "p2"} {
			require.NoError(t, repo.SetPrimaryPhoto(ctx, "u1", id))
			require.NoError(t, repo.UnsetOtherPrimaryPhotos(ctx, "u1", id))
		}
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresProfileRepo_GetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row maps to not found", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectQuery("SELECT " + profileColumns + " FROM profiles WHERE id = $1").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetProfile(ctx, "ghost")
		require.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresProfileRepo_DeletePhoto(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes only rows owned by the caller", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectExec("DELETE FROM profile_photos WHERE id = $1 AND user_id = $2").
			WithArgs("p1", "intruder").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeletePhoto(ctx, "intruder", "p1")
		require.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
