package admin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresAdminRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresAdminRepo(pool, slog.New(slog.DiscardHandler)), pool
}

func TestPostgresAdminRepo_CountProfilesByStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("counts over the whole status set in one IN query", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles WHERE approval_status IN \(\$1,\$2\)`).
			WithArgs("pending", "in_review").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))

		n, err := repo.CountProfilesByStatuses(ctx, types.PendingStatuses())
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresAdminRepo_UpdateProfileStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("approval stamps the approver", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectExec(`SET approval_status = \$1, rejection_reason = NULL, approved_by = \$2,\s+approved_at = now\(\)`).
			WithArgs(types.ApprovalStatusApproved, "a1", "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateProfileStatus(ctx, "u1", types.ApprovalStatusApproved, nil, "a1"))
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("rejection clears the approver stamp", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		reason := "incomplete profile"

		pool.ExpectExec(`SET approval_status = \$1, rejection_reason = \$2, approved_by = NULL,\s+approved_at = NULL`).
			WithArgs(types.ApprovalStatusRejected, &reason, "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateProfileStatus(ctx, "u1", types.ApprovalStatusRejected, &reason, "a1"))
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresAdminRepo_UpdatePhotosStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("approval clears a stale rejection timestamp", func(t *testing.T) {
		repo, pool := newMockRepo(t)

		pool.ExpectExec(`UPDATE profile_photos SET approval_status = \$1, rejection_reason = \$2, approved_by = \$3, approved_at = \$4, rejected_at = \$5 WHERE id IN \(\$6,\$7\)`).
			WithArgs("approved", (*string)(nil), "a1", pgxmock.AnyArg(), nil, "p1", "p2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))

		n, err := repo.UpdatePhotosStatus(ctx, []string{"p1", "p2"}, types.ApprovalStatusApproved, nil, "a1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("rejection stamps rejected_at and keeps the reason", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		reason := "not allowed content"

		pool.ExpectExec(`UPDATE profile_photos SET approval_status = \$1, rejection_reason = \$2, approved_by = \$3, rejected_at = \$4 WHERE id IN \(\$5\)`).
			WithArgs("rejected", &reason, "a1", pgxmock.AnyArg(), "p1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		n, err := repo.UpdatePhotosStatus(ctx, []string{"p1"}, types.ApprovalStatusRejected, &reason, "a1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
