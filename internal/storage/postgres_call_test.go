package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/apperrors"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
)

func callColumns() []string {
	return []string{
		"id", "call_id", "direction", "caller_id_number", "callee_id_number",
		"called_at", "event_history",
	}
}

func TestFetchCallsByFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	from := time.Unix(1_700_000_000, 0).UTC()
	to := from.Add(24 * time.Hour)

	selectQuery := `SELECT * FROM "calls" WHERE direction IN ($1,$2) AND called_at >= $3 AND called_at < $4 ORDER BY called_at asc`
	mock.ExpectQuery(selectQuery).
		WithArgs(model.DirectionOutbound, model.DirectionCampaign, from.Unix(), to.Unix()).
		WillReturnRows(sqlmock.NewRows(callColumns()).
			AddRow(1, "out-1", model.DirectionOutbound, "1001", "", 1_700_000_100, []byte(`[{"event":"transfer","extension":"8001","timestamp":1700000100}]`)).
			AddRow(2, "camp-1", model.DirectionCampaign, "1003", "", 1_700_000_200, nil))

	calls, err := repo.FetchCallsByFilter(context.Background(), CallFilter{
		Directions: []string{model.DirectionOutbound, model.DirectionCampaign},
		From:       from,
		To:         to,
	})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "out-1", calls[0].CallID)
	assert.Equal(t, int64(1_700_000_100), calls[0].CalledAt.Int64())
	require.Len(t, calls[0].Events(), 1)
	assert.Equal(t, "camp-1", calls[1].CallID)
}

func TestFetchCallsByFilter_WithLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	from := time.Unix(1_700_000_000, 0).UTC()
	to := from.Add(time.Hour)

	selectQuery := `SELECT * FROM "calls" WHERE direction IN ($1) AND called_at >= $2 AND called_at < $3 ORDER BY called_at asc LIMIT $4`
	mock.ExpectQuery(selectQuery).
		WithArgs(model.DirectionInbound, from.Unix(), to.Unix(), 100).
		WillReturnRows(sqlmock.NewRows(callColumns()))

	calls, err := repo.FetchCallsByFilter(context.Background(), CallFilter{
		Directions: []string{model.DirectionInbound},
		From:       from,
		To:         to,
		Limit:      100,
	})
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestFetchCallsByFilter_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	selectQuery := `SELECT * FROM "calls" WHERE direction IN ($1) ORDER BY called_at asc`
	mock.ExpectQuery(selectQuery).
		WithArgs(model.DirectionInbound).
		WillReturnError(errors.New("permission denied for table calls"))

	calls, err := repo.FetchCallsByFilter(context.Background(), CallFilter{
		Directions: []string{model.DirectionInbound},
	})
	require.Error(t, err)
	assert.Nil(t, calls)
	assert.True(t, apperrors.IsRetryable(err))
	assert.True(t, apperrors.IsDatabaseError(err))
}

func TestSaveReconciledCalls(t *testing.T) {
	repo, mock := newMockRepo(t)

	updateQuery := `UPDATE "calls" SET "transfer_agent_name"=$1,"transfer_extension"=$2,"transfer_occurred"=$3,"transfer_queue_extension"=$4,"transfer_source_call_id"=$5,"updated_at"=$6 WHERE call_id = $7`

	mock.ExpectBegin()
	mock.ExpectExec(updateQuery).
		WithArgs("Dana Reed", "1002", true, "8001", "in-1", AnyTime{}, "out-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := []model.Call{
		{
			CallID:                 "out-1",
			Direction:              model.DirectionOutbound,
			TransferOccurred:       true,
			TransferQueueExtension: "8001",
			TransferExtension:      "1002",
			TransferAgentName:      "Dana Reed",
			TransferSourceCallID:   "in-1",
		},
		// No transfer: must not produce an update.
		{CallID: "out-2", Direction: model.DirectionOutbound},
	}

	err := repo.SaveReconciledCalls(context.Background(), calls)
	assert.NoError(t, err)
}

func TestSaveReconciledCalls_EmptyBatch(t *testing.T) {
	repo, _ := newMockRepo(t)
	assert.NoError(t, repo.SaveReconciledCalls(context.Background(), nil))
}

func TestSaveReconciledCalls_NothingToWrite(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := []model.Call{
		{CallID: "out-1", Direction: model.DirectionOutbound},
	}
	assert.NoError(t, repo.SaveReconciledCalls(context.Background(), calls))
}

func TestSaveReconciledCalls_UpdateError(t *testing.T) {
	repo, mock := newMockRepo(t)

	updateQuery := `UPDATE "calls" SET "transfer_agent_name"=$1,"transfer_extension"=$2,"transfer_occurred"=$3,"transfer_queue_extension"=$4,"transfer_source_call_id"=$5,"updated_at"=$6 WHERE call_id = $7`

	mock.ExpectBegin()
	mock.ExpectExec(updateQuery).
		WithArgs("", "", true, "8001", "", AnyTime{}, "out-1").
		WillReturnError(errors.New("value too long for column"))
	mock.ExpectRollback()

	calls := []model.Call{
		{CallID: "out-1", TransferOccurred: true, TransferQueueExtension: "8001"},
	}

	err := repo.SaveReconciledCalls(context.Background(), calls)
	require.Error(t, err)
	assert.True(t, apperrors.IsDatabaseError(err))
}
