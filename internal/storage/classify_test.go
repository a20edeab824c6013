package storage

import (
	"errors"
	"testing"

	"chat_queue/internal/queue"
	apperrors "chat_queue/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	wrapped := func(code string) error {
		return pkgerrors.Wrap(&pgconn.PgError{Code: code}, "queueStore.Op")
	}

	assert.Nil(t, classify(nil))
	assert.ErrorIs(t, classify(wrapped(sqlStateUniqueViolation)), queue.ErrDuplicateUser)
	assert.ErrorIs(t, classify(wrapped(sqlStateSerializationFailure)), queue.ErrPairingRaceLost)
	assert.ErrorIs(t, classify(wrapped(sqlStateDeadlockDetected)), queue.ErrPairingRaceLost)
	assert.ErrorIs(t, classify(errors.New("connection refused")), apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, classify(apperrors.ErrAlreadyInQueue), apperrors.ErrAlreadyInQueue)
	assert.ErrorIs(t, classify(queue.ErrPairingRaceLost), queue.ErrPairingRaceLost)
}
