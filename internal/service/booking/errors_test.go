package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("op:%w", newError(KindDateConflict, "taken", errors.New("23P01")))

	assert.ErrorIs(t, err, ErrDateConflict)
	assert.NotErrorIs(t, err, ErrBusy)
	assert.Equal(t, KindDateConflict, KindOf(err))
}

func TestValidationErrorsUnwrapToEveryKind(t *testing.T) {
	v := ValidationErrors{
		newError(KindInvalidDateRange, "a", nil),
		newError(KindCapacityExceeded, "b", nil),
	}
	err := fmt.Errorf("op:%w", v.err())

	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, Errors(err), 2)
	assert.Equal(t, KindInvalidDateRange, KindOf(err))
}

func TestKindOfUnknownError(t *testing.T) {
	assert.Equal(t, KindPersistenceFailure, KindOf(errors.New("boom")))
	assert.Nil(t, ValidationErrors(nil).err())
}
