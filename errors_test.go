package matcha

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchadb/matcha/internal/vindex"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("ContractViolations", func(t *testing.T) {
		for _, err := range []error{
			ErrInvalidTopK,
			ErrNoVectors,
			&DimensionMismatchError{Space: "image", Expected: 4, Actual: 3},
			&UnknownSpaceError{Space: "audio"},
			&SpaceMismatchError{
				Name:      "image",
				Existing:  SpaceSpec{Name: "image", Dimension: 4, Metric: MetricCosine},
				Requested: SpaceSpec{Name: "image", Dimension: 8, Metric: MetricCosine},
			},
			&InvalidVectorError{Space: "image", Reason: "zero norm"},
		} {
			assert.ErrorIs(t, err, ErrContractViolation, "%T", err)
			assert.NotErrorIs(t, err, ErrUnavailable, "%T", err)
			assert.NotErrorIs(t, err, ErrNotFound, "%T", err)
		}
	})

	t.Run("UnavailableWrapsCause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &UnavailableError{Op: "snapshot load", Err: cause}

		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrContractViolation)
		assert.Contains(t, err.Error(), "snapshot load")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("SnapshotFormatIsItsOwnClass", func(t *testing.T) {
		err := &SnapshotFormatError{Reason: "bad magic"}

		assert.NotErrorIs(t, err, ErrContractViolation)
		assert.NotErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "bad magic")
	})

	t.Run("Messages", func(t *testing.T) {
		assert.Equal(t,
			`space "image": dimension mismatch: expected 4, got 3`,
			(&DimensionMismatchError{Space: "image", Expected: 4, Actual: 3}).Error())
		assert.Equal(t,
			`unknown vector space "audio"`,
			(&UnknownSpaceError{Space: "audio"}).Error())
		assert.Equal(t,
			"invalid vector: zero norm",
			(&InvalidVectorError{Reason: "zero norm"}).Error())
		assert.Equal(t,
			`space "image": invalid vector: zero norm`,
			(&InvalidVectorError{Space: "image", Reason: "zero norm"}).Error())
	})

	t.Run("SentinelsAreDistinct", func(t *testing.T) {
		sentinels := []error{ErrContractViolation, ErrUnavailable, ErrNotFound, ErrClosed}
		for i, a := range sentinels {
			for j, b := range sentinels {
				if i == j {
					continue
				}
				assert.NotErrorIs(t, a, b)
			}
		}
	})
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, translateError(plain))

	dm := &DimensionMismatchError{Space: "image", Expected: 4, Actual: 3}
	wrapped := fmt.Errorf("put: %w", dm)
	assert.Equal(t, wrapped, translateError(wrapped))

	// Raw index dimension errors are folded into the contract category.
	raw := fmt.Errorf("put: %w", vindex.ErrDimension)
	assert.ErrorIs(t, translateError(raw), ErrContractViolation)
}
