package feeds

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/transit-board/pkg/transit/models"
)

func TestClassify(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"transport", Transport(models.SourceCTATrain, cause), KindTransport},
		{"format", Format(models.SourceMetra, cause), KindFormat},
		{"partial", Partial(models.SourceCTABus, 2, nil), KindPartial},
		{"wrapped", fmt.Errorf("cycle: %w", Transport(models.SourceMetra, cause)), KindTransport},
		{"plain", cause, KindUnknown},
		{"partial wrapping transport", Partial(models.SourceCTATrain, 1, Transport(models.SourceCTATrain, cause)), KindPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorsUnwrapToCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport(models.SourceCTATrain, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "cta")
}

func TestPartialWithNothingSkippedIsNil(t *testing.T) {
	assert.NoError(t, Partial(models.SourceMetra, 0, nil))
}
