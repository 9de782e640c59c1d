package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/models"
)

// cappedFetcher fills pages up to a hidden ceiling
func cappedFetcher(ceiling int) FetcherFunc {
	return func(ctx context.Context, req models.PageRequest) models.PageResult {
		n := req.PageSize
		if n > ceiling {
			n = ceiling
		}
		return models.Success(items("c", 0, n), nil, true)
	}
}

func TestCalibrateFindsCeiling(t *testing.T) {
	c := NewController(cappedFetcher(30), testConfig(), logger.NewNopLogger())

	cal, err := c.Calibrate(context.Background(), "h", []int{50, 10, 20, 30, 35})

	require.NoError(t, err)
	assert.Equal(t, 30, cal.Recommended)
	require.Len(t, cal.Probes, 5)
	assert.Equal(t, 10, cal.Probes[0].PageSize)
	assert.Equal(t, 30, cal.Probes[4].Returned)
}

func TestCalibrateNeverFull(t *testing.T) {
	c := NewController(cappedFetcher(7), testConfig(), logger.NewNopLogger())

	cal, err := c.Calibrate(context.Background(), "h", []int{10, 20})

	require.NoError(t, err)
	assert.Equal(t, 10, cal.Recommended)
}

func TestCalibrateNoData(t *testing.T) {
	c := NewController(script(), testConfig(), logger.NewNopLogger())

	_, err := c.Calibrate(context.Background(), "h", nil)
	assert.ErrorIs(t, err, errors.ErrNoData)
}

func TestCalibrateTerminalError(t *testing.T) {
	c := NewController(script(terminal(errors.ErrorTypeNotFound)), testConfig(), logger.NewNopLogger())

	cal, err := c.Calibrate(context.Background(), "h", []int{10, 20})
	assert.ErrorIs(t, err, errors.ErrNoData)
	assert.Len(t, cal.Probes, 1)
}
