package series

import (
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tickflow/pkg/errors"
)

type LoaderTestSuite struct {
	suite.Suite
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}

func (suite *LoaderTestSuite) TestLoadCandles() {
	input := strings.Join([]string{
		"2019-01-15 10:31:00,TQBR/SBER,250.5,251.0,250.0,250.8,1200",
		"2019-01-15 10:30:00,TQBR/SBER,250.0,250.6,249.9,250.5,1000",
	}, "\n")

	candles, err := LoadCandles(strings.NewReader(input))
	suite.Require().NoError(err)
	suite.Require().Len(candles, 2)

	// Sorted ascending regardless of input order.
	suite.Equal(time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC), candles[0].Time)
	suite.Equal(time.Date(2019, 1, 15, 10, 31, 0, 0, time.UTC), candles[1].Time)
	suite.Equal("TQBR/SBER", candles[0].Ticker)
	suite.Equal(250.0, candles[0].Open)
	suite.Equal(250.5, candles[0].Close)
	suite.Equal(1000.0, candles[0].Volume)
}

func (suite *LoaderTestSuite) TestDuplicateTimestampFirstRowWins() {
	input := strings.Join([]string{
		"2019-01-15 10:30:00,TQBR/SBER,250.0,250.6,249.9,250.5,1000",
		"2019-01-15 10:30:00,TQBR/SBER,999.0,999.0,999.0,999.0,9999",
		"2019-01-15 10:31:00,TQBR/SBER,250.5,251.0,250.0,250.8,1200",
	}, "\n")

	candles, err := LoadCandles(strings.NewReader(input))
	suite.Require().NoError(err)
	suite.Require().Len(candles, 2)

	suite.Equal(250.0, candles[0].Open)
	suite.Equal(1000.0, candles[0].Volume)
}

func (suite *LoaderTestSuite) TestLoadQuotes() {
	input := "2019-01-15 10:30:00,TQBR/SBER,250.4,250.6,250.5,0.1"

	quotes, err := LoadQuotes(strings.NewReader(input))
	suite.Require().NoError(err)
	suite.Require().Len(quotes, 1)

	suite.Equal(250.4, quotes[0].Bid)
	suite.Equal(250.6, quotes[0].Ask)
	suite.Equal(250.5, quotes[0].Last)
	suite.Equal(0.1, quotes[0].LastChange)
}

func (suite *LoaderTestSuite) TestLoadDepthKeepsDuplicateTimestamps() {
	input := strings.Join([]string{
		"2019-01-15 10:30:00,TQBR/SBER,250.4,100,",
		"2019-01-15 10:30:00,TQBR/SBER,250.6,,200",
		"2019-01-15 10:30:00,TQBR/SBER,250.5,50,50",
	}, "\n")

	depth, err := LoadDepth(strings.NewReader(input))
	suite.Require().NoError(err)
	suite.Require().Len(depth, 3)

	// Input order is kept within a timestamp so snapshot grouping sees the
	// levels as recorded.
	suite.Equal(250.4, depth[0].Price)
	suite.Equal(250.6, depth[1].Price)
	suite.Equal(250.5, depth[2].Price)
}

func (suite *LoaderTestSuite) TestDepthVolumes() {
	input := strings.Join([]string{
		"2019-01-15 10:30:00,TQBR/SBER,250.4,100,",
		"2019-01-15 10:30:00,TQBR/SBER,250.5,0,0",
		"2019-01-15 10:30:00,TQBR/SBER,250.6,,200",
	}, "\n")

	depth, err := LoadDepth(strings.NewReader(input))
	suite.Require().NoError(err)
	suite.Require().Len(depth, 3)

	suite.Equal(optional.Some(100.0), depth[0].BidVolume)
	suite.True(depth[0].AskVolume.IsNone(), "blank volume should be absent")

	// Zero means no liquidity, same as blank.
	suite.True(depth[1].BidVolume.IsNone())
	suite.True(depth[1].AskVolume.IsNone())

	suite.True(depth[2].BidVolume.IsNone())
	suite.Equal(optional.Some(200.0), depth[2].AskVolume)
}

func (suite *LoaderTestSuite) TestEmptySourceLoadsEmptySet() {
	candles, err := LoadCandles(strings.NewReader(""))
	suite.NoError(err)
	suite.Empty(candles)

	quotes, err := LoadQuotes(strings.NewReader(""))
	suite.NoError(err)
	suite.Empty(quotes)

	depth, err := LoadDepth(strings.NewReader(""))
	suite.NoError(err)
	suite.Empty(depth)
}

func (suite *LoaderTestSuite) TestBadTimestampFailsLoad() {
	input := strings.Join([]string{
		"2019-01-15 10:30:00,TQBR/SBER,250.0,250.6,249.9,250.5,1000",
		"not-a-timestamp,TQBR/SBER,250.5,251.0,250.0,250.8,1200",
	}, "\n")

	_, err := LoadCandles(strings.NewReader(input))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBadTimestamp))

	var rowErr *errors.RowError
	suite.Require().True(errors.As(err, &rowErr))
	suite.Equal(SourceCandles, rowErr.Source)
	suite.Equal(2, rowErr.Row)
}

func (suite *LoaderTestSuite) TestBadVolumeFailsLoad() {
	input := "2019-01-15 10:30:00,TQBR/SBER,250.4,many,"

	_, err := LoadDepth(strings.NewReader(input))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedRow))

	var rowErr *errors.RowError
	suite.Require().True(errors.As(err, &rowErr))
	suite.Equal(SourceDepth, rowErr.Source)
	suite.Equal(1, rowErr.Row)
}

func (suite *LoaderTestSuite) TestMalformedRowFailsLoad() {
	input := strings.Join([]string{
		"2019-01-15 10:30:00,TQBR/SBER,250.4,250.6,250.5,0.1",
		`2019-01-15 10:31:00,"TQBR/SBER,250.4,250.6,250.5,0.1`,
	}, "\n")

	_, err := LoadQuotes(strings.NewReader(input))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedRow))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expected    time.Time
		shouldError bool
	}{
		{
			name:     "space separated",
			value:    "2019-01-15 10:30:00",
			expected: time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "fractional seconds",
			value:    "2019-01-15 10:30:00.500000000",
			expected: time.Date(2019, 1, 15, 10, 30, 0, 500000000, time.UTC),
		},
		{
			name:     "rfc3339",
			value:    "2019-01-15T10:30:00Z",
			expected: time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:     "date only",
			value:    "2019-01-15",
			expected: time.Date(2019, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "surrounding whitespace",
			value:    " 2019-01-15 10:30:00 ",
			expected: time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:        "garbage",
			value:       "not-a-timestamp",
			shouldError: true,
		},
		{
			name:        "blank",
			value:       "",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := ParseTimestamp(SourceCandles, 1, tt.value)

			if tt.shouldError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeBadTimestamp))

				return
			}

			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ts))
		})
	}
}

func TestSetNormalizeIsIdempotent(t *testing.T) {
	set := &Set{
		Candles: []CandleRecord{
			{Time: time.Date(2019, 1, 15, 10, 31, 0, 0, time.UTC), Ticker: "TQBR/SBER"},
			{Time: time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC), Ticker: "TQBR/SBER", Open: 250.0},
			{Time: time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC), Ticker: "TQBR/SBER", Open: 999.0},
		},
	}

	set.Normalize()
	require.Len(t, set.Candles, 2)
	assert.Equal(t, 250.0, set.Candles[0].Open)

	once := append([]CandleRecord(nil), set.Candles...)
	set.Normalize()
	assert.Equal(t, once, set.Candles)
}

func TestSetWindow(t *testing.T) {
	at := func(minute int) time.Time {
		return time.Date(2019, 1, 15, 10, minute, 0, 0, time.UTC)
	}

	set := &Set{
		Candles: []CandleRecord{{Time: at(30)}, {Time: at(31)}, {Time: at(32)}},
		Quotes:  []QuoteRecord{{Time: at(29)}, {Time: at(31)}},
		Depth:   []DepthRecord{{Time: at(32)}, {Time: at(33)}},
	}

	windowed := set.Window(optional.Some(at(30)), optional.Some(at(32)))

	require.Len(t, windowed.Candles, 3)
	require.Len(t, windowed.Quotes, 1)
	assert.Equal(t, at(31), windowed.Quotes[0].Time)
	require.Len(t, windowed.Depth, 1)
	assert.Equal(t, at(32), windowed.Depth[0].Time)

	open := set.Window(optional.None[time.Time](), optional.None[time.Time]())
	assert.Len(t, open.Candles, 3)
	assert.Len(t, open.Quotes, 2)
	assert.Len(t, open.Depth, 2)
}
