// Package mocks generates synthetic series data for testing and benchmarking.
package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/tickflow/internal/feed/series"
)

// DataGenerator generates realistic replay series for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how series data is generated.
type GeneratorConfig struct {
	// Ticker is the instrument identifier (e.g., "TQBR/SBER")
	Ticker string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between ticks
	Interval time.Duration
	// Count is the number of ticks to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical per-tick move)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per candle
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// DepthLevels is the number of price levels per depth snapshot
	DepthLevels int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Ticker:         "TQBR/TEST",
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		DepthLevels:    5,
	}
}

// Generate creates a full series set: one candle, one quote and one depth
// snapshot per tick. Prices follow a geometric Brownian motion model so the
// generated stream looks like recorded market data.
func (g *DataGenerator) Generate(config GeneratorConfig) *series.Set {
	set := &series.Set{
		Candles: make([]series.CandleRecord, 0, config.Count),
		Quotes:  make([]series.QuoteRecord, 0, config.Count),
		Depth:   make([]series.DepthRecord, 0, config.Count*config.DepthLevels),
	}

	currentPrice := config.InitialPrice
	currentTime := config.StartTime
	lastClose := config.InitialPrice

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed move
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		set.Candles = append(set.Candles, series.CandleRecord{
			Time:   currentTime,
			Ticker: config.Ticker,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		})

		spread := math.Max(close*config.Volatility*0.5, 0.0001)
		set.Quotes = append(set.Quotes, series.QuoteRecord{
			Time:       currentTime,
			Ticker:     config.Ticker,
			Bid:        roundToDecimals(close-spread/2, 4),
			Ask:        roundToDecimals(close+spread/2, 4),
			Last:       roundToDecimals(close, 4),
			LastChange: roundToDecimals(close-lastClose, 4),
		})

		for level := 0; level < config.DepthLevels; level++ {
			offset := spread * float64(level+1)
			liquidity := roundToDecimals(config.VolumeBase*g.rng.Float64()*0.1, 0)

			set.Depth = append(set.Depth,
				series.DepthRecord{
					Time:      currentTime,
					Ticker:    config.Ticker,
					Price:     roundToDecimals(close-offset, 4),
					BidVolume: optional.Some(liquidity),
				},
				series.DepthRecord{
					Time:      currentTime,
					Ticker:    config.Ticker,
					Price:     roundToDecimals(close+offset, 4),
					AskVolume: optional.Some(liquidity),
				},
			)
		}

		lastClose = close
		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return set
}

// GenerateMultiTicker generates a merged set covering multiple instruments.
func (g *DataGenerator) GenerateMultiTicker(tickers []string, baseConfig GeneratorConfig) *series.Set {
	merged := &series.Set{}

	for i, ticker := range tickers {
		config := baseConfig
		config.Ticker = ticker
		// Stagger start times so instruments never share a timestamp; the
		// merged set keeps one event per tick after normalization.
		config.StartTime = baseConfig.StartTime.Add(time.Duration(i) * time.Second)
		// Vary initial price and volatility slightly per instrument
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		set := g.Generate(config)
		merged.Candles = append(merged.Candles, set.Candles...)
		merged.Quotes = append(merged.Quotes, set.Quotes...)
		merged.Depth = append(merged.Depth, set.Depth...)
	}

	merged.Normalize()

	return merged
}

// Generate10K is a convenience function to generate a 10,000 tick set
// with default settings for benchmarking.
func Generate10K(ticker string) *series.Set {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Ticker = ticker
	config.Count = 10000

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
