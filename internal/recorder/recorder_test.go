package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/types"
)

// RecorderTestSuite is a test suite for Recorder
type RecorderTestSuite struct {
	suite.Suite
	recorder *Recorder
	logger   *logger.Logger
	tempDir  string
}

// SetupSuite runs once before all tests in the suite
func (suite *RecorderTestSuite) SetupSuite() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log

	tempDir, err := os.MkdirTemp("", "recorder-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
}

// TearDownSuite runs once after all tests in the suite
func (suite *RecorderTestSuite) TearDownSuite() {
	os.RemoveAll(suite.tempDir)
}

// SetupTest runs before each test
func (suite *RecorderTestSuite) SetupTest() {
	recorder, err := NewRecorder(suite.logger)
	suite.Require().NoError(err)
	suite.recorder = recorder
}

// TearDownTest runs after each test
func (suite *RecorderTestSuite) TearDownTest() {
	if suite.recorder != nil {
		suite.recorder.Close()
		suite.recorder = nil
	}
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) at() time.Time {
	return time.Date(2019, 1, 15, 10, 30, 0, 0, time.UTC)
}

func (suite *RecorderTestSuite) TestRecordCandle() {
	err := suite.recorder.OnCandle(types.Candle{
		Time:   suite.at(),
		Asset:  types.NewAsset("TQBR", "SBER"),
		Open:   250.0,
		High:   251.0,
		Low:    249.5,
		Close:  250.5,
		Volume: 1000,
	})
	suite.Require().NoError(err)

	candles, quotes, snapshots, err := suite.recorder.Counts()
	suite.Require().NoError(err)
	suite.Equal(1, candles)
	suite.Equal(0, quotes)
	suite.Equal(0, snapshots)
}

func (suite *RecorderTestSuite) TestRecordQuote() {
	err := suite.recorder.OnQuote(types.Quote{
		Time:  suite.at(),
		Asset: types.NewAsset("TQBR", "SBER"),
		Bid:   250.4,
		Ask:   250.6,
		Last:  250.5,
	})
	suite.Require().NoError(err)

	_, quotes, _, err := suite.recorder.Counts()
	suite.Require().NoError(err)
	suite.Equal(1, quotes)
}

func (suite *RecorderTestSuite) TestRecordSnapshot() {
	snapshot := types.DepthSnapshot{
		Time:  suite.at(),
		Asset: types.NewAsset("TQBR", "SBER"),
		Levels: []types.DepthLevel{
			{Price: 250.4, BidVolume: optional.Some(100.0)},
			{Price: 250.6, AskVolume: optional.Some(200.0)},
		},
	}

	suite.Require().NoError(suite.recorder.OnLevel2(snapshot))
	suite.Require().NoError(suite.recorder.OnLevel2(snapshot))

	_, _, snapshots, err := suite.recorder.Counts()
	suite.Require().NoError(err)

	// Two snapshots even though they carry identical levels: each gets its
	// own id from the sequence.
	suite.Equal(2, snapshots)

	var levels int
	suite.Require().NoError(suite.recorder.db.QueryRow("SELECT COUNT(*) FROM depth_levels").Scan(&levels))
	suite.Equal(4, levels)
}

func (suite *RecorderTestSuite) TestAbsentVolumesStoredAsNull() {
	snapshot := types.DepthSnapshot{
		Time:  suite.at(),
		Asset: types.NewAsset("TQBR", "SBER"),
		Levels: []types.DepthLevel{
			{Price: 250.4, BidVolume: optional.Some(100.0)},
		},
	}

	suite.Require().NoError(suite.recorder.OnLevel2(snapshot))

	var nullAsks int
	err := suite.recorder.db.QueryRow("SELECT COUNT(*) FROM depth_levels WHERE ask_volume IS NULL").Scan(&nullAsks)
	suite.Require().NoError(err)
	suite.Equal(1, nullAsks)
}

func (suite *RecorderTestSuite) TestWrite() {
	suite.Require().NoError(suite.recorder.OnCandle(types.Candle{
		Time:  suite.at(),
		Asset: types.NewAsset("TQBR", "SBER"),
		Open:  250.0,
		Close: 250.5,
	}))

	outDir := filepath.Join(suite.tempDir, "write")
	suite.Require().NoError(suite.recorder.Write(outDir))

	for _, table := range []string{"candles", "quotes", "depth_levels"} {
		_, err := os.Stat(filepath.Join(outDir, table+".parquet"))
		suite.NoError(err, "expected %s.parquet to exist", table)
	}
}

func (suite *RecorderTestSuite) TestCleanup() {
	suite.Require().NoError(suite.recorder.OnQuote(types.Quote{
		Time:  suite.at(),
		Asset: types.NewAsset("TQBR", "SBER"),
	}))

	suite.Require().NoError(suite.recorder.Cleanup())

	candles, quotes, snapshots, err := suite.recorder.Counts()
	suite.Require().NoError(err)
	suite.Equal(0, candles)
	suite.Equal(0, quotes)
	suite.Equal(0, snapshots)

	// The recorder is usable again after a cleanup.
	suite.NoError(suite.recorder.OnQuote(types.Quote{Time: suite.at(), Asset: types.NewAsset("TQBR", "SBER")}))
}

func (suite *RecorderTestSuite) TestNilRecorder() {
	var r *Recorder

	suite.Error(r.OnCandle(types.Candle{}))
	suite.Error(r.OnQuote(types.Quote{}))
	suite.Error(r.OnLevel2(types.DepthSnapshot{}))
	suite.NoError(r.Close())
}
