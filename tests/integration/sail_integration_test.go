package integration

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	tsuite "github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"

	"github.com/kndndrj/sailcheck/core"
	"github.com/kndndrj/sailcheck/smoke"
	th "github.com/kndndrj/sailcheck/tests/testhelpers"
)

// SailTestSuite is the test suite for the spark connect adapter against a
// real sail server.
type SailTestSuite struct {
	tsuite.Suite
	ctr *th.SailContainer
	ctx context.Context
	d   *core.Connection
}

// TestSailTestSuite is the entrypoint for go test.
//
// testify/suite can't handle parallel tests, see
// https://github.com/stretchr/testify/issues/934
func TestSailTestSuite(t *testing.T) {
	if os.Getenv(th.SailImageEnv) == "" {
		t.Skipf("%s is not set", th.SailImageEnv)
	}
	tsuite.Run(t, new(SailTestSuite))
}

func (suite *SailTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	ctr, err := th.NewSailContainer(suite.ctx, &core.ConnectionParams{
		ID:   "test-sail",
		Name: "test-sail",
	})
	if err != nil {
		log.Fatal(err)
	}

	suite.ctr = ctr
	suite.d = ctr.Driver
}

func (suite *SailTestSuite) TearDownSuite() {
	if suite.d != nil {
		suite.d.Close()
	}
	tc.CleanupContainer(suite.T(), suite.ctr)
}

func (suite *SailTestSuite) TestShouldReturnVersion() {
	t := suite.T()

	version, err := suite.d.Version(suite.ctx)
	assert.NoError(t, err)
	assert.NotEmpty(t, version)
}

func (suite *SailTestSuite) TestShouldReturnRange() {
	t := suite.T()

	wantStates := []core.CallState{core.CallStateExecuting, core.CallStateRetrieving, core.CallStateMaterialized}
	wantRows := []core.Row{{int64(0)}, {int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}}

	gotRows, gotCols, gotStates, err := th.GetRangeResult(t, suite.d, 5, "number")
	assert.NoError(t, err)

	assert.Equal(t, core.Header{"number"}, gotCols)
	assert.Equal(t, wantStates, gotStates)
	assert.Equal(t, wantRows, gotRows)
}

func (suite *SailTestSuite) TestShouldReturnRows() {
	t := suite.T()

	gotRows, gotCols, _, err := th.GetResult(t, suite.d, "SELECT 1 AS one, 'a' AS letter")
	assert.NoError(t, err)

	assert.Equal(t, core.Header{"one", "letter"}, gotCols)
	assert.Equal(t, []core.Row{{int32(1), "a"}}, gotRows)
}

func (suite *SailTestSuite) TestShouldErrorInvalidQuery() {
	t := suite.T()

	_, _, gotStates, err := th.GetResult(t, suite.d, "invalid sql")
	assert.Error(t, err)
	assert.Contains(t, gotStates, core.CallStateExecutingFailed)
	assert.Equal(t, smoke.KindServerExecution, smoke.Classify(err))
}

func (suite *SailTestSuite) TestShouldPassSmokeCheck() {
	t := suite.T()

	var out bytes.Buffer
	report, err := smoke.NewRunner(&out, smoke.WithRemote(suite.ctr.ConnURL), smoke.WithType("sail")).Run(suite.ctx)
	assert.NoError(t, err)

	assert.Equal(t, core.Header{"number"}, report.Header)
	assert.Len(t, report.Rows, 5)
	assert.Contains(t, out.String(), "   - Row(number=4)\n")
}
