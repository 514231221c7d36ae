package testutil

import (
	"context"
	"os"
	"strings"

	"github.com/stretchr/testify/suite"
)

// BaseSuite gives each suite its own migrated and seeded database.
//
//	type MySuite struct {
//	    testutil.BaseSuite
//	}
//
//	func TestMySuite(t *testing.T) {
//	    suite.Run(t, &MySuite{BaseSuite: testutil.BaseSuite{Suffix: "mine"}})
//	}
//
// The suite is skipped unless MOVIEBENCH_TEST_DSN is set.
type BaseSuite struct {
	suite.Suite
	Suffix   string
	PoolSize int

	Ctx      context.Context
	TestDB   *TestDB
	Fixtures *Fixtures
}

func (s *BaseSuite) SetupSuite() {
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		s.T().Skipf("%s not set, skipping database tests", DSNEnv)
	}
	s.Ctx = context.Background()

	suffix := strings.ToLower(s.Suffix)
	if suffix == "" {
		suffix = "suite"
	}
	poolSize := s.PoolSize
	if poolSize < 1 {
		poolSize = 8
	}

	tdb, err := SetupTestDB(s.Ctx, dsn, suffix, poolSize)
	s.Require().NoError(err)
	s.TestDB = tdb

	s.Fixtures, err = Seed(s.Ctx, tdb.DB)
	s.Require().NoError(err)
}

func (s *BaseSuite) TearDownSuite() {
	if s.TestDB != nil {
		s.TestDB.Close()
	}
}
