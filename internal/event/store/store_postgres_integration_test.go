//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"solmeet/pkg/testutil/containers"
)

func TestPostgresStoreContract(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		require.NoError(t, pg.TruncateTables(context.Background(), "events"))
		return NewPostgres(pg.DB)
	}})
}
