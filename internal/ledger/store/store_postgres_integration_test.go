//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"solmeet/pkg/testutil/containers"
)

func TestPostgresLedgerContract(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	suite.Run(t, &LedgerContractSuite{newStore: func(t *testing.T) Store {
		require.NoError(t, pg.TruncateTables(context.Background(), "compressed_proofs", "claim_records"))
		return NewPostgres(pg.DB)
	}})
}
