// Package repomanager wires repository constructors together behind a single
// interface so services can obtain repositories bound to either a plain
// connection or a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/verdantlabs/accountd/internal/dbx"
	"github.com/verdantlabs/accountd/internal/server/repositories/accounts"
	"github.com/verdantlabs/accountd/internal/server/repositories/refreshtokens"
	"github.com/verdantlabs/accountd/internal/server/repositories/roles"
	"github.com/verdantlabs/accountd/internal/server/repositories/verificationtokens"
)

// RepositoryManager vends repositories bound to the given DBTX and exposes a
// schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	VerificationTokens(db dbx.DBTX) verificationtokens.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Roles(db dbx.DBTX) roles.Repository
}
