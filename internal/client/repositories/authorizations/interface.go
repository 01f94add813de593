package authorizations

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNotAuthorized = errors.New("account not authorized")

type Repository interface {
	// Grant authorizes account, or marks it as used when it already is.
	Grant(ctx context.Context, account common.Address) error
	// Select makes an authorized account the current one.
	Select(ctx context.Context, account common.Address) error
	Revoke(ctx context.Context, account common.Address) error
	// List returns authorizations, most recently used first.
	List(ctx context.Context) ([]models.Authorization, error)
	Clear(ctx context.Context) error
}
