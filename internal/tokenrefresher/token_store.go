package tokenrefresher

import (
	"context"
	"time"

	"github.com/playarena/arena-gateway/internal/credentials"
)

// RefresherCredentialsStore is the part of the credentials repository used for refreshing credentials
type RefresherCredentialsStore interface {
	credentials.Repository
	ExpiringCredentialsGetter
}

type ExpiringCredentialsGetter interface {
	GetExpiringCredentialIDs(ctx context.Context, expiryEnd time.Time) ([]string, error)
}
