// Package auth issues and checks the identities that own ledger data.
package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator verifies who a caller is. The ledger only ever sees the
// resulting user ID; swapping password auth for another method does not
// touch the services.
type Authenticator interface {
	// Register creates a new user with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
