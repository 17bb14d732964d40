package trigger

import (
	"context"
	"fmt"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/environment"
)

// checkEntitlement is C3 (spec.md §4.3). It is skipped entirely for
// DEVELOPMENT environments. A nil reply from the collaborator is treated
// as "has access".
func checkEntitlement(ctx context.Context, entitlement Entitlement, env *environment.Environment) error {
	if env.Type.IsDevelopment() {
		return nil
	}
	state, err := entitlement.Get(ctx, env.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to check entitlement for organization %s: %w", env.OrganizationID, err)
	}
	if state == nil {
		return nil
	}
	if !state.HasAccess {
		return core.NewOutOfEntitlementError(env.OrganizationID)
	}
	return nil
}
