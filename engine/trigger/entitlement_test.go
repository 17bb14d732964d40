package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nneven/runtrigger/engine/core"
)

func TestCheckEntitlement(t *testing.T) {
	t.Run("Should skip the check entirely for a development environment", func(t *testing.T) {
		ent := &fakeEntitlement{err: errors.New("should never be called")}
		err := checkEntitlement(context.Background(), ent, devEnv())
		assert.NoError(t, err)
	})

	t.Run("Should treat a nil reply as having access", func(t *testing.T) {
		ent := &fakeEntitlement{state: nil}
		err := checkEntitlement(context.Background(), ent, prodEnv())
		assert.NoError(t, err)
	})

	t.Run("Should pass when the organization has access", func(t *testing.T) {
		ent := &fakeEntitlement{state: &EntitlementState{HasAccess: true}}
		err := checkEntitlement(context.Background(), ent, prodEnv())
		assert.NoError(t, err)
	})

	t.Run("Should reject when the organization is out of entitlement", func(t *testing.T) {
		ent := &fakeEntitlement{state: &EntitlementState{HasAccess: false}}
		err := checkEntitlement(context.Background(), ent, prodEnv())
		var outOfEntitlement *core.OutOfEntitlementError
		assert.ErrorAs(t, err, &outOfEntitlement)
	})

	t.Run("Should wrap a collaborator error", func(t *testing.T) {
		wantErr := errors.New("entitlement service unavailable")
		ent := &fakeEntitlement{err: wantErr}
		err := checkEntitlement(context.Background(), ent, prodEnv())
		assert.ErrorIs(t, err, wantErr)
	})
}
