package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorTableCoversEveryKind(t *testing.T) {
	for _, kind := range AllKinds() {
		desc, ok := DescriptorFor(kind)
		require.True(t, ok, "kind %s has no descriptor", kind)
		assert.Equal(t, kind, desc.Kind)
		assert.NotEmpty(t, desc.ReadRoles, "kind %s is readable by nobody", kind)
		assert.NotEmpty(t, desc.WriteRoles, "kind %s is writable by nobody", kind)
	}
	assert.Len(t, Descriptors(), len(AllKinds()))
}

func TestDescriptorForUnknownKind(t *testing.T) {
	_, ok := DescriptorFor(ResourceKind("warp_drive"))
	assert.False(t, ok)
}

// TestStaticGateMatrix enumerates every role against every kind for both the
// read and write gates. The expectations mirror the permission table; a
// change there must consciously update this test.
func TestStaticGateMatrix(t *testing.T) {
	type gates struct {
		read   map[Role]bool
		write  map[Role]bool
		delete map[Role]bool
	}
	expected := map[ResourceKind]gates{
		// Client writes to customer cover only the update path; reads,
		// listing, and deletes are admin-only.
		KindCustomer: {
			read:   map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
			write:  map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: true},
			delete: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
		},
		KindVehicle: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: true},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: true},
		},
		KindAppointment: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: true},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: true},
		},
		KindRepairOrder: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: true},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: false},
		},
		KindInvoice: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: true},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
		},
		KindInspection: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: true},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: true},
		},
		KindInventory: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: true, RoleClient: false},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
		},
		KindUser: {
			read:  map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
			write: map[Role]bool{RoleAdmin: true, RoleTechnician: false, RoleClient: false},
		},
	}
	require.Len(t, expected, len(AllKinds()))

	for kind, want := range expected {
		desc, ok := DescriptorFor(kind)
		require.True(t, ok)
		if want.delete == nil {
			// Deletes follow the write gate unless a row narrows them.
			want.delete = want.write
		}
		for _, role := range AllRoles() {
			assert.Equal(t, want.read[role], desc.CanRead(role),
				"read gate for %s on %s", role, kind)
			assert.Equal(t, want.write[role], desc.CanWrite(role),
				"write gate for %s on %s", role, kind)
			assert.Equal(t, want.delete[role], desc.CanDelete(role),
				"delete gate for %s on %s", role, kind)
		}
	}
}

func TestScopingModeApplicability(t *testing.T) {
	assert.False(t, ScopeNone.appliesToClient())
	assert.False(t, ScopeNone.appliesToTechnician())
	assert.True(t, ScopeOwnedByCustomer.appliesToClient())
	assert.False(t, ScopeOwnedByCustomer.appliesToTechnician())
	assert.False(t, ScopeAssignedToTechnician.appliesToClient())
	assert.True(t, ScopeAssignedToTechnician.appliesToTechnician())
	assert.True(t, ScopeOwnedOrAssigned.appliesToClient())
	assert.True(t, ScopeOwnedOrAssigned.appliesToTechnician())
}

func TestRoleAndActionHelpers(t *testing.T) {
	for _, role := range AllRoles() {
		assert.True(t, role.Valid())
	}
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())

	assert.True(t, ActionCreate.IsWrite())
	assert.True(t, ActionUpdate.IsWrite())
	assert.True(t, ActionDelete.IsWrite())
	assert.False(t, ActionRead.IsWrite())
	assert.False(t, ActionList.IsWrite())
}
