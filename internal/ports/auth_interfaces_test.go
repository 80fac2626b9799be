package ports_test

import (
	"testing"

	"github.com/assignpro/assignpro-web/internal/adapters/authroles"
	"github.com/assignpro/assignpro-web/internal/mocks"
	mockauth "github.com/assignpro/assignpro-web/internal/mocks/auth"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// This test only verifies that our doubles conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.SlotStore = (*mockauth.MemorySlot)(nil)
	var _ ports.CredentialVerifier = (*mockauth.StubVerifier)(nil)
	var _ ports.Registrar = (*mockauth.StubRegistrar)(nil)
	var _ ports.RoleMapper = authroles.EmailRoleMapper{}
	var _ ports.SlotStore = (*mocks.MockSlotStore)(nil)
	var _ ports.CredentialVerifier = (*mocks.MockCredentialVerifier)(nil)
	var _ ports.Registrar = (*mocks.MockRegistrar)(nil)
}
