// Package mocks provides gomock mocks for the session ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	slot := mocks.NewMockSlotStore(ctrl)
//	slot.EXPECT().Read(gomock.Any()).Return(nil, ports.ErrSlotEmpty)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/assignpro/assignpro-web/internal/ports SlotStore,CredentialVerifier,Registrar
