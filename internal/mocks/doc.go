// Package mocks provides shared test doubles for the storage, event and
// identity interfaces.
//
// Mocks come in two flavors. Func-field mocks such as MockKV behave like a
// working implementation by default and let a test override single methods
// or inject errors:
//
//	kv := mocks.NewMockKV()
//	kv.SetErr = errors.New("disk full")
//
// Testify mocks such as TestifyMockKV are for tests that assert on exact
// call sequences with On(...).Return(...).
package mocks
