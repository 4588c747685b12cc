// Package events carries identity changes from the identity store to the
// components that follow the session, such as the cart store.
//
// The identity store emits an IdentityEvent after every successful register,
// login, logout or restore; handlers subscribe through an EventEmitter and
// never need to import the identity package.
package events
