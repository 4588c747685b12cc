// Package api exposes the session core over HTTP for a local client.
//
// The daemon holds one session, exactly like the CLI. Register and login
// return a bearer token; a token is only honored while its user holds the
// session, so logging in as someone else invalidates every earlier token.
// Cart routes operate on the cart attached to that session.
package api
