package cart

import "errors"

var (
	// ErrNotAttached is returned by mutations while no cart is attached,
	// including while an attach is still loading, and by a Scoped view whose
	// owner's cart is not the live one.
	ErrNotAttached = errors.New("no cart attached")

	// ErrSuperseded is returned by an Attach whose result was discarded
	// because a later Attach or Detach happened while it was loading.
	ErrSuperseded = errors.New("cart load superseded")

	// ErrNotInCart is returned by SetQuantity for a product the cart does not
	// hold.
	ErrNotInCart = errors.New("product not in cart")
)
