package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/storefront/internal/domain"
	"github.com/phrazzld/storefront/internal/events"
	"github.com/phrazzld/storefront/internal/mocks"
	"github.com/phrazzld/storefront/internal/service/identity"
	"github.com/phrazzld/storefront/internal/store"
	"github.com/phrazzld/storefront/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	carts *Store
	kv    *mocks.MockKV
	qkv   *store.QueuedKV
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := mocks.NewMockKV()
	pool := task.NewWorkerPool(task.DefaultWorkerPoolConfig(), testLogger())
	t.Cleanup(func() {
		_ = pool.Stop(context.Background())
	})
	qkv := store.NewQueuedKV(kv, pool, testLogger())
	return &fixture{
		carts: NewStore(qkv, testLogger()),
		kv:    kv,
		qkv:   qkv,
	}
}

func (f *fixture) attached(t *testing.T) uuid.UUID {
	t.Helper()
	owner := uuid.New()
	require.NoError(t, f.carts.Attach(context.Background(), owner))
	return owner
}

func (f *fixture) stored(t *testing.T, owner uuid.UUID) []domain.CartItem {
	t.Helper()
	require.NoError(t, f.qkv.Flush(context.Background()))
	blob, ok := f.kv.Value(store.CartKey(owner))
	require.True(t, ok, "cart should be persisted")
	items, err := store.DecodeCartItems(blob)
	require.NoError(t, err)
	return items
}

func item(id int64, title, price string, qty int) domain.CartItem {
	return domain.CartItem{
		ProductID: id,
		Title:     title,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestAddToCart_MergesQuantity(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "T", "10", 2)))
	require.NoError(t, f.carts.AddToCart(ctx, item(1, "T", "10", 3)))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(50).Equal(f.carts.GetTotal()))

	stored := f.stored(t, owner)
	require.Len(t, stored, 1)
	assert.Equal(t, 5, stored[0].Quantity)
}

func TestAddToCart_KeepsFirstPrice(t *testing.T) {
	f := newFixture(t)
	f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(7, "Serum", "20.00", 1)))
	require.NoError(t, f.carts.AddToCart(ctx, item(7, "Serum (sale)", "15.00", 1)))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Serum", items[0].Title)
	assert.True(t, decimal.RequireFromString("40").Equal(f.carts.GetTotal()))
}

func TestAddToCart_Invalid(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	err := f.carts.AddToCart(ctx, item(1, "T", "10", 0))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	err = f.carts.AddToCart(ctx, item(1, "T", "-1", 1))
	assert.ErrorIs(t, err, domain.ErrNegativePrice)

	assert.Empty(t, f.carts.Items())
	require.NoError(t, f.qkv.Flush(ctx))
	assert.Zero(t, f.kv.SetCalls(store.CartKey(owner)))
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "3.50", 2)))
	require.NoError(t, f.carts.AddToCart(ctx, item(2, "B", "1.25", 4)))
	require.NoError(t, f.carts.ClearCart(ctx))

	assert.True(t, f.carts.GetTotal().IsZero())
	assert.Empty(t, f.carts.Items())

	require.NoError(t, f.qkv.Flush(ctx))
	blob, ok := f.kv.Value(store.CartKey(owner))
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(blob))
}

func TestRemoveFromCart(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)))
	require.NoError(t, f.carts.AddToCart(ctx, item(2, "B", "2", 1)))
	require.NoError(t, f.carts.RemoveFromCart(ctx, 1))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)

	require.NoError(t, f.qkv.Flush(ctx))
	calls := f.kv.SetCalls(store.CartKey(owner))

	require.NoError(t, f.carts.RemoveFromCart(ctx, 99))
	require.NoError(t, f.qkv.Flush(ctx))
	assert.Equal(t, calls, f.kv.SetCalls(store.CartKey(owner)), "removing an absent product writes nothing")
}

func TestSetQuantity(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "2", 1)))

	require.NoError(t, f.carts.SetQuantity(ctx, 1, 4))
	assert.Equal(t, 4, f.carts.Items()[0].Quantity)
	assert.True(t, decimal.NewFromInt(8).Equal(f.carts.GetTotal()))

	err := f.carts.SetQuantity(ctx, 2, 3)
	assert.ErrorIs(t, err, ErrNotInCart)

	assert.NoError(t, f.carts.SetQuantity(ctx, 2, 0))

	require.NoError(t, f.carts.SetQuantity(ctx, 1, 0))
	assert.Empty(t, f.carts.Items())
	assert.Empty(t, f.stored(t, owner))
}

func TestDetached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)), ErrNotAttached)
	assert.ErrorIs(t, f.carts.RemoveFromCart(ctx, 1), ErrNotAttached)
	assert.ErrorIs(t, f.carts.SetQuantity(ctx, 1, 2), ErrNotAttached)
	assert.ErrorIs(t, f.carts.ClearCart(ctx), ErrNotAttached)

	assert.True(t, f.carts.GetTotal().IsZero())
	assert.NotNil(t, f.carts.Items())
	assert.Empty(t, f.carts.Items())
	_, ok := f.carts.Owner()
	assert.False(t, ok)
}

func TestDetachThenAttachRestores(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddToCart(ctx, item(3, "C", "4.99", 2)))
	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "1.00", 1)))
	before := f.carts.Items()

	f.carts.Detach()
	_, ok := f.carts.Owner()
	assert.False(t, ok)
	assert.Empty(t, f.carts.Items())

	// No flush: the attach read queues behind the pending writes.
	require.NoError(t, f.carts.Attach(ctx, owner))

	got, ok := f.carts.Owner()
	require.True(t, ok)
	assert.Equal(t, owner, got)
	require.Len(t, f.carts.Items(), len(before))
	for i, it := range f.carts.Items() {
		assert.Equal(t, before[i].ProductID, it.ProductID)
		assert.Equal(t, before[i].Quantity, it.Quantity)
		assert.True(t, before[i].UnitPrice.Equal(it.UnitPrice))
	}
}

func TestAttach_SwitchingOwnersKeepsCartsApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.attached(t)
	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)))

	bob := uuid.New()
	require.NoError(t, f.carts.Attach(ctx, bob))
	assert.Empty(t, f.carts.Items())
	require.NoError(t, f.carts.AddToCart(ctx, item(2, "B", "2", 2)))

	require.NoError(t, f.carts.Attach(ctx, alice))
	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)

	assert.Len(t, f.stored(t, bob), 1)
}

func TestAttach_LateLoadIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ownerA, ownerB := uuid.New(), uuid.New()
	blobA, err := store.EncodeCartItems([]domain.CartItem{item(1, "A", "1", 1)})
	require.NoError(t, err)
	blobB, err := store.EncodeCartItems([]domain.CartItem{item(2, "B", "2", 2)})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.kv.GetFn = func(ctx context.Context, key string) ([]byte, error) {
		switch key {
		case store.CartKey(ownerA):
			close(entered)
			<-release
			return blobA, nil
		case store.CartKey(ownerB):
			return blobB, nil
		}
		return nil, store.ErrNotFound
	}

	errA := make(chan error, 1)
	go func() {
		errA <- f.carts.Attach(ctx, ownerA)
	}()
	<-entered

	require.NoError(t, f.carts.Attach(ctx, ownerB))
	close(release)

	select {
	case err := <-errA:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("attach for A never returned")
	}

	owner, ok := f.carts.Owner()
	require.True(t, ok)
	assert.Equal(t, ownerB, owner)
	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)
}

func TestAttach_MutationWhileLoadingIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.kv.GetFn = func(ctx context.Context, key string) ([]byte, error) {
		close(entered)
		<-release
		return nil, store.ErrNotFound
	}

	done := make(chan error, 1)
	go func() {
		done <- f.carts.Attach(ctx, owner)
	}()
	<-entered

	assert.ErrorIs(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)), ErrNotAttached)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)))
}

func TestAttach_DetachDuringLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.kv.GetFn = func(ctx context.Context, key string) ([]byte, error) {
		close(entered)
		<-release
		return nil, store.ErrNotFound
	}

	done := make(chan error, 1)
	go func() {
		done <- f.carts.Attach(ctx, uuid.New())
	}()
	<-entered
	f.carts.Detach()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	_, ok := f.carts.Owner()
	assert.False(t, ok)
}

func TestAttach_CorruptBlobIsEmpty(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.kv.Put(store.CartKey(owner), []byte("not json"))

	require.NoError(t, f.carts.Attach(context.Background(), owner))

	got, ok := f.carts.Owner()
	require.True(t, ok)
	assert.Equal(t, owner, got)
	assert.Empty(t, f.carts.Items())
}

func TestAttach_NormalizesStoredItems(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.kv.Put(store.CartKey(owner), []byte(`[
		{"productId":1,"title":"A","price":2,"quantity":1},
		{"productId":1,"title":"A again","price":9,"quantity":2},
		{"productId":2,"title":"B","price":5,"quantity":0}
	]`))

	require.NoError(t, f.carts.Attach(context.Background(), owner))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "A", items[0].Title)
	assert.True(t, decimal.NewFromInt(6).Equal(f.carts.GetTotal()))
}

func TestAttach_StorageFailureActsEmpty(t *testing.T) {
	f := newFixture(t)
	f.kv.GetErr = store.NewStoreError("cart", "get", "read failed", errors.New("io"))
	owner := uuid.New()

	err := f.carts.Attach(context.Background(), owner)
	assert.ErrorIs(t, err, store.ErrStorageFailure)

	got, ok := f.carts.Owner()
	require.True(t, ok)
	assert.Equal(t, owner, got)
	assert.Empty(t, f.carts.Items())
	assert.NoError(t, f.carts.AddToCart(context.Background(), item(1, "A", "1", 1)))
}

func TestAttach_ContextCanceledStaysDetached(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	defer close(release)
	f.kv.GetFn = func(ctx context.Context, key string) ([]byte, error) {
		<-release
		return nil, store.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.carts.Attach(ctx, uuid.New())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := f.carts.Owner()
	assert.False(t, ok)
}

func TestFor_OtherOwnerIsRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.attached(t)
	bob := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.carts.For(alice).AddToCart(ctx, item(1, "A", "2", 1)))

	other := f.carts.For(bob)
	assert.ErrorIs(t, other.AddToCart(ctx, item(7, "B", "1", 1)), ErrNotAttached)
	assert.ErrorIs(t, other.RemoveFromCart(ctx, 1), ErrNotAttached)
	assert.ErrorIs(t, other.SetQuantity(ctx, 1, 5), ErrNotAttached)
	assert.ErrorIs(t, other.ClearCart(ctx), ErrNotAttached)
	_, _, err := other.Snapshot()
	assert.ErrorIs(t, err, ErrNotAttached)

	items, total, err := f.carts.For(alice).Snapshot()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.True(t, decimal.NewFromInt(2).Equal(total))

	stored := f.stored(t, alice)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].Quantity)
}

func TestFor_DetachedIsRejected(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.carts.For(uuid.New()).Snapshot()
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.ErrorIs(t, f.carts.For(uuid.Nil).AddToCart(context.Background(), item(1, "A", "1", 1)), ErrNotAttached)
}

// gateHandler blocks delivery of login events until released.
type gateHandler struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *gateHandler) HandleEvent(_ context.Context, event *events.IdentityEvent) error {
	if event.Type != events.TypeUserLoggedIn {
		return nil
	}
	h.once.Do(func() { close(h.entered) })
	<-h.release
	return nil
}

func TestSessionSwitch_NewUserCannotReachPreviousCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gate := &gateHandler{entered: make(chan struct{}), release: make(chan struct{})}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(gate)
	emitter.RegisterHandler(NewIdentityHandler(f.carts, testLogger()))
	ids := identity.NewStore(f.qkv, nil, emitter, testLogger())
	require.NoError(t, ids.Load(ctx))

	bob, err := ids.Register(ctx, "b@x.com", "p2")
	require.NoError(t, err)
	require.NoError(t, ids.Logout(ctx))
	alice, err := ids.Register(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	require.NoError(t, f.carts.For(alice.ID).AddToCart(ctx, item(1, "Alice's item", "3", 1)))

	loggedIn := make(chan error, 1)
	go func() {
		_, err := ids.Login(ctx, "b@x.com", "p2")
		loggedIn <- err
	}()
	<-gate.entered

	current, ok := ids.Current()
	require.True(t, ok)
	require.Equal(t, bob.ID, current.ID)
	owner, ok := f.carts.Owner()
	require.True(t, ok)
	require.Equal(t, alice.ID, owner, "the cart switch has not happened yet")

	err = f.carts.For(bob.ID).AddToCart(ctx, item(7, "Bob's item", "1", 1))
	assert.ErrorIs(t, err, ErrNotAttached)

	close(gate.release)
	select {
	case err := <-loggedIn:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("login never returned")
	}

	require.NoError(t, f.carts.For(bob.ID).AddToCart(ctx, item(7, "Bob's item", "1", 1)))

	aliceCart := f.stored(t, alice.ID)
	require.Len(t, aliceCart, 1)
	assert.Equal(t, int64(1), aliceCart[0].ProductID)
	bobCart := f.stored(t, bob.ID)
	require.Len(t, bobCart, 1)
	assert.Equal(t, int64(7), bobCart[0].ProductID)
}

func TestAttach_ReadsLegacyLines(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.kv.Put(store.CartKey(owner), []byte(`[{"productId":1,"name":"Shoe","price":10,"quantity":2,"image":"https://x/1.png"}]`))

	require.NoError(t, f.carts.Attach(context.Background(), owner))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Shoe", items[0].Title)
	assert.Equal(t, []string{"https://x/1.png"}, items[0].ImageRefs)
	assert.True(t, decimal.NewFromInt(20).Equal(f.carts.GetTotal()))
}

func TestWritesLandInMutationOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.attached(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		require.NoError(t, f.carts.AddToCart(ctx, item(int64(i), "P", "1", 1)))
	}
	require.NoError(t, f.carts.RemoveFromCart(ctx, 5))

	stored := f.stored(t, owner)
	assert.Len(t, stored, 24)
	for _, it := range stored {
		assert.NotEqual(t, int64(5), it.ProductID)
	}
}

func TestAsyncWriteFailureIsReportedByFlush(t *testing.T) {
	f := newFixture(t)
	f.attached(t)
	ctx := context.Background()

	f.kv.SetFailure(store.NewStoreError("cart", "set", "write failed", errors.New("disk full")))

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "A", "1", 1)))
	assert.Len(t, f.carts.Items(), 1, "memory is the source of truth")

	assert.ErrorIs(t, f.qkv.Flush(ctx), store.ErrStorageFailure)
}

func TestIdentityHandler(t *testing.T) {
	f := newFixture(t)
	h := NewIdentityHandler(f.carts, testLogger())
	ctx := context.Background()
	user := uuid.New()

	for _, eventType := range []string{events.TypeUserRegistered, events.TypeUserLoggedIn, events.TypeSessionRestored} {
		t.Run(eventType, func(t *testing.T) {
			require.NoError(t, h.HandleEvent(ctx, events.NewIdentityEvent(eventType, user, "a@x.com")))
			owner, ok := f.carts.Owner()
			require.True(t, ok)
			assert.Equal(t, user, owner)
		})
	}

	require.NoError(t, h.HandleEvent(ctx, events.NewIdentityEvent(events.TypeUserLoggedOut, user, "a@x.com")))
	_, ok := f.carts.Owner()
	assert.False(t, ok)

	assert.NoError(t, h.HandleEvent(ctx, events.NewIdentityEvent("something_else", user, "")))
}

func TestSessionWalkthrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(NewIdentityHandler(f.carts, testLogger()))
	ids := identity.NewStore(f.qkv, nil, emitter, testLogger())
	require.NoError(t, ids.Load(ctx))

	user, err := ids.Register(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	owner, ok := f.carts.Owner()
	require.True(t, ok)
	assert.Equal(t, user.ID, owner)

	_, err = ids.Register(ctx, "a@x.com", "p2")
	assert.ErrorIs(t, err, identity.ErrAlreadyExists)

	require.NoError(t, f.carts.AddToCart(ctx, item(1, "T", "10", 2)))

	require.NoError(t, ids.Logout(ctx))
	_, ok = f.carts.Owner()
	assert.False(t, ok)

	_, err = ids.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	require.NoError(t, f.carts.AddToCart(ctx, item(1, "T", "10", 3)))

	items := f.carts.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "50", f.carts.GetTotal().String())
}
