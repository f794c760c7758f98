package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAddressBook struct {
	added []string
}

func (f *fakeAddressBook) AddKnownAddress(address string) {
	f.added = append(f.added, address)
}

func TestAdmin_TeachInstantResponse(t *testing.T) {
	store := NewStore(nil)
	admin := NewAdmin(store, nil)

	confirmation, applied := admin.Apply(context.Background(), "when someone says hello chris respond with Hi there!")
	require.True(t, applied)
	assert.Contains(t, confirmation, "hello chris")
	assert.Contains(t, confirmation, "Hi there!")

	response, ok := store.Match("hello chris")
	require.True(t, ok)
	assert.Equal(t, "Hi there!", response)

	changes := store.RecentChanges(1)
	require.Len(t, changes, 1)
	assert.Equal(t, "instant_response", changes[0].Type)
}

func TestAdmin_UnparseableInstruction(t *testing.T) {
	admin := NewAdmin(NewStore(nil), nil)

	confirmation, applied := admin.Apply(context.Background(), "please be nicer")
	assert.False(t, applied)
	assert.Contains(t, confirmation, "trigger and response")
}

func TestAdmin_ChangeGreeting(t *testing.T) {
	store := NewStore(nil)
	admin := NewAdmin(store, nil)

	assert.Contains(t, admin.Greeting(), "Grinberg Management")

	_, applied := admin.Apply(context.Background(), `change greeting to "Hello, thanks for calling!"`)
	require.True(t, applied)
	assert.Equal(t, "Hello, thanks for calling!", admin.Greeting())

	// Missing quotes means no change.
	_, applied = admin.Apply(context.Background(), "change greeting to something friendlier")
	assert.False(t, applied)
	assert.Equal(t, "Hello, thanks for calling!", admin.Greeting())
}

func TestAdmin_AddPropertyAddress(t *testing.T) {
	store := NewStore(nil)
	book := &fakeAddressBook{}
	admin := NewAdmin(store, book)

	_, applied := admin.Apply(context.Background(), "add property address: 123 Main Street")
	require.True(t, applied)
	require.Len(t, book.added, 1)
	assert.Equal(t, "123 Main Street", book.added[0])

	changes := store.RecentChanges(1)
	require.Len(t, changes, 1)
	assert.Equal(t, "property_address", changes[0].Type)
}
