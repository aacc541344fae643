package importer

import (
	"context"
	"testing"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstructionBackend struct {
	saved   []client.Instruction
	deleted []string
}

func (f *fakeInstructionBackend) ListInstructions(context.Context) ([]client.Instruction, error) {
	return f.saved, nil
}

func (f *fakeInstructionBackend) SaveInstruction(_ context.Context, name, content string) (*client.Instruction, error) {
	in := client.Instruction{ID: "i-1", Name: name, Content: content}
	f.saved = append(f.saved, in)
	return &in, nil
}

func (f *fakeInstructionBackend) DeleteInstruction(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestInstructionStoreSaveValidates(t *testing.T) {
	store := NewInstructionStore(&fakeInstructionBackend{})

	_, err := store.Save(context.Background(), "  ", "content")
	assert.Error(t, err)

	_, err = store.Save(context.Background(), "invoices", "  ")
	assert.Error(t, err)

	saved, err := store.Save(context.Background(), " invoices ", " comma decimals ")
	require.NoError(t, err)
	assert.Equal(t, "invoices", saved.Name)
	assert.Equal(t, "comma decimals", saved.Content)
}

func TestInstructionStoreFindIsCaseInsensitive(t *testing.T) {
	backend := &fakeInstructionBackend{saved: []client.Instruction{
		{ID: "i-1", Name: "Invoices", Content: "comma decimals"},
	}}
	store := NewInstructionStore(backend)

	found, err := store.Find(context.Background(), "invoices")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "i-1", found.ID)

	missing, err := store.Find(context.Background(), "receipts")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInstructionStoreDelete(t *testing.T) {
	backend := &fakeInstructionBackend{}
	store := NewInstructionStore(backend)

	assert.Error(t, store.Delete(context.Background(), " "))

	require.NoError(t, store.Delete(context.Background(), "i-1"))
	assert.Equal(t, []string{"i-1"}, backend.deleted)
}
