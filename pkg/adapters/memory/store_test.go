package memory_test

import (
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunRecordStoreContract(t, store)
}

func TestMemoryAttachments_Contract(t *testing.T) {
	tests.AttachmentStoreContractTest(t, memory.NewAttachments())
}
