package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/audit/store/memory"
)

type failingStore struct{ calls int }

func (s *failingStore) Append(context.Context, audit.Event) error {
	s.calls++
	return errors.New("disk full")
}

func TestWorkerDrainsInboxUntilClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 3)
	inbox <- audit.Event{Subject: "s1", Action: string(audit.EventDocumentsVerified)}
	inbox <- audit.Event{Subject: "s1", Action: string(audit.EventSelfieMatched)}
	inbox <- audit.Event{Subject: "s2", Action: string(audit.EventSessionExpired)}
	close(inbox)

	NewWorker(store, inbox, nil).Run(context.Background())

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, string(audit.EventSelfieMatched), all[1].Action)
}

func TestWorkerContinuesAfterStoreError(t *testing.T) {
	store := &failingStore{}
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Subject: "s1"}
	inbox <- audit.Event{Subject: "s2"}
	close(inbox)

	NewWorker(store, inbox, nil).Run(context.Background())

	assert.Equal(t, 2, store.calls)
}
