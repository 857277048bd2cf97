package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowengine/entity"
	"flowengine/internal/service/userstate"
)

type fakeStore struct {
	due      []entity.DelayTimer
	users    map[string]*entity.UserState
	released []string
}

func (f *fakeStore) ClaimExpiredDelayTimers(context.Context, time.Time, int) ([]entity.DelayTimer, error) {
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeStore) ReleaseDelayTimer(_ context.Context, id string) error {
	f.released = append(f.released, id)
	return nil
}

func (f *fakeStore) GetUserState(_ context.Context, key entity.UserKey) (*entity.UserState, error) {
	return f.users[key.String()], nil
}

type fakeEngine struct {
	outcome userstate.Outcome
	metas   []entity.EventMetadata
	msgs    []entity.NormalizedMessage
}

func (f *fakeEngine) ProcessEvent(_ context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) userstate.Outcome {
	f.metas = append(f.metas, meta)
	f.msgs = append(f.msgs, msg)
	return f.outcome
}

func testKey() entity.UserKey {
	return entity.UserKey{UserIdentifier: "+15550001", BrandID: 1, Channel: "whatsapp", ChannelAccountID: "acct-1"}
}

func newTestScheduler(store *fakeStore, engine *fakeEngine) *Scheduler {
	return New(store, engine, 20, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweepFiresDelayComplete(t *testing.T) {
	key := testKey()
	store := &fakeStore{
		due: []entity.DelayTimer{{
			ID:            "tm1",
			UserKey:       key,
			FlowID:        "f1",
			DelayNodeID:   "d1",
			DelayDuration: 5,
			DelayUnit:     "minutes",
		}},
		users: map[string]*entity.UserState{
			key.String(): {ID: "u1", Key: key, UserID: 77},
		},
	}
	engine := &fakeEngine{outcome: userstate.Outcome{Status: userstate.OutcomeProcessed}}

	newTestScheduler(store, engine).sweep()

	require.Len(t, engine.metas, 1)
	meta := engine.metas[0]
	assert.Equal(t, entity.MessageTypeDelayComplete, meta.MessageType)
	assert.Equal(t, key, meta.Key())
	assert.Equal(t, int64(77), meta.UserID)

	raw := engine.msgs[0].Raw
	assert.Equal(t, "u1", raw["user_state_id"])
	assert.Equal(t, "f1", raw["flow_id"])
	assert.Equal(t, "d1", raw["node_id"])

	assert.Empty(t, store.released)
}

func TestSweepReleasesOnEngineError(t *testing.T) {
	key := testKey()
	store := &fakeStore{
		due:   []entity.DelayTimer{{ID: "tm1", UserKey: key}},
		users: map[string]*entity.UserState{key.String(): {ID: "u1", Key: key}},
	}
	engine := &fakeEngine{outcome: userstate.Outcome{Status: userstate.OutcomeError, Detail: "boom"}}

	newTestScheduler(store, engine).sweep()

	assert.Equal(t, []string{"tm1"}, store.released)
}

func TestSweepSkipsUnknownUser(t *testing.T) {
	store := &fakeStore{
		due:   []entity.DelayTimer{{ID: "tm1", UserKey: testKey()}},
		users: map[string]*entity.UserState{},
	}
	engine := &fakeEngine{}

	newTestScheduler(store, engine).sweep()

	// nothing fired, and the claimed timer is not returned to the queue
	assert.Empty(t, engine.metas)
	assert.Empty(t, store.released)
}

func TestSweepEmptyQueue(t *testing.T) {
	store := &fakeStore{}
	engine := &fakeEngine{}

	newTestScheduler(store, engine).sweep()

	assert.Empty(t, engine.metas)
}
