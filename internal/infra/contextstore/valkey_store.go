package contextstore

import (
	"context"
	"encoding/json"

	"github.com/valkey-io/valkey-go"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
)

// ValkeyStore persists the consolidated summary in a Valkey-compatible
// database so the hash gate survives restarts.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "chainproxy"
	}
	return &ValkeyStore{client: client, key: prefix + ":context:snapshot"}
}

// Load implements contextmem.Store.
func (s *ValkeyStore) Load(ctx context.Context) (contextmem.Snapshot, bool, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build())
	payload, err := result.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return contextmem.Snapshot{}, false, nil
		}
		return contextmem.Snapshot{}, false, err
	}
	var snap contextmem.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return contextmem.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save implements contextmem.Store.
func (s *ValkeyStore) Save(ctx context.Context, snapshot contextmem.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, s.client.B().Set().Key(s.key).Value(string(payload)).Build()).Error()
}
