package endpoint_test

import (
	"fmt"
	"sync"
	"testing"

	"codeberg.org/mutker/ipmifanctl/internal/endpoint"
	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetAndGet(t *testing.T) {
	store := endpoint.NewStore(endpoint.DefaultConfig())

	require.NoError(t, store.Set(endpoint.FieldAddress, "10.0.0.5"))
	require.NoError(t, store.Set(endpoint.FieldPassword, "s3cret"))

	cfg := store.Get()
	assert.Equal(t, "10.0.0.5", cfg.Address)
	assert.Equal(t, endpoint.DefaultUsername, cfg.Username)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, endpoint.DefaultToolPath, cfg.ToolPath)
	assert.Equal(t, uint64(2), store.Version())
}

func TestStoreRejectsUnknownField(t *testing.T) {
	store := endpoint.NewStore(endpoint.DefaultConfig())

	err := store.Set(endpoint.Field("port"), "623")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
	assert.Equal(t, endpoint.DefaultConfig(), store.Get())
	assert.Equal(t, uint64(0), store.Version())
}

func TestSnapshotIsACopy(t *testing.T) {
	store := endpoint.NewStore(endpoint.DefaultConfig())

	snapshot := store.Get()
	require.NoError(t, store.Set(endpoint.FieldAddress, "10.0.0.9"))

	assert.Equal(t, endpoint.DefaultAddress, snapshot.Address)
	assert.Equal(t, "10.0.0.9", store.Get().Address)
}

// Run with -race: readers racing writers always see the untouched fields
// intact and an address that some writer produced.
func TestConcurrentAccessNeverTears(t *testing.T) {
	store := endpoint.NewStore(endpoint.Config{Address: "a-0", Username: "u", Password: "p", ToolPath: "t"})

	var wg sync.WaitGroup
	const writers, writes = 4, 200

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				_ = store.Set(endpoint.FieldAddress, fmt.Sprintf("a-%d", w*writes+i))
			}
		}(w)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
				cfg := store.Get()
				assert.Equal(t, "u", cfg.Username)
				assert.Equal(t, "p", cfg.Password)
				assert.Equal(t, "t", cfg.ToolPath)
				assert.Regexp(t, `^a-\d+$`, cfg.Address)
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	assert.Equal(t, uint64(writers*writes), store.Version())
}

func TestParseField(t *testing.T) {
	f, err := endpoint.ParseField(" Address ")
	require.NoError(t, err)
	assert.Equal(t, endpoint.FieldAddress, f)

	f, err = endpoint.ParseField("tool_path")
	require.NoError(t, err)
	assert.Equal(t, endpoint.FieldToolPath, f)

	_, err = endpoint.ParseField("port")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, endpoint.DefaultConfig().Validate())

	cfg := endpoint.DefaultConfig()
	cfg.Username = ""
	cfg.ToolPath = "  "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrEndpointIncomplete, errors.CodeOf(err))
	assert.Equal(t, []endpoint.Field{endpoint.FieldUsername, endpoint.FieldToolPath}, cfg.Missing())
}

func TestStringMasksPassword(t *testing.T) {
	s := endpoint.DefaultConfig().String()

	assert.NotContains(t, s, endpoint.DefaultPassword)
	assert.Contains(t, s, "albert@192.168.8.180")
}
