package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intentengine/native/intent"
	"intentengine/native/router"
	"intentengine/storage"
)

func TestKVBufferedUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	require.NoError(t, mgr.KVPut([]byte("k"), uint64(42)))
	var got uint64
	ok, err := mgr.KVGet([]byte("k"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), got)
	require.Equal(t, 0, db.Len())

	require.NoError(t, mgr.Commit())
	require.Equal(t, 1, db.Len())
	require.Zero(t, mgr.Pending())

	fresh := NewManager(db)
	ok, err = fresh.KVGet([]byte("k"), &got)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fresh.KVDelete([]byte("k")))
	ok, err = fresh.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.False(t, ok)
	fresh.Discard()
	ok, err = fresh.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKVRejectsEmptyKey(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	require.Error(t, mgr.KVPut(nil, uint64(1)))
	_, err := mgr.KVGet(nil, nil)
	require.Error(t, err)
	require.Error(t, mgr.KVAppend(nil, []byte{1}))
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("list")
	var empty [][]byte
	require.NoError(t, mgr.KVGetList(key, &empty))
	require.Empty(t, empty)

	require.NoError(t, mgr.KVAppend(key, []byte{1}))
	require.NoError(t, mgr.KVAppend(key, []byte{2}))
	require.NoError(t, mgr.KVAppend(key, []byte{1}))
	var list [][]byte
	require.NoError(t, mgr.KVGetList(key, &list))
	require.Equal(t, [][]byte{{1}, {2}}, list)
}

func TestIntentRecordRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	target, output, yield := uint64(500_000), uint64(19_000), uint64(650)
	executed, cancelled := int64(1_700_000_100), int64(1_700_000_200)
	swapVenue := router.SwapVenueAlternateAMM
	lendVenue := router.LendingVenueYieldFarmB
	record := &intent.Intent{
		ID:                [32]byte{0x01},
		Owner:             [20]byte{0x02},
		Kind:              intent.KindBuy,
		Status:            intent.StatusExecuted,
		FromAsset:         [20]byte{0x03},
		ToAsset:           [20]byte{0x04},
		Amount:            1_000_000,
		Fee:               3_000,
		MaxSlippageBps:    10,
		MinYieldBps:       20,
		TargetPrice:       &target,
		MaxPriceImpactBps: 30,
		SwapVenue:         &swapVenue,
		LendingVenue:      &lendVenue,
		CreatedAt:         1_700_000_000,
		ExpiresAt:         1_700_604_800,
		ExecutedAt:        &executed,
		CancelledAt:       &cancelled,
		ExecutionOutput:   &output,
		ExecutionYieldBps: &yield,
	}
	require.NoError(t, mgr.IntentPut(record))
	loaded, ok, err := mgr.IntentGet(record.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, loaded)

	bare := &intent.Intent{ID: [32]byte{0x05}, Kind: intent.KindSwap, Amount: 10}
	require.NoError(t, mgr.IntentPut(bare))
	loaded, ok, err = mgr.IntentGet(bare.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, loaded.TargetPrice)
	require.Nil(t, loaded.SwapVenue)
	require.Nil(t, loaded.ExecutedAt)

	_, ok, err = mgr.IntentGet([32]byte{0xFF})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntentRejectsNegativeTimestamp(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	err := mgr.IntentPut(&intent.Intent{ID: [32]byte{1}, CreatedAt: -1})
	require.Error(t, err)
}

func TestLedgerBalances(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	acct, asset := [20]byte{0x0A}, [20]byte{0x0B}

	balance, err := mgr.LedgerBalance(acct, asset)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, mgr.LedgerSetBalance(acct, asset, 77))
	require.NoError(t, mgr.Commit())
	balance, err = NewManager(db).LedgerBalance(acct, asset)
	require.NoError(t, err)
	require.Equal(t, uint64(77), balance)

	require.NoError(t, mgr.LedgerSetBalance(acct, asset, 0))
	require.NoError(t, mgr.Commit())
	require.Equal(t, 0, db.Len())
}

func TestEngineAgainstManager(t *testing.T) {
	db := storage.NewMemDB()
	admin, treasury, owner := [20]byte{0xA1}, [20]byte{0xA2}, [20]byte{0xB1}
	usdc, sol := [20]byte{0x20}, [20]byte{0x10}

	engine := intent.NewEngine(intent.DefaultParams(), router.New(router.Config{MajorAssets: [][20]byte{usdc, sol}}))
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	mgr := NewManager(db)
	engine.SetState(mgr)
	_, err := engine.InitializeProtocol(admin, treasury)
	require.NoError(t, err)
	record, err := engine.CreateSwapIntent(owner, intent.SwapRequest{FromAsset: usdc, ToAsset: sol, Amount: 1_000_000, MaxSlippageBps: 50})
	require.NoError(t, err)
	require.NoError(t, mgr.Commit())

	reopened := NewManager(db)
	engine.SetState(reopened)
	stored, err := engine.Intent(record.ID)
	require.NoError(t, err)
	require.Equal(t, record, stored)
	listed, err := engine.IntentsByOwner(owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	cfg, err := engine.ProtocolConfig()
	require.NoError(t, err)
	require.Equal(t, uint64(1), cfg.IntentsCreated)
}
