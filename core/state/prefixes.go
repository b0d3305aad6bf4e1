package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	protocolConfigKeyBytes = []byte("intent/protocol")
	userPrefix             = []byte("intent/user/")
	intentPrefix           = []byte("intent/record/")
	ownerIndexPrefix       = []byte("intent/owner-index/")
	balancePrefix          = []byte("ledger/balance/")
)

func prefixed(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}

// ProtocolConfigKey is the key of the singleton protocol config.
func ProtocolConfigKey() []byte { return append([]byte(nil), protocolConfigKeyBytes...) }

// UserKey is the key of an owner's profile.
func UserKey(owner [20]byte) []byte { return prefixed(userPrefix, owner[:]) }

// IntentKey is the key of an intent record.
func IntentKey(id [32]byte) []byte { return prefixed(intentPrefix, id[:]) }

// OwnerIndexKey is the key of the list of intent ids an owner declared.
func OwnerIndexKey(owner [20]byte) []byte { return prefixed(ownerIndexPrefix, owner[:]) }

// BalanceKey hashes the (account, asset) pair under the ledger prefix.
func BalanceKey(account, asset [20]byte) []byte {
	return prefixed(balancePrefix, ethcrypto.Keccak256(account[:], asset[:]))
}
