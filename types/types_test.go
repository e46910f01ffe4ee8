package types

import (
	"testing"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

type keyStore map[ids.NodeID]PublicKey

func (k keyStore) PublicKeyOf(name ids.NodeID) (PublicKey, bool) {
	pub, ok := k[name]
	return pub, ok
}

func fourSignerCommittee(t *testing.T) (*committee.Committee, keyStore, map[string]ids.NodeID, map[string]PrivateKey) {
	t.Helper()
	names := map[string]ids.NodeID{}
	keys := keyStore{}
	privs := map[string]PrivateKey{}
	voters := map[committee.AuthorityName]committee.Stake{}
	for _, n := range []string{"a", "b", "c", "d"} {
		name := ids.GenerateTestNodeID()
		pub, priv, err := GenerateKey()
		require.NoError(t, err)
		names[n] = name
		keys[name] = pub
		privs[n] = priv
		voters[name] = 1
	}
	cm := committee.New(1, voters)
	return cm, keys, names, privs
}

func TestTransactionDigestStableUnderClone(t *testing.T) {
	tx := Transaction{Data: TransactionData{Sender: ids.GenerateTestNodeID(), Kind: "transfer", Payload: []byte("hi")}}
	clone := tx.Clone()
	require.Equal(t, tx.Digest(), clone.Digest())
	clone.Data.Payload[0] = 'x'
	require.Equal(t, byte('h'), tx.Data.Payload[0], "clone must not alias the original payload")
}

func TestNewCertifiedTransactionRequiresQuorum(t *testing.T) {
	cm, keys, names, privs := fourSignerCommittee(t)
	tx := Transaction{Data: TransactionData{Sender: names["a"], Kind: "x"}}
	digest := tx.Digest()

	sigs := []AuthoritySigned{
		{Name: names["a"], Signature: Sign(privs["a"], digest)},
		{Name: names["b"], Signature: Sign(privs["b"], digest)},
	}
	_, err := NewCertifiedTransaction(cm, keys, tx, sigs)
	var quorumErr *ErrQuorumNotMet
	require.ErrorAs(t, err, &quorumErr)

	sigs = append(sigs, AuthoritySigned{Name: names["c"], Signature: Sign(privs["c"], digest)})
	cert, err := NewCertifiedTransaction(cm, keys, tx, sigs)
	require.NoError(t, err)
	require.Equal(t, cm.Epoch(), cert.Epoch)
	require.Equal(t, digest, cert.Digest())
}

func TestNewCertifiedTransactionRejectsBadSignature(t *testing.T) {
	cm, keys, names, privs := fourSignerCommittee(t)
	tx := Transaction{Data: TransactionData{Sender: names["a"], Kind: "x"}}
	other := Transaction{Data: TransactionData{Sender: names["a"], Kind: "y"}}

	sigs := []AuthoritySigned{
		{Name: names["a"], Signature: Sign(privs["a"], tx.Digest())},
		{Name: names["b"], Signature: Sign(privs["b"], other.Digest())}, // wrong digest
		{Name: names["c"], Signature: Sign(privs["c"], tx.Digest())},
	}
	_, err := NewCertifiedTransaction(cm, keys, tx, sigs)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestNewCertifiedTransactionRejectsUnknownSigner(t *testing.T) {
	cm, keys, names, privs := fourSignerCommittee(t)
	tx := Transaction{Data: TransactionData{Sender: names["a"], Kind: "x"}}
	_, strangerPriv, err := GenerateKey()
	require.NoError(t, err)

	sigs := []AuthoritySigned{
		{Name: names["a"], Signature: Sign(privs["a"], tx.Digest())},
		{Name: names["b"], Signature: Sign(privs["b"], tx.Digest())},
		{Name: ids.GenerateTestNodeID(), Signature: Sign(strangerPriv, tx.Digest())},
	}
	_, err = NewCertifiedTransaction(cm, keys, tx, sigs)
	var target *ErrUnknownVerificationKey
	require.ErrorAs(t, err, &target)
}

func TestObjectRefLessOrdersByDescendingVersion(t *testing.T) {
	id := ids.GenerateTestID()
	older := ObjectRef{ID: id, Version: 1}
	newer := ObjectRef{ID: id, Version: 2}
	require.True(t, newer.Less(older))
	require.False(t, older.Less(newer))

	unrelated := ObjectRef{ID: ids.GenerateTestID(), Version: 5}
	require.False(t, older.Less(unrelated))
}

func TestTransactionEffectsIsDeletion(t *testing.T) {
	deletedRef := ObjectRef{ID: ids.GenerateTestID(), Version: 3}
	effects := TransactionEffects{
		Changes: []ObjectEffect{{Ref: deletedRef, Kind: ObjectDeleted}},
	}
	ref, ok := effects.IsDeletion(deletedRef.ID)
	require.True(t, ok)
	require.Equal(t, deletedRef, ref)

	_, ok = effects.IsDeletion(ids.GenerateTestID())
	require.False(t, ok)
}
