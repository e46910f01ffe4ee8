package safeclient

import (
	"context"
	"errors"
	"testing"

	"github.com/luxfi/authority/committee"
	"github.com/luxfi/authority/rpc"
	"github.com/luxfi/authority/types"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

type keyStore map[committee.AuthorityName]types.PublicKey

func (k keyStore) PublicKeyOf(name committee.AuthorityName) (types.PublicKey, bool) {
	pub, ok := k[name]
	return pub, ok
}

// stubClient answers every Handle* call with whatever was queued for it.
type stubClient struct {
	txResp  rpc.TransactionInfoResponse
	txErr   error
	callErr error
}

func (s *stubClient) HandleTransaction(ctx context.Context, tx types.Transaction) (rpc.TransactionInfoResponse, error) {
	if s.callErr != nil {
		return rpc.TransactionInfoResponse{}, s.callErr
	}
	return s.txResp, s.txErr
}
func (s *stubClient) HandleCertificate(ctx context.Context, cert types.CertifiedTransaction) (rpc.TransactionInfoResponse, error) {
	return s.txResp, s.txErr
}
func (s *stubClient) HandleTransactionInfoRequest(ctx context.Context, req rpc.TransactionInfoRequest) (rpc.TransactionInfoResponse, error) {
	return s.txResp, s.txErr
}
func (s *stubClient) HandleObjectInfoRequest(ctx context.Context, req rpc.ObjectInfoRequest) (rpc.ObjectInfoResponse, error) {
	return rpc.ObjectInfoResponse{}, s.callErr
}
func (s *stubClient) HandleAccountInfoRequest(ctx context.Context, req rpc.AccountInfoRequest) (rpc.AccountInfoResponse, error) {
	return rpc.AccountInfoResponse{}, s.callErr
}
func (s *stubClient) HandleCheckpoint(ctx context.Context, req rpc.CheckpointRequest) (rpc.CheckpointResponse, error) {
	return rpc.CheckpointResponse{}, s.callErr
}
func (s *stubClient) HandleTransactionAndEffectsInfoRequest(ctx context.Context, req rpc.TransactionInfoRequest) (rpc.TransactionInfoResponse, error) {
	return s.txResp, s.txErr
}

func setup(t *testing.T) (*committee.Committee, keyStore, committee.AuthorityName, types.PrivateKey) {
	t.Helper()
	name := ids.GenerateTestNodeID()
	pub, priv, err := types.GenerateKey()
	require.NoError(t, err)
	cm := committee.New(1, map[committee.AuthorityName]committee.Stake{name: 4})
	return cm, keyStore{name: pub}, name, priv
}

func TestHandleTransactionVerifiesGoodSignature(t *testing.T) {
	cm, keys, name, priv := setup(t)
	tx := types.Transaction{Data: types.TransactionData{Sender: name, Kind: "x"}}
	sig := types.Sign(priv, tx.Digest())
	raw := &stubClient{txResp: rpc.TransactionInfoResponse{
		SignedTransaction: &types.SignedTransaction{Transaction: tx, Auth: types.AuthoritySigned{Name: name, Signature: sig}},
	}}
	client := New(name, raw, cm, keys, nil)

	resp, err := client.HandleTransaction(context.Background(), tx)
	require.NoError(t, err)
	require.NotNil(t, resp.SignedTransaction)
	require.Zero(t, client.ErrorCount())
}

func TestHandleTransactionRejectsForgedSignature(t *testing.T) {
	cm, keys, name, _ := setup(t)
	tx := types.Transaction{Data: types.TransactionData{Sender: name, Kind: "x"}}
	_, strangerPriv, err := types.GenerateKey()
	require.NoError(t, err)
	forged := types.Sign(strangerPriv, tx.Digest())
	raw := &stubClient{txResp: rpc.TransactionInfoResponse{
		SignedTransaction: &types.SignedTransaction{Transaction: tx, Auth: types.AuthoritySigned{Name: name, Signature: forged}},
	}}
	client := New(name, raw, cm, keys, nil)

	_, err = client.HandleTransaction(context.Background(), tx)
	require.Error(t, err)
	require.EqualValues(t, 1, client.ErrorCount())
}

func TestHandleTransactionRejectsMisattributedResponse(t *testing.T) {
	cm, keys, name, priv := setup(t)
	tx := types.Transaction{Data: types.TransactionData{Sender: name, Kind: "x"}}
	sig := types.Sign(priv, tx.Digest())
	raw := &stubClient{txResp: rpc.TransactionInfoResponse{
		SignedTransaction: &types.SignedTransaction{Transaction: tx, Auth: types.AuthoritySigned{Name: ids.GenerateTestNodeID(), Signature: sig}},
	}}
	client := New(name, raw, cm, keys, nil)

	_, err := client.HandleTransaction(context.Background(), tx)
	require.Error(t, err)
}

func TestRecordedErrorIsNotHidden(t *testing.T) {
	cm, keys, name, _ := setup(t)
	wantErr := errors.New("network down")
	raw := &stubClient{callErr: wantErr}
	client := New(name, raw, cm, keys, nil)

	_, err := client.HandleTransaction(context.Background(), types.Transaction{})
	require.ErrorIs(t, err, wantErr)
	require.EqualValues(t, 1, client.ErrorCount())
	require.Len(t, client.RecentErrors(), 1)
}

func TestInnerReturnsRawClient(t *testing.T) {
	cm, keys, name, _ := setup(t)
	raw := &stubClient{}
	client := New(name, raw, cm, keys, nil)
	require.Same(t, raw, client.Inner())
}
