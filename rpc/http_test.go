package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"purchasechain/core"
	"purchasechain/core/state"
	"purchasechain/core/types"
	"purchasechain/crypto"
	"purchasechain/native/assets"
	"purchasechain/native/purchase"
	"purchasechain/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Node) {
	t.Helper()
	engine, err := purchase.NewEngine(purchase.Strategy{Settlement: purchase.SettlementDirect, Custody: purchase.CustodyDelegated})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	node, err := core.NewNode(storage.NewMemDB(), engine, "purchase-test")
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	server := NewServer(node)
	ts := httptest.NewServer(http.HandlerFunc(server.handle))
	t.Cleanup(ts.Close)
	return ts, node
}

func call(t *testing.T, ts *httptest.Server, method string, params ...interface{}) *RPCResponse {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": method, "params": params,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	decoded := new(RPCResponse)
	if err := json.NewDecoder(resp.Body).Decode(decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func TestHandleRejectsNonPostAndBadPayloads(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}

	decoded := call(t, ts, "")
	if decoded.Error == nil || decoded.Error.Code != codeInvalidRequest {
		t.Fatalf("missing method: %+v", decoded.Error)
	}

	decoded = call(t, ts, "no_such_method")
	if decoded.Error == nil || decoded.Error.Code != codeMethodNotFound {
		t.Fatalf("unknown method: %+v", decoded.Error)
	}
}

func TestNetInfo(t *testing.T) {
	ts, _ := newTestServer(t)
	decoded := call(t, ts, "net_info")
	if decoded.Error != nil {
		t.Fatalf("net_info error: %+v", decoded.Error)
	}
	result, _ := json.Marshal(decoded.Result)
	var info netInfoResult
	if err := json.Unmarshal(result, &info); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if info.NetworkName != "purchase-test" {
		t.Fatalf("network name = %q", info.NetworkName)
	}
}

func TestBalanceGet(t *testing.T) {
	ts, _ := newTestServer(t)
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()

	decoded := call(t, ts, "balance_get", map[string]string{"address": addr.String()})
	if decoded.Error != nil {
		t.Fatalf("balance_get error: %+v", decoded.Error)
	}
	raw, _ := json.Marshal(decoded.Result)
	var balance balanceResult
	if err := json.Unmarshal(raw, &balance); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if balance.Balance != "0" || balance.Nonce != 0 {
		t.Fatalf("fresh account: %+v", balance)
	}

	decoded = call(t, ts, "balance_get", map[string]string{"address": "not-bech32"})
	if decoded.Error == nil || decoded.Error.Code != codeInvalidParams {
		t.Fatalf("bad address: %+v", decoded.Error)
	}
}

func TestPurchaseGetNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	missing := make([]byte, 32)
	missing[0] = 0xEE
	decoded := call(t, ts, "purchase_get", map[string]string{"id": hex.EncodeToString(missing)})
	if decoded.Error == nil || decoded.Error.Code != codePurchaseNotFound {
		t.Fatalf("expected not-found error, got %+v", decoded.Error)
	}

	decoded = call(t, ts, "purchase_get", map[string]string{"id": "abcd"})
	if decoded.Error == nil || decoded.Error.Code != codePurchaseInvalidParams {
		t.Fatalf("short id: %+v", decoded.Error)
	}
}

func TestTxSendAndAssetGet(t *testing.T) {
	ts, node := newTestServer(t)
	sellerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var seller [20]byte
	copy(seller[:], sellerKey.PubKey().Address().Bytes())

	var assetID [32]byte
	assetID[0] = 0xA1
	if err := node.WithState(func(m *state.Manager) error {
		return m.AssetPut(&assets.Asset{ID: assetID, Owner: seller})
	}); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"price":        big.NewInt(100).String(),
		"assetId":      hex.EncodeToString(assetID[:]),
		"itemName":     "listed item",
		"nameCapacity": 32,
		"nonce":        1,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	tx := &types.Transaction{Type: types.TxTypeInitializePurchase, Nonce: 0, Data: payload}
	if err := tx.Sign(sellerKey.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}

	decoded := call(t, ts, "tx_send", tx)
	if decoded.Error != nil {
		t.Fatalf("tx_send error: %+v", decoded.Error)
	}

	agreementID := purchase.AgreementID(seller, assetID, 1)
	decoded = call(t, ts, "purchase_get", map[string]string{"id": hex.EncodeToString(agreementID[:])})
	if decoded.Error != nil {
		t.Fatalf("purchase_get error: %+v", decoded.Error)
	}
	raw, _ := json.Marshal(decoded.Result)
	var agreement agreementJSON
	if err := json.Unmarshal(raw, &agreement); err != nil {
		t.Fatalf("decode agreement: %v", err)
	}
	if agreement.Status != "item_not_transferred" || agreement.Price != "100" {
		t.Fatalf("unexpected agreement: %+v", agreement)
	}

	decoded = call(t, ts, "asset_get", map[string]string{"id": hex.EncodeToString(assetID[:])})
	if decoded.Error != nil {
		t.Fatalf("asset_get error: %+v", decoded.Error)
	}
	raw, _ = json.Marshal(decoded.Result)
	var asset assetJSON
	if err := json.Unmarshal(raw, &asset); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if asset.Delegate == nil {
		t.Fatalf("delegated custody must record the authority delegate")
	}
}
