package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"purchasechain/core/types"
	"purchasechain/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		getBalance(args[1])
	case "send":
		if len(args) < 4 {
			fmt.Println("Usage: send <to> <amount> <keyfile>")
			return
		}
		send(args[1], args[2], args[3])
	case "sell":
		if len(args) < 5 {
			fmt.Println("Usage: sell <assetId> <price> <itemName> <keyfile>")
			return
		}
		sell(args[1], args[2], args[3], args[4])
	case "pay":
		if len(args) < 3 {
			fmt.Println("Usage: pay <agreementId> <keyfile>")
			return
		}
		sendAgreementTx(types.TxTypeMakePayment, args[1], args[2], "payment")
	case "complete":
		if len(args) < 3 {
			fmt.Println("Usage: complete <agreementId> <keyfile>")
			return
		}
		sendAgreementTx(types.TxTypeCompletePurchase, args[1], args[2], "completion")
	case "purchase":
		if len(args) < 2 {
			fmt.Println("Usage: purchase <agreementId>")
			return
		}
		getRecord("purchase_get", args[1])
	case "asset":
		if len(args) < 2 {
			fmt.Println("Usage: asset <assetId>")
			return
		}
		getRecord("asset_get", args[1])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: purchase-cli [--rpc <url>] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key                               Create a new wallet key")
	fmt.Println("  balance <address>                          Show balance and nonce")
	fmt.Println("  send <to> <amount> <keyfile>               Transfer PUR")
	fmt.Println("  sell <assetId> <price> <itemName> <keyfile> Open a purchase agreement")
	fmt.Println("  pay <agreementId> <keyfile>                Pay into an agreement")
	fmt.Println("  complete <agreementId> <keyfile>           Complete a purchase")
	fmt.Println("  purchase <agreementId>                     Show an agreement")
	fmt.Println("  asset <assetId>                            Show an asset")
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}

	fileName := "wallet.key"
	if err := os.WriteFile(fileName, key.Bytes(), 0600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", fileName, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
}

func getBalance(addr string) {
	account, err := fetchAccount(addr)
	if err != nil {
		fmt.Printf("Error fetching balance: %v\n", err)
		return
	}
	fmt.Printf("State for: %s\n", account.Address)
	fmt.Printf("  Balance: %s PUR\n", account.Balance)
	fmt.Printf("  Nonce:   %d\n", account.Nonce)
}

func send(to, amount, keyFile string) {
	privKey, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	recipient, err := crypto.DecodeAddress(to)
	if err != nil {
		fmt.Printf("Error: invalid recipient address: %v\n", err)
		return
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Sign() <= 0 {
		fmt.Println("Error: amount must be a positive integer.")
		return
	}

	account, err := fetchAccount(privKey.PubKey().Address().String())
	if err != nil {
		fmt.Printf("Error fetching account details: %v\n", err)
		return
	}

	tx := types.Transaction{
		Type:  types.TxTypeTransfer,
		Nonce: account.Nonce,
		To:    recipient.Bytes(),
		Value: value,
	}
	if err := tx.Sign(privKey.PrivateKey); err != nil {
		fmt.Printf("Error signing transaction: %v\n", err)
		return
	}
	if err := sendTransaction(&tx); err != nil {
		fmt.Printf("Error sending transfer: %v\n", err)
		return
	}
	fmt.Printf("Sent %s PUR to %s.\n", amount, to)
}

func sell(assetID, price, itemName, keyFile string) {
	privKey, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	if _, err := decodeHash32(assetID); err != nil {
		fmt.Printf("Error: invalid asset id: %v\n", err)
		return
	}
	value, ok := new(big.Int).SetString(price, 10)
	if !ok || value.Sign() <= 0 {
		fmt.Println("Error: price must be a positive integer.")
		return
	}

	account, err := fetchAccount(privKey.PubKey().Address().String())
	if err != nil {
		fmt.Printf("Error fetching account details: %v\n", err)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"price":        value.String(),
		"assetId":      strings.TrimPrefix(assetID, "0x"),
		"itemName":     itemName,
		"nameCapacity": len(itemName),
		"nonce":        account.Nonce,
	})

	tx := types.Transaction{
		Type:  types.TxTypeInitializePurchase,
		Nonce: account.Nonce,
		Data:  payload,
	}
	if err := tx.Sign(privKey.PrivateKey); err != nil {
		fmt.Printf("Error signing transaction: %v\n", err)
		return
	}
	if err := sendTransaction(&tx); err != nil {
		fmt.Printf("Error sending sell transaction: %v\n", err)
		return
	}
	fmt.Printf("Opened purchase agreement for asset %s at %s PUR.\n", assetID, price)
}

func sendAgreementTx(txType types.TxType, agreementID, keyFile, label string) {
	privKey, err := loadPrivateKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	if _, err := decodeHash32(agreementID); err != nil {
		fmt.Printf("Error: invalid agreement id: %v\n", err)
		return
	}

	account, err := fetchAccount(privKey.PubKey().Address().String())
	if err != nil {
		fmt.Printf("Error fetching account details: %v\n", err)
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"agreementId": strings.TrimPrefix(agreementID, "0x"),
	})
	tx := types.Transaction{
		Type:  txType,
		Nonce: account.Nonce,
		Data:  payload,
	}
	if err := tx.Sign(privKey.PrivateKey); err != nil {
		fmt.Printf("Error signing transaction: %v\n", err)
		return
	}
	if err := sendTransaction(&tx); err != nil {
		fmt.Printf("Error sending %s transaction: %v\n", label, err)
		return
	}
	fmt.Printf("Sent %s for agreement %s.\n", label, agreementID)
}

func getRecord(method, id string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": method,
		"params": []interface{}{map[string]string{"id": strings.TrimPrefix(id, "0x")}},
	})
	resp, err := doRPCRequest(payload)
	if err != nil {
		fmt.Printf("Error calling node: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		fmt.Println("Error: failed to decode response from node.")
		return
	}
	if rpcResp.Error != nil {
		fmt.Printf("Error from node: %s\n", rpcResp.Error.Message)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, rpcResp.Result, "", "  "); err != nil {
		fmt.Println(string(rpcResp.Result))
		return
	}
	fmt.Println(pretty.String())
}

// --- RPC HELPER FUNCTIONS ---

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

func fetchAccount(addr string) (*balanceResponse, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "balance_get",
		"params": []interface{}{map[string]string{"address": addr}},
	})

	resp, err := doRPCRequest(payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result balanceResponse `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	return &rpcResp.Result, nil
}

func sendTransaction(tx *types.Transaction) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "tx_send",
		"params": []interface{}{tx},
	})
	resp, err := doRPCRequest(payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result struct {
			Hash string `json:"hash"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Data != nil {
			return fmt.Errorf("%s: %v", rpcResp.Error.Message, rpcResp.Error.Data)
		}
		return fmt.Errorf("%s", rpcResp.Error.Message)
	}
	fmt.Printf("Transaction hash: %s\n", rpcResp.Result.Hash)
	return nil
}

func doRPCRequest(payload []byte) (*http.Response, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func loadPrivateKey(keyFile string) (*crypto.PrivateKey, error) {
	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	return crypto.PrivateKeyFromBytes(bytes.TrimSpace(raw))
}

func decodeHash32(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
