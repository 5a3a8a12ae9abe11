package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"purchasechain/core/types"
	"purchasechain/crypto"
	"purchasechain/native/assets"
	"purchasechain/native/purchase"
)

const (
	codePurchaseInvalidParams = -32021
	codePurchaseNotFound      = -32022
	codePurchaseForbidden     = -32023
	codePurchaseConflict      = -32024
	codePurchaseInternal      = -32025
)

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type idParams struct {
	ID string `json:"id"`
}

type agreementJSON struct {
	ID           string  `json:"id"`
	Seller       string  `json:"seller"`
	Buyer        *string `json:"buyer,omitempty"`
	Price        string  `json:"price"`
	AssetID      string  `json:"assetId"`
	ItemName     string  `json:"itemName"`
	NameCapacity uint16  `json:"nameCapacity"`
	StartTime    int64   `json:"startTime,omitempty"`
	EndTime      int64   `json:"endTime,omitempty"`
	CreatedAt    int64   `json:"createdAt"`
	Status       string  `json:"status"`
	Availability string  `json:"availability"`
}

type assetJSON struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner"`
	Delegate *string `json:"delegate,omitempty"`
}

type txSendResult struct {
	Hash string `json:"hash"`
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "transaction parameter required", nil)
		return
	}
	tx := new(types.Transaction)
	if err := json.Unmarshal(req.Params[0], tx); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction format", err.Error())
		return
	}
	if err := s.node.SubmitTransaction(tx); err != nil {
		status, code := purchaseErrorCode(err)
		writeError(w, status, req.ID, code, "transaction rejected", err.Error())
		return
	}
	hash, err := tx.Hash()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to hash transaction", err.Error())
		return
	}
	writeResult(w, req.ID, txSendResult{Hash: hex.EncodeToString(hash)})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params balanceParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := parseBech32Address(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.node.GetAccount(addr.Bytes())
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load account", err.Error())
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address: addr.String(),
		Balance: account.Balance.String(),
		Nonce:   account.Nonce,
	})
}

func (s *Server) handleGetAgreement(w http.ResponseWriter, req *RPCRequest) {
	id, ok := parseIDParam(w, req)
	if !ok {
		return
	}
	agreement, err := s.node.GetAgreement(id)
	if err != nil {
		if errors.Is(err, purchase.ErrAgreementNotFound) {
			writeError(w, http.StatusNotFound, req.ID, codePurchaseNotFound, "agreement not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, req.ID, codePurchaseInternal, "failed to load agreement", err.Error())
		return
	}
	writeResult(w, req.ID, renderAgreement(agreement))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, req *RPCRequest) {
	id, ok := parseIDParam(w, req)
	if !ok {
		return
	}
	asset, err := s.node.GetAsset(id)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			writeError(w, http.StatusNotFound, req.ID, codePurchaseNotFound, "asset not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, req.ID, codePurchaseInternal, "failed to load asset", err.Error())
		return
	}
	writeResult(w, req.ID, renderAsset(asset))
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, req *RPCRequest) {
	events := s.node.Events()
	out := make([]eventJSON, len(events))
	for i := range events {
		out[i] = eventJSON{Type: events[i].Type, Attributes: events[i].Attributes}
	}
	writeResult(w, req.ID, out)
}

func parseIDParam(w http.ResponseWriter, req *RPCRequest) ([32]byte, bool) {
	var id [32]byte
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codePurchaseInvalidParams, "exactly one parameter object expected", nil)
		return id, false
	}
	var params idParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codePurchaseInvalidParams, "invalid parameter object", err.Error())
		return id, false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(params.ID, "0x"))
	if err != nil || len(raw) != 32 {
		writeError(w, http.StatusBadRequest, req.ID, codePurchaseInvalidParams, "id must be 32 hex-encoded bytes", nil)
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

func parseBech32Address(value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("address is required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address: %w", err)
	}
	return addr, nil
}

func renderAgreement(a *purchase.Agreement) agreementJSON {
	out := agreementJSON{
		ID:           hex.EncodeToString(a.ID[:]),
		Seller:       crypto.NewAddress(crypto.PURPrefix, a.Seller[:]).String(),
		Price:        a.Price.String(),
		AssetID:      hex.EncodeToString(a.AssetID[:]),
		ItemName:     a.ItemName,
		NameCapacity: a.NameCapacity,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		CreatedAt:    a.CreatedAt,
		Status:       a.Status.String(),
		Availability: a.Availability.String(),
	}
	if a.Buyer != nil {
		buyer := crypto.NewAddress(crypto.PURPrefix, a.Buyer[:]).String()
		out.Buyer = &buyer
	}
	return out
}

func renderAsset(a *assets.Asset) assetJSON {
	out := assetJSON{
		ID:    hex.EncodeToString(a.ID[:]),
		Owner: crypto.NewAddress(crypto.PURPrefix, a.Owner[:]).String(),
	}
	if a.Delegate != nil {
		delegate := crypto.NewAddress(crypto.PURPrefix, a.Delegate[:]).String()
		out.Delegate = &delegate
	}
	return out
}

// purchaseErrorCode maps engine errors onto JSON-RPC error codes in the same
// band as the purchase module's other codes.
func purchaseErrorCode(err error) (int, int) {
	switch {
	case errors.Is(err, purchase.ErrAgreementNotFound), errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound, codePurchaseNotFound
	case errors.Is(err, purchase.ErrUnauthorized), errors.Is(err, assets.ErrNotOwner), errors.Is(err, assets.ErrNotDelegate):
		return http.StatusForbidden, codePurchaseForbidden
	case errors.Is(err, purchase.ErrAlreadyPaid),
		errors.Is(err, purchase.ErrPaymentNotReceived),
		errors.Is(err, purchase.ErrPurchaseAlreadyCompleted),
		errors.Is(err, purchase.ErrDefinitionMismatch),
		errors.Is(err, purchase.ErrOutsideWindow):
		return http.StatusConflict, codePurchaseConflict
	case errors.Is(err, purchase.ErrInsufficientFunds), errors.Is(err, purchase.ErrAllocationFailure):
		return http.StatusBadRequest, codePurchaseInvalidParams
	default:
		return http.StatusBadRequest, codeServerError
	}
}
