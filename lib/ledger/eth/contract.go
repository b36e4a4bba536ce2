package eth

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// Invoker is the contract invocation layer: it turns an ABI-level method call
// into a TransactionConfig and delegates submission to the dispatcher.
// Parsed ABIs of deployed or invoked contracts are cached per address.
type Invoker struct {
	dispatcher *Dispatcher
	client     NodeClient

	mu        sync.Mutex
	instances map[common.Address]abi.ABI
}

// NewInvoker returns a contract invoker over the given dispatcher and node
// client.
func NewInvoker(d *Dispatcher, client NodeClient) *Invoker {
	return &Invoker{dispatcher: d, client: client, instances: make(map[common.Address]abi.ABI)}
}

// DeployRequest describes a contract deployment: creation bytecode, the
// contract ABI (for constructor packing and later invocations) and the
// credential to sign with.
type DeployRequest struct {
	Bytecode        hexutil.Bytes            `json:"bytecode"`
	ABIJSON         string                   `json:"contractAbi"`
	ConstructorArgs []interface{}            `json:"constructorArgs,omitempty"`
	Credential      types.SigningCredential  `json:"-"`
	Gas             uint64                   `json:"gas,omitempty"`
	Value           *hexutil.Big             `json:"value,omitempty"`
	TimeoutMs       uint64                   `json:"timeoutMs,omitempty"`
}

// InvokeRequest describes a state-changing method call (or, for Call, a
// read-only one) on a deployed contract.
type InvokeRequest struct {
	ContractAddress string                  `json:"contractAddress"`
	ABIJSON         string                  `json:"contractAbi,omitempty"`
	Method          string                  `json:"method"`
	Args            []interface{}           `json:"args,omitempty"`
	Credential      types.SigningCredential `json:"-"`
	Gas             uint64                  `json:"gas,omitempty"`
	Value           *hexutil.Big            `json:"value,omitempty"`
	TimeoutMs       uint64                  `json:"timeoutMs,omitempty"`
}

// Deploy submits a contract-creation transaction and, on success, caches the
// contract ABI under the newly created address.
func (v *Invoker) Deploy(ctx context.Context, req DeployRequest) (*types.RunTransactionResponse, error) {
	parsed, err := abi.JSON(strings.NewReader(req.ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("cannot parse contract ABI: %w", err)
	}

	data := append([]byte{}, req.Bytecode...)

	if len(req.ConstructorArgs) > 0 {
		args, err := coerceArgs(parsed.Constructor.Inputs, req.ConstructorArgs)
		if err != nil {
			return nil, err
		}

		packed, err := parsed.Pack("", args...)
		if err != nil {
			return nil, fmt.Errorf("cannot pack constructor arguments: %w", err)
		}

		data = append(data, packed...)
	}

	resp, err := v.dispatcher.Submit(ctx, types.RunTransactionRequest{
		TransactionConfig: types.TransactionConfig{Data: data, Gas: req.Gas, Value: req.Value},
		Credential:        req.Credential,
		TimeoutMs:         req.TimeoutMs,
	})
	if err != nil {
		return nil, err
	}

	if addr := resp.TransactionReceipt.ContractAddress; addr != "" {
		v.mu.Lock()
		v.instances[common.HexToAddress(addr)] = parsed
		v.mu.Unlock()
	}

	return resp, nil
}

// Invoke packs the method call into transaction data and submits it through
// the dispatcher.
func (v *Invoker) Invoke(ctx context.Context, req InvokeRequest) (*types.RunTransactionResponse, error) {
	addr := common.HexToAddress(req.ContractAddress)

	data, err := v.packCall(addr, req)
	if err != nil {
		return nil, err
	}

	return v.dispatcher.Submit(ctx, types.RunTransactionRequest{
		TransactionConfig: types.TransactionConfig{To: addr.Hex(), Data: data, Gas: req.Gas, Value: req.Value},
		Credential:        req.Credential,
		TimeoutMs:         req.TimeoutMs,
	})
}

// Call executes a read-only method via eth_call and unpacks the outputs. No
// transaction is submitted.
func (v *Invoker) Call(ctx context.Context, req InvokeRequest) ([]interface{}, error) {
	addr := common.HexToAddress(req.ContractAddress)

	data, err := v.packCall(addr, req)
	if err != nil {
		return nil, err
	}

	out, err := v.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	parsed, err := v.abiFor(addr, req.ABIJSON)
	if err != nil {
		return nil, err
	}

	return parsed.Unpack(req.Method, out)
}

func (v *Invoker) packCall(addr common.Address, req InvokeRequest) ([]byte, error) {
	parsed, err := v.abiFor(addr, req.ABIJSON)
	if err != nil {
		return nil, err
	}

	method, ok := parsed.Methods[req.Method]
	if !ok {
		return nil, fmt.Errorf("contract %s has no method %q", addr.Hex(), req.Method)
	}

	args, err := coerceArgs(method.Inputs, req.Args)
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(req.Method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot pack arguments for %s: %w", req.Method, err)
	}

	return data, nil
}

// abiFor returns the cached ABI for addr, parsing and caching abiJSON when
// the address is not yet known.
func (v *Invoker) abiFor(addr common.Address, abiJSON string) (abi.ABI, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if parsed, ok := v.instances[addr]; ok {
		return parsed, nil
	}

	if abiJSON == "" {
		return abi.ABI{}, fmt.Errorf("no ABI known for contract %s", addr.Hex())
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("cannot parse contract ABI: %w", err)
	}

	v.instances[addr] = parsed

	return parsed, nil
}

// coerceArgs converts loosely typed values (as decoded from JSON) into the
// Go types the ABI encoder expects for each input.
func coerceArgs(inputs abi.Arguments, raw []interface{}) ([]interface{}, error) {
	if len(raw) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(raw))
	}

	out := make([]interface{}, len(raw))

	for i, in := range inputs {
		v, err := coerceArg(in.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, in.Name, err)
		}

		out[i] = v
	}

	return out, nil
}

func coerceArg(t abi.Type, raw interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		switch v := raw.(type) {
		case common.Address:
			return v, nil
		case string:
			return common.HexToAddress(v), nil
		}
	case abi.UintTy, abi.IntTy:
		n, err := coerceBig(raw)
		if err != nil {
			return nil, err
		}

		if t.Size > 64 {
			return n, nil
		}
		// smaller integer widths are packed as their native Go type
		return reflect.ValueOf(n.Uint64()).Convert(t.GetType()).Interface(), nil
	case abi.BoolTy:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case abi.StringTy:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case abi.BytesTy:
		return coerceBytes(raw)
	case abi.FixedBytesTy:
		b, err := coerceBytes(raw)
		if err != nil {
			return nil, err
		}

		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}

		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))

		return arr.Interface(), nil
	}

	return nil, fmt.Errorf("cannot coerce %T into %s", raw, t.String())
}

func coerceBig(raw interface{}) (*big.Int, error) {
	switch v := raw.(type) {
	case *big.Int:
		return v, nil
	case float64:
		return big.NewInt(int64(v)), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimPrefix(v, "0x"), pickBase(v))
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}

		return n, nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	}

	return nil, fmt.Errorf("cannot read %T as integer", raw)
}

func pickBase(s string) int {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 16
	}

	return 10
}

func coerceBytes(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case hexutil.Bytes:
		return v, nil
	case string:
		return hex.DecodeString(strings.TrimPrefix(v, "0x"))
	}

	return nil, fmt.Errorf("cannot read %T as bytes", raw)
}
