package eth

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

const testABI = `[
	{"type":"constructor","inputs":[{"name":"owner","type":"address"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}],
	"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"register","stateMutability":"nonpayable","inputs":[
		{"name":"name","type":"string"},
		{"name":"id","type":"bytes32"},
		{"name":"flag","type":"bool"},
		{"name":"count","type":"uint8"},
		{"name":"payload","type":"bytes"}],
	"outputs":[]}
]`

// TestCoerceArgs checks JSON-decoded argument values are converted into the
// Go types the ABI encoder expects.
func TestCoerceArgs(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(testABI))
	if err != nil {
		t.Fatalf("Error parsing ABI:%e", err)
	}

	cases := []struct {
		name   string
		method string
		args   []interface{}
		ok     bool
	}{
		{"address_and_number", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", float64(100)}, true},
		{"hex_number", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "0x64"}, true},
		{"decimal_string_number", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "100"}, true},
		{"big_int_number", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", big.NewInt(100)}, true},
		{"wrong_arity", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"}, false},
		{"bad_number", "transfer", []interface{}{"0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "zzz"}, false},
		{
			"mixed_types", "register",
			[]interface{}{
				"alice",
				"0x00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
				true,
				float64(3),
				"0xdeadbeef",
			},
			true,
		},
		{"short_fixed_bytes", "register", []interface{}{"alice", "0x0011", true, float64(3), "0xdeadbeef"}, false},
		{"bool_mismatch", "register", []interface{}{"alice", "0x00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", "yes", float64(3), "0x"}, false},
	}

	for _, c := range cases {
		method := parsed.Methods[c.method]

		args, err := coerceArgs(method.Inputs, c.args)
		if c.ok != (err == nil) {
			t.Errorf("[%s] Error coercing:%e expected ok:%v", c.name, err, c.ok)

			continue
		}

		if err != nil {
			continue
		}
		// the real proof is that the encoder accepts the coerced values
		if _, err = parsed.Pack(c.method, args...); err != nil {
			t.Errorf("[%s] Error packing coerced args:%e", c.name, err)
		}
	}
}

// TestDeployCachesABI checks a deployment caches the contract ABI under the
// created address so later invocations can omit it.
func TestDeployCachesABI(t *testing.T) {
	d, node := newTestDispatcher(t)
	node.contract = common.HexToAddress("0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4")

	v := NewInvoker(d, node)

	resp, err := v.Deploy(context.Background(), DeployRequest{
		Bytecode:        []byte{0x60, 0x80, 0x60, 0x40},
		ABIJSON:         testABI,
		ConstructorArgs: []interface{}{testAccount},
		Credential:      types.CredentialPrivateKeyHex{EthAccount: testAccount, Secret: testKeyHex},
	})
	if err != nil {
		t.Fatalf("Error deploying:%e", err)
	}

	if resp.TransactionReceipt.ContractAddress != node.contract.Hex() {
		t.Fatalf("Contract address %s expected %s", resp.TransactionReceipt.ContractAddress, node.contract.Hex())
	}

	node.attempts = 0

	// no ABIJSON given, must resolve from the cache
	if _, err = v.Invoke(context.Background(), InvokeRequest{
		ContractAddress: node.contract.Hex(),
		Method:          "transfer",
		Args:            []interface{}{testAccount, float64(1)},
		Credential:      types.CredentialPrivateKeyHex{EthAccount: testAccount, Secret: testKeyHex},
	}); err != nil {
		t.Fatalf("Error invoking from cached ABI:%e", err)
	}

	// an unknown address without an ABI must fail
	if _, err = v.Invoke(context.Background(), InvokeRequest{
		ContractAddress: "0x0000000000000000000000000000000000000001",
		Method:          "transfer",
		Args:            []interface{}{testAccount, float64(1)},
		Credential:      types.CredentialPrivateKeyHex{EthAccount: testAccount, Secret: testKeyHex},
	}); err == nil {
		t.Errorf("Expected error invoking unknown contract without ABI")
	}
}

// TestInvokeUnknownMethod checks method names are validated against the ABI
// before submission.
func TestInvokeUnknownMethod(t *testing.T) {
	d, node := newTestDispatcher(t)
	v := NewInvoker(d, node)

	_, err := v.Invoke(context.Background(), InvokeRequest{
		ContractAddress: "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4",
		ABIJSON:         testABI,
		Method:          "mint",
		Credential:      types.CredentialPrivateKeyHex{EthAccount: testAccount, Secret: testKeyHex},
	})
	if err == nil {
		t.Errorf("Expected error invoking unknown method")
	}

	if len(node.raws) != 0 {
		t.Errorf("Invalid invocation was broadcast")
	}
}
