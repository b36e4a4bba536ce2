package connector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/htlc"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/quorum"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/util"
)

// Errors returned to client requests.
var (
	ErrBadMethod  = errors.New("bad method in request")
	ErrBadRequest = errors.New("bad request")
	ErrMissingNet = errors.New("undefined ledger - missing query: ?net=<ledger>")
	ErrNoAddr     = errors.New("undefined address - missing in uri")
	ErrNoPrivate  = errors.New("ledger does not support private transactions")
)

// Response defines the data structure returned to the client making the http request.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}

// statusFor maps service errors to http status codes. Anything not
// recognized is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrPollTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, types.ErrNoLedger), errors.Is(err, types.ErrNoBlock),
		errors.Is(err, types.ErrKeychainNotFound), errors.Is(err, keychain.ErrKeyNotFound),
		errors.Is(err, store.ErrWatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, keychain.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, types.ErrBroadcastFailed), errors.Is(err, types.ErrRemoteSigning):
		return http.StatusBadGateway
	case errors.Is(err, types.ErrUnsupportedCredential), errors.Is(err, types.ErrMissingRawTransaction),
		errors.Is(err, htlc.ErrNotConfigured), errors.Is(err, ErrBadRequest), errors.Is(err, ErrBadMethod),
		errors.Is(err, ErrMissingNet), errors.Is(err, ErrNoAddr), errors.Is(err, ErrNoPrivate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ledger returns the connector for the requested ledger name.
func (c *Connector) ledger(net string) (ledger.Connector, error) {
	lc, ok := c.lc[net]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNoLedger, net)
	}

	return lc, nil
}

// homeHandler just replies a welcome message to the client.
func (c *Connector) homeHandler(rw http.ResponseWriter, r *http.Request) {
	var res Response
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)
	// just reply a welcome message
	res.Body = "Hello, this is your blockchain integration connector!"
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	_ = json.NewEncoder(rw).Encode(res)
}

// networksHandler replies the ledgers available to the connector.
func (c *Connector) networksHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	pl := make([]string, 0, len(c.lc))

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(pl)
			res.Body = string(tmp)
		}
		// log request
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, pl, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	for net := range c.lc {
		pl = append(pl, net)
	}
}

// addrBalance struct used to reply balances of addresses from the ledgers.
type addrBalance struct {
	Net string `json:"net"` // ledger name
	Bal string `json:"bal"` // balance in the ledger's native currency
}

// addrBalHandler replies the balance of the address requested for all the ledgers specified in the query, or all
// connected ledgers when none is specified.
func (c *Connector) addrBalHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var bals []addrBalance

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(bals)
			res.Body = string(tmp)
		}
		// log request
		log.Printf("httpreq from %v %s bals:%+v err:%e\n", r.RemoteAddr, r.RequestURI, bals, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	// parse request
	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		return
	}

	v := mux.Vars(r)

	address, ok := v["address"]
	if !ok {
		err = ErrNoAddr

		return
	}

	nets := r.Form["net"]

	for name, lc := range c.lc {
		if len(nets) > 0 && !util.In(nets, name) {
			continue
		}

		bal, errB := lc.Balance(r.Context(), address)
		if errB != nil {
			log.Printf("[%s] error getting balance:%e\n", name, errB)

			err = errB

			return
		}

		bals = append(bals, addrBalance{Net: name, Bal: bal.String()})
	}
}

// txWireReq is the wire form of a transaction submission: the ledger name, the transaction request and, for ledgers
// supporting it, the list of private recipients.
type txWireReq struct {
	Net        string   `json:"net"`
	PrivateFor []string `json:"privateFor,omitempty"`
	types.RunTransactionJSON
}

// runTransactionHandler submits a transaction to the requested ledger and waits for its receipt. When privateFor is
// informed, the transaction is submitted as a private transaction, which only Quorum ledgers support.
func (c *Connector) runTransactionHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var out *types.RunTransactionResponse

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire txWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding transaction request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var lc ledger.Connector

	if lc, err = c.ledger(wire.Net); err != nil {
		return
	}

	var req types.RunTransactionRequest

	if req, err = wire.Request(); err != nil {
		return
	}

	if len(wire.PrivateFor) > 0 {
		q, ok := lc.(*quorum.Quorum)
		if !ok {
			err = ErrNoPrivate

			return
		}

		out, err = q.RunPrivateTransaction(r.Context(), req, wire.PrivateFor)

		return
	}

	out, err = lc.RunTransaction(r.Context(), req)
}

// deployWireReq is the wire form of a contract deployment request.
type deployWireReq struct {
	Net string `json:"net"`
	eth.DeployRequest
	Credential types.CredentialEnvelope `json:"web3SigningCredential"`
}

// deployContractHandler deploys a contract to the requested ledger and replies the receipt, which carries the address
// the contract was deployed at.
func (c *Connector) deployContractHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var out *types.RunTransactionResponse

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire deployWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding deploy request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var lc ledger.Connector

	if lc, err = c.ledger(wire.Net); err != nil {
		return
	}

	req := wire.DeployRequest

	if req.Credential, err = wire.Credential.Credential(); err != nil {
		return
	}

	out, err = lc.DeployContract(r.Context(), req)
}

// invokeWireReq is the wire form of a contract invocation or call request.
type invokeWireReq struct {
	Net string `json:"net"`
	eth.InvokeRequest
	Credential types.CredentialEnvelope `json:"web3SigningCredential"`
}

// invokeContractHandler invokes a contract method with a transaction and replies the receipt.
func (c *Connector) invokeContractHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var out *types.RunTransactionResponse

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire invokeWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding invoke request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var lc ledger.Connector

	if lc, err = c.ledger(wire.Net); err != nil {
		return
	}

	req := wire.InvokeRequest

	if req.Credential, err = wire.Credential.Credential(); err != nil {
		return
	}

	out, err = lc.InvokeContract(r.Context(), req)
}

// callContractHandler executes a read-only contract call and replies the decoded output values. No transaction is
// submitted and no credential is required.
func (c *Connector) callContractHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var out []interface{}

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire invokeWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding call request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var lc ledger.Connector

	if lc, err = c.ledger(wire.Net); err != nil {
		return
	}

	out, err = lc.CallContract(r.Context(), wire.InvokeRequest)
}

// keychainValue is the wire form of a keychain entry value.
type keychainValue struct {
	Value string `json:"value"`
}

// keychainHandler implements entry management for the keychain plugins: GET reads an entry, PUT sets it, DELETE
// removes it and HEAD checks its presence without returning the value.
func (c *Connector) keychainHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var value string

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)

			if r.Method == "GET" {
				tmp, _ := json.Marshal(keychainValue{Value: value})
				res.Body = string(tmp)
			}
		}
		// log request, never the value
		log.Printf("httpreq from %v %s %s err:%e\n", r.RemoteAddr, r.Method, r.URL.Path, err)
		// reply, HEAD carries no body
		if r.Method != "HEAD" {
			rw.Header().Set("Content-Type", "application/json;charset=utf8")
			_ = json.NewEncoder(rw).Encode(&res)
		}
	}()

	v := mux.Vars(r)

	kc, ok := c.reg.FindKeychain(v["keychainId"])
	if !ok {
		err = fmt.Errorf("%w: %s", types.ErrKeychainNotFound, v["keychainId"])

		return
	}

	key := v["key"]

	switch r.Method {
	case "GET":
		value, err = kc.Get(r.Context(), key)
	case "PUT":
		var kv keychainValue
		if err = json.NewDecoder(r.Body).Decode(&kv); err != nil {
			err = fmt.Errorf("%w: %v", ErrBadRequest, err)

			return
		}

		err = kc.Set(r.Context(), key, kv.Value)
	case "DELETE":
		err = kc.Delete(r.Context(), key)
	case "HEAD":
		var has bool
		if has, err = kc.Has(r.Context(), key); err == nil && !has {
			err = keychain.ErrKeyNotFound
		}
	default:
		err = ErrBadMethod
	}
}

// htlcNewWireReq is the wire form of a new hash time-lock request.
type htlcNewWireReq struct {
	Net string `json:"net"`
	htlc.NewContractRequest
	Credential types.CredentialEnvelope `json:"web3SigningCredential"`
}

// htlcNewHandler locks funds in the ledger's HTLC contract under a hash lock.
func (c *Connector) htlcNewHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var out *types.RunTransactionResponse

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire htlcNewWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding htlc request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var p *htlc.Plugin

	if p, err = c.htlcPlugin(wire.Net); err != nil {
		return
	}

	req := wire.NewContractRequest

	if req.Credential, err = wire.Credential.Credential(); err != nil {
		return
	}

	out, err = p.NewContract(r.Context(), req)
}

// htlcClaimWireReq is the wire form of a withdraw or refund request on an existing hash time-lock.
type htlcClaimWireReq struct {
	Net        string                   `json:"net"`
	ID         string                   `json:"id"`
	Secret     string                   `json:"secret,omitempty"`
	Credential types.CredentialEnvelope `json:"web3SigningCredential"`
	TimeoutMs  uint64                   `json:"timeoutMs,omitempty"`
}

// htlcWithdrawHandler claims the funds locked under the given id by revealing the secret.
func (c *Connector) htlcWithdrawHandler(rw http.ResponseWriter, r *http.Request) {
	c.htlcClaim(rw, r, false)
}

// htlcRefundHandler returns the funds locked under the given id to the sender after expiration.
func (c *Connector) htlcRefundHandler(rw http.ResponseWriter, r *http.Request) {
	c.htlcClaim(rw, r, true)
}

func (c *Connector) htlcClaim(rw http.ResponseWriter, r *http.Request, refund bool) {
	var err error

	var res Response

	var out *types.RunTransactionResponse

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			tmp, _ := json.Marshal(out)
			res.Body = string(tmp)
		}
		// log request and response
		log.Printf("httpreq from %v %s res:%+v err:%e\n", r.RemoteAddr, r.RequestURI, out, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	var wire htlcClaimWireReq
	if err = json.NewDecoder(r.Body).Decode(&wire); err != nil {
		log.Printf("Error decoding htlc request:%e\n", err)

		err = fmt.Errorf("%w: %v", ErrBadRequest, err)

		return
	}

	var p *htlc.Plugin

	if p, err = c.htlcPlugin(wire.Net); err != nil {
		return
	}

	var cred types.SigningCredential

	if cred, err = wire.Credential.Credential(); err != nil {
		return
	}

	if refund {
		out, err = p.Refund(r.Context(), wire.ID, cred, wire.TimeoutMs)
	} else {
		out, err = p.Withdraw(r.Context(), wire.ID, wire.Secret, cred, wire.TimeoutMs)
	}
}

// htlcStatusHandler replies the numeric status of the hash time-lock with the given id.
func (c *Connector) htlcStatusHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var status uint64

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusOK)
			res.Body = strconv.FormatUint(status, 10)
		}
		// log request
		log.Printf("httpreq from %v %s status:%d err:%e\n", r.RemoteAddr, r.RequestURI, status, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		return
	}

	net, ok := r.Form["net"]
	if !ok || len(net) != 1 { // we only allow 1 net per request
		err = ErrMissingNet

		return
	}

	var p *htlc.Plugin

	if p, err = c.htlcPlugin(net[0]); err != nil {
		return
	}

	v := mux.Vars(r)

	status, err = p.GetSingleStatus(r.Context(), v["id"])
}

// htlcPlugin builds the HTLC plugin for the requested ledger.
func (c *Connector) htlcPlugin(net string) (*htlc.Plugin, error) {
	lc, err := c.ledger(net)
	if err != nil {
		return nil, err
	}

	return htlc.New(lc)
}

// watchHandler sends a watch request message to the broker to start or stop monitoring an address. A request accepted
// status is replied, or an error otherwise.
func (c *Connector) watchHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			rw.WriteHeader(http.StatusAccepted)
		}
		// log request
		log.Printf("httpreq from %v %s err:%e\n", r.RemoteAddr, r.RequestURI, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()

	v := mux.Vars(r)

	address, ok := v["address"]
	if !ok {
		err = ErrNoAddr

		return
	}

	address = util.LowerAddr(address) // keep everything in lowercase to avoid issues
	// get network
	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		return
	}

	net, okN := r.Form["net"]
	if !okN || len(net) != 1 { // we only allow 1 net per request
		err = ErrMissingNet

		return
	}

	if _, err = c.ledger(net[0]); err != nil {
		return
	}

	wr := msg.WatchReq{Net: net[0], Type: msg.ADDRESS, Obj: address}

	switch r.Method {
	case "POST":
		wr.Act = msg.LISTEN
	case "DELETE":
		wr.Act = msg.UNLISTEN
	default:
		err = ErrBadMethod
	}
	// send message to broker
	if err == nil {
		err = c.mb.SendWatchReq(net[0], wr)
	}
}

// getWatchesHandler replies the client with the addresses being watched for the specified ledger. If no ledger is
// queried, addresses from all the ledgers are returned.
func (c *Connector) getWatchesHandler(rw http.ResponseWriter, r *http.Request) {
	var err error

	var res Response

	var watches []store.WatchList

	defer func() {
		// reply to requester accordingly
		if err != nil {
			res.Error = fmt.Sprintf("%s", err)

			rw.WriteHeader(statusFor(err))
		} else {
			tmp, _ := json.Marshal(watches)
			res.Body = string(tmp)

			rw.WriteHeader(http.StatusOK)
		}
		// log request
		log.Printf("httpreq from %v %s watches:%v err:%e\n", r.RemoteAddr, r.RequestURI, watches, err)
		// reply
		rw.Header().Set("Content-Type", "application/json;charset=utf8")
		_ = json.NewEncoder(rw).Encode(&res)
	}()
	// get network
	if err = r.ParseForm(); err != nil {
		log.Print("Error parsing request URL")

		return
	}

	net := r.Form["net"]
	// get watched addresses from DB; ideally this would be requested to the watcher
	watches, err = c.db.GetWatches(net)
}
