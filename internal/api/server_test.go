package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"

	"Satellite/internal/genesis"
	"Satellite/internal/instruction"
	"Satellite/internal/runtime"
	"Satellite/internal/snapshot"
	"Satellite/internal/storage"
)

// testNode is a server over a real runtime seeded with one master collectible.
type testNode struct {
	handler http.Handler
	rt      *runtime.Runtime
	holder  solana.PrivateKey
	seeded  genesis.Seeded
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func newPrivateKey(t *testing.T) solana.PrivateKey {
	t.Helper()

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return key
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	db := newTestStorage(t)
	holder := newPrivateKey(t)
	programID := newPrivateKey(t).PublicKey()

	g := &genesis.Genesis{Collectibles: []genesis.Collectible{{
		Seed:        "comet",
		Holder:      holder.PublicKey().String(),
		Name:        "Comet",
		Symbol:      "CMT",
		ListCustody: true,
	}}}

	seeded, err := genesis.Apply(db, programID, g)
	if err != nil {
		t.Fatalf("genesis.Apply failed: %v", err)
	}

	rt, err := runtime.New(db, programID)
	if err != nil {
		t.Fatalf("runtime.New failed: %v", err)
	}

	server := New(":0", rt, NewMetrics())

	return &testNode{
		handler: server.Handler(),
		rt:      rt,
		holder:  holder,
		seeded:  seeded[0],
	}
}

// stakeTx returns the encoded stake transaction of the seeded master.
func (n *testNode) stakeTx(t *testing.T, nonce uint64) []byte {
	t.Helper()

	keys, err := instruction.NewCustodyKeys(n.rt.ProgramID(), n.holder.PublicKey(), n.seeded.Mint)
	if err != nil {
		t.Fatalf("NewCustodyKeys failed: %v", err)
	}

	tx := runtime.NewTransaction(nonce, instruction.Stake(n.rt.ProgramID(), keys))
	if err := tx.Sign(n.holder); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	return tx.Encode()
}

func (n *testNode) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	n.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}

	return resp
}

func TestHealthEndpoint(t *testing.T) {
	n := newTestNode(t)

	w := n.do("GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	if resp := decodeBody(t, w); resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
}

func TestSubmitTx_Success(t *testing.T) {
	n := newTestNode(t)

	w := n.do("POST", "/tx", n.stakeTx(t, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if resp := decodeBody(t, w); resp["hash"] == "" || resp["sequence"] != float64(0) {
		t.Errorf("unexpected response %v", resp)
	}

	if n.rt.Executed() != 1 {
		t.Errorf("executed = %d, want 1", n.rt.Executed())
	}
}

func TestSubmitTx_ProgramError(t *testing.T) {
	n := newTestNode(t)

	if w := n.do("POST", "/tx", n.stakeTx(t, 1)); w.Code != http.StatusOK {
		t.Fatalf("first stake: %d %s", w.Code, w.Body.String())
	}

	w := n.do("POST", "/tx", n.stakeTx(t, 2))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["code"] != float64(4) {
		t.Errorf("code = %v, want 4", resp["code"])
	}

	if resp["label"] != "master edition not owned" || resp["error"] != resp["label"] {
		t.Errorf("label = %v, error = %v", resp["label"], resp["error"])
	}

	detail, _ := resp["detail"].([]any)
	if len(detail) < 2 || detail[0] != "instruction 0:" || detail[len(detail)-1] != "master edition not owned" {
		t.Errorf("detail = %v", resp["detail"])
	}
}

func TestSubmitTx_Replay(t *testing.T) {
	n := newTestNode(t)
	tx := n.stakeTx(t, 1)

	if w := n.do("POST", "/tx", tx); w.Code != http.StatusOK {
		t.Fatalf("first submit: %d %s", w.Code, w.Body.String())
	}

	if w := n.do("POST", "/tx", tx); w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}

func TestSubmitTx_Rejected(t *testing.T) {
	n := newTestNode(t)

	corrupt := n.stakeTx(t, 1)
	corrupt[len(corrupt)-1] ^= 0xFF

	tests := []struct {
		name string
		body []byte
	}{
		{"empty body", nil},
		{"invalid data", []byte("invalid")},
		{"wrong signature", corrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := n.do("POST", "/tx", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	if n.rt.Executed() != 0 {
		t.Error("rejected transactions must not execute")
	}
}

func TestAccountEndpoint(t *testing.T) {
	n := newTestNode(t)

	w := n.do("GET", "/accounts/"+n.seeded.Metadata.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	resp := decodeBody(t, w)
	if resp["kind"] != "metadata" {
		t.Fatalf("kind = %v, want metadata", resp["kind"])
	}

	data := resp["data"].(map[string]any)
	if data["name"] != "Comet" || len(data["creators"].([]any)) != 2 {
		t.Errorf("metadata view = %v", data)
	}

	w = n.do("GET", "/accounts/"+n.seeded.TokenAccount.String(), nil)
	resp = decodeBody(t, w)
	if resp["kind"] != "tokenAccount" || resp["data"].(map[string]any)["amount"] != float64(1) {
		t.Errorf("token account view = %v", resp)
	}

	w = n.do("GET", "/accounts/"+n.seeded.MasterEdition.String(), nil)
	if resp = decodeBody(t, w); resp["kind"] != "masterEdition" {
		t.Errorf("master edition view = %v", resp)
	}

	if w := n.do("GET", "/accounts/"+newPrivateKey(t).PublicKey().String(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	if w := n.do("GET", "/accounts/not-a-key", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	n := newTestNode(t)

	resp := decodeBody(t, n.do("GET", "/status", nil))

	custody, bump := n.rt.Custody()
	if resp["programId"] != n.rt.ProgramID().String() || resp["custody"] != custody.String() || resp["bump"] != float64(bump) {
		t.Errorf("status = %v", resp)
	}

	if resp["executed"] != float64(0) {
		t.Errorf("executed = %v, want 0", resp["executed"])
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.do("POST", "/tx", n.stakeTx(t, 1))

	w := n.do("GET", "/snapshot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	db := newTestStorage(t)
	if _, err := snapshot.Import(db, w.Body.Bytes()); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	restored, err := runtime.New(db, n.rt.ProgramID())
	if err != nil {
		t.Fatalf("runtime.New failed: %v", err)
	}

	if restored.Executed() != 1 {
		t.Errorf("restored executed = %d, want 1", restored.Executed())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	n := newTestNode(t)
	n.do("POST", "/tx", n.stakeTx(t, 1))
	n.do("POST", "/tx", []byte("invalid"))

	w := n.do("GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		"satellite_transactions_executed_total 1",
		`satellite_transactions_rejected_total{reason="malformed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
