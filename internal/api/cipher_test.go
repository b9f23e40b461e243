package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RowanDark/ebh/internal/cipher"
)

func TestEncodeDecodeEndpoints(t *testing.T) {
	h := setupTestServer(t).Handler()

	rr := do(t, h, http.MethodPost, "/api/v1/encode", `{"message":"Hello, World!"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("encode status = %d: %s", rr.Code, rr.Body.String())
	}
	var enc MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &enc); err != nil {
		t.Fatal(err)
	}
	if enc.Output != "IN7d9wXxqJgE1LKD9A" {
		t.Fatalf("encode output = %q", enc.Output)
	}

	rr = do(t, h, http.MethodPost, "/api/v1/decode", fmt.Sprintf(`{"message":%q}`, enc.Output))
	var dec MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &dec); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusOK || dec.Output != "Hello, World!" {
		t.Fatalf("decode = %d %q", rr.Code, dec.Output)
	}
}

func TestCipherErrorStatusCodes(t *testing.T) {
	h := setupTestServer(t).Handler()

	tests := []struct {
		name       string
		endpoint   string
		method     string
		payload    string
		wantStatus int
	}{
		{"encode wrong method", "/api/v1/encode", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"decode wrong method", "/api/v1/decode", http.MethodPut, "", http.StatusMethodNotAllowed},
		{"batch wrong method", "/api/v1/batch", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"pipeline wrong method", "/api/v1/pipeline", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"operations wrong method", "/api/v1/operations", http.MethodPost, "{}", http.StatusMethodNotAllowed},
		{"encode invalid json", "/api/v1/encode", http.MethodPost, `{"message":`, http.StatusBadRequest},
		{"decode invalid symbol", "/api/v1/decode", http.MethodPost, `{"message":"IN7d9wXxqJgE1LKD9A!"}`, http.StatusUnprocessableEntity},
		{"decode impossible length", "/api/v1/decode", http.MethodPost, `{"message":"h"}`, http.StatusUnprocessableEntity},
		{"batch bad mode", "/api/v1/batch", http.MethodPost, `{"mode":"rot13","messages":["a"]}`, http.StatusBadRequest},
		{"pipeline empty operations", "/api/v1/pipeline", http.MethodPost, `{"input":"test","operations":[]}`, http.StatusBadRequest},
		{"pipeline unknown operation", "/api/v1/pipeline", http.MethodPost, `{"input":"test","operations":[{"name":"rot13"}]}`, http.StatusUnprocessableEntity},
		{"pipeline reverse unknown", "/api/v1/pipeline", http.MethodPost, `{"input":"test","reverse":true,"operations":[{"name":"rot13"}]}`, http.StatusBadRequest},
		{"pipeline decode failure", "/api/v1/pipeline", http.MethodPost, `{"input":"h","operations":[{"name":"ebh_base64_decode"}]}`, http.StatusUnprocessableEntity},
		{"body too large", "/api/v1/encode", http.MethodPost, `{"message":"` + strings.Repeat("a", 5000) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.endpoint, tt.payload)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestDecodeErrorBody(t *testing.T) {
	h := setupTestServer(t).Handler()

	rr := do(t, h, http.MethodPost, "/api/v1/decode", `{"message":"IN7d9wXxqJgE1LKD9A!"}`)
	var body struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
		Offset *int   `json:"offset"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Offset == nil || *body.Offset != 18 {
		t.Fatalf("offset = %v, want 18", body.Offset)
	}
	if body.Reason != "invalid_symbol" || !strings.Contains(body.Error, "invalid symbol") {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestBatchEndpoint(t *testing.T) {
	h := setupTestServer(t).Handler()

	msgs := make([]string, 40)
	for i := range msgs {
		msgs[i] = fmt.Sprintf("batch message %d", i)
	}
	payload, _ := json.Marshal(BatchRequest{Mode: "encode", Messages: msgs})
	rr := do(t, h, http.MethodPost, "/api/v1/batch", string(payload))
	if rr.Code != http.StatusOK {
		t.Fatalf("encode batch status = %d: %s", rr.Code, rr.Body.String())
	}
	var encoded BatchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &encoded); err != nil {
		t.Fatal(err)
	}
	if len(encoded.Results) != len(msgs) {
		t.Fatalf("got %d results, want %d", len(encoded.Results), len(msgs))
	}
	outputs := make([]string, len(msgs))
	for i, res := range encoded.Results {
		if want := cipher.EncodeMessage(msgs[i]); res.Output != want {
			t.Fatalf("result %d = %q, want %q", i, res.Output, want)
		}
		outputs[i] = res.Output
	}

	// One bad entry must not affect its neighbours.
	outputs = append(outputs, "not valid!")
	payload, _ = json.Marshal(BatchRequest{Mode: "Decode", Messages: outputs})
	rr = do(t, h, http.MethodPost, "/api/v1/batch", string(payload))
	var decoded BatchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(msgs))
	for _, res := range decoded.Results[:len(msgs)] {
		if res.Error != "" {
			t.Fatalf("unexpected error %q", res.Error)
		}
		got = append(got, res.Output)
	}
	if diff := cmp.Diff(msgs, got); diff != "" {
		t.Fatalf("decoded batch mismatch (-want +got):\n%s", diff)
	}
	last := decoded.Results[len(msgs)]
	if last.Error == "" || last.Offset == nil || *last.Offset != 3 {
		t.Fatalf("expected error at offset 3, got %+v", last)
	}
}

func TestBatchTooManyMessages(t *testing.T) {
	h := setupTestServer(t, func(c *Config) { c.MaxBodyBytes = 1 << 20 }).Handler()
	payload, _ := json.Marshal(BatchRequest{Mode: "encode", Messages: make([]string, maxBatchMessages+1)})
	if rr := do(t, h, http.MethodPost, "/api/v1/batch", string(payload)); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPipelineEndpoint(t *testing.T) {
	h := setupTestServer(t).Handler()

	ops := cipher.EncodePipeline(cipher.DefaultMask, cipher.AlignTail).Operations
	req := PipelineRequest{Input: "Hello, World!", Operations: ops}
	payload, _ := json.Marshal(req)
	rr := do(t, h, http.MethodPost, "/api/v1/pipeline", string(payload))
	var resp MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusOK || resp.Output != "IlND9Q3fW0XScQk6bD" {
		t.Fatalf("pipeline = %d %q", rr.Code, resp.Output)
	}

	req = PipelineRequest{Input: resp.Output, Operations: ops, Reverse: true}
	payload, _ = json.Marshal(req)
	rr = do(t, h, http.MethodPost, "/api/v1/pipeline", string(payload))
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusOK || resp.Output != "Hello, World!" {
		t.Fatalf("reverse pipeline = %d %q", rr.Code, resp.Output)
	}
}

func TestListOperationsEndpoint(t *testing.T) {
	h := setupTestServer(t).Handler()

	rr := do(t, h, http.MethodGet, "/api/v1/operations", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Operations []OperationInfo `json:"operations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]OperationInfo)
	for _, op := range body.Operations {
		byName[op.Name] = op
	}
	mask, ok := byName[cipher.OpMask]
	if !ok || mask.Reverse != cipher.OpMask || mask.Type != "mask" {
		t.Fatalf("unexpected mask entry %+v", mask)
	}
	if byName[cipher.OpBase64Encode].Reverse != cipher.OpBase64Decode {
		t.Fatalf("unexpected base64 entry %+v", byName[cipher.OpBase64Encode])
	}
}
