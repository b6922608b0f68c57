package miner

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/poolherd/poolherd/pkg/util"
)

const sampleConfig = `{
    "algo": "verus",
    "user": "RWorker.rig1",
    "threads": 8,
    "pools": [
        {
            "name": "VIPOR-CA",
            "url": "stratum+tcp://ca.vipor.net:5045",
            "timeout": 60,
            "disabled": 0
        },
        {
            "name": "VIPOR-SW",
            "url": "stratum+tcp://usw.vipor.net:5045",
            "timeout": 120,
            "disabled": 1
        }
    ]
}`

func mustPatch(t *testing.T, doc string, op Operation) Result {
	t.Helper()
	res, err := Patch([]byte(doc), op)
	if err != nil {
		t.Fatalf("Patch(%s) unexpected error: %v", op.Describe(), err)
	}
	return res
}

func poolsOf(t *testing.T, doc []byte) []map[string]json.RawMessage {
	t.Helper()
	var document struct {
		Pools []map[string]json.RawMessage `json:"pools"`
	}
	if err := json.Unmarshal(doc, &document); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	return document.Pools
}

func TestPatchDisableURL(t *testing.T) {
	res := mustPatch(t, sampleConfig, DisableURL{URL: "stratum+tcp://ca.vipor.net:5045"})
	if !res.Changed {
		t.Fatal("expected changed=true")
	}
	if res.Matched != 1 {
		t.Fatalf("Matched = %d, want 1", res.Matched)
	}

	pools := poolsOf(t, res.Doc)
	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(pools))
	}
	if got := string(pools[0]["disabled"]); got != "1" {
		t.Errorf("pools[0].disabled = %s, want 1", got)
	}
	// Untouched entry keeps its exact bytes
	if got := string(pools[1]["disabled"]); got != "1" {
		t.Errorf("pools[1].disabled = %s, want 1", got)
	}
	// Numeric fields stay integers
	if got := string(pools[0]["timeout"]); got != "60" {
		t.Errorf("pools[0].timeout = %s, want 60", got)
	}
	// Array order preserved
	var name string
	if err := json.Unmarshal(pools[0]["name"], &name); err != nil || name != "VIPOR-CA" {
		t.Errorf("pools[0].name = %q, want VIPOR-CA", name)
	}
}

func TestPatchEnableURL(t *testing.T) {
	res := mustPatch(t, sampleConfig, EnableURL{URL: "stratum+tcp://usw.vipor.net:5045"})
	if !res.Changed {
		t.Fatal("expected changed=true")
	}
	pools := poolsOf(t, res.Doc)
	if got := string(pools[1]["disabled"]); got != "0" {
		t.Errorf("pools[1].disabled = %s, want 0", got)
	}
	if got := string(pools[0]["disabled"]); got != "0" {
		t.Errorf("pools[0].disabled = %s, want 0 (untouched)", got)
	}
}

func TestPatchNoMatchIsByteIdenticalNoOp(t *testing.T) {
	// Exact matching: trailing slash and scheme case make distinct URLs
	for _, url := range []string{
		"stratum+tcp://nowhere.example:1234",
		"stratum+tcp://ca.vipor.net:5045/",
		"STRATUM+TCP://ca.vipor.net:5045",
	} {
		res := mustPatch(t, sampleConfig, DisableURL{URL: url})
		if res.Changed {
			t.Errorf("url %q: expected changed=false", url)
		}
		if res.Matched != 0 {
			t.Errorf("url %q: Matched = %d, want 0", url, res.Matched)
		}
		if !bytes.Equal(res.Doc, []byte(sampleConfig)) {
			t.Errorf("url %q: no-op output differs from input", url)
		}
	}
}

func TestPatchAlreadyInDesiredState(t *testing.T) {
	res := mustPatch(t, sampleConfig, EnableURL{URL: "stratum+tcp://ca.vipor.net:5045"})
	if res.Changed {
		t.Error("expected changed=false for already-enabled pool")
	}
	if res.Matched != 1 {
		t.Errorf("Matched = %d, want 1", res.Matched)
	}
	if !bytes.Equal(res.Doc, []byte(sampleConfig)) {
		t.Error("no-op output differs from input")
	}
}

func TestPatchUpdatesAllDuplicateURLs(t *testing.T) {
	doc := `{"pools": [
		{"url": "stratum+tcp://dup.example:1", "disabled": 0},
		{"url": "stratum+tcp://dup.example:1", "disabled": 0}
	]}`
	res := mustPatch(t, doc, DisableURL{URL: "stratum+tcp://dup.example:1"})
	if res.Matched != 2 {
		t.Fatalf("Matched = %d, want 2", res.Matched)
	}
	for i, p := range poolsOf(t, res.Doc) {
		if got := string(p["disabled"]); got != "1" {
			t.Errorf("pools[%d].disabled = %s, want 1", i, got)
		}
	}
}

func TestPatchAddsMissingDisabledField(t *testing.T) {
	doc := `{"pools": [{"url": "stratum+tcp://a.example:1", "timeout": 30}]}`
	res := mustPatch(t, doc, DisableURL{URL: "stratum+tcp://a.example:1"})
	if !res.Changed {
		t.Fatal("expected changed=true when disabled field is absent")
	}
	pools := poolsOf(t, res.Doc)
	if got := string(pools[0]["disabled"]); got != "1" {
		t.Errorf("disabled = %s, want 1", got)
	}
}

func TestPatchReplacePools(t *testing.T) {
	newPools, err := ParsePoolsArray([]byte(`[
		{"name": "NEW", "url": "stratum+tcp://new.example:9999", "timeout": 60, "disabled": 0}
	]`))
	if err != nil {
		t.Fatalf("ParsePoolsArray: %v", err)
	}

	res := mustPatch(t, sampleConfig, ReplacePools{Pools: newPools})
	if !res.Changed {
		t.Fatal("expected changed=true")
	}
	pools := poolsOf(t, res.Doc)
	if len(pools) != 1 {
		t.Fatalf("got %d pools, want 1", len(pools))
	}

	// Other top-level keys survive
	var document map[string]json.RawMessage
	if err := json.Unmarshal(res.Doc, &document); err != nil {
		t.Fatal(err)
	}
	var user string
	if err := json.Unmarshal(document["user"], &user); err != nil || user != "RWorker.rig1" {
		t.Errorf("user = %q, want RWorker.rig1", user)
	}
	if got := string(document["threads"]); got != "8" {
		t.Errorf("threads = %s, want 8", got)
	}

	// Second application of the same array is a no-op
	again := mustPatch(t, string(res.Doc), ReplacePools{Pools: newPools})
	if again.Changed {
		t.Error("second ReplacePools application should report changed=false")
	}
	if !bytes.Equal(again.Doc, res.Doc) {
		t.Error("second application altered the document")
	}
}

func TestPatchErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		op      Operation
		wantErr error
	}{
		{
			name:    "not json",
			doc:     "not json at all",
			op:      DisableURL{URL: "x"},
			wantErr: util.ErrMalformedConfig,
		},
		{
			name:    "missing pools",
			doc:     `{"algo": "verus"}`,
			op:      DisableURL{URL: "x"},
			wantErr: util.ErrMalformedConfig,
		},
		{
			name:    "pools not array",
			doc:     `{"pools": {"url": "x"}}`,
			op:      DisableURL{URL: "x"},
			wantErr: util.ErrMalformedConfig,
		},
		{
			name:    "entry not object",
			doc:     `{"pools": [42]}`,
			op:      DisableURL{URL: "x"},
			wantErr: util.ErrMalformedConfig,
		},
		{
			name:    "entry without url",
			doc:     `{"pools": [{"name": "broken"}]}`,
			op:      EnableURL{URL: "x"},
			wantErr: util.ErrInvalidEntry,
		},
		{
			name:    "entry with non-string url",
			doc:     `{"pools": [{"url": 5}]}`,
			op:      DisableURL{URL: "x"},
			wantErr: util.ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Patch([]byte(tt.doc), tt.op)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePoolsArrayRejectsNonArray(t *testing.T) {
	for _, bad := range []string{`{"url": "x"}`, `"pool"`, `[1, 2]`} {
		if _, err := ParsePoolsArray([]byte(bad)); err == nil {
			t.Errorf("ParsePoolsArray(%s) expected error", bad)
		}
	}
}
