// Package miner understands the ccminer JSON config document and applies
// pool operations to it.
//
// The document is handled value-preserving: top-level keys other than
// "pools", and pool entries the operation does not touch, keep their exact
// JSON value bytes via json.RawMessage. Only formatting may change on
// re-serialization, never a value's type or content — in particular
// "timeout" stays an integer and "disabled" stays numeric 0/1, which the
// embedded client requires.
package miner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/poolherd/poolherd/pkg/util"
)

// Operation is one pool mutation applied fleet-wide for a run. It is a
// sealed interface so the patch switch is exhaustive.
type Operation interface {
	// Describe returns a short human-readable form for logs and errors.
	Describe() string

	isOperation()
}

// EnableURL sets disabled=0 on every pool entry whose url exactly matches.
type EnableURL struct {
	URL string
}

func (o EnableURL) Describe() string { return fmt.Sprintf("enable-url %q", o.URL) }
func (EnableURL) isOperation()       {}

// DisableURL sets disabled=1 on every pool entry whose url exactly matches.
type DisableURL struct {
	URL string
}

func (o DisableURL) Describe() string { return fmt.Sprintf("disable-url %q", o.URL) }
func (DisableURL) isOperation()       {}

// ReplacePools swaps the whole pools array for the given one. Pools holds
// the raw JSON array, already validated by ParsePoolsArray.
type ReplacePools struct {
	Pools json.RawMessage
}

func (o ReplacePools) Describe() string { return "set-pools" }
func (ReplacePools) isOperation()       {}

// ParsePoolsArray validates raw JSON as an array of pool objects and
// returns it for use in a ReplacePools operation.
func ParsePoolsArray(data []byte) (json.RawMessage, error) {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("pools JSON must be an array of pool objects: %w", err)
	}
	return json.RawMessage(bytes.TrimSpace(data)), nil
}

// Result reports what Patch did to the document.
type Result struct {
	// Doc is the new document. When Changed is false it is the input
	// bytes, verbatim.
	Doc     []byte
	Changed bool
	// Matched counts pool entries whose url matched an EnableURL or
	// DisableURL operation, whether or not they needed flipping. Zero on a
	// URL operation means the url is absent from the config — a silent
	// no-op the caller should surface as an informational note.
	Matched int
}

// Patch applies op to the config document doc.
//
// Errors wrap util.ErrMalformedConfig when "pools" is missing or not an
// array of objects, and util.ErrInvalidEntry when a URL operation meets a
// pool entry without a "url" field. No partial output is ever produced.
func Patch(doc []byte, op Operation) (Result, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(doc, &document); err != nil {
		return Result{}, fmt.Errorf("%w: %v", util.ErrMalformedConfig, err)
	}

	poolsRaw, ok := document["pools"]
	if !ok {
		return Result{}, fmt.Errorf("%w: no \"pools\" key", util.ErrMalformedConfig)
	}
	var pools []json.RawMessage
	if err := json.Unmarshal(poolsRaw, &pools); err != nil {
		return Result{}, fmt.Errorf("%w: \"pools\" is not an array", util.ErrMalformedConfig)
	}

	var changed bool
	var matched int
	var err error
	switch o := op.(type) {
	case EnableURL:
		changed, matched, err = setDisabled(pools, o.URL, "0")
	case DisableURL:
		changed, matched, err = setDisabled(pools, o.URL, "1")
	case ReplacePools:
		if jsonEqual(poolsRaw, o.Pools) {
			return Result{Doc: doc}, nil
		}
		document["pools"] = o.Pools
		out, err := marshalDocument(document)
		if err != nil {
			return Result{}, err
		}
		return Result{Doc: out, Changed: true}, nil
	default:
		return Result{}, fmt.Errorf("unsupported operation %T", op)
	}
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{Doc: doc, Matched: matched}, nil
	}

	newPools, err := json.Marshal(pools)
	if err != nil {
		return Result{}, err
	}
	document["pools"] = newPools
	out, err := marshalDocument(document)
	if err != nil {
		return Result{}, err
	}
	return Result{Doc: out, Changed: true, Matched: matched}, nil
}

// setDisabled flips the "disabled" field to want ("0" or "1") on every
// entry matching url. Entries are mutated in place; untouched entries keep
// their original bytes.
func setDisabled(pools []json.RawMessage, url, want string) (changed bool, matched int, err error) {
	for i, raw := range pools {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entry); err != nil {
			return false, 0, fmt.Errorf("%w: pool entry %d is not an object", util.ErrMalformedConfig, i)
		}

		urlRaw, ok := entry["url"]
		if !ok {
			return false, 0, fmt.Errorf("%w: pool entry %d has no \"url\" field", util.ErrInvalidEntry, i)
		}
		var entryURL string
		if err := json.Unmarshal(urlRaw, &entryURL); err != nil {
			return false, 0, fmt.Errorf("%w: pool entry %d has a non-string \"url\"", util.ErrInvalidEntry, i)
		}

		// Exact string match, no normalization: scheme case or a trailing
		// slash make distinct URLs.
		if entryURL != url {
			continue
		}
		matched++
		if jsonEqual(entry["disabled"], json.RawMessage(want)) {
			continue
		}
		entry["disabled"] = json.RawMessage(want)
		rebuilt, err := json.Marshal(entry)
		if err != nil {
			return false, 0, err
		}
		pools[i] = rebuilt
		changed = true
	}
	return changed, matched, nil
}

// jsonEqual compares two raw JSON values ignoring whitespace.
func jsonEqual(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return false
	}
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return false
	}
	if err := json.Compact(&cb, b); err != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// marshalDocument serializes the document with 4-space indentation, the
// layout the stock miner configs ship with.
func marshalDocument(document map[string]json.RawMessage) ([]byte, error) {
	out, err := json.MarshalIndent(document, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
