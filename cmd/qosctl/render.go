// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"code.hybscloud.com/idiom/qos"
)

// named returns the records of w with a "name" field naming the policy.
func named(w qos.Wire) []map[string]any {
	out := make([]map[string]any, len(w))
	for i, rec := range w {
		m := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			m[k] = v
		}
		if id, ok := rec["id"].(int); ok {
			m["name"] = qos.PolicyID(id).String()
		}
		out[i] = m
	}
	return out
}

// writeWire renders w as json, yaml, or hex-encoded cbor.
func writeWire(out io.Writer, w qos.Wire, format string) error {
	switch format {
	case "json":
		data, err := qos.MarshalJSON(w)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	case "cbor":
		data, err := qos.MarshalCBOR(w)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, hex.EncodeToString(data))
		return err
	case "yaml":
		return writeYAML(out, named(w))
	}
	return fmt.Errorf("unsupported format %q", format)
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writePolicies prints one policy per line.
func writePolicies(out io.Writer, policies []qos.Policy) error {
	for _, p := range policies {
		if _, err := fmt.Fprintf(out, "%-12s %v\n", p.ID(), p); err != nil {
			return err
		}
	}
	return nil
}

// parseWire reads json text, or cbor given as hex text or raw bytes.
func parseWire(data []byte, format string) (any, error) {
	switch format {
	case "json":
		return qos.ParseJSON(data)
	case "cbor":
		if raw, err := hex.DecodeString(string(bytes.TrimSpace(data))); err == nil {
			data = raw
		}
		return qos.ParseCBOR(data)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
