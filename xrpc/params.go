// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xrpc

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is an ordered list of query parameters. Keys may repeat (for
// array-valued parameters like "uris") and are encoded in the order
// they were added.
type Params struct {
	pairs []param
}

type param struct {
	key   string
	value string
}

// Add appends a key/value pair.
func (p *Params) Add(key, value string) {
	p.pairs = append(p.pairs, param{key: key, value: value})
}

// AddOptional appends the pair only when value is non-empty.
func (p *Params) AddOptional(key, value string) {
	if value != "" {
		p.Add(key, value)
	}
}

// AddInt appends an integer-valued pair.
func (p *Params) AddInt(key string, value int) {
	p.Add(key, strconv.Itoa(value))
}

// AddBool appends a boolean-valued pair.
func (p *Params) AddBool(key string, value bool) {
	p.Add(key, strconv.FormatBool(value))
}

// Len returns the number of pairs.
func (p Params) Len() int { return len(p.pairs) }

// Get returns the first value for key.
func (p Params) Get(key string) (string, bool) {
	for _, pair := range p.pairs {
		if pair.key == key {
			return pair.value, true
		}
	}
	return "", false
}

// Encode returns the URL query string, without the leading '?'.
func (p Params) Encode() string {
	var builder strings.Builder
	for i, pair := range p.pairs {
		if i > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(pair.key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(pair.value))
	}
	return builder.String()
}
