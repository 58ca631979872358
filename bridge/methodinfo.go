package bridge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chazu/objbridge/meta"
)

// ParamInfo describes one parameter of a method or signal.
type ParamInfo struct {
	TypeName  string
	Kind      meta.Kind
	ClassName string // expected class for object parameters, or foreign type name
}

// MethodInfo is the parsed form of a method or signal signature.
type MethodInfo struct {
	Signature string
	Name      string
	Params    []ParamInfo
}

// ParseSignature parses a signature such as "resized(int,int)".
func ParseSignature(signature string) (*MethodInfo, error) {
	sig := meta.NormalizeSignature(signature)
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("malformed signature %q", signature)
	}
	info := &MethodInfo{
		Signature: sig,
		Name:      sig[:open],
	}
	for _, typeName := range meta.SignatureParams(sig) {
		if typeName == "" {
			return nil, fmt.Errorf("malformed signature %q: empty parameter", signature)
		}
		kind, class := meta.KindForType(typeName)
		info.Params = append(info.Params, ParamInfo{
			TypeName:  typeName,
			Kind:      kind,
			ClassName: class,
		})
	}
	return info, nil
}

// MethodCache memoizes parsed signatures for the process lifetime.
type MethodCache struct {
	mu      sync.RWMutex
	entries map[string]*MethodInfo
}

// NewMethodCache creates an empty cache.
func NewMethodCache() *MethodCache {
	return &MethodCache{entries: make(map[string]*MethodInfo)}
}

// SignalInfo returns the cached MethodInfo for signature, parsing it on
// first use. The key is the exact signature string.
func (c *MethodCache) SignalInfo(signature string) (*MethodInfo, error) {
	c.mu.RLock()
	info, ok := c.entries[signature]
	c.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[signature]; ok {
		return existing, nil
	}
	c.entries[signature] = info
	return info, nil
}

// Len returns the number of cached signatures.
func (c *MethodCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
