package compiler

import (
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// sandboxPackages is the import whitelist for sandboxed mode. Packages
// with filesystem, network, process, or unsafe access are excluded.
var sandboxPackages = map[string]bool{
	"strings":         true,
	"strconv":         true,
	"fmt":             true,
	"math":            true,
	"math/rand":       true,
	"regexp":          true,
	"encoding/json":   true,
	"encoding/base64": true,
	"time":            true,
	"sort":            true,
	"bytes":           true,
	"unicode":         true,
	"unicode/utf8":    true,
	"errors":          true,
}

// symbols returns the interpreter symbol table for the compiler's mode.
func (c *Compiler) symbols() interp.Exports {
	if c.mode != ModeSandboxed {
		return stdlib.Symbols
	}

	filtered := make(interp.Exports)
	for key, syms := range stdlib.Symbols {
		// Symbol table keys are "importpath/pkgname".
		idx := strings.LastIndex(key, "/")
		if idx < 0 {
			continue
		}
		if sandboxPackages[key[:idx]] {
			filtered[key] = syms
		}
	}
	return filtered
}
