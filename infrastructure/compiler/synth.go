package compiler

import (
	"fmt"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// importCandidates maps package selectors that may appear in a body to
// their import paths. Import statements are synthesized only for
// selectors the body actually uses, since an unused import is a
// compile error.
var importCandidates = map[string]string{
	"strings": "strings",
	"strconv": "strconv",
	"fmt":     "fmt",
	"math":    "math",
	"regexp":  "regexp",
	"json":    "encoding/json",
	"base64":  "encoding/base64",
	"time":    "time",
	"sort":    "sort",
	"bytes":   "bytes",
	"unicode": "unicode",
	"errors":  "errors",
}

var selectorPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(importCandidates))
	for sel := range importCandidates {
		patterns[sel] = regexp.MustCompile(`\b` + sel + `\.`)
	}
	return patterns
}()

// synthesize wraps a function body into a complete source file with a
// positional parameter for each schema property, in declaration order.
func synthesize(body string, props []tool.Property) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyBody
	}

	params := make([]string, 0, len(props))
	for _, p := range props {
		if !token.IsIdentifier(p.Name) {
			return "", fmt.Errorf("%w: %q", ErrInvalidParameter, p.Name)
		}
		params = append(params, p.Name+" "+goType(p.Type))
	}

	var b strings.Builder
	b.WriteString("package tools\n\n")
	for sel, path := range importCandidates {
		if selectorPatterns[sel].MatchString(body) {
			fmt.Fprintf(&b, "import %q\n", path)
		}
	}
	fmt.Fprintf(&b, "\nfunc run(%s) any {\n%s\n}\n", strings.Join(params, ", "), body)
	src := b.String()

	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "tool.go", src, 0); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return src, nil
}

// goType maps a JSON Schema type to the Go parameter type compiled
// bodies receive.
func goType(schemaType string) string {
	switch schemaType {
	case "string", "":
		return "string"
	case "number":
		return "float64"
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "array":
		return "[]any"
	case "object":
		return "map[string]any"
	default:
		return "any"
	}
}
