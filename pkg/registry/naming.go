package registry

import (
	"strings"
	"unicode"
)

// reservedModules are module paths too generic to prefix a service name.
var reservedModules = map[string]struct{}{
	"service.app": {}, "service.service": {},
	"services.app": {}, "services.service": {},
	"src.service": {}, "src.app": {},
	"code.service": {}, "code.app": {},
	"app.service": {}, "app.app": {},
	"apps.service": {}, "apps.app": {},
	"example.service": {}, "example.app": {},
	"examples.service": {}, "examples.app": {},
	"test.service": {}, "test.app": {},
	"tests.service": {}, "tests.app": {},
}

// DeriveName builds a service name from the module path and type name.
//
// The last two elements of the module path (separated by "." or "/")
// prefix the kebab-cased type name, unless the path is empty or one of the
// generic layouts such as "service.app". A result of "app" or "service"
// collapses to "service".
//
// Runs of capitals stay together and repeated hyphens collapse, so an
// acronym type such as HTTPService becomes "http-service". Naming schemes
// that hyphenate every capital ("h-t-t-p-service") derive a different name
// for the same type; set WithName to keep such an identity.
//
//	DeriveName("shop.orders", "OrderService") // "shop-orders-order-service"
//	DeriveName("tests.service", "HTTPService") // "http-service"
func DeriveName(modulePath, typeName string) string {
	name := modulePrefix(modulePath) + kebab(typeName)
	name = collapseHyphens(name)

	if name == "app" || name == "service" {
		return "service"
	}
	return name
}

func modulePrefix(modulePath string) string {
	p := strings.Trim(strings.ReplaceAll(modulePath, "/", "."), ".")
	if p == "" {
		return ""
	}
	if _, ok := reservedModules[p]; ok {
		return ""
	}

	parts := strings.Split(p, ".")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	prefix := strings.Join(parts, "-")
	return strings.ReplaceAll(prefix, "_", "-") + "-"
}

// kebab lower-cases s and inserts a hyphen at every word boundary.
// Acronyms stay together: "HTTPService" becomes "http-service".
func kebab(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	for i, r := range runes {
		if r == '_' {
			b.WriteByte('-')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func collapseHyphens(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
