// Command tenantlint scans the codebase for SQL that touches tenant-scoped
// tables without going through the tenant.Query builder. It is advisory:
// the guard itself fails closed at runtime, this catches bypasses earlier.
//
// Usage: go run ./scripts/tenantlint [dir]
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// skipDirs hold packages allowed to issue raw pool calls. The token
// repository looks rows up by globally unique secret hash before any tenant
// is known, and the tenant package is the chokepoint itself.
var skipDirs = map[string]bool{
	filepath.Join("internal", "tenant"): true,
	filepath.Join("internal", "token"):  true,
	filepath.Join("internal", "audit"):  true,
}

// rawQueryMethods are pgx pool/tx entry points that take SQL text directly.
var rawQueryMethods = map[string]bool{
	"Query":    true,
	"QueryRow": true,
	"Exec":     true,
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	tables := scopedTables()

	var findings []string
	err := filepath.Walk(filepath.Join(root, "internal"), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && skipDirs[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		found, scanErr := scanFile(path, tables)
		if scanErr != nil {
			return scanErr
		}
		findings = append(findings, found...)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenantlint: %v\n", err)
		os.Exit(2)
	}

	if len(findings) == 0 {
		fmt.Println("tenantlint: ok")
		return
	}
	for _, f := range findings {
		fmt.Println(f)
	}
	os.Exit(1)
}

// scopedTables derives the guarded table names from the isolation
// classification so the lint never drifts from the runtime table.
func scopedTables() map[string]bool {
	tables := make(map[string]bool)
	for kind, class := range tenant.Classification() {
		if class == tenant.ClassTenantScoped {
			tables[string(kind)] = true
		}
	}
	return tables
}

// scanFile reports raw Query/QueryRow/Exec calls whose SQL literal names a
// tenant-scoped table.
func scanFile(path string, tables map[string]bool) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	var findings []string
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !rawQueryMethods[sel.Sel.Name] {
			return true
		}
		for _, arg := range call.Args {
			lit, ok := arg.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			sql, err := strconv.Unquote(lit.Value)
			if err != nil {
				continue
			}
			// INSERTs carry the tenant id as a column value, not a
			// row filter, so they are out of the guard's remit.
			if strings.HasPrefix(strings.TrimSpace(strings.ToLower(sql)), "insert") {
				continue
			}
			if table := scopedTableIn(sql, tables); table != "" {
				pos := fset.Position(lit.Pos())
				findings = append(findings, fmt.Sprintf(
					"%s:%d: raw %s on tenant-scoped table %q bypasses the scope guard",
					pos.Filename, pos.Line, sel.Sel.Name, table))
			}
		}
		return true
	})
	return findings, nil
}

func scopedTableIn(sql string, tables map[string]bool) string {
	fields := strings.FieldsFunc(strings.ToLower(sql), func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, f := range fields {
		if tables[f] {
			return f
		}
	}
	return ""
}
