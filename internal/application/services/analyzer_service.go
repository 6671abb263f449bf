package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // registers the ValueExpr driver parser.New requires

	"github.com/docuforge/backend/internal/domain/models"
)

// AnalyzerService extracts structural facts from stored-procedure source:
// parameters, referenced tables and procedures, change markers, and a
// complexity score. Statements the SQL parser cannot handle degrade to
// regex-level extraction instead of failing the analysis.
type AnalyzerService struct {
	parser *parser.Parser
}

// NewAnalyzerService creates a new AnalyzerService
func NewAnalyzerService() *AnalyzerService {
	return &AnalyzerService{
		parser: parser.New(),
	}
}

var (
	procHeaderRe = regexp.MustCompile(`(?is)CREATE\s+(?:OR\s+ALTER\s+)?PROC(?:EDURE)?\s+(?:\[?([\w$]+)\]?\s*\.\s*)?\[?([\w$]+)\]?(.*?)\bAS\b`)
	paramRe      = regexp.MustCompile(`(?is)^@([\w$]+)\s+([A-Za-z_]\w*(?:\s*\([^)]*\))?)(?:\s*=\s*(.+?))?\s*(?:\b(?:OUTPUT|OUT)\b)?\s*$`)
	markerBegin  = regexp.MustCompile(`(?im)^\s*--\s*Begin\s+(BAS-[\w-]+)\s*$`)
	markerEnd    = regexp.MustCompile(`(?im)^\s*--\s*End\s+(BAS-[\w-]+)\s*$`)
	execRe       = regexp.MustCompile(`(?i)\b(?:EXEC(?:UTE)?|CALL)\s+(\[?[\w$]+\]?(?:\s*\.\s*\[?[\w$]+\]?)?)`)
	tableRefRe   = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO|UPDATE)\s+(\[?[\w$#@]+\]?(?:\s*\.\s*\[?[\w$]+\]?)*)`)
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	statementRe  = regexp.MustCompile(`(?im)^\s*(?:SELECT|INSERT|UPDATE|DELETE|MERGE|EXEC(?:UTE)?|DECLARE|SET|IF|WHILE|RETURN|RAISERROR|THROW|PRINT)\b`)
)

// Analyze parses one stored-procedure source and returns its extracted facts
func (a *AnalyzerService) Analyze(source string) (*models.ProcedureFacts, error) {
	m := procHeaderRe.FindStringSubmatch(source)
	if m == nil {
		return nil, fmt.Errorf("no CREATE PROCEDURE header found")
	}

	markers, err := extractMarkers(source)
	if err != nil {
		return nil, err
	}

	facts := &models.ProcedureFacts{
		SchemaName: m[1],
		Name:       m[2],
		Parameters: a.extractParameters(m[3]),
		Markers:    markers,
	}
	if facts.SchemaName == "" {
		facts.SchemaName = "dbo"
	}

	headerEnd := procHeaderRe.FindStringIndex(source)[1]
	body := source[headerEnd:]
	stripped := blockComment.ReplaceAllString(lineComment.ReplaceAllString(body, ""), "")

	facts.Tables = a.extractTables(stripped)
	facts.Procedures = extractProcedureCalls(stripped, facts.Name)
	facts.StatementCount = len(statementRe.FindAllString(stripped, -1))
	facts.MaxDepth = scanControlFlowDepth(stripped)
	facts.ComplexityScore = complexityScore(facts, stripped)

	return facts, nil
}

// extractParameters parses the declaration list between the procedure name
// and the AS keyword. Splits on commas outside parentheses so type lengths
// like DECIMAL(10,2) survive.
func (a *AnalyzerService) extractParameters(paramText string) []models.Parameter {
	var params []models.Parameter
	for _, decl := range splitTopLevel(paramText) {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		m := paramRe.FindStringSubmatch(decl)
		if m == nil {
			continue
		}
		p := models.Parameter{
			Name: "@" + m[1],
			Type: strings.ToUpper(collapseSpaces(m[2])),
		}
		if m[3] != "" {
			p.DefaultValue = strings.TrimSpace(m[3])
		}
		params = append(params, p)
	}
	return params
}

// extractTables collects referenced table names. Each statement is run
// through the SQL parser first; statements it rejects (T-SQL constructs,
// vendor syntax) fall back to keyword-based extraction.
func (a *AnalyzerService) extractTables(body string) []string {
	seen := make(map[string]struct{})

	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		nodes, _, err := a.parser.Parse(stmt, "", "")
		if err != nil || len(nodes) == 0 {
			collectTablesByRegex(stmt, seen)
			continue
		}

		visitor := &tableVisitor{tables: seen}
		for _, node := range nodes {
			node.Accept(visitor)
		}
	}

	return sortedKeys(seen)
}

// tableVisitor collects every table name in an AST
type tableVisitor struct {
	tables map[string]struct{}
}

func (v *tableVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if t, ok := in.(*ast.TableName); ok {
		name := t.Name.O
		if t.Schema.O != "" {
			name = t.Schema.O + "." + name
		}
		if name != "" {
			v.tables[name] = struct{}{}
		}
	}
	return in, false
}

func (v *tableVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

// collectTablesByRegex is the degraded extraction path for statements the
// parser rejects. Temp tables and variables are skipped.
func collectTablesByRegex(stmt string, seen map[string]struct{}) {
	for _, m := range tableRefRe.FindAllStringSubmatch(stmt, -1) {
		name := normalizeObjectName(m[1])
		if name == "" || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@") {
			continue
		}
		seen[name] = struct{}{}
	}
}

// extractProcedureCalls finds EXEC/CALL targets, excluding self-recursion
// and system procedures.
func extractProcedureCalls(body, selfName string) []string {
	seen := make(map[string]struct{})
	for _, m := range execRe.FindAllStringSubmatch(body, -1) {
		name := normalizeObjectName(m[1])
		if name == "" || strings.HasPrefix(strings.ToLower(name), "sp_") {
			continue
		}
		if strings.EqualFold(name, selfName) || strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(selfName)) {
			continue
		}
		seen[name] = struct{}{}
	}
	return sortedKeys(seen)
}

// extractMarkers pairs Begin/End change-marker comments and captures the
// source between them. Unbalanced markers are a validation error.
func extractMarkers(source string) ([]models.ChangeMarker, error) {
	begins := markerBegin.FindAllStringSubmatchIndex(source, -1)
	ends := markerEnd.FindAllStringSubmatchIndex(source, -1)

	matched := make(map[int]bool, len(ends))
	var markers []models.ChangeMarker
	for _, b := range begins {
		ref := source[b[2]:b[3]]
		stop := -1
		for i, e := range ends {
			if !matched[i] && e[0] >= b[1] && source[e[2]:e[3]] == ref {
				matched[i] = true
				stop = e[0]
				break
			}
		}
		if stop < 0 {
			return nil, fmt.Errorf("unbalanced change marker: Begin %s has no matching End", ref)
		}
		markers = append(markers, models.ChangeMarker{
			Ref: ref,
			SQL: strings.TrimSpace(source[b[1]:stop]),
		})
	}

	for i, e := range ends {
		if !matched[i] {
			return nil, fmt.Errorf("unbalanced change marker: End %s has no matching Begin", source[e[2]:e[3]])
		}
	}

	return markers, nil
}

// scanControlFlowDepth tracks BEGIN/END and CASE/END nesting and returns
// the deepest level reached. BEGIN TRAN/TRANSACTION does not open a block.
func scanControlFlowDepth(body string) int {
	tokens := strings.Fields(strings.ToUpper(body))
	depth, maxDepth := 0, 0
	for i, tok := range tokens {
		switch tok {
		case "BEGIN":
			if i+1 < len(tokens) && (tokens[i+1] == "TRAN" || tokens[i+1] == "TRANSACTION") {
				continue
			}
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case "CASE":
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case "END", "END;":
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// complexityScore maps the extracted facts onto a 0-100 scale
func complexityScore(facts *models.ProcedureFacts, body string) int {
	lines := strings.Count(body, "\n") + 1

	score := facts.StatementCount*2 +
		facts.MaxDepth*8 +
		len(facts.Tables)*3 +
		len(facts.Procedures)*4 +
		len(facts.Parameters)*2 +
		lines/20

	if score > 100 {
		score = 100
	}
	return score
}

// splitTopLevel splits on commas that are not inside parentheses
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func normalizeObjectName(raw string) string {
	name := strings.NewReplacer("[", "", "]", "", " ", "", "\t", "").Replace(raw)
	return strings.TrimSpace(name)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
