package gen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const systemPrompt = "You are an expert in test automation. " +
	"You respond only with code, never with prose or markdown."

const promptTemplate = `Produce a COMPLETE TEST FILE for the code below.

STRICT CONSTRAINTS:
- Respond ONLY with code (no sentences, no explanations).
- NO markdown fences.
- Start your response with the FIRST LINE OF CODE (import/package/...).
- Include ALL required imports.
- Cover AT MINIMUM:
  - 1 nominal case
  - 1 error/boundary case (missing parameter, invalid type, edge value).
- Create minimal stubs if needed to make the tests runnable.
- Use the framework indicated below.

Target language: %s
Test type: %s
Expected framework: %s
Specific directives: %s

Code under test:
---
%s
---

RETURN ONLY THE TEST CODE, STARTING DIRECTLY WITH THE FIRST LINE OF CODE.`

// Endpoint is one HTTP route extracted from a Spring controller.
type Endpoint struct {
	Method string
	Path   string
	Params []string
}

var (
	springAnnotRe = regexp.MustCompile(
		`@RestController|@Controller|@RequestMapping|@GetMapping|@PostMapping|@PutMapping|@DeleteMapping`)

	methodMappingRe = regexp.MustCompile(
		`@(Get|Post|Put|Delete)Mapping\s*(?:\(\s*(?:value\s*=\s*)?"([^"]*)"\s*\))?`)

	requestMappingMethodRe = regexp.MustCompile(
		`@RequestMapping\s*\(\s*value\s*=\s*"([^"]+)"\s*,\s*method\s*=\s*RequestMethod\.(GET|POST|PUT|DELETE)\s*\)`)

	classRequestMappingRe = regexp.MustCompile(
		`@RequestMapping\s*\(\s*value\s*=\s*"([^"]+)"\s*\)`)

	requestParamRe = regexp.MustCompile(
		`@RequestParam(?:\s*\(\s*(?:name\s*=\s*)?(?:value\s*=\s*)?)?\s*"?([A-Za-z_][A-Za-z0-9_]*)"?`)

	classNameRe = regexp.MustCompile(`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// IsSpringController reports whether the source carries Spring MVC annotations.
func IsSpringController(src string) bool {
	return springAnnotRe.MatchString(src)
}

// ControllerClassName extracts the first declared class name, falling back
// to a placeholder when the source has none.
func ControllerClassName(src string) string {
	if m := classNameRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	return "ControllerUnderTest"
}

func classLevelPrefix(src string) string {
	if m := classRequestMappingRe.FindStringSubmatch(src); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ParseSpringEndpoints extracts the HTTP routes a Spring controller exposes,
// combining the class-level @RequestMapping prefix with method-level mappings.
func ParseSpringEndpoints(src string) []Endpoint {
	if src == "" {
		return nil
	}

	params := extractRequestParams(src)
	base := classLevelPrefix(src)

	var endpoints []Endpoint
	for _, m := range methodMappingRe.FindAllStringSubmatch(src, -1) {
		endpoints = append(endpoints, Endpoint{
			Method: strings.ToUpper(m[1]),
			Path:   joinPath(base, m[2]),
			Params: params,
		})
	}
	for _, m := range requestMappingMethodRe.FindAllStringSubmatch(src, -1) {
		endpoints = append(endpoints, Endpoint{
			Method: m[2],
			Path:   joinPath(base, m[1]),
			Params: params,
		})
	}

	return dedupeEndpoints(endpoints)
}

func extractRequestParams(src string) []string {
	seen := map[string]bool{}
	var params []string
	for _, m := range requestParamRe.FindAllStringSubmatch(src, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			params = append(params, m[1])
		}
	}
	sort.Strings(params)
	return params
}

func joinPath(base, path string) string {
	full := "/" + strings.Trim(base, "/") + "/" + strings.Trim(path, "/")
	full = strings.ReplaceAll(full, "//", "/")
	if full == "" || full == "/" {
		return "/"
	}
	return strings.TrimSuffix(full, "/")
}

func dedupeEndpoints(endpoints []Endpoint) []Endpoint {
	seen := map[string]bool{}
	var uniq []Endpoint
	for _, e := range endpoints {
		key := e.Method + " " + e.Path
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, e)
		}
	}
	return uniq
}

var frameworkHints = map[[2]string]string{
	{"java", "unit"}:          "JUnit 5 + AssertJ",
	{"java", "rest-assured"}:  "JUnit 5, Spring HTTP API tests (MockMvc or REST Assured)",
	{"java", "selenium"}:      "Selenium WebDriver + JUnit 5",
	{"python", "unit"}:        "pytest",
	{"python", "rest-assured"}: "requests + pytest",
	{"python", "selenium"}:    "selenium + pytest",
	{"javascript", "unit"}:    "Jest",
	{"javascript", "rest-assured"}: "supertest + Jest",
	{"javascript", "selenium"}: "selenium-webdriver + Jest",
	{"typescript", "unit"}:    "Jest (ts-jest)",
	{"typescript", "rest-assured"}: "supertest + Jest",
	{"typescript", "selenium"}: "selenium-webdriver + Jest",
	{"csharp", "unit"}:        "xUnit",
	{"csharp", "rest-assured"}: "RestSharp + xUnit",
	{"csharp", "selenium"}:    "Selenium WebDriver + xUnit",
	{"ruby", "unit"}:          "RSpec",
	{"ruby", "rest-assured"}:  "Faraday + RSpec",
	{"ruby", "selenium"}:      "selenium-webdriver + RSpec",
	{"go", "unit"}:            "testing",
	{"go", "rest-assured"}:    "net/http + testing",
	{"go", "selenium"}:        "chromedp (Selenium equivalent in Go)",
}

func frameworkHint(language, testType string) string {
	key := [2]string{strings.ToLower(language), strings.ToLower(testType)}
	if hint, ok := frameworkHints[key]; ok {
		return hint
	}
	return "Automated tests appropriate for the language and test type."
}

func domainHint(code, language, testType string) string {
	lang := strings.ToLower(language)
	tt := strings.ToLower(testType)
	if lang == "java" && (tt == "rest-assured" || tt == "unit") && IsSpringController(code) {
		return springHTTPHint(ParseSpringEndpoints(code))
	}
	return "No specific directives."
}

func springHTTPHint(endpoints []Endpoint) string {
	target := "one or more Spring REST endpoints"
	if len(endpoints) > 0 {
		var lines []string
		for _, e := range endpoints {
			params := strings.Join(e.Params, ", ")
			if params == "" {
				params = "none"
			}
			lines = append(lines, fmt.Sprintf("- %s %s (params: %s)", e.Method, e.Path, params))
		}
		target = "targets:\n" + strings.Join(lines, "\n")
	}
	return "Spring REST controller, " + target + "\n" +
		"You MUST test through MockMvc with @WebMvcTest(controllers=...). " +
		"Do NOT call the Java method directly, go through HTTP (mockMvc.perform(...)). " +
		"Include imports and annotations. Expected cases: nominal + errors (missing parameter, invalid type)."
}

// BuildPrompt assembles the full user prompt for a generation request.
func BuildPrompt(code, testType, language string) string {
	return fmt.Sprintf(promptTemplate,
		language,
		testType,
		frameworkHint(language, testType),
		domainHint(code, language, testType),
		code,
	)
}
