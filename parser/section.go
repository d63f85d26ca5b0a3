package parser

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"terraform-logviewer-go/utils"
)

// Section classification.  Explicit fields win, then unambiguous "hard"
// markers in the message, then a token sweep, and finally weighted scoring
// over any soft hints.  Internal RPC method names such as
// PlanResourceChange contain "plan" as a substring and must not bias the
// result, hence the neutral-noise list.

var sectionFields = []string{"section", "phase", "stage", "operation", "command", "action", "step",
	"terraform_phase", "terraform_operation", "event_section", "phase_type"}
var sectionTokenFields = []string{"section", "phase", "stage", "operation", "command", "action", "step"}

// CLI argument lines (Terraform tflog).
var cliApplyRegex = regexp.MustCompile(`\bcli\s+(?:command\s+)?args?[^\n]*\bapply\b`)
var cliPlanRegex = regexp.MustCompile(`\bcli\s+(?:command\s+)?args?[^\n]*\bplan\b`)

// backend/local operation markers.
var startingApplyOpRegex = regexp.MustCompile(`\bbackend/local:\s*starting\s*apply\s*operation\b`)
var startingPlanOpRegex = regexp.MustCompile(`\bbackend/local:\s*starting\s*plan\s*operation\b`)
var applyOpCompletedRegex = regexp.MustCompile(`\bapply\s*operation\s*completed\b`)
var planOpCompletedRegex = regexp.MustCompile(`\bplan\s*operation\s*completed\b`)

// Other strong apply hints present in real logs.
var applyCallingApplyRegex = regexp.MustCompile(`\bapply\s+calling\s+apply\b`)
var applyWalkGraphRegex = regexp.MustCompile(`\bbuilding\s+and\s+walking\s+apply\s+graph\b`)

// Framework/protocol terms which must not bias plan/apply by substring alone.
var neutralNoise = []*regexp.Regexp{
	regexp.MustCompile(`planresourcechange`),
	regexp.MustCompile(`getproviderschema`),
	regexp.MustCompile(`validateresourceconfig`),
	regexp.MustCompile(`validatedataresourceconfig`),
	regexp.MustCompile(`upgraderesourcestate`),
	regexp.MustCompile(`vertex\s+"`),
	regexp.MustCompile(`schema\s+for\s+provider`),
	regexp.MustCompile(`statemgr\.filesystem`),
	regexp.MustCompile(`sdk\.proto`),
	regexp.MustCompile(`fwserver/server\.go`),
	regexp.MustCompile(`tf_proto_version`),
	regexp.MustCompile(`tf_provider_addr`),
	regexp.MustCompile(`tf_rpc`),
	regexp.MustCompile(`tf_resource_type`),
	regexp.MustCompile(`tf_data_source_type`),
}

// A heuristic is data, not a conditional: pattern, weight, and whether a
// match is decisive on its own.
type sectionHeuristic struct {
	re     *regexp.Regexp
	weight int
	hard   bool
}

var planHeuristics = []sectionHeuristic{
	{startingPlanOpRegex, 8, true},
	{planOpCompletedRegex, 7, true},
	{cliPlanRegex, 7, true},

	{regexp.MustCompile(`\bterraform(?:\s|-|:)plan\b`), 6, false},
	{regexp.MustCompile(`\bplan\s+phase\b`), 4, false},
	{regexp.MustCompile(`\bstarting\s+plan\b`), 4, false},
	{regexp.MustCompile(`\bgenerating\s+plan\b`), 4, false},
	{regexp.MustCompile(`\brefresh(?:ing)?\s+state\b`), 2, false},
	{regexp.MustCompile(`\bdry\s*-?run\b`), 3, false},
	{regexp.MustCompile(`\bspeculative\s+run\b`), 3, false},
	{regexp.MustCompile(`\bplan\s+summary\b`), 3, false},
	{regexp.MustCompile(`\bplan\s+output\b`), 2, false},
	{regexp.MustCompile(`\bplanned\s+actions\b`), 2, false},
}

var applyHeuristics = []sectionHeuristic{
	{startingApplyOpRegex, 8, true},
	{applyOpCompletedRegex, 7, true},
	{cliApplyRegex, 7, true},
	{applyCallingApplyRegex, 7, true},
	{applyWalkGraphRegex, 6, true},

	{regexp.MustCompile(`\bterraform(?:\s|-|:)apply\b`), 6, false},
	{regexp.MustCompile(`\bapply\s+phase\b`), 4, false},
	{regexp.MustCompile(`\bapply\s+start(?:ed|ing)?\b`), 4, false},
	{regexp.MustCompile(`\bapply\s+complete\b`), 5, false},
	{regexp.MustCompile(`\bapply\s+failed\b`), 5, false},
	{regexp.MustCompile(`\bcreation\s+complete\b`), 3, false},
	{regexp.MustCompile(`\bcreating\.{3}`), 2, false},
	{regexp.MustCompile(`\bmodifying\.{3}`), 2, false},
	{regexp.MustCompile(`\bupdating\.{3}`), 2, false},
}

var wholeWordPlanRegex = regexp.MustCompile(`\bplan\b`)
var wholeWordApplyRegex = regexp.MustCompile(`\bapply\b`)

type sectionScore struct {
	plan      int
	apply     int
	hardPlan  bool
	hardApply bool
}

// resolve applies the resolution rule: a single hard signal decides,
// contradictory hard signals stay unresolved, otherwise the winning score
// must lead by at least 3 and reach at least 6.
func (s *sectionScore) resolve() string {
	if s.hardApply != s.hardPlan {
		if s.hardApply {
			return utils.SECTION_APPLY
		}
		return utils.SECTION_PLAN
	}
	if s.hardApply && s.hardPlan {
		return ""
	}

	if s.apply >= s.plan+3 && s.apply >= 6 {
		return utils.SECTION_APPLY
	}
	if s.plan >= s.apply+3 && s.plan >= 6 {
		return utils.SECTION_PLAN
	}

	return ""
}

func resolveSection(node *gjson.Result, message string, tokens []kvToken) string {
	// 1) Explicit fields, if integrators pass them.
	explicit := ""
	if node != nil {
		if value, ok := findStringDeep(*node, sectionFields, maxFieldDepth); ok {
			explicit = normalizeSectionValue(value)
		}
	}
	if explicit == "" {
		explicit = normalizeSectionValue(tokenValue(tokens, sectionTokenFields))
	}
	if explicit != "" {
		return explicit
	}

	// 2) Hard markers in the message itself.  Contradictory hard markers
	// stay unresolved rather than letting either side win on check order.
	lower := strings.ToLower(message)
	hardApply := cliApplyRegex.MatchString(lower) || startingApplyOpRegex.MatchString(lower) ||
		applyCallingApplyRegex.MatchString(lower) || applyWalkGraphRegex.MatchString(lower) ||
		applyOpCompletedRegex.MatchString(lower)
	hardPlan := cliPlanRegex.MatchString(lower) || startingPlanOpRegex.MatchString(lower) ||
		planOpCompletedRegex.MatchString(lower)
	if hardApply && hardPlan {
		return utils.SECTION_UNKNOWN
	}
	if hardApply {
		return utils.SECTION_APPLY
	}
	if hardPlan {
		return utils.SECTION_PLAN
	}

	// 3) Token sweep: any token value naming the phase.
	for _, token := range tokens {
		if normalized := normalizeSectionValue(token.Value); normalized != "" {
			return normalized
		}
	}

	// 4) Weighted scoring over command fields, tokens and the message.
	score := &sectionScore{}
	if node != nil {
		scoreCommandFields(*node, score)
	}
	for _, token := range tokens {
		scoreText(token.Key, score, 1)
		scoreText(token.Value, score, 2)
	}
	scoreText(message, score, 3)

	if resolved := score.resolve(); resolved != "" {
		return resolved
	}

	// 5) Conservative fallback.
	return utils.SECTION_UNKNOWN
}

// scoreCommandFields scores command-like fields at a higher multiplier than
// free text, and treats cli_args mentioning apply/plan as a hard signal.
func scoreCommandFields(node gjson.Result, score *sectionScore) {
	for _, field := range []string{"command", "cli_command", "terraform_command", "operation"} {
		if value, ok := findStringDeep(node, []string{field}, maxFieldDepth); ok {
			scoreText(value, score, 4)
		}
	}

	terraform := objectField(node, "terraform")
	if terraform.IsObject() {
		scoreNode(objectField(terraform, "command"), score, 5)
		scoreNode(objectField(terraform, "cli_command"), score, 5)
		scoreNode(objectField(terraform, "operation"), score, 4)
		scoreNode(objectField(terraform, "phase"), score, 3)
		scoreNode(objectField(terraform, "stage"), score, 3)

		cliArgs := objectField(terraform, "cli_args")
		if containsText(cliArgs, "apply") {
			score.hardApply = true
		}
		if containsText(cliArgs, "plan") {
			score.hardPlan = true
		}
		scoreNode(cliArgs, score, 5)
		scoreNode(objectField(terraform, "arguments"), score, 3)
	}

	// tflog occasionally surfaces the operation hint in the message field.
	for _, field := range []string{"@message", "message"} {
		value := objectField(node, field)
		if value.Type == gjson.String {
			scoreText(value.String(), score, 4)
		}
	}
}

func scoreNode(node gjson.Result, score *sectionScore, multiplier int) {
	if !node.Exists() {
		return
	}
	if node.Type == gjson.String {
		scoreText(node.String(), score, multiplier)
	} else if node.IsArray() {
		node.ForEach(func(_, element gjson.Result) bool {
			if element.Type == gjson.String {
				scoreText(element.String(), score, multiplier)
			}
			return true
		})
	}
}

func containsText(node gjson.Result, keyword string) bool {
	if !node.Exists() || keyword == "" {
		return false
	}
	if node.Type == gjson.String {
		return strings.Contains(strings.ToLower(node.String()), keyword)
	}
	if node.IsArray() {
		found := false
		node.ForEach(func(_, element gjson.Result) bool {
			if containsText(element, keyword) {
				found = true
				return false
			}
			return true
		})
		return found
	}
	return false
}

func scoreText(text string, score *sectionScore, multiplier int) {
	if !utils.HasText(text) {
		return
	}

	normalized := strings.ToLower(text)

	// Framework noise contributes nothing.
	for _, noise := range neutralNoise {
		if noise.MatchString(normalized) {
			return
		}
	}

	if startingApplyOpRegex.MatchString(normalized) || applyOpCompletedRegex.MatchString(normalized) ||
		applyCallingApplyRegex.MatchString(normalized) || applyWalkGraphRegex.MatchString(normalized) ||
		cliApplyRegex.MatchString(normalized) {
		score.hardApply = true
	}
	if startingPlanOpRegex.MatchString(normalized) || planOpCompletedRegex.MatchString(normalized) ||
		cliPlanRegex.MatchString(normalized) {
		score.hardPlan = true
	}

	for _, h := range planHeuristics {
		if h.re.MatchString(normalized) {
			score.plan += h.weight * multiplier
			if h.hard {
				score.hardPlan = true
			}
		}
	}
	for _, h := range applyHeuristics {
		if h.re.MatchString(normalized) {
			score.apply += h.weight * multiplier
			if h.hard {
				score.hardApply = true
			}
		}
	}

	// Whole-word mentions get a small boost, but only when the other term is
	// absent from the same text.
	planWord := wholeWordPlanRegex.MatchString(normalized)
	applyWord := wholeWordApplyRegex.MatchString(normalized)
	if planWord && !applyWord {
		score.plan += multiplier
	} else if applyWord && !planWord {
		score.apply += multiplier
	}
}

func normalizeSectionValue(value string) string {
	if !utils.HasText(value) {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(value))
	if strings.Contains(normalized, "apply") {
		return utils.SECTION_APPLY
	}
	if strings.Contains(normalized, "plan") {
		return utils.SECTION_PLAN
	}
	return ""
}
