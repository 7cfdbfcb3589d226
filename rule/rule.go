// Package rule implements [dagtalk.Resolver] with deterministic keyword
// matching. It needs no model and no network: verb keywords pick the tool,
// and DAG references come from explicit forms (dag_id=..., quoted names),
// catalog ID matches, or a unique word-overlap match against the catalog.
//
// Precedence is read-only first: status keywords win over list keywords,
// which win over trigger keywords, so mixed wording never starts a run by
// accident. An instruction with no verb keyword is unsupported; a trigger
// that cannot be pinned to exactly one DAG is ambiguous.
package rule

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dagtalk/dagtalk"
)

// Interface compliance check.
var _ dagtalk.Resolver = (*Resolver)(nil)

// Resolver resolves instructions by keyword matching.
type Resolver struct{}

// New creates a rule [Resolver].
func New() *Resolver {
	return &Resolver{}
}

type verbClass int

const (
	verbNone verbClass = iota
	verbStatus
	verbList
	verbTrigger
)

var (
	statusWords  = wordSet("status", "state", "progress", "check", "doing")
	listWords    = wordSet("list", "show", "available", "enumerate")
	triggerWords = wordSet("run", "trigger", "start", "launch", "execute", "kick", "rerun")

	// stopWords are ignored when scoring catalog entries against the
	// instruction.
	stopWords = wordSet("the", "a", "an", "of", "for", "and", "to")

	doubleQuotedRe = regexp.MustCompile("\"([^\"]+)\"|`([^`]+)`")
	// single quotes need word boundaries so possessives do not read as quotes
	singleQuotedRe = regexp.MustCompile(`(?:^|[\s(])'([^']+)'(?:[\s).,!?;:]|$)`)
	idTokenRe      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(?:[_-][A-Za-z0-9]+)+$`)
)

// runIDPrefixes are the run-ID naming schemes the orchestrator uses.
var runIDPrefixes = []string{"manual__", "scheduled__", "backfill__", "dataset_triggered__"}

// Resolve maps the instruction to exactly one intent, or classifies the
// failure as unsupported or ambiguous.
func (r *Resolver) Resolve(_ context.Context, req dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
	text := string(req.Instruction)
	if strings.TrimSpace(text) == "" {
		return dagtalk.Resolution{}, fmt.Errorf("rule: empty instruction: %w", dagtalk.ErrUnsupportedInstruction)
	}

	words := wordsOf(text)
	verb, verbWord := detectVerb(words)

	switch verb {
	case verbNone:
		return dagtalk.Resolution{}, fmt.Errorf("rule: no actionable verb in instruction: %w", dagtalk.ErrUnsupportedInstruction)

	case verbList:
		pattern, err := extractPattern(text)
		if err != nil {
			return dagtalk.Resolution{}, err
		}
		intent := dagtalk.ListDagsIntent{Pattern: pattern}
		return dagtalk.Resolution{Intent: intent, Explanation: explainList(verbWord, pattern)}, nil

	case verbStatus:
		ref, how, err := resolveDagRef(text, words, req.Catalog)
		if err != nil {
			return dagtalk.Resolution{}, err
		}
		if runID := extractRunID(text); runID != "" {
			intent := dagtalk.RunStatusIntent{DagID: ref, RunID: runID}
			return dagtalk.Resolution{Intent: intent, Explanation: explainRef(dagtalk.ToolRunStatus, verbWord, ref, how)}, nil
		}
		intent := dagtalk.DagStatusIntent{DagID: ref}
		return dagtalk.Resolution{Intent: intent, Explanation: explainRef(dagtalk.ToolDagStatus, verbWord, ref, how)}, nil

	default: // verbTrigger
		ref, how, err := resolveDagRef(text, words, req.Catalog)
		if err != nil {
			return dagtalk.Resolution{}, err
		}
		intent := dagtalk.TriggerDagIntent{DagID: ref, Conf: extractConf(text)}
		return dagtalk.Resolution{Intent: intent, Explanation: explainRef(dagtalk.ToolTriggerDag, verbWord, ref, how)}, nil
	}
}

// detectVerb returns the highest-precedence verb class present, and the
// word that matched it.
func detectVerb(words []string) (verbClass, string) {
	find := func(set map[string]bool) (string, bool) {
		for _, w := range words {
			if set[w] {
				return w, true
			}
		}
		return "", false
	}
	if w, ok := find(statusWords); ok {
		return verbStatus, w
	}
	if w, ok := find(listWords); ok {
		return verbList, w
	}
	// a plural mention of DAGs without any other verb reads as browsing
	for _, w := range words {
		if w == "dags" {
			if _, ok := find(triggerWords); !ok {
				return verbList, w
			}
			break
		}
	}
	if w, ok := find(triggerWords); ok {
		return verbTrigger, w
	}
	return verbNone, ""
}

// resolveDagRef extracts the one DAG the instruction refers to. The ladder
// runs from most to least explicit: dag_id=/dag= form, quoted name, catalog
// ID occurring in the text, ID-shaped token, word overlap with the catalog.
func resolveDagRef(text string, words []string, catalog []dagtalk.Dag) (dagtalk.DagRef, string, error) {
	if ref, ok := explicitRef(text); ok {
		return ref, "explicit", nil
	}
	if ref, ok, err := quotedRef(text, catalog); ok {
		return ref, "quoted name", err
	}
	if ref, ok, err := catalogIDInText(text, catalog); ok {
		return ref, "catalog match", err
	}
	if ref, ok, err := idShapedToken(text); ok {
		return ref, "literal", err
	}
	if ref, ok, err := fuzzyCatalogMatch(words, catalog); ok {
		return ref, "catalog match", err
	}
	return "", "", fmt.Errorf("rule: could not determine which DAG the instruction refers to: %w", dagtalk.ErrAmbiguousInstruction)
}

// explicitRef matches the dag_id=... and dag=... forms.
func explicitRef(text string) (dagtalk.DagRef, bool) {
	for _, tok := range tokensOf(text) {
		for _, prefix := range []string{"dag_id=", "dag="} {
			if v, ok := strings.CutPrefix(tok, prefix); ok && v != "" {
				return dagtalk.DagRef(strings.Trim(v, `"'`)), true
			}
		}
	}
	return "", false
}

// quotedRef matches a quoted DAG name against the catalog. A quoted name
// that misses the catalog is an error, not a fallthrough: the user named
// something the orchestrator does not know.
func quotedRef(text string, catalog []dagtalk.Dag) (dagtalk.DagRef, bool, error) {
	name := strings.TrimSpace(quotedName(text))
	if name == "" {
		return "", false, nil
	}
	for _, d := range catalog {
		if strings.EqualFold(string(d.ID), name) || strings.EqualFold(d.DisplayName, name) {
			return d.ID, true, nil
		}
	}
	if len(catalog) == 0 && !strings.ContainsAny(name, " \t") {
		return dagtalk.DagRef(name), true, nil
	}
	return "", true, fmt.Errorf("rule: quoted name %q matches no DAG in the catalog: %w", name, dagtalk.ErrAmbiguousInstruction)
}

// catalogIDInText finds catalog IDs occurring verbatim in the instruction.
// A hit that is a substring of another hit is discarded; more than one
// surviving hit means the instruction names several DAGs at once.
func catalogIDInText(text string, catalog []dagtalk.Dag) (dagtalk.DagRef, bool, error) {
	lower := strings.ToLower(text)
	var hits []dagtalk.DagRef
	for _, d := range catalog {
		if d.ID != "" && strings.Contains(lower, strings.ToLower(string(d.ID))) {
			hits = append(hits, d.ID)
		}
	}
	if len(hits) == 0 {
		return "", false, nil
	}
	var survivors []dagtalk.DagRef
	for _, h := range hits {
		contained := false
		for _, other := range hits {
			if h != other && strings.Contains(strings.ToLower(string(other)), strings.ToLower(string(h))) {
				contained = true
				break
			}
		}
		if !contained {
			survivors = append(survivors, h)
		}
	}
	if len(survivors) == 1 {
		return survivors[0], true, nil
	}
	return "", true, fmt.Errorf("rule: instruction names multiple DAGs (%s): %w", joinRefs(survivors), dagtalk.ErrAmbiguousInstruction)
}

// quotedName returns the first quoted span in the text, if any.
func quotedName(text string) string {
	if m := doubleQuotedRe.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	if m := singleQuotedRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// idShapedToken finds tokens that look like DAG IDs (snake_case, or
// kebab-case with at least two separators). Run IDs are excluded.
func idShapedToken(text string) (dagtalk.DagRef, bool, error) {
	var candidates []dagtalk.DagRef
	for _, tok := range tokensOf(text) {
		if isRunID(tok) || !idTokenRe.MatchString(tok) {
			continue
		}
		if !strings.Contains(tok, "_") && strings.Count(tok, "-") < 2 {
			continue
		}
		candidates = append(candidates, dagtalk.DagRef(tok))
	}
	switch len(candidates) {
	case 0:
		return "", false, nil
	case 1:
		return candidates[0], true, nil
	default:
		return "", true, fmt.Errorf("rule: instruction names multiple DAGs (%s): %w", joinRefs(candidates), dagtalk.ErrAmbiguousInstruction)
	}
}

// fuzzyCatalogMatch scores each catalog entry by how many of its ID and
// display-name words occur in the instruction. The match must be strong (at
// least two words, or every word of a short name) and strictly better than
// every other entry.
func fuzzyCatalogMatch(words []string, catalog []dagtalk.Dag) (dagtalk.DagRef, bool, error) {
	have := make(map[string]bool, len(words))
	for _, w := range words {
		have[w] = true
	}

	var best []dagtalk.DagRef
	top := 0
	for _, d := range catalog {
		entry := entryWords(d)
		score := 0
		for w := range entry {
			if have[w] {
				score++
			}
		}
		need := 2
		if len(entry) < need {
			need = len(entry)
		}
		if score == 0 || score < need {
			continue
		}
		switch {
		case score > top:
			top = score
			best = append(best[:0], d.ID)
		case score == top:
			best = append(best, d.ID)
		}
	}

	switch len(best) {
	case 0:
		return "", false, nil
	case 1:
		return best[0], true, nil
	default:
		return "", true, fmt.Errorf("rule: instruction matches multiple DAGs equally well (%s): %w", joinRefs(best), dagtalk.ErrAmbiguousInstruction)
	}
}

func entryWords(d dagtalk.Dag) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordsOf(string(d.ID)) {
		if !stopWords[w] {
			out[w] = true
		}
	}
	for _, w := range wordsOf(d.DisplayName) {
		if !stopWords[w] {
			out[w] = true
		}
	}
	return out
}

// extractRunID returns the first token shaped like an orchestrator run ID.
func extractRunID(text string) string {
	for _, tok := range tokensOf(text) {
		if isRunID(tok) {
			return tok
		}
	}
	return ""
}

func isRunID(tok string) bool {
	for _, p := range runIDPrefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

// extractPattern returns a glob token for list filtering, if any.
func extractPattern(text string) (string, error) {
	for _, tok := range tokensOf(text) {
		if !strings.ContainsAny(tok, "*[") {
			continue
		}
		if !doublestar.ValidatePattern(tok) {
			return "", fmt.Errorf("rule: invalid DAG pattern %q: %w", tok, dagtalk.ErrAmbiguousInstruction)
		}
		return tok, nil
	}
	return "", nil
}

// extractConf collects k=v tokens as run configuration. The dag_id=/dag=
// forms belong to reference extraction, not conf.
func extractConf(text string) map[string]string {
	var conf map[string]string
	for _, tok := range tokensOf(text) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" || k == "dag_id" || k == "dag" {
			continue
		}
		if conf == nil {
			conf = make(map[string]string)
		}
		conf[k] = strings.Trim(v, `"'`)
	}
	return conf
}

// wordsOf lowercases and splits on every non-alphanumeric rune, so
// payment_report_daily yields payment, report, daily.
func wordsOf(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokensOf splits on whitespace and strips sentence punctuation.
func tokensOf(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, ".,!?;:")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func wordSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func joinRefs(refs []dagtalk.DagRef) string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = string(r)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

func explainList(verbWord, pattern string) string {
	if pattern == "" {
		return fmt.Sprintf("Matched **%s**: keyword `%s`.", dagtalk.ToolListDags, verbWord)
	}
	return fmt.Sprintf("Matched **%s**: keyword `%s`, pattern `%s`.", dagtalk.ToolListDags, verbWord, pattern)
}

func explainRef(tool, verbWord string, ref dagtalk.DagRef, how string) string {
	return fmt.Sprintf("Matched **%s**: keyword `%s`, DAG `%s` (%s).", tool, verbWord, ref, how)
}
