// Package classify turns an arbitrary Go error into a structured,
// severity-ranked diagnosis so the pipeline can decide whether a failure
// is recoverable, how to report it, and how often it is recurring.
// Grounded on the original error_classifier's rule table and the
// teacher's ratelimit.go circuit-breaker vocabulary for the network/
// timeout categories.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"
)

// Category is the top-level error taxonomy from spec.md §7.
type Category string

const (
	CategoryValidation     Category = "VALIDATION_ERROR"
	CategoryParse          Category = "PARSE_ERROR"
	CategorySchema         Category = "SCHEMA_ERROR"
	CategoryPermission     Category = "PERMISSION_ERROR"
	CategoryAuthentication Category = "AUTHENTICATION_ERROR"
	CategoryNetwork        Category = "NETWORK_ERROR"
	CategoryTimeout        Category = "TIMEOUT_ERROR"
	CategoryRateLimit      Category = "RATE_LIMIT_ERROR"
	CategorySystem         Category = "SYSTEM_ERROR"
	CategoryConfiguration  Category = "CONFIGURATION_ERROR"
	CategoryDatabase       Category = "DATABASE_ERROR"
)

// Severity ranks how serious a classified error is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Pattern names a specific, recognized failure shape within a Category.
type Pattern string

const (
	PatternJSONParse         Pattern = "JSON_PARSE_ERROR"
	PatternMemoryError       Pattern = "MEMORY_ERROR"
	PatternDiskFull          Pattern = "DISK_FULL"
	PatternPermissionDenied  Pattern = "PERMISSION_DENIED"
	PatternAuthFailure       Pattern = "AUTHENTICATION_FAILURE"
	PatternTimeout           Pattern = "TIMEOUT"
	PatternMissingField      Pattern = "MISSING_REQUIRED_FIELD"
	PatternConnectionRefused Pattern = "CONNECTION_REFUSED"
	PatternRateLimited       Pattern = "RATE_LIMITED"
	PatternUnknown           Pattern = "UNKNOWN_ERROR"
)

// Analysis is the diagnostic payload attached to a ClassifiedError.
type Analysis struct {
	Category            Category `json:"category"`
	Pattern             Pattern  `json:"pattern"`
	Severity            Severity `json:"severity"`
	Description         string   `json:"description"`
	RootCause           string   `json:"root_cause,omitempty"`
	Recommendations     []string `json:"recommendations,omitempty"`
	TechnicalDetails    string   `json:"technical_details,omitempty"`
	SimilarErrorsCount  int      `json:"similar_errors_count"`
	IsRecoverable       bool     `json:"is_recoverable"`
	ConfidenceScore     float64  `json:"confidence_score"`
}

// ClassifiedError is the full diagnosis of one error occurrence.
type ClassifiedError struct {
	Original  error          `json:"-"`
	Message   string         `json:"original_message"`
	Analysis  Analysis       `json:"analysis"`
	StageName string         `json:"stage_name,omitempty"`
	RecordID  string         `json:"record_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Stack     string         `json:"stack,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type messageRule struct {
	re       *regexp.Regexp
	category Category
	pattern  Pattern
}

var messageRules = []messageRule{
	{regexp.MustCompile(`(?i)missing required field`), CategoryValidation, PatternMissingField},
	{regexp.MustCompile(`(?i)connection refused`), CategoryNetwork, PatternConnectionRefused},
	{regexp.MustCompile(`(?i)rate limit`), CategoryRateLimit, PatternRateLimited},
	{regexp.MustCompile(`(?i)permission denied`), CategoryPermission, PatternPermissionDenied},
	{regexp.MustCompile(`(?i)unauthorized|authentication failed`), CategoryAuthentication, PatternAuthFailure},
	{regexp.MustCompile(`(?i)timed? ?out`), CategoryTimeout, PatternTimeout},
	{regexp.MustCompile(`(?i)out of memory|cannot allocate memory`), CategorySystem, PatternMemoryError},
	{regexp.MustCompile(`(?i)no space left on device|disk full`), CategorySystem, PatternDiskFull},
}

var severityTable = map[Pattern]struct {
	severity      Severity
	recoverable   bool
}{
	PatternMemoryError:      {SeverityCritical, false},
	PatternDiskFull:         {SeverityCritical, false},
	PatternPermissionDenied: {SeverityHigh, false},
	PatternAuthFailure:      {SeverityHigh, false},
	PatternJSONParse:        {SeverityMedium, true},
	PatternMissingField:     {SeverityMedium, true},
	PatternTimeout:          {SeverityMedium, true},
	PatternConnectionRefused: {SeverityMedium, true},
	PatternRateLimited:      {SeverityMedium, true},
	PatternUnknown:          {SeverityMedium, true},
}

// Classify diagnoses err, producing a ClassifiedError. stageName and
// recordID are attribution metadata; extraCtx is copied verbatim into
// Analysis's surrounding Context.
func Classify(err error, stageName, recordID string, extraCtx map[string]any) ClassifiedError {
	category, pattern, confidence := classifyByType(err)
	if category == "" {
		category, pattern, confidence = classifyByMessage(err)
	}
	if category == "" {
		category, pattern, confidence = CategorySystem, PatternUnknown, 0.3
	}

	sev := severityTable[pattern]
	if sev.severity == "" {
		sev.severity, sev.recoverable = SeverityMedium, true
	}

	return ClassifiedError{
		Original:  err,
		Message:   err.Error(),
		StageName: stageName,
		RecordID:  recordID,
		Context:   extraCtx,
		Timestamp: time.Now().UTC(),
		Analysis: Analysis{
			Category:        category,
			Pattern:         pattern,
			Severity:        sev.severity,
			Description:     describe(category, pattern),
			Recommendations: recommendationsFor(category, pattern),
			IsRecoverable:   sev.recoverable,
			ConfidenceScore: confidence,
		},
	}
}

// classifyByType performs the exact-type match tier, the highest-
// confidence rule: Go sentinel/stdlib error types and errors.Is targets.
func classifyByType(err error) (Category, Pattern, float64) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryNetwork, PatternTimeout, 0.95
	case errors.Is(err, os.ErrPermission):
		return CategoryPermission, PatternPermissionDenied, 0.95
	case errors.Is(err, io.ErrUnexpectedEOF):
		return CategoryParse, PatternJSONParse, 0.9
	}

	var syntaxErr *json.SyntaxError
	var unmarshalErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &unmarshalErr) {
		return CategoryParse, PatternJSONParse, 0.9
	}
	return "", "", 0
}

// classifyByMessage performs the message-pattern tier.
func classifyByMessage(err error) (Category, Pattern, float64) {
	msg := err.Error()
	for _, rule := range messageRules {
		if rule.re.MatchString(msg) {
			return rule.category, rule.pattern, 0.7
		}
	}
	return "", "", 0
}

func describe(category Category, pattern Pattern) string {
	return fmt.Sprintf("%s (%s)", category, pattern)
}

func recommendationsFor(category Category, pattern Pattern) []string {
	switch category {
	case CategoryNetwork, CategoryTimeout, CategoryRateLimit:
		return []string{"retry with backoff", "check connectivity to dependent service"}
	case CategorySystem:
		if pattern == PatternMemoryError || pattern == PatternDiskFull {
			return []string{"free resources or scale host", "investigate for a leak or runaway batch size"}
		}
		return []string{"inspect system logs"}
	case CategoryValidation, CategoryParse, CategorySchema:
		return []string{"inspect the offending record", "verify upstream producer's schema version"}
	case CategoryPermission, CategoryAuthentication:
		return []string{"verify credentials and file/service permissions"}
	default:
		return nil
	}
}

// Statistics aggregates a collection of ClassifiedErrors.
type Statistics struct {
	Total            int                `json:"total"`
	ByCategory       map[Category]int   `json:"by_category"`
	ByPattern        map[Pattern]int    `json:"by_pattern"`
	BySeverity       map[Severity]int   `json:"by_severity"`
	ByStage          map[string]int     `json:"by_stage"`
	MostCommonStage  string             `json:"most_common_stage,omitempty"`
	AverageConfidence float64           `json:"average_confidence"`
}

// Aggregate computes Statistics over errs.
func Aggregate(errs []ClassifiedError) Statistics {
	stats := Statistics{
		ByCategory: map[Category]int{},
		ByPattern:  map[Pattern]int{},
		BySeverity: map[Severity]int{},
		ByStage:    map[string]int{},
	}
	if len(errs) == 0 {
		return stats
	}

	var confidenceSum float64
	for _, e := range errs {
		stats.Total++
		stats.ByCategory[e.Analysis.Category]++
		stats.ByPattern[e.Analysis.Pattern]++
		stats.BySeverity[e.Analysis.Severity]++
		if e.StageName != "" {
			stats.ByStage[e.StageName]++
		}
		confidenceSum += e.Analysis.ConfidenceScore
	}
	stats.AverageConfidence = confidenceSum / float64(stats.Total)

	stages := make([]string, 0, len(stats.ByStage))
	for s := range stats.ByStage {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		if stats.ByStage[stages[i]] != stats.ByStage[stages[j]] {
			return stats.ByStage[stages[i]] > stats.ByStage[stages[j]]
		}
		return stages[i] < stages[j]
	})
	if len(stages) > 0 {
		stats.MostCommonStage = stages[0]
	}
	return stats
}
