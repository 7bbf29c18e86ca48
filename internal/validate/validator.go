// Package validate runs cross-record checks over parsed course records and decides
// whether a transcript may be processed.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/shopspring/decimal"
)

// Verdict is the outcome of validating one transcript.
type Verdict string

const (
	Valid   Verdict = "valid"
	Invalid Verdict = "invalid"
)

// Bounds is the inclusive range of credits a single course may carry.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultBounds allows 0 to 30 credits per course.
func DefaultBounds() Bounds {
	return Bounds{Min: decimal.Zero, Max: decimal.NewFromInt(30)}
}

// NewBounds builds bounds from configuration values.
func NewBounds(min, max float64) (Bounds, error) {
	if min < 0 {
		return Bounds{}, fmt.Errorf("credit bounds: minimum %v is negative", min)
	}
	if max < min {
		return Bounds{}, fmt.Errorf("credit bounds: maximum %v below minimum %v", max, min)
	}
	return Bounds{Min: decimal.NewFromFloat(min), Max: decimal.NewFromFloat(max)}, nil
}

// Validator is immutable and may be shared between goroutines.
type Validator struct {
	bounds Bounds
}

// New returns a validator enforcing b.
func New(b Bounds) *Validator {
	return &Validator{bounds: b}
}

// Validate runs every check over records and merges the findings with parseErrs, the
// row findings the parser produced for the same records. All checks run regardless of
// earlier findings. The result is ordered by row, transcript-level findings first.
func (v *Validator) Validate(records []models.CourseRecord, parseErrs []models.ValidationError) (Verdict, []models.ValidationError) {
	errs := make([]models.ValidationError, 0, len(parseErrs))
	errs = append(errs, parseErrs...)
	errs = append(errs, duplicates(records)...)
	errs = append(errs, v.creditRange(records, parseErrs)...)
	errs = append(errs, termOrder(records)...)

	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i].RowIndex, errs[j].RowIndex
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return *a < *b
	})

	if models.HasFatal(errs) {
		return Invalid, errs
	}
	return Valid, errs
}

// duplicates reports every repeat of a (course code, term) pair after its first row.
func duplicates(records []models.CourseRecord) []models.ValidationError {
	var errs []models.ValidationError
	first := make(map[string]int, len(records))
	for i, r := range records {
		code := strings.Join(strings.Fields(strings.ToUpper(r.CourseCode)), "")
		if code == "" {
			continue
		}
		key := code + "\x00" + strings.ToUpper(strings.TrimSpace(r.Term))
		if at, seen := first[key]; seen {
			errs = append(errs, models.NewRowError(i, models.CodeDuplicateCourse, parser.FieldCourseCode,
				fmt.Sprintf("%s in term %q already listed at row %d", r.CourseCode, r.Term, at)))
			continue
		}
		first[key] = i
	}
	return errs
}

func (v *Validator) creditRange(records []models.CourseRecord, parseErrs []models.ValidationError) []models.ValidationError {
	unreadable := make(map[int]bool)
	for _, e := range parseErrs {
		if e.RowIndex != nil && e.Code == models.CodeFieldCoercion && e.Field == parser.FieldCredits {
			unreadable[*e.RowIndex] = true
		}
	}
	var errs []models.ValidationError
	for i, r := range records {
		if unreadable[i] {
			continue
		}
		if r.Credits.LessThan(v.bounds.Min) || r.Credits.GreaterThan(v.bounds.Max) {
			errs = append(errs, models.NewRowError(i, models.CodeCreditsOutOfRange, parser.FieldCredits,
				fmt.Sprintf("credits %s outside %s-%s", r.Credits, v.bounds.Min, v.bounds.Max)))
		}
	}
	return errs
}

// termOrder compares each recognisable term with the previous recognisable one.
func termOrder(records []models.CourseRecord) []models.ValidationError {
	var (
		errs     []models.ValidationError
		prev     int
		prevTerm string
		havePrev bool
	)
	for i, r := range records {
		key, ok := termKey(r.Term)
		if !ok {
			continue
		}
		if havePrev && key < prev {
			errs = append(errs, models.NewRowError(i, models.CodeTermOrderViolation, parser.FieldTerm,
				fmt.Sprintf("term %q comes after %q but is earlier", r.Term, prevTerm)))
		}
		prev, prevTerm, havePrev = key, r.Term, true
	}
	return errs
}
