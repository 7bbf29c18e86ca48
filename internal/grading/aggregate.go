package grading

import (
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/shopspring/decimal"
)

// gpaPlaces is the number of decimal places GPA is reported with.
const gpaPlaces = 2

// Aggregate is the derived summary of a record set.
type Aggregate struct {
	GPA           decimal.Decimal
	TotalCredits  int
	GradedCredits decimal.Decimal
	EarnedCredits decimal.Decimal
}

// Compute derives GPA and earned credits from records. It has no side effects, so the
// same input always yields the same Aggregate.
//
// GPA is the credit-weighted mean over records whose grade carries points, rounded
// half-to-even. Records without points stay out of the denominator and earn credit only
// through a pass symbol. With no graded credits GPA is zero.
func Compute(records []models.CourseRecord, scale *Scale) Aggregate {
	weighted := decimal.Zero
	graded := decimal.Zero
	earned := decimal.Zero
	for _, r := range records {
		if p, ok := scale.Points(r.Grade); ok {
			weighted = weighted.Add(r.Credits.Mul(p))
			graded = graded.Add(r.Credits)
		}
		if scale.Passed(r.Grade) {
			earned = earned.Add(r.Credits)
		}
	}
	agg := Aggregate{
		GPA:           decimal.Zero,
		GradedCredits: graded,
		EarnedCredits: earned,
		TotalCredits:  int(earned.RoundBank(0).IntPart()),
	}
	if graded.IsPositive() {
		agg.GPA = divRoundHalfEven(weighted, graded, gpaPlaces)
	}
	return agg
}

// divRoundHalfEven returns num/den rounded half-to-even at places, deciding ties from the
// exact remainder instead of a truncated quotient.
func divRoundHalfEven(num, den decimal.Decimal, places int32) decimal.Decimal {
	if num.IsNegative() || !den.IsPositive() {
		return num.Div(den).RoundBank(places)
	}
	scale := decimal.New(1, places)
	q, r := num.Mul(scale).QuoRem(den, 0)
	twice := r.Mul(decimal.NewFromInt(2))
	switch twice.Cmp(den) {
	case 1:
		q = q.Add(decimal.NewFromInt(1))
	case 0:
		if q.Mod(decimal.NewFromInt(2)).Sign() != 0 {
			q = q.Add(decimal.NewFromInt(1))
		}
	}
	return q.Div(scale).Round(places)
}
