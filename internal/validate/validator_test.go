package validate

import (
	"testing"

	"github.com/hyperjump/gradsys/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func course(code, credits, term string) models.CourseRecord {
	return models.CourseRecord{
		CourseCode: code,
		Credits:    decimal.RequireFromString(credits),
		Grade:      models.Grade{Raw: "A", Symbol: "A"},
		Term:       term,
	}
}

func codes(errs []models.ValidationError) []models.ErrorCode {
	out := make([]models.ErrorCode, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	v := New(DefaultBounds())

	tests := []struct {
		name        string
		records     []models.CourseRecord
		parseErrs   []models.ValidationError
		wantVerdict Verdict
		wantCodes   []models.ErrorCode
	}{
		{
			name: "clean transcript",
			records: []models.CourseRecord{
				course("CS101", "3", "2023F"),
				course("CS102", "4", "2024S"),
			},
			wantVerdict: Valid,
			wantCodes:   []models.ErrorCode{},
		},
		{
			name: "duplicate course in same term reported once",
			records: []models.CourseRecord{
				course("CS101", "3", "2023F"),
				course("CS101", "3", "2023F"),
			},
			wantVerdict: Invalid,
			wantCodes:   []models.ErrorCode{models.CodeDuplicateCourse},
		},
		{
			name: "retake in a later term is not a duplicate",
			records: []models.CourseRecord{
				course("CS101", "3", "2023F"),
				course("CS101", "3", "2024F"),
			},
			wantVerdict: Valid,
			wantCodes:   []models.ErrorCode{},
		},
		{
			name: "duplicate ignores case and spacing",
			records: []models.CourseRecord{
				course("CS 101", "3", "2023f"),
				course("cs101", "3", " 2023F "),
			},
			wantVerdict: Invalid,
			wantCodes:   []models.ErrorCode{models.CodeDuplicateCourse},
		},
		{
			name:        "negative credits",
			records:     []models.CourseRecord{course("CS101", "-1", "2023F")},
			wantVerdict: Invalid,
			wantCodes:   []models.ErrorCode{models.CodeCreditsOutOfRange},
		},
		{
			name:        "credits above maximum",
			records:     []models.CourseRecord{course("CS101", "30.5", "2023F")},
			wantVerdict: Invalid,
			wantCodes:   []models.ErrorCode{models.CodeCreditsOutOfRange},
		},
		{
			name: "term order is only a warning",
			records: []models.CourseRecord{
				course("CS101", "3", "2024S"),
				course("CS102", "3", "2023F"),
			},
			wantVerdict: Valid,
			wantCodes:   []models.ErrorCode{models.CodeTermOrderViolation},
		},
		{
			name:    "parser findings are carried and coerced credits are not re-checked",
			records: []models.CourseRecord{course("CS101", "0", "2023F"), course("CS102", "3", "2023F")},
			parseErrs: []models.ValidationError{
				models.NewRowError(1, models.CodeUnknownGrade, "grade", "bad"),
				models.NewRowError(0, models.CodeFieldCoercion, "credits", "bad"),
			},
			wantVerdict: Invalid,
			wantCodes:   []models.ErrorCode{models.CodeFieldCoercion, models.CodeUnknownGrade},
		},
		{
			name:    "warnings alone keep the transcript valid",
			records: []models.CourseRecord{course("CS101", "3", "2023F")},
			parseErrs: []models.ValidationError{
				models.NewRowError(0, models.CodeLowConfidenceRow, "", "layout"),
			},
			wantVerdict: Valid,
			wantCodes:   []models.ErrorCode{models.CodeLowConfidenceRow},
		},
		{
			name: "all checks run together",
			records: []models.CourseRecord{
				course("CS101", "3", "2024F"),
				course("CS101", "3", "2024F"),
				course("CS102", "99", "2023F"),
			},
			wantVerdict: Invalid,
			wantCodes: []models.ErrorCode{
				models.CodeDuplicateCourse,
				models.CodeCreditsOutOfRange,
				models.CodeTermOrderViolation,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, errs := v.Validate(tt.records, tt.parseErrs)
			assert.Equal(t, tt.wantVerdict, verdict)
			assert.Equal(t, tt.wantCodes, codes(errs))
		})
	}
}

func TestValidate_orderedByRow(t *testing.T) {
	v := New(DefaultBounds())
	parseErrs := []models.ValidationError{
		models.NewRowError(2, models.CodeUnknownGrade, "grade", "x"),
		models.NewTranscriptError(models.CodeEmptyTranscript, "y"),
	}
	records := []models.CourseRecord{
		course("CS101", "3", "2023F"),
		course("CS102", "-2", "2023F"),
		course("CS103", "3", "2023F"),
	}
	_, errs := v.Validate(records, parseErrs)
	require.Len(t, errs, 3)
	assert.Nil(t, errs[0].RowIndex)
	assert.Equal(t, 1, *errs[1].RowIndex)
	assert.Equal(t, 2, *errs[2].RowIndex)
}

func TestValidate_doesNotMutateInput(t *testing.T) {
	v := New(DefaultBounds())
	parseErrs := []models.ValidationError{
		models.NewRowError(1, models.CodeUnknownGrade, "grade", "x"),
		models.NewRowError(0, models.CodeUnknownGrade, "grade", "y"),
	}
	records := []models.CourseRecord{course("CS101", "3", "2023F"), course("CS102", "3", "2023F")}
	v.Validate(records, parseErrs)
	assert.Equal(t, 1, *parseErrs[0].RowIndex)
}

func TestNewBounds(t *testing.T) {
	b, err := NewBounds(0, 20)
	require.NoError(t, err)
	assert.True(t, b.Max.Equal(decimal.NewFromInt(20)))

	_, err = NewBounds(-1, 20)
	assert.Error(t, err)
	_, err = NewBounds(10, 5)
	assert.Error(t, err)
}
