package notice

import "strconv"

// Notice codes. They are stable identifiers consumed by report readers.
const (
	// File level
	CodeMissingRequiredFile    = "missing_required_file"
	CodeMissingRecommendedFile = "missing_recommended_file"
	CodeEmptyFile              = "empty_file"
	CodeCSVParsingFailed       = "csv_parsing_failed"
	CodeUnknownFile            = "unknown_file"

	// Header level
	CodeMissingRequiredColumn    = "missing_required_column"
	CodeMissingRecommendedColumn = "missing_recommended_column"
	CodeDuplicatedColumn         = "duplicated_column"
	CodeEmptyColumnName          = "empty_column_name"
	CodeUnknownColumn            = "unknown_column"

	// Row and field level
	CodeInvalidRowLength       = "invalid_row_length"
	CodeMissingRequiredField   = "missing_required_field"
	CodeMissingRecommendedFld  = "missing_recommended_field"
	CodeNumberOutOfRange       = "number_out_of_range"
	CodeUnexpectedEnumValue    = "unexpected_enum_value"
	CodeLeadingTrailingSpace   = "leading_or_trailing_whitespaces"
	CodeNewLineInValue         = "new_line_in_value"
	CodeNonASCIIOrNonPrintable = "non_ascii_or_non_printable_char"

	// Table level
	CodeDuplicateKey       = "duplicate_key"
	CodeMoreThanOneEntity  = "more_than_one_entity"
	CodeForeignKeyViolated = "foreign_key_violation"

	// Entity level
	CodeRangeOutOfOrder       = "start_and_end_range_out_of_order"
	CodeRangeEqual            = "start_and_end_range_equal"
	CodePointNearOrigin       = "point_near_origin"
	CodePointNearPole         = "point_near_pole"
	CodeInvalidCurrencyAmount = "invalid_currency_amount"
	CodeMixedCaseRecommended  = "mixed_case_recommended_field"
	CodeInvalidCharacter      = "invalid_character"
)

// InvalidValueCode returns the parse error code of a semantic type, e.g. invalid_date.
func InvalidValueCode(semanticType string) string {
	return "invalid_" + semanticType
}

// --- File level ---

// MissingFile reports an absent table. Only required and recommended tables produce one.
func MissingFile(filename string, required bool) Notice {
	if required {
		return New(CodeMissingRequiredFile, SeverityError, filename)
	}
	return New(CodeMissingRecommendedFile, SeverityWarning, filename)
}

func EmptyFile(filename string) Notice {
	return New(CodeEmptyFile, SeverityError, filename)
}

func CSVParsingFailed(filename string, row int, err error) Notice {
	return New(CodeCSVParsingFailed, SeverityError, filename).
		With(KeyRowNumber, row).
		With("message", err.Error())
}

func UnknownFile(filename string) Notice {
	return New(CodeUnknownFile, SeverityInfo, filename)
}

// --- Header level ---

func MissingColumn(filename, field string, required bool) Notice {
	if required {
		return New(CodeMissingRequiredColumn, SeverityError, filename).With(KeyFieldName, field)
	}
	return New(CodeMissingRecommendedColumn, SeverityWarning, filename).With(KeyFieldName, field)
}

func DuplicatedColumn(filename, field string, first, second int) Notice {
	return New(CodeDuplicatedColumn, SeverityError, filename).
		With(KeyFieldName, field).
		With("firstIndex", first).
		With("secondIndex", second)
}

func EmptyColumnName(filename string, index int) Notice {
	return New(CodeEmptyColumnName, SeverityWarning, filename).With(KeyColumnIndex, index)
}

func UnknownColumn(filename, field string, index int) Notice {
	return New(CodeUnknownColumn, SeverityInfo, filename).
		With(KeyFieldName, field).
		With(KeyColumnIndex, index)
}

// --- Row and field level ---

func InvalidRowLength(filename string, row, rowLength, headerCount int) Notice {
	return New(CodeInvalidRowLength, SeverityError, filename).
		With(KeyRowNumber, row).
		With(KeyRowLength, rowLength).
		With(KeyHeaderCount, headerCount)
}

func fieldNotice(code string, sev Severity, filename string, row int, field string) Notice {
	return New(code, sev, filename).With(KeyRowNumber, row).With(KeyFieldName, field)
}

// MissingValue reports an empty required or recommended field.
func MissingValue(filename string, row int, field string, required bool) Notice {
	if required {
		return fieldNotice(CodeMissingRequiredField, SeverityError, filename, row, field)
	}
	return fieldNotice(CodeMissingRecommendedFld, SeverityWarning, filename, row, field)
}

// InvalidValue reports a value that does not parse as its semantic type.
func InvalidValue(filename string, row int, field, semanticType, value string) Notice {
	return fieldNotice(InvalidValueCode(semanticType), SeverityError, filename, row, field).
		With(KeyFieldValue, value)
}

func NumberOutOfRange(filename string, row int, field, bounds string, value any) Notice {
	return fieldNotice(CodeNumberOutOfRange, SeverityError, filename, row, field).
		With("bounds", bounds).
		With(KeyFieldValue, value)
}

func UnexpectedEnumValue(filename string, row int, field string, value int) Notice {
	return fieldNotice(CodeUnexpectedEnumValue, SeverityWarning, filename, row, field).
		With(KeyFieldValue, value)
}

func LeadingOrTrailingWhitespace(filename string, row int, field, value string) Notice {
	return fieldNotice(CodeLeadingTrailingSpace, SeverityWarning, filename, row, field).
		With(KeyFieldValue, value)
}

func NewLineInValue(filename string, row int, field, value string) Notice {
	return fieldNotice(CodeNewLineInValue, SeverityError, filename, row, field).
		With(KeyFieldValue, value)
}

func NonASCIIOrNonPrintable(filename string, row int, field, value string) Notice {
	return fieldNotice(CodeNonASCIIOrNonPrintable, SeverityWarning, filename, row, field).
		With(KeyFieldValue, value)
}

// --- Table level ---

// DuplicateKey names the key fields and values, the new row and the row that kept the slot.
func DuplicateKey(filename string, row, prevRow int, fields []string, values []any) Notice {
	n := New(CodeDuplicateKey, SeverityError, filename).
		With(KeyRowNumber, row).
		With(KeyPrevRow, prevRow)
	if len(fields) == 1 {
		return n.With(KeyFieldName, fields[0]).With(KeyFieldValue, values[0])
	}
	for i, f := range fields {
		n = n.With(KeyFieldName+strconv.Itoa(i+1), f).With(KeyFieldValue+strconv.Itoa(i+1), values[i])
	}
	return n
}

func MoreThanOneEntity(filename string, count int) Notice {
	return New(CodeMoreThanOneEntity, SeverityError, filename).With(KeyEntityCount, count)
}

func ForeignKeyViolation(childFile, childField, parentFile, parentField string, value any, row int) Notice {
	return New(CodeForeignKeyViolated, SeverityError, childFile).
		With(KeyChildFile, childFile).
		With(KeyChildField, childField).
		With(KeyParentFile, parentFile).
		With(KeyParentField, parentField).
		With(KeyFieldValue, value).
		With(KeyRowNumber, row)
}

// --- Entity level ---

func RangeOutOfOrder(filename string, row int, startField, endField string, start, end any) Notice {
	return New(CodeRangeOutOfOrder, SeverityError, filename).
		With(KeyRowNumber, row).
		With("startFieldName", startField).
		With("startValue", start).
		With("endFieldName", endField).
		With("endValue", end)
}

func RangeEqual(filename string, row int, startField, endField string, value any) Notice {
	return New(CodeRangeEqual, SeverityError, filename).
		With(KeyRowNumber, row).
		With("startFieldName", startField).
		With("endFieldName", endField).
		With(KeyFieldValue, value)
}

func PointNearOrigin(filename string, row int, latField string, lat float64, lonField string, lon float64) Notice {
	return pointNotice(CodePointNearOrigin, filename, row, latField, lat, lonField, lon)
}

func PointNearPole(filename string, row int, latField string, lat float64, lonField string, lon float64) Notice {
	return pointNotice(CodePointNearPole, filename, row, latField, lat, lonField, lon)
}

func pointNotice(code, filename string, row int, latField string, lat float64, lonField string, lon float64) Notice {
	return New(code, SeverityWarning, filename).
		With(KeyRowNumber, row).
		With("latFieldName", latField).
		With("latFieldValue", lat).
		With("lonFieldName", lonField).
		With("lonFieldValue", lon)
}

func InvalidCurrencyAmount(filename string, row int, amountField, amount, currencyCode string) Notice {
	return fieldNotice(CodeInvalidCurrencyAmount, SeverityError, filename, row, amountField).
		With(KeyFieldValue, amount).
		With(KeyCurrencyCode, currencyCode)
}

func MixedCaseRecommended(filename string, row int, field, value string) Notice {
	return fieldNotice(CodeMixedCaseRecommended, SeverityWarning, filename, row, field).
		With(KeyFieldValue, value)
}

func InvalidCharacter(filename string, row int, field, value string) Notice {
	return fieldNotice(CodeInvalidCharacter, SeverityError, filename, row, field).
		With(KeyFieldValue, value)
}
