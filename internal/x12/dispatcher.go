package x12

import (
	"strings"

	"github.com/pulsepipe/ingest/internal/x12/model"
)

// transactionTypeByGS01 maps the GS01 functional identifier code to the
// X12 transaction set it introduces, per the original
// _detect_transaction_type table.
var transactionTypeByGS01 = map[string]string{
	"HC": "837",
	"HP": "835",
	"HR": "834",
	"HI": "270",
	"HJ": "271",
	"HB": "276",
	"HN": "277",
	"HS": "278",
	"RT": "820",
	"FA": "999",
	"TA": "999",
	"RA": "277CA",
}

// Dispatch splits raw into segments on '~', detects the interchange's
// transaction type from its ISA/GS envelope, and walks every segment
// through the mapper registry in order, accumulating OperationalContent.
// It never returns an error for malformed input: an empty interchange
// yields a content with transaction_type UNKNOWN, and any other input is
// walked segment by segment as far as it goes. No ERROR transaction type
// is ever produced.
func Dispatch(raw string) *model.OperationalContent {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return emptyContent("UNKNOWN")
	}

	var segments []string
	for _, line := range strings.Split(raw, "~") {
		line = strings.TrimSpace(line)
		if line != "" {
			segments = append(segments, line)
		}
	}
	if len(segments) == 0 {
		return emptyContent("UNKNOWN")
	}

	txType, icn, gcn := detectEnvelope(segments)
	content := &model.OperationalContent{
		TransactionType:               txType,
		InterchangeControlNumber:      icn,
		FunctionalGroupControlNumber:  gcn,
		OrganizationID:                "UNKNOWN",
	}

	cache := model.MessageCache{}
	for _, segmentText := range segments {
		parts := strings.Split(segmentText, "*")
		segmentID := parts[0]
		elements := parts[1:]
		dispatchSegment(segmentID, elements, content, cache)
	}

	return content
}

func dispatchSegment(segmentID string, elements []string, content *model.OperationalContent, cache model.MessageCache) {
	mapper := findMapper(segmentID)
	if mapper == nil {
		return
	}
	mapper.Map(segmentID, elements, content, cache)
}

// detectEnvelope reads ISA13 (interchange control number) and GS01/GS06
// (transaction type / functional group control number) from the
// interchange envelope, stopping at the first GS segment as the original
// does ("we only expect one GS segment").
func detectEnvelope(segments []string) (transactionType, interchangeControlNumber, functionalGroupControlNumber string) {
	transactionType = "UNKNOWN"
	interchangeControlNumber = "UNKNOWN"
	functionalGroupControlNumber = "UNKNOWN"

	for _, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "ISA"):
			parts := strings.Split(seg, "*")
			if len(parts) > 13 {
				interchangeControlNumber = parts[13]
			}
		case strings.HasPrefix(seg, "GS"):
			parts := strings.Split(seg, "*")
			if len(parts) > 1 {
				if tx, ok := transactionTypeByGS01[parts[1]]; ok {
					transactionType = tx
				} else {
					transactionType = "UNKNOWN"
				}
			}
			if len(parts) > 6 {
				functionalGroupControlNumber = parts[6]
			}
			return transactionType, interchangeControlNumber, functionalGroupControlNumber
		}
	}
	return transactionType, interchangeControlNumber, functionalGroupControlNumber
}

func emptyContent(transactionType string) *model.OperationalContent {
	return &model.OperationalContent{
		TransactionType:              transactionType,
		InterchangeControlNumber:     transactionType,
		FunctionalGroupControlNumber: transactionType,
		OrganizationID:               "UNKNOWN",
	}
}
