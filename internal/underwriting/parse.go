package underwriting

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	finalAmountPrefix = "FINAL_AMOUNT:"
	nsfCountPrefix    = "NSF_COUNT:"
	nsfFeesPrefix     = "NSF_FEES:"
)

// ParseFinalAmount scans a model response for the FINAL_AMOUNT sentinel line
// and returns the amount it carries.
func ParseFinalAmount(content string) (decimal.Decimal, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, finalAmountPrefix) {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(line, finalAmountPrefix))
		amount, err := parseAmount(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount format in %q", line)
		}
		return amount, nil
	}
	return decimal.Zero, fmt.Errorf("no FINAL_AMOUNT found in response")
}

// ParseNSF scans a model response for the NSF_COUNT and NSF_FEES sentinel
// lines. Both must be present.
func ParseNSF(content string) (int, decimal.Decimal, error) {
	var count *int
	var fees *decimal.Decimal

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, nsfCountPrefix):
			raw := strings.TrimSpace(strings.TrimPrefix(line, nsfCountPrefix))
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				continue
			}
			count = &parsed
		case strings.HasPrefix(line, nsfFeesPrefix):
			raw := strings.TrimSpace(strings.TrimPrefix(line, nsfFeesPrefix))
			parsed, err := parseAmount(raw)
			if err != nil {
				continue
			}
			fees = &parsed
		}
	}

	if count == nil || fees == nil {
		return 0, decimal.Zero, fmt.Errorf("missing NSF count or fees in response")
	}
	return *count, *fees, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	return decimal.NewFromString(raw)
}

// DecodeJSONResponse unmarshals a model response into v, tolerating markdown
// code fences and prose around the JSON payload.
func DecodeJSONResponse(content string, v any) error {
	trimmed := strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	if fenced, ok := extractFencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(fenced), v); err == nil {
			return nil
		}
	}

	// Fall back to the outermost bracketed region.
	for _, pair := range [][2]rune{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexRune(trimmed, pair[0])
		end := strings.LastIndexFunc(trimmed, func(r rune) bool { return r == pair[1] })
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("response is not valid JSON")
}

func extractFencedBlock(content string) (string, bool) {
	start := strings.Index(content, "```")
	if start < 0 {
		return "", false
	}
	rest := content[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop a language tag such as "json".
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
