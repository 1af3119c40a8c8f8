package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseFinalAmount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "plain",
			content: "Here is my work.\n1 + 2\nFINAL_AMOUNT:1234.56",
			want:    "1234.56",
		},
		{
			name:    "with currency formatting",
			content: "FINAL_AMOUNT: $12,345.00",
			want:    "12345",
		},
		{
			name:    "surrounded by prose",
			content: "Step 1...\nFINAL_AMOUNT:987.10\nThanks!",
			want:    "987.1",
		},
		{
			name:    "missing sentinel",
			content: "The average balance is 1234.56",
			wantErr: true,
		},
		{
			name:    "garbage amount",
			content: "FINAL_AMOUNT:around four grand",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFinalAmount(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFinalAmount: %v", err)
			}
			want, _ := decimal.NewFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestParseNSF(t *testing.T) {
	count, fees, err := ParseNSF("Found 3 NSF fees:\n- Jan 5: $35\n- Jan 9: $35\n- Feb 2: $35\nNSF_COUNT:3\nNSF_FEES:105.00")
	if err != nil {
		t.Fatalf("ParseNSF: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if !fees.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("expected fees 105, got %s", fees)
	}
}

func TestParseNSFZero(t *testing.T) {
	count, fees, err := ParseNSF("No NSF activity found.\nNSF_COUNT:0\nNSF_FEES:0.00")
	if err != nil {
		t.Fatalf("ParseNSF: %v", err)
	}
	if count != 0 || !fees.IsZero() {
		t.Fatalf("expected zero NSF, got count=%d fees=%s", count, fees)
	}
}

func TestParseNSFMissingLines(t *testing.T) {
	if _, _, err := ParseNSF("NSF_COUNT:2"); err == nil {
		t.Fatalf("expected error when NSF_FEES is missing")
	}
	if _, _, err := ParseNSF("There were two NSF fees totaling $70."); err == nil {
		t.Fatalf("expected error when both sentinels are missing")
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	type row struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
	}

	tests := []struct {
		name    string
		content string
	}{
		{name: "bare", content: `[{"date":"2024-01-02","amount":"10.50"}]`},
		{name: "fenced", content: "```json\n[{\"date\":\"2024-01-02\",\"amount\":\"10.50\"}]\n```"},
		{name: "prose wrapped", content: "Here are the balances:\n[{\"date\":\"2024-01-02\",\"amount\":\"10.50\"}]\nLet me know."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rows []row
			if err := DecodeJSONResponse(tc.content, &rows); err != nil {
				t.Fatalf("DecodeJSONResponse: %v", err)
			}
			if len(rows) != 1 || rows[0].Date != "2024-01-02" {
				t.Fatalf("unexpected rows %v", rows)
			}
		})
	}

	var rows []row
	if err := DecodeJSONResponse("no json here", &rows); err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
}
