package receiptparser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
)

const receiptPrompt = `Analyze this receipt image and extract the following fields as JSON:
{
  "date": "YYYY-MM-DD",
  "amount": <total amount as a number>,
  "currency": "<three letter currency code, default TRY>",
  "merchant": "<merchant or vendor name>",
  "category": "<one of: Yemek, Ulaşım, Konaklama, Malzeme, Diğer>",
  "description": "<one short sentence describing the purchase>",
  "is_boarding_pass": <true if the document is a boarding pass>,
  "is_info_slip": <true if the document is informational and has no monetary value>
}
Respond with the JSON object only.`

// ParsedReceipt is the structured result extracted from a receipt image.
type ParsedReceipt struct {
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Merchant       string          `json:"merchant"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	IsBoardingPass bool            `json:"is_boarding_pass"`
	IsInfoSlip     bool            `json:"is_info_slip"`
}

// Parser extracts expense fields from a receipt document.
type Parser interface {
	ParseReceipt(ctx context.Context, data []byte, mimeType string) (*ParsedReceipt, error)
}

type Config struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls a vision model's generateContent endpoint with the receipt
// image inlined as base64.
type Client struct {
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
	http    *http.Client
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:  config.APIURL,
		apiKey:  config.APIKey,
		model:   config.Model,
		timeout: timeout,
		logger:  logger,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateContentRequest struct {
	Contents []struct {
		Parts []map[string]interface{} `json:"parts"`
	} `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// rawReceipt mirrors the model's JSON output before normalization.
type rawReceipt struct {
	Date           string  `json:"date"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Merchant       string  `json:"merchant"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	IsBoardingPass bool    `json:"is_boarding_pass"`
	IsInfoSlip     bool    `json:"is_info_slip"`
}

func (c *Client) ParseReceipt(ctx context.Context, data []byte, mimeType string) (*ParsedReceipt, error) {
	reqBody := generateContentRequest{
		GenerationConfig: map[string]interface{}{
			"response_mime_type": "application/json",
			"temperature":        0,
		},
	}
	reqBody.Contents = append(reqBody.Contents, struct {
		Parts []map[string]interface{} `json:"parts"`
	}{
		Parts: []map[string]interface{}{
			{"text": receiptPrompt},
			{"inline_data": map[string]string{
				"mime_type": mimeType,
				"data":      base64.StdEncoding.EncodeToString(data),
			}},
		},
	})

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parser request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.apiURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create parser request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("receipt parser request failed", "error", err)
		return nil, internal.NewExternalError("Receipt parser is unavailable", internal.ErrCodeParserFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("receipt parser returned non-OK status", "status", resp.StatusCode)
		return nil, internal.NewExternalError(
			fmt.Sprintf("Receipt parser returned status %d", resp.StatusCode),
			internal.ErrCodeParserFailed, nil)
	}

	var apiResp generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, internal.NewExternalError("Failed to decode parser response", internal.ErrCodeParserFailed, err)
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return nil, internal.NewExternalError("Receipt parser returned no candidates", internal.ErrCodeParserFailed, nil)
	}

	var raw rawReceipt
	if err := json.Unmarshal([]byte(apiResp.Candidates[0].Content.Parts[0].Text), &raw); err != nil {
		c.logger.Error("receipt parser returned malformed JSON", "error", err)
		return nil, internal.NewExternalError("Receipt parser returned malformed JSON", internal.ErrCodeParserFailed, err)
	}

	parsed := normalize(raw)

	c.logger.Info("receipt parsed",
		"merchant", parsed.Merchant,
		"amount", parsed.Amount.StringFixed(2),
		"category", parsed.Category,
		"is_info_slip", parsed.IsInfoSlip)

	return parsed, nil
}

// normalize converts the model output into the canonical form: non-finite
// amounts collapse to zero, info slips always carry a zero amount, and the
// currency falls back to TRY.
func normalize(raw rawReceipt) *ParsedReceipt {
	amount := decimal.Zero
	if !math.IsNaN(raw.Amount) && !math.IsInf(raw.Amount, 0) && raw.Amount > 0 {
		amount = decimal.NewFromFloat(raw.Amount).Round(2)
	}
	if raw.IsInfoSlip {
		amount = decimal.Zero
	}

	currency := raw.Currency
	if currency == "" {
		currency = "TRY"
	}

	date, err := time.Parse("2006-01-02", raw.Date)
	if err != nil {
		date = time.Now().Truncate(24 * time.Hour)
	}

	return &ParsedReceipt{
		Date:           date,
		Amount:         amount,
		Currency:       currency,
		Merchant:       raw.Merchant,
		Category:       raw.Category,
		Description:    raw.Description,
		IsBoardingPass: raw.IsBoardingPass,
		IsInfoSlip:     raw.IsInfoSlip,
	}
}
