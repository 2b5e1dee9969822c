package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menulens/menu-digitizer/internal/llm"
)

const (
	ocrContent = `{"pages":[{"pageIndex":0,"lines":["Nasi Goreng 45000","Es Teh 10000"]}]}`
	menuJSON   = `{"categories":[{"nameEn":"Mains","nameOriginal":"Makanan Utama","nameRu":"Основные блюда","items":[{"originalName":"Nasi Goreng","nameEn":"Fried Rice","nameRu":"Жареный рис","descriptionEn":null,"descriptionRu":null,"priceValue":45000,"priceCurrency":"IDR","isSpicy":true,"approxCalories":null,"isLocalSpecial":true}]}]}`
)

type call struct {
	comp llm.Completion
	err  error
}

// stubGateway replays scripted responses; the last entry repeats when calls
// outnumber the script.
type stubGateway struct {
	ocr         []call
	structuring []call
	ocrCalls    int
	structCalls int
}

func (s *stubGateway) RunOCR(context.Context, []llm.ImageRef) (llm.Completion, error) {
	c := s.ocr[min(s.ocrCalls, len(s.ocr)-1)]
	s.ocrCalls++
	return c.comp, c.err
}

func (s *stubGateway) RunStructuring(context.Context, []byte) (llm.Completion, error) {
	c := s.structuring[min(s.structCalls, len(s.structuring)-1)]
	s.structCalls++
	return c.comp, c.err
}

func ok(content, raw string) call {
	return call{comp: llm.Completion{Content: content, Raw: []byte(raw)}}
}

func newTestDigitizer(gw llm.Gateway) *Digitizer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDigitizer(gw, Config{OCRAttempts: 2, StructuringAttempts: 2}, logger)
}

func TestRunSuccess(t *testing.T) {
	gw := &stubGateway{
		ocr:         []call{ok(ocrContent, "ocr-raw-body")},
		structuring: []call{ok(menuJSON, "llm-raw-body")},
	}
	res, err := newTestDigitizer(gw).Run(context.Background(), []llm.ImageRef{{URL: "https://img/1.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.ocrCalls)
	assert.Equal(t, 1, gw.structCalls)
	assert.Equal(t, "ocr-raw-body", res.RawOCR)
	assert.Equal(t, "llm-raw-body", res.RawLLM)

	require.Len(t, res.Menu.Categories, 1)
	cat := res.Menu.Categories[0]
	assert.Equal(t, "Mains", cat.NameEn)
	require.Len(t, cat.Items, 1)
	item := cat.Items[0]
	assert.Equal(t, "Nasi Goreng", item.OriginalName)
	assert.Equal(t, "Fried Rice", item.NameEn)
	require.NotNil(t, item.PriceValue)
	assert.EqualValues(t, 45000, *item.PriceValue)
	assert.Equal(t, "IDR", item.PriceCurrency)
	assert.True(t, item.IsSpicy)
	assert.True(t, item.IsLocalSpecial)
}

func TestRunOCRRetriesServerError(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{
			{err: &llm.RequestError{Stage: llm.StageOCR, Status: 500, Raw: "upstream blew up"}},
			ok(ocrContent, "ocr-raw"),
		},
		structuring: []call{ok(menuJSON, "llm-raw")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.ocrCalls)
}

func TestRunOCRRetriesRateLimit(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{
			{err: &llm.RequestError{Stage: llm.StageOCR, Status: 429}},
			ok(ocrContent, "ocr-raw"),
		},
		structuring: []call{ok(menuJSON, "llm-raw")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.ocrCalls)
}

func TestRunOCRRetriesEmptyResponse(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{
			{err: &llm.EmptyResponseError{Stage: llm.StageOCR, Raw: `{"choices":[]}`}},
			ok(ocrContent, "ocr-raw"),
		},
		structuring: []call{ok(menuJSON, "llm-raw")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.ocrCalls)
}

func TestRunOCRExhaustsAttempts(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{{err: &llm.RequestError{Stage: llm.StageOCR, Status: 503, Raw: "still down"}}},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, gw.ocrCalls)
	assert.Equal(t, 0, gw.structCalls)

	var derr *DigitizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "still down", derr.RawOCR)
	var req *llm.RequestError
	require.ErrorAs(t, err, &req)
	assert.Equal(t, 503, req.Status)
}

func TestRunOCRClientErrorNotRetried(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{{err: &llm.RequestError{Stage: llm.StageOCR, Status: 400, Raw: "bad request"}}},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, gw.ocrCalls)

	var derr *DigitizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "bad request", derr.RawOCR)
}

func TestRunOCRTransportErrorNotRetried(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{{err: &llm.RequestError{Stage: llm.StageOCR, Status: llm.StatusTransport, Cause: errors.New("dial tcp: timeout")}}},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, gw.ocrCalls)
}

func TestRunStructuringRequestFailureAborts(t *testing.T) {
	gw := &stubGateway{
		ocr:         []call{ok(ocrContent, "ocr-raw")},
		structuring: []call{{err: &llm.RequestError{Stage: llm.StageStructuring, Status: 502, Raw: "gateway error body"}}},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, gw.structCalls)

	var derr *DigitizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ocr-raw", derr.RawOCR)
	assert.Equal(t, "gateway error body", derr.RawLLM)
}

func TestRunStructuringRetriesBadJSON(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{ok(ocrContent, "ocr-raw")},
		structuring: []call{
			ok("Sorry, I cannot help with that.", "llm-refusal"),
			ok(menuJSON, "llm-raw"),
		},
	}
	res, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.ocrCalls)
	assert.Equal(t, 2, gw.structCalls)
	assert.Equal(t, "llm-raw", res.RawLLM)
}

func TestRunStructuringRetriesSchemaViolation(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{ok(ocrContent, "ocr-raw")},
		structuring: []call{
			ok(`{"categories":[{"nameEn":"","nameRu":"x","items":[]}]}`, "llm-bad"),
			ok(menuJSON, "llm-good"),
		},
	}
	res, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.structCalls)
	assert.Equal(t, "llm-good", res.RawLLM)
}

func TestRunStructuringExhaustsAttempts(t *testing.T) {
	gw := &stubGateway{
		ocr:         []call{ok(ocrContent, "ocr-raw")},
		structuring: []call{ok(`{"no":"menu here"}`, "llm-bad")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 2, gw.structCalls)

	var derr *DigitizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "structuring stage failed", derr.Message)
	assert.Equal(t, "ocr-raw", derr.RawOCR)
	assert.Equal(t, "llm-bad", derr.RawLLM)
	var ve *llm.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRunUnrecoverableOCRContentFailsBeforeStructuring(t *testing.T) {
	gw := &stubGateway{
		ocr: []call{ok("the photo is too blurry to read", "ocr-raw")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, gw.ocrCalls)
	assert.Equal(t, 0, gw.structCalls)

	var derr *DigitizationError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ocr result unusable", derr.Message)
	assert.Equal(t, "ocr-raw", derr.RawOCR)
	assert.Empty(t, derr.RawLLM)
	var pe *llm.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestRunDegradedOCRShapeRejectedBySchema(t *testing.T) {
	// Valid JSON that the normalizer cannot coerce into pages degrades to an
	// empty page list, which the schema rejects.
	gw := &stubGateway{
		ocr: []call{ok(`{"confidence":0.2}`, "ocr-raw")},
	}
	_, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 0, gw.structCalls)
	var ve *llm.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRunNormalizesLooseOCRShape(t *testing.T) {
	gw := &stubGateway{
		ocr:         []call{ok(`{"result":{"text":"Nasi Goreng 45000\nEs Teh 10000"}}`, "ocr-raw")},
		structuring: []call{ok(menuJSON, "llm-raw")},
	}
	res, err := newTestDigitizer(gw).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Menu.Categories, 1)
}
