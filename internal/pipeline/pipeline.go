package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/menulens/menu-digitizer/internal/llm"
	"github.com/menulens/menu-digitizer/internal/ocr"
)

// Config holds the attempt budgets. They are explicit here, not package
// constants, so tests can inject stub gateways with tight budgets.
type Config struct {
	OCRAttempts         int // total attempts of the vision call, default 2
	StructuringAttempts int // total attempts of the structuring call, default 2
}

// Result is a successful digitization: the validated menu plus both raw model
// response bodies for persistence and audit.
type Result struct {
	Menu   llm.StructuredMenu
	RawOCR string
	RawLLM string
}

// Digitizer sequences the pipeline end to end:
// OCR call -> JSON recovery -> page normalization -> OCR schema ->
// structuring call -> JSON recovery -> menu schema.
type Digitizer struct {
	gw     llm.Gateway
	cfg    Config
	logger *slog.Logger
}

func NewDigitizer(gw llm.Gateway, cfg Config, logger *slog.Logger) *Digitizer {
	if cfg.OCRAttempts <= 0 {
		cfg.OCRAttempts = 2
	}
	if cfg.StructuringAttempts <= 0 {
		cfg.StructuringAttempts = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Digitizer{gw: gw, cfg: cfg, logger: logger}
}

// Run digitizes one set of menu images. On any unrecoverable failure the
// returned error is a *DigitizationError. Retries are immediate; there is no
// backoff between attempts.
func (d *Digitizer) Run(ctx context.Context, images []llm.ImageRef) (*Result, error) {
	comp, rawOCR, err := d.runOCR(ctx, images)
	if err != nil {
		return nil, &DigitizationError{
			Message: "ocr stage failed",
			RawOCR:  rawOCR,
			Cause:   err,
		}
	}

	var (
		menu   llm.StructuredMenu
		rawLLM string
	)
	for attempt := 1; ; attempt++ {
		var (
			requested bool
			stageErr  error
		)
		menu, rawLLM, requested, stageErr = d.structureOnce(ctx, comp.Content)
		if stageErr == nil {
			break
		}
		if attempt < d.cfg.StructuringAttempts && retriableStructuring(stageErr) {
			d.logger.Warn("pipeline.structuring.retry", "attempt", attempt, "error", stageErr)
			continue
		}
		msg := "structuring stage failed"
		if !requested {
			msg = "ocr result unusable"
		}
		return nil, &DigitizationError{
			Message: msg,
			RawOCR:  rawOCR,
			RawLLM:  rawLLM,
			Cause:   stageErr,
		}
	}

	d.logger.Info("pipeline.digitize.ok",
		"categories", len(menu.Categories),
		"raw_ocr_bytes", len(rawOCR),
		"raw_llm_bytes", len(rawLLM),
	)
	return &Result{Menu: menu, RawOCR: rawOCR, RawLLM: rawLLM}, nil
}

// runOCR performs the vision call with bounded retry. Retriable failures are
// request failures with status >= 500 or 429, and empty vision responses.
// Everything else aborts immediately.
func (d *Digitizer) runOCR(ctx context.Context, images []llm.ImageRef) (llm.Completion, string, error) {
	var lastRaw string
	for attempt := 1; ; attempt++ {
		comp, err := d.gw.RunOCR(ctx, images)
		if err == nil {
			return comp, string(comp.Raw), nil
		}
		lastRaw = bestRaw(err, lastRaw)
		if attempt < d.cfg.OCRAttempts && retriableOCR(err) {
			d.logger.Warn("pipeline.ocr.retry", "attempt", attempt, "error", err)
			continue
		}
		return llm.Completion{}, lastRaw, err
	}
}

// structureOnce runs the post-OCR stages once: recover the OCR JSON, normalize
// it, validate it, call structuring, recover and validate the menu. The
// returned raw string is the structuring response body when one was received;
// requested reports whether the structuring call was reached, so the caller can
// tell an unusable OCR result apart from a structuring failure.
func (d *Digitizer) structureOnce(ctx context.Context, ocrContent string) (llm.StructuredMenu, string, bool, error) {
	var zero llm.StructuredMenu

	recovered, err := llm.RecoverJSON(ocrContent)
	if err != nil {
		return zero, "", false, err
	}
	canonical := ocr.Normalize(recovered)
	if err := llm.ValidateAgainstSchema(llm.BuildOCRResultSchema(), canonical); err != nil {
		return zero, "", false, err
	}
	ocrJSON, err := json.Marshal(canonical)
	if err != nil {
		return zero, "", false, err
	}

	comp, err := d.gw.RunStructuring(ctx, ocrJSON)
	if err != nil {
		return zero, bestRaw(err, ""), true, err
	}
	raw := string(comp.Raw)

	menuVal, err := llm.RecoverJSON(comp.Content)
	if err != nil {
		return zero, raw, true, err
	}
	if err := llm.ValidateAgainstSchema(llm.BuildMenuSchema(), menuVal); err != nil {
		return zero, raw, true, err
	}
	menuJSON, err := json.Marshal(menuVal)
	if err != nil {
		return zero, raw, true, err
	}
	menu, err := llm.DecodeMenu(menuJSON)
	if err != nil {
		return zero, raw, true, err
	}
	return menu, raw, true, nil
}

func retriableOCR(err error) bool {
	var req *llm.RequestError
	if errors.As(err, &req) {
		return req.Transient()
	}
	var empty *llm.EmptyResponseError
	return errors.As(err, &empty)
}

// retriableStructuring allows another structuring attempt only on parse or
// schema-validation failures. Request-level failures of the structuring call
// abort immediately: repeating an expensive call after a transport failure is
// unlikely to help within the same attempt budget.
func retriableStructuring(err error) bool {
	var parse *llm.ParseError
	if errors.As(err, &parse) {
		return true
	}
	var validation *llm.ValidationError
	return errors.As(err, &validation)
}

func bestRaw(err error, fallback string) string {
	var req *llm.RequestError
	if errors.As(err, &req) && req.Raw != "" {
		return req.Raw
	}
	var empty *llm.EmptyResponseError
	if errors.As(err, &empty) && empty.Raw != "" {
		return empty.Raw
	}
	return fallback
}
