package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/transport"
)

const (
	// MaxBatchItems is the largest number of requests one batch may carry.
	MaxBatchItems = 50000
	// MaxBatchBytes bounds the encoded JSONL document.
	MaxBatchBytes = 200 << 20
	// MaxItemMessages bounds the conversation length of a single item.
	MaxItemMessages = 100

	batchEndpoint  = "/v1/chat/completions"
	minWindowHours = 1
	maxWindowHours = 24

	metaStructured = "structured_output"
	metaName       = "batch_name"
	metaCaller     = "caller_id"
	metaModel      = "model"
)

// maxBatchBytes is the enforced document limit; tests lower it.
var maxBatchBytes = MaxBatchBytes

type batchLine struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     chatPayload `json:"body"`
}

type fileObject struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

type createBatchRequest struct {
	InputFileID      string            `json:"input_file_id"`
	Endpoint         string            `json:"endpoint"`
	CompletionWindow string            `json:"completion_window"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type batchObject struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	InputFileID  string `json:"input_file_id"`
	OutputFileID string `json:"output_file_id"`
	ErrorFileID  string `json:"error_file_id"`
	Errors       *struct {
		Data []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"data"`
	} `json:"errors"`
	RequestCounts struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"request_counts"`
	Metadata map[string]string `json:"metadata"`
}

type outputLine struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int             `json:"status_code"`
		Body       json.RawMessage `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateBatch encodes items as a JSONL document, uploads it and starts a batch
// job referencing it.
func (p *Provider) CreateBatch(ctx context.Context, model string, items []models.BatchItem, opts models.BatchOptions) (*models.BatchSubmission, error) {
	desc, err := p.catalog.Lookup(model)
	if err != nil {
		return nil, err
	}
	if !desc.Capabilities.BatchRequests {
		return nil, provider.Unsupported(Name, desc.ID, "batch requests")
	}
	if len(items) == 0 {
		return nil, provider.Validationf("batch must contain at least one item")
	}
	if len(items) > MaxBatchItems {
		return nil, provider.Validationf("batch has %d items, limit is %d", len(items), MaxBatchItems)
	}

	ids := correlationIDs(items, opts, p.now())
	for i, id := range ids {
		if _, shape := parseCustomID(id); shape != shapeText {
			return nil, provider.Validationf("item %d: id %q ends with a reserved suffix", i, id)
		}
	}
	for id, winner := range duplicateIDs(ids) {
		p.logger.WarnContext(ctx, "duplicate batch correlation id; later item wins", "custom_id", id, "index", winner)
	}

	var doc bytes.Buffer
	anyStructured := false
	for i, item := range items {
		if len(item.Messages) == 0 {
			return nil, provider.Validationf("item %d (%s): messages must not be empty", i, ids[i])
		}
		if len(item.Messages) > MaxItemMessages {
			return nil, provider.Validationf("item %d (%s): %d messages, limit is %d", i, ids[i], len(item.Messages), MaxItemMessages)
		}

		itemOpts := opts.Defaults.Clone()
		if item.Options != nil {
			itemOpts = item.Options.Clone()
		}
		if itemOpts.CallerID == "" {
			itemOpts.CallerID = opts.CallerID
		}

		payload, shape, err := buildChatPayload(desc, item.Messages, itemOpts)
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, ids[i], err)
		}
		anyStructured = anyStructured || shape.structured()

		line, err := json.Marshal(batchLine{CustomID: wireCustomID(ids[i], shape), Method: http.MethodPost, URL: batchEndpoint, Body: payload})
		if err != nil {
			return nil, fmt.Errorf("encode item %d: %w", i, err)
		}
		doc.Write(line)
		doc.WriteByte('\n')
		if doc.Len() > maxBatchBytes {
			return nil, provider.Validationf("batch payload exceeds %d bytes at item %d", maxBatchBytes, i)
		}
	}

	file, err := p.uploadBatchFile(ctx, doc.Bytes())
	if err != nil {
		return nil, err
	}

	window := completionWindow(opts.TimeoutSeconds)
	req := createBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         batchEndpoint,
		CompletionWindow: strconv.Itoa(window) + "h",
		Metadata:         batchMetadata(desc.ID, opts, anyStructured),
	}
	var job batchObject
	if err := p.sendJSON(ctx, http.MethodPost, "/batches", req, &job); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "openai batch created", "job_id", job.ID, "items", len(items), "model", desc.ID, "window_hours", window)
	return &models.BatchSubmission{JobID: job.ID, CorrelationIDs: ids, WindowHours: window}, nil
}

// CheckBatch fetches the job and maps its status onto the unified states.
func (p *Provider) CheckBatch(ctx context.Context, jobID string) (*models.BatchStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, provider.Validationf("batch job id must not be empty")
	}
	var job batchObject
	if err := p.sendJSON(ctx, http.MethodGet, "/batches/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return job.toStatus(), nil
}

// RetrieveBatch downloads the output of a completed job. Lines that cannot be
// turned into a completion are skipped with a warning.
func (p *Provider) RetrieveBatch(ctx context.Context, jobID string) ([]models.CompletionResult, error) {
	status, err := p.CheckBatch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status.State != models.BatchCompleted {
		return nil, fmt.Errorf("%w: batch %s is %s", provider.ErrNotReady, jobID, status.RawStatus)
	}
	if status.OutputFileID == "" {
		p.logger.WarnContext(ctx, "completed batch has no output file", "job_id", jobID, "failed", status.Counts.Failed)
		return []models.CompletionResult{}, nil
	}

	header := p.header()
	header.Del("Accept")
	resp, err := p.send(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    p.baseURL + "/files/" + url.PathEscape(status.OutputFileID) + "/content",
		Header: header,
	})
	if err != nil {
		return nil, err
	}

	model := status.Metadata[metaModel]
	results := make([]models.CompletionResult, 0, status.Counts.Completed)
	for n, raw := range strings.Split(string(resp.Body), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		result, err := p.parseOutputLine(ctx, []byte(raw), model)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping batch output line", "job_id", jobID, "line", n+1, "error", err)
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// CancelBatch asks the backend to cancel the job.
func (p *Provider) CancelBatch(ctx context.Context, jobID string) (bool, error) {
	if strings.TrimSpace(jobID) == "" {
		return false, provider.Validationf("batch job id must not be empty")
	}
	if err := p.sendJSON(ctx, http.MethodPost, "/batches/"+url.PathEscape(jobID)+"/cancel", nil, nil); err != nil {
		return false, err
	}
	return true, nil
}

var errSkippedLine = errors.New("unusable batch output line")

// parseOutputLine decodes one output line. The custom id tells whether its
// item requested structure.
func (p *Provider) parseOutputLine(ctx context.Context, raw []byte, model string) (*models.CompletionResult, error) {
	var line outputLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("%w: %v", errSkippedLine, err)
	}
	if line.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s: %s", errSkippedLine, line.CustomID, line.Error.Code, line.Error.Message)
	}
	if line.Response == nil || len(line.Response.Body) == 0 || string(line.Response.Body) == "null" {
		return nil, fmt.Errorf("%w: %s: missing response body", errSkippedLine, line.CustomID)
	}
	if code := line.Response.StatusCode; code != 0 && (code < 200 || code >= 300) {
		return nil, fmt.Errorf("%w: %s: status %d", errSkippedLine, line.CustomID, code)
	}

	var body chatResponse
	if err := json.Unmarshal(line.Response.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errSkippedLine, line.CustomID, err)
	}
	text, ok := body.text()
	if !ok {
		return nil, fmt.Errorf("%w: %s: no choices", errSkippedLine, line.CustomID)
	}
	if model == "" {
		model = body.Model
	}

	correlationID, shape := parseCustomID(line.CustomID)
	result := p.toResult(ctx, model, text, shape, body.Usage)
	result.CorrelationID = correlationID
	return result, nil
}

func (p *Provider) uploadBatchFile(ctx context.Context, doc []byte) (*fileObject, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("purpose", "batch"); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	part, err := form.CreateFormFile("file", "batch-"+uuid.NewString()+".jsonl")
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(doc); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	header := p.header()
	header.Set("Content-Type", form.FormDataContentType())
	resp, err := p.send(ctx, transport.Request{Method: http.MethodPost, URL: p.baseURL + "/files", Header: header, Body: body.Bytes()})
	if err != nil {
		return nil, err
	}

	var file fileObject
	if err := json.Unmarshal(resp.Body, &file); err != nil {
		return nil, fmt.Errorf("decode openai file response: %w", err)
	}
	if file.ID == "" {
		return nil, errors.New("openai file upload returned no id")
	}
	return &file, nil
}

// completionWindow converts a timeout in seconds into whole hours within the
// backend's allowed window. Zero or negative selects the maximum.
func completionWindow(timeoutSeconds int) int {
	if timeoutSeconds <= 0 {
		return maxWindowHours
	}
	hours := (timeoutSeconds + 3599) / 3600
	return max(minWindowHours, min(maxWindowHours, hours))
}

func batchMetadata(model string, opts models.BatchOptions, structured bool) map[string]string {
	meta := make(map[string]string, len(opts.Metadata)+4)
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	meta[metaModel] = model
	if structured {
		meta[metaStructured] = "true"
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		meta[metaName] = name
	}
	if caller := strings.TrimSpace(opts.CallerID); caller != "" {
		meta[metaCaller] = caller
	}
	return meta
}

// mapStatus folds the backend's status vocabulary into the unified states.
func mapStatus(raw string) models.BatchState {
	switch raw {
	case "validating", "in_progress", "finalizing":
		return models.BatchProcessing
	case "completed":
		return models.BatchCompleted
	case "failed", "cancelled", "cancelling", "expired":
		return models.BatchFailed
	default:
		return models.BatchPending
	}
}

func (b batchObject) toStatus() *models.BatchStatus {
	status := &models.BatchStatus{
		JobID:        b.ID,
		State:        mapStatus(b.Status),
		RawStatus:    b.Status,
		OutputFileID: b.OutputFileID,
		ErrorFileID:  b.ErrorFileID,
		Counts: models.BatchCounts{
			Total:     b.RequestCounts.Total,
			Completed: b.RequestCounts.Completed,
			Failed:    b.RequestCounts.Failed,
		},
		Metadata: b.Metadata,
	}
	if b.Errors != nil && len(b.Errors.Data) > 0 {
		first := b.Errors.Data[0]
		status.Error = &models.BatchError{Code: first.Code, Message: first.Message}
	}
	return status
}
